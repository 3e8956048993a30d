package models

import "time"

// Class represents a student group that receives a weekly timetable.
type Class struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Grade             string    `db:"grade" json:"grade"`
	StudentCount      int       `db:"student_count" json:"student_count"`
	HomeroomTeacherID *string   `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
