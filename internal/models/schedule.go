package models

import "time"

// ScheduleStatus is the lifecycle state of a persisted schedule record.
type ScheduleStatus string

const (
	ScheduleStatusActive   ScheduleStatus = "ACTIVE"
	ScheduleStatusInactive ScheduleStatus = "INACTIVE"
)

// Schedule is one persisted timetable record: a class taking a course with a
// teacher at a (day, period) cell of the weekly grid. Database constraints
// enforce uniqueness of active records per (year, semester, day, period)
// over teacher, class and room.
type Schedule struct {
	ID           string         `db:"id" json:"id"`
	AcademicYear string         `db:"academic_year" json:"academic_year"`
	Semester     int            `db:"semester" json:"semester"`
	ClassID      string         `db:"class_id" json:"class_id"`
	CourseID     string         `db:"course_id" json:"course_id"`
	TeacherID    string         `db:"teacher_id" json:"teacher_id"`
	RoomID       *string        `db:"room_id" json:"room_id,omitempty"`
	DayOfWeek    int            `db:"day_of_week" json:"day_of_week"`
	Period       int            `db:"period" json:"period"`
	WeekType     string         `db:"week_type" json:"week_type"`
	StartWeek    int            `db:"start_week" json:"start_week"`
	EndWeek      int            `db:"end_week" json:"end_week"`
	Status       ScheduleStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail joins display names onto a schedule record for timetable
// views and exports.
type ScheduleDetail struct {
	Schedule
	ClassName   string  `db:"class_name" json:"class_name"`
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	RoomName    *string `db:"room_name" json:"room_name,omitempty"`
}

// ScheduleFilter scopes schedule queries to one term.
type ScheduleFilter struct {
	AcademicYear string
	Semester     int
	ClassIDs     []string
	TeacherID    string
}
