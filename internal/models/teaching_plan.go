package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TeachingPlanStatus represents the approval lifecycle of a teaching plan.
type TeachingPlanStatus string

const (
	TeachingPlanStatusDraft    TeachingPlanStatus = "DRAFT"
	TeachingPlanStatusApproved TeachingPlanStatus = "APPROVED"
	TeachingPlanStatusArchived TeachingPlanStatus = "ARCHIVED"
)

// TeachingPlan binds a class to its per-term course assignments. Only
// approved plans feed the scheduler.
type TeachingPlan struct {
	ID           string             `db:"id" json:"id"`
	AcademicYear string             `db:"academic_year" json:"academic_year"`
	Semester     int                `db:"semester" json:"semester"`
	ClassID      string             `db:"class_id" json:"class_id"`
	Status       TeachingPlanStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// CourseAssignment is one row of a teaching plan: which teacher delivers
// which course to the plan's class, and how its weekly hours want to be laid
// out.
type CourseAssignment struct {
	ID                 string         `db:"id" json:"id"`
	PlanID             string         `db:"plan_id" json:"plan_id"`
	ClassID            string         `db:"class_id" json:"class_id"`
	CourseID           string         `db:"course_id" json:"course_id"`
	TeacherID          string         `db:"teacher_id" json:"teacher_id"`
	WeeklyHours        int            `db:"weekly_hours" json:"weekly_hours"`
	RequiresContinuous bool           `db:"requires_continuous" json:"requires_continuous"`
	ContinuousHours    int            `db:"continuous_hours" json:"continuous_hours"`
	PreferredSlots     types.JSONText `db:"preferred_slots" json:"preferred_slots,omitempty"`
	AvoidSlots         types.JSONText `db:"avoid_slots" json:"avoid_slots,omitempty"`
	FixedDayOfWeek     *int           `db:"fixed_day_of_week" json:"fixed_day_of_week,omitempty"`
	FixedPeriod        *int           `db:"fixed_period" json:"fixed_period,omitempty"`
	FixedRoomID        *string        `db:"fixed_room_id" json:"fixed_room_id,omitempty"`
	WeekType           string         `db:"week_type" json:"week_type"`
	StartWeek          int            `db:"start_week" json:"start_week"`
	EndWeek            int            `db:"end_week" json:"end_week"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}
