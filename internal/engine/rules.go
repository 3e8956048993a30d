package engine

import (
	"fmt"
	"time"
)

// Policy controls how a resource's exclusivity conflicts are resolved.
// Only PolicyIgnore lets the solver place through an occupied slot; the
// violation is then recorded by the detector instead of being prevented.
type Policy string

const (
	PolicyStrict  Policy = "strict"
	PolicyWarning Policy = "warning"
	PolicyIgnore  Policy = "ignore"
)

func (p Policy) valid() bool {
	switch p {
	case PolicyStrict, PolicyWarning, PolicyIgnore:
		return true
	}
	return false
}

// FixedConflictStrategy governs collisions between fixed-time activities
// during pre-placement.
type FixedConflictStrategy string

const (
	FixedStrict   FixedConflictStrategy = "strict"
	FixedFlexible FixedConflictStrategy = "flexible"
	FixedWarning  FixedConflictStrategy = "warning"
)

// TimeRules defines the weekly grid.
type TimeRules struct {
	DaysPerWeek   int `json:"daysPerWeek"`
	PeriodsPerDay int `json:"periodsPerDay"`
	// LunchAfterPeriod is the last morning period. Continuous blocks may
	// not span the boundary between it and the next period. Zero disables
	// the boundary check.
	LunchAfterPeriod int `json:"lunchAfterPeriod"`
}

// TeacherConstraints are soft limits applied per teacher.
type TeacherConstraints struct {
	MaxDailyHours         int `json:"maxDailyHours"`
	MaxContinuousHours    int `json:"maxContinuousHours"`
	MinRestBetweenCourses int `json:"minRestBetweenCourses"`
}

// RoomConstraints toggles hard room checks.
type RoomConstraints struct {
	RespectCapacityLimits bool `json:"respectCapacityLimits"`
}

// CourseArrangementRules bounds continuous blocks and edge-period placement.
type CourseArrangementRules struct {
	MaxContinuousHours int `json:"maxContinuousHours"`
}

// CoreSubjectStrategy identifies core subjects and their distribution limits.
type CoreSubjectStrategy struct {
	CoreSubjects            []string `json:"coreSubjects"`
	MaxDailyOccurrences     int      `json:"maxDailyOccurrences"`
	EnforceEvenDistribution bool     `json:"enforceEvenDistribution"`
	MaxConcentration        int      `json:"maxConcentration"`
	// BalanceWeight scales distribution penalties linearly, 0-100.
	BalanceWeight int `json:"balanceWeight"`
}

// TeacherRotation spreads a teacher's repeat visits to the same class.
type TeacherRotation struct {
	EnableRotation            bool `json:"enableRotation"`
	MinIntervalBetweenClasses int  `json:"minIntervalBetweenClasses"`
	MaxConsecutiveClasses     int  `json:"maxConsecutiveClasses"`
}

// ConflictResolution holds per-resource exclusivity policies plus the
// tie-break priority order among otherwise-equal candidates.
type ConflictResolution struct {
	Teacher       Policy   `json:"teacher"`
	Room          Policy   `json:"room"`
	Class         Policy   `json:"class"`
	PriorityOrder []string `json:"priorityOrder"`
}

// PolicyFor returns the policy configured for the given resource kind.
func (c ConflictResolution) PolicyFor(kind ResourceKind) Policy {
	switch kind {
	case ResourceTeacher:
		return c.Teacher
	case ResourceRoom:
		return c.Room
	default:
		return c.Class
	}
}

// FixedTimeCourse is an administratively pinned activity such as flag
// raising or a class meeting. An empty ClassID applies it to every class.
type FixedTimeCourse struct {
	Name      string   `json:"name"`
	ClassID   string   `json:"classId"`
	CourseID  string   `json:"courseId"`
	TeacherID string   `json:"teacherId"`
	RoomID    string   `json:"roomId"`
	Slot      TimeSlot `json:"slot"`
}

// FixedTimeCourses lists pinned activities and the collision strategy used
// while pre-placing them.
type FixedTimeCourses struct {
	Courses          []FixedTimeCourse     `json:"courses"`
	ConflictStrategy FixedConflictStrategy `json:"conflictStrategy"`
}

// Rules is the full, closed rule set consumed read-only by a run. It is
// validated eagerly at run start; the solver never null-checks rule fields.
type Rules struct {
	Time           TimeRules              `json:"time"`
	Teacher        TeacherConstraints     `json:"teacher"`
	Room           RoomConstraints        `json:"room"`
	Arrangement    CourseArrangementRules `json:"arrangement"`
	CoreSubjects   CoreSubjectStrategy    `json:"coreSubjects"`
	Rotation       TeacherRotation        `json:"rotation"`
	Conflicts      ConflictResolution     `json:"conflicts"`
	FixedTime      FixedTimeCourses       `json:"fixedTime"`
	ForbiddenSlots []TimeSlot             `json:"forbiddenSlots"`
}

// DefaultRules returns a rule set usable without further configuration:
// a 5x8 grid, strict exclusivity everywhere and moderate soft limits.
func DefaultRules() Rules {
	return Rules{
		Time: TimeRules{DaysPerWeek: 5, PeriodsPerDay: 8, LunchAfterPeriod: 4},
		Teacher: TeacherConstraints{
			MaxDailyHours:      6,
			MaxContinuousHours: 3,
		},
		Room:        RoomConstraints{RespectCapacityLimits: true},
		Arrangement: CourseArrangementRules{MaxContinuousHours: 2},
		CoreSubjects: CoreSubjectStrategy{
			MaxDailyOccurrences: 2,
			MaxConcentration:    3,
			BalanceWeight:       50,
		},
		Rotation: TeacherRotation{
			MinIntervalBetweenClasses: 2,
			MaxConsecutiveClasses:     2,
		},
		Conflicts: ConflictResolution{
			Teacher:       PolicyStrict,
			Room:          PolicyStrict,
			Class:         PolicyStrict,
			PriorityOrder: []string{"teacher", "room", "class"},
		},
		FixedTime: FixedTimeCourses{ConflictStrategy: FixedStrict},
	}
}

// Validate reports configuration errors. A run never starts on invalid rules.
func (r *Rules) Validate() error {
	if r.Time.DaysPerWeek < 1 || r.Time.DaysPerWeek > 7 {
		return fmt.Errorf("rules: daysPerWeek must be between 1 and 7, got %d", r.Time.DaysPerWeek)
	}
	if r.Time.PeriodsPerDay < 1 || r.Time.PeriodsPerDay > 12 {
		return fmt.Errorf("rules: periodsPerDay must be between 1 and 12, got %d", r.Time.PeriodsPerDay)
	}
	if r.Time.LunchAfterPeriod < 0 || r.Time.LunchAfterPeriod >= r.Time.PeriodsPerDay {
		return fmt.Errorf("rules: lunchAfterPeriod must be within the day, got %d", r.Time.LunchAfterPeriod)
	}
	if !r.Conflicts.Teacher.valid() || !r.Conflicts.Room.valid() || !r.Conflicts.Class.valid() {
		return fmt.Errorf("rules: conflict policies must be one of strict, warning, ignore")
	}
	switch r.FixedTime.ConflictStrategy {
	case FixedStrict, FixedFlexible, FixedWarning:
	default:
		return fmt.Errorf("rules: fixed-time conflict strategy %q is not supported", r.FixedTime.ConflictStrategy)
	}
	for _, item := range r.Conflicts.PriorityOrder {
		switch item {
		case "teacher", "room", "class":
		default:
			return fmt.Errorf("rules: priority order entry %q is not a resource", item)
		}
	}
	if r.CoreSubjects.BalanceWeight < 0 || r.CoreSubjects.BalanceWeight > 100 {
		return fmt.Errorf("rules: balanceWeight must be within 0-100, got %d", r.CoreSubjects.BalanceWeight)
	}
	for _, fixed := range r.FixedTime.Courses {
		if !r.slotInGrid(fixed.Slot) {
			return fmt.Errorf("rules: fixed-time course %q is outside the time grid at %s", fixed.Name, fixed.Slot)
		}
	}
	return nil
}

// IsCoreSubject reports whether the subject belongs to the core tier.
func (r *Rules) IsCoreSubject(subject string) bool {
	for _, s := range r.CoreSubjects.CoreSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

func (r *Rules) slotInGrid(slot TimeSlot) bool {
	return slot.Day >= 1 && slot.Day <= r.Time.DaysPerWeek &&
		slot.Period >= 1 && slot.Period <= r.Time.PeriodsPerDay
}

// AlgorithmConfig bounds the optional local-optimization phase.
type AlgorithmConfig struct {
	MaxIterations           int           `json:"maxIterations"`
	TimeLimit               time.Duration `json:"timeLimit"`
	EnableLocalOptimization bool          `json:"enableLocalOptimization"`
}
