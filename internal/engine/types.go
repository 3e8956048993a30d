package engine

import "fmt"

// TimeSlot is a (day, period) coordinate in the weekly grid. Day runs 1-7,
// period 1-12. Value type, compared by value.
type TimeSlot struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// String renders the slot for logs and conflict records.
func (s TimeSlot) String() string {
	return fmt.Sprintf("day %d period %d", s.Day, s.Period)
}

// Before orders slots by day then period.
func (s TimeSlot) Before(other TimeSlot) bool {
	if s.Day != other.Day {
		return s.Day < other.Day
	}
	return s.Period < other.Period
}

// Tier is the priority class of a variable. Tiers are solved in strict order.
type Tier int

const (
	TierFixed Tier = iota
	TierCore
	TierGeneral
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierFixed:
		return "FIXED"
	case TierCore:
		return "CORE"
	default:
		return "GENERAL"
	}
}

// WeekType marks whether a placement applies to all, odd or even weeks.
type WeekType string

const (
	WeekAll  WeekType = "ALL"
	WeekOdd  WeekType = "ODD"
	WeekEven WeekType = "EVEN"
)

// Variable is one atomic teaching hour awaiting placement. Variables are
// created once per run by the generator and never mutated afterwards; the
// solver only attaches or detaches assignments in the working state.
type Variable struct {
	ID        int
	ClassID   string
	CourseID  string
	TeacherID string

	// BlockGroupID links variables that must occupy consecutive periods.
	// Empty for standalone hours. BlockSize is 1 for standalone variables
	// and N>=2 for every member of a continuous block.
	BlockGroupID string
	BlockSize    int

	Fixed       bool
	FixedSlot   *TimeSlot
	FixedRoomID string
	// Preserved marks variables rebuilt from already-active schedule
	// records when the caller asked to keep them.
	Preserved bool

	Tier      Tier
	WeekType  WeekType
	StartWeek int
	EndWeek   int

	Preferred []TimeSlot
	Avoid     []TimeSlot
}

// Assignment maps a variable to a slot and room. Assignments are revocable
// until the run finishes.
type Assignment struct {
	VariableID int
	Slot       TimeSlot
	RoomID     string
}

// ResourceKind identifies which exclusivity index a conflict belongs to.
type ResourceKind string

const (
	ResourceTeacher ResourceKind = "teacher"
	ResourceRoom    ResourceKind = "room"
	ResourceClass   ResourceKind = "class"
)

// ConflictRecord captures a slot occupied by more than one variable for a
// single resource. Records are immutable once emitted.
type ConflictRecord struct {
	Kind        ResourceKind `json:"kind"`
	ResourceID  string       `json:"resourceId"`
	Slot        TimeSlot     `json:"slot"`
	VariableIDs []int        `json:"variableIds"`
	Warning     bool         `json:"warning"`
}

// Statistics summarises a completed run. AssignedVariables plus
// UnassignedVariables always equals TotalVariables.
type Statistics struct {
	TotalVariables      int `json:"totalVariables"`
	AssignedVariables   int `json:"assignedVariables"`
	UnassignedVariables int `json:"unassignedVariables"`
	HardViolations      int `json:"hardViolations"`
	SoftViolations      int `json:"softViolations"`
	TotalScore          int `json:"totalScore"`
}

// Progress is emitted on the run's progress channel after each stage and at a
// fixed cadence during local optimization.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Status is the terminal state of a run. Partial coverage is still COMPLETED;
// ABORTED is reserved for cancellation.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusAborted   Status = "ABORTED"
)

// ScheduleEntry is the externally persisted shape of one finalized assignment.
type ScheduleEntry struct {
	ClassID   string   `json:"classId"`
	CourseID  string   `json:"courseId"`
	TeacherID string   `json:"teacherId"`
	RoomID    string   `json:"roomId"`
	DayOfWeek int      `json:"dayOfWeek"`
	Period    int      `json:"period"`
	WeekType  WeekType `json:"weekType"`
	StartWeek int      `json:"startWeek"`
	EndWeek   int      `json:"endWeek"`
	Status    string   `json:"status"`
	Preserved bool     `json:"preserved"`
}

// UnassignedVariable reports a variable that survived no candidate filtering.
type UnassignedVariable struct {
	VariableID int    `json:"variableId"`
	ClassID    string `json:"classId"`
	CourseID   string `json:"courseId"`
	TeacherID  string `json:"teacherId"`
	Reason     string `json:"reason"`
}

// Diagnostic is a generation-time report. Fatal diagnostics abort the run
// before any placement.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const (
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Result is always returned to the caller, even for aborted runs: it carries
// the best state reached so far.
type Result struct {
	Status      Status               `json:"status"`
	Entries     []ScheduleEntry      `json:"entries"`
	Statistics  Statistics           `json:"statistics"`
	Conflicts   []ConflictRecord     `json:"conflicts"`
	Suggestions []string             `json:"suggestions"`
	Unassigned  []UnassignedVariable `json:"unassigned"`
	Diagnostics []Diagnostic         `json:"diagnostics"`
}
