package engine

import "fmt"

// CourseDemand is one teaching-plan course assignment: a class/course/teacher
// triple that needs weeklyHours placements, optionally in continuous blocks
// or at an administratively fixed slot.
type CourseDemand struct {
	ClassID            string
	CourseID           string
	TeacherID          string
	WeeklyHours        int
	RequiresContinuous bool
	ContinuousHours    int
	PreferredSlots     []TimeSlot
	AvoidSlots         []TimeSlot
	FixedSlot          *TimeSlot
	FixedRoomID        string
	WeekType           WeekType
	StartWeek          int
	EndWeek            int
}

// PreservedAssignment is an already-active schedule record the caller asked
// to keep. It becomes a pre-placed fixed variable so no new placement can
// displace it.
type PreservedAssignment struct {
	ClassID   string
	CourseID  string
	TeacherID string
	RoomID    string
	Slot      TimeSlot
	WeekType  WeekType
	StartWeek int
	EndWeek   int
}

// generate expands demands, rule-configured fixed-time activities and
// preserved records into the run's variable set. One variable per weekly
// hour; continuous assignments are split into groups of ContinuousHours
// variables sharing a block group id, with a non-continuous remainder when
// WeeklyHours is not evenly divisible.
//
// Demands with WeeklyHours <= 0 are skipped with a warning diagnostic. A
// continuous demand with ContinuousHours < 2 is a configuration error and
// aborts generation.
func generate(demands []CourseDemand, preserved []PreservedAssignment, rules *Rules, snap *Snapshot) ([]*Variable, []Diagnostic, error) {
	var (
		vars  []*Variable
		diags []Diagnostic
	)
	nextID := 1

	for _, p := range preserved {
		slot := p.Slot
		vars = append(vars, &Variable{
			ID:          nextID,
			ClassID:     p.ClassID,
			CourseID:    p.CourseID,
			TeacherID:   p.TeacherID,
			BlockSize:   1,
			Fixed:       true,
			FixedSlot:   &slot,
			FixedRoomID: p.RoomID,
			Preserved:   true,
			Tier:        TierFixed,
			WeekType:    weekTypeOrAll(p.WeekType),
			StartWeek:   p.StartWeek,
			EndWeek:     p.EndWeek,
		})
		nextID++
	}

	for _, fixed := range rules.FixedTime.Courses {
		classIDs := []string{fixed.ClassID}
		if fixed.ClassID == "" {
			classIDs = snap.ClassIDs()
		}
		for _, classID := range classIDs {
			slot := fixed.Slot
			vars = append(vars, &Variable{
				ID:          nextID,
				ClassID:     classID,
				CourseID:    fixed.CourseID,
				TeacherID:   fixed.TeacherID,
				BlockSize:   1,
				Fixed:       true,
				FixedSlot:   &slot,
				FixedRoomID: fixed.RoomID,
				Tier:        TierFixed,
				WeekType:    WeekAll,
			})
			nextID++
		}
	}

	for i, demand := range demands {
		if demand.WeeklyHours <= 0 {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("demand %d (class %s, course %s): weeklyHours must be positive, skipped", i, demand.ClassID, demand.CourseID),
			})
			continue
		}
		if demand.RequiresContinuous && demand.ContinuousHours < 2 {
			diag := Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("demand %d (class %s, course %s): continuous assignments need continuousHours >= 2, got %d", i, demand.ClassID, demand.CourseID, demand.ContinuousHours),
			}
			diags = append(diags, diag)
			return nil, diags, fmt.Errorf("invalid scheduling configuration: %s", diag.Message)
		}

		tier := TierGeneral
		if course, ok := snap.Course(demand.CourseID); ok && rules.IsCoreSubject(course.Subject) {
			tier = TierCore
		}
		if demand.FixedSlot != nil {
			tier = TierFixed
		}

		base := Variable{
			ClassID:   demand.ClassID,
			CourseID:  demand.CourseID,
			TeacherID: demand.TeacherID,
			BlockSize: 1,
			Tier:      tier,
			WeekType:  weekTypeOrAll(demand.WeekType),
			StartWeek: demand.StartWeek,
			EndWeek:   demand.EndWeek,
			Preferred: demand.PreferredSlots,
			Avoid:     demand.AvoidSlots,
		}
		if demand.FixedSlot != nil {
			slot := *demand.FixedSlot
			base.Fixed = true
			base.FixedSlot = &slot
			base.FixedRoomID = demand.FixedRoomID
		}

		remaining := demand.WeeklyHours
		group := 0
		for demand.RequiresContinuous && remaining >= demand.ContinuousHours {
			groupID := fmt.Sprintf("%s/%s/%d", demand.ClassID, demand.CourseID, group)
			for n := 0; n < demand.ContinuousHours; n++ {
				v := base
				v.ID = nextID
				v.BlockGroupID = groupID
				v.BlockSize = demand.ContinuousHours
				vars = append(vars, &v)
				nextID++
			}
			remaining -= demand.ContinuousHours
			group++
		}
		// Remainder hours are standalone: a partial block cannot satisfy
		// the consecutive-placement obligation.
		for n := 0; n < remaining; n++ {
			v := base
			v.ID = nextID
			vars = append(vars, &v)
			nextID++
		}
	}

	return vars, diags, nil
}

func weekTypeOrAll(wt WeekType) WeekType {
	switch wt {
	case WeekOdd, WeekEven, WeekAll:
		return wt
	}
	return WeekAll
}
