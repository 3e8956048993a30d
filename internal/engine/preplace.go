package engine

import "fmt"

// preplace commits every fixed-tier variable at its declared slot before any
// search begins, so later tiers can never displace a fixed activity.
//
// Collisions between fixed variables follow the rule set's fixed-time
// conflict strategy: strict aborts for the later variable, flexible lets the
// collision stand silently (the detector records it), warning lets it stand
// and emits a warning conflict record immediately.
func preplace(state *State, vars []*Variable, rules *Rules) ([]ConflictRecord, error) {
	var records []ConflictRecord

	for _, v := range vars {
		if v.Tier != TierFixed {
			continue
		}
		if v.FixedSlot == nil {
			return records, fmt.Errorf("fixed variable %d (class %s, course %s) has no declared slot", v.ID, v.ClassID, v.CourseID)
		}
		slot := *v.FixedSlot
		if !rules.slotInGrid(slot) {
			return records, fmt.Errorf("fixed variable %d is pinned outside the time grid at %s", v.ID, slot)
		}

		collisions := fixedCollisions(state, v, slot)
		if len(collisions) > 0 {
			switch rules.FixedTime.ConflictStrategy {
			case FixedStrict:
				return records, fmt.Errorf("fixed-time collision at %s for class %s (course %s): %s",
					slot, v.ClassID, v.CourseID, collisions[0].Kind)
			case FixedWarning:
				for i := range collisions {
					collisions[i].Warning = true
					collisions[i].VariableIDs = append(collisions[i].VariableIDs, v.ID)
					records = append(records, collisions[i])
				}
			case FixedFlexible:
				// Allowed through; the detector re-derives the records.
			}
		}
		state.Place(v, slot, v.FixedRoomID)
	}

	return records, nil
}

func fixedCollisions(state *State, v *Variable, slot TimeSlot) []ConflictRecord {
	var out []ConflictRecord
	// Activities without an assigned teacher (flag raising, class meetings)
	// never collide on the teacher index.
	if ids := state.TeacherOccupants(v.TeacherID, slot); v.TeacherID != "" && len(ids) > 0 {
		out = append(out, ConflictRecord{Kind: ResourceTeacher, ResourceID: v.TeacherID, Slot: slot, VariableIDs: append([]int{}, ids...)})
	}
	if v.FixedRoomID != "" {
		if ids := state.RoomOccupants(v.FixedRoomID, slot); len(ids) > 0 {
			out = append(out, ConflictRecord{Kind: ResourceRoom, ResourceID: v.FixedRoomID, Slot: slot, VariableIDs: append([]int{}, ids...)})
		}
	}
	if ids := state.ClassOccupants(v.ClassID, slot); len(ids) > 0 {
		out = append(out, ConflictRecord{Kind: ResourceClass, ResourceID: v.ClassID, Slot: slot, VariableIDs: append([]int{}, ids...)})
	}
	return out
}
