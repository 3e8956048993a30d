package engine

import "sort"

// TeacherInfo is the read-only teacher view the engine works against.
type TeacherInfo struct {
	ID             string
	Name           string
	MaxWeeklyHours int
	Unavailable    []TimeSlot
	Preferred      []TimeSlot
}

// ClassInfo carries what room-capacity checks need.
type ClassInfo struct {
	ID           string
	Name         string
	Grade        string
	StudentCount int
}

// CourseInfo describes a course's room requirements and placement hints.
type CourseInfo struct {
	ID      string
	Name    string
	Subject string
	// RoomTypes restricts rooms the course may use. Empty allows any room.
	RoomTypes            []string
	AvoidFirstLastPeriod bool
}

// RoomInfo is a schedulable room.
type RoomInfo struct {
	ID          string
	Name        string
	Type        string
	Capacity    int
	Unavailable []TimeSlot
}

// Snapshot is the immutable lookup table built once per run from the external
// collaborators' query results. It replaces per-read entity resolution: the
// constraint engine receives it by reference and never performs I/O.
type Snapshot struct {
	teachers map[string]TeacherInfo
	classes  map[string]ClassInfo
	courses  map[string]CourseInfo
	rooms    map[string]RoomInfo

	roomOrder  []string
	classOrder []string
}

// NewSnapshot indexes the collaborator data. Room and class orders are sorted
// by id so candidate enumeration stays deterministic.
func NewSnapshot(teachers []TeacherInfo, classes []ClassInfo, courses []CourseInfo, rooms []RoomInfo) *Snapshot {
	s := &Snapshot{
		teachers: make(map[string]TeacherInfo, len(teachers)),
		classes:  make(map[string]ClassInfo, len(classes)),
		courses:  make(map[string]CourseInfo, len(courses)),
		rooms:    make(map[string]RoomInfo, len(rooms)),
	}
	for _, t := range teachers {
		s.teachers[t.ID] = t
	}
	for _, c := range classes {
		s.classes[c.ID] = c
		s.classOrder = append(s.classOrder, c.ID)
	}
	for _, c := range courses {
		s.courses[c.ID] = c
	}
	for _, r := range rooms {
		s.rooms[r.ID] = r
		s.roomOrder = append(s.roomOrder, r.ID)
	}
	sort.Strings(s.roomOrder)
	sort.Strings(s.classOrder)
	return s
}

// Teacher looks up a teacher by id.
func (s *Snapshot) Teacher(id string) (TeacherInfo, bool) {
	t, ok := s.teachers[id]
	return t, ok
}

// Class looks up a class by id.
func (s *Snapshot) Class(id string) (ClassInfo, bool) {
	c, ok := s.classes[id]
	return c, ok
}

// Course looks up a course by id.
func (s *Snapshot) Course(id string) (CourseInfo, bool) {
	c, ok := s.courses[id]
	return c, ok
}

// Room looks up a room by id.
func (s *Snapshot) Room(id string) (RoomInfo, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// RoomIDs returns all room ids in ascending order.
func (s *Snapshot) RoomIDs() []string {
	return s.roomOrder
}

// ClassIDs returns all class ids in ascending order.
func (s *Snapshot) ClassIDs() []string {
	return s.classOrder
}

// RoomsOfType counts rooms matching any of the given types. An empty type
// list counts every room.
func (s *Snapshot) RoomsOfType(types []string) int {
	if len(types) == 0 {
		return len(s.rooms)
	}
	count := 0
	for _, room := range s.rooms {
		for _, t := range types {
			if room.Type == t {
				count++
				break
			}
		}
	}
	return count
}
