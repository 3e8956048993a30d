package dto

// TimetableCell is one occupied cell of a weekly timetable view.
type TimetableCell struct {
	DayOfWeek   int    `json:"dayOfWeek"`
	Period      int    `json:"period"`
	ClassID     string `json:"classId"`
	ClassName   string `json:"className,omitempty"`
	CourseID    string `json:"courseId"`
	CourseName  string `json:"courseName,omitempty"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName,omitempty"`
	RoomID      string `json:"roomId,omitempty"`
	RoomName    string `json:"roomName,omitempty"`
	WeekType    string `json:"weekType"`
}

// TimetableResponse is a weekly grid for one class or teacher.
type TimetableResponse struct {
	AcademicYear string          `json:"academicYear"`
	Semester     int             `json:"semester"`
	ClassID      string          `json:"classId,omitempty"`
	TeacherID    string          `json:"teacherId,omitempty"`
	Cells        []TimetableCell `json:"cells"`
}

// TimetableQuery scopes a timetable view to one term.
type TimetableQuery struct {
	AcademicYear string `form:"academicYear" validate:"required"`
	Semester     int    `form:"semester" validate:"required,min=1,max=2"`
}
