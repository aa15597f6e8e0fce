package httpapi

// Request bodies. Binding tags reject malformed input before any service runs.

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type studentRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type teacherRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6,max=72"`
	Subjects []string `json:"subjects"`
	Classes  []string `json:"classes"`
}

type teacherUpdateRequest struct {
	Name     *string   `json:"name" binding:"omitempty,min=1"`
	Subjects *[]string `json:"subjects"`
	Classes  *[]string `json:"classes"`
	Avatar   *string   `json:"avatar"`
	Password *string   `json:"password" binding:"omitempty,min=6,max=72"`
}

type classroomRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Timeslot string `json:"timeslot" binding:"required"`
}

// addStudentsRequest accepts a list of emails; older clients send a single studentEmail.
type addStudentsRequest struct {
	ClassID       string   `json:"classId" binding:"required"`
	StudentEmails []string `json:"studentEmails"`
	StudentEmail  string   `json:"studentEmail"`
}

func (r addStudentsRequest) emails() []string {
	out := append([]string{}, r.StudentEmails...)
	if r.StudentEmail != "" {
		out = append(out, r.StudentEmail)
	}
	return out
}

type announcementRequest struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Attachments []string `json:"attachments"`
}

type lectureRequest struct {
	Number      string `json:"lecture_Number"`
	Topic       string `json:"topic" binding:"required"`
	Timeslot    string `json:"timeslot"`
	ClassroomID string `json:"classroom" binding:"required"`
}

type recordingRequest struct {
	Title     string  `json:"title" binding:"required"`
	ScreenURL string  `json:"screenUrl"`
	WebcamURL string  `json:"webcamUrl"`
	URL       string  `json:"url"`
	Duration  float64 `json:"duration" binding:"gte=0"`
	Type      string  `json:"type"`
	LectureID string  `json:"lecture" binding:"required"`
}

// uploadForm is the non-file part of a multipart recording upload.
type uploadForm struct {
	Title     string  `form:"title" binding:"required"`
	Duration  float64 `form:"duration" binding:"gte=0"`
	Type      string  `form:"type"`
	LectureID string  `form:"lecture" binding:"required"`
}
