// Package classroom owns classrooms, their student roster and the announcements embedded in them.
//
// Mutations are single-document operations in every store. Ownership is checked with a read
// before the write, so a concurrent delete between the two surfaces as NotFound from the write.
package classroom

import (
	"context"
	"time"

	"virtualboard/internal/account"
)

// Classroom is a named group owned by one teacher.
type Classroom struct {
	ID        string `json:"_id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	Subject   string `json:"subject" bson:"subject"`
	Timeslot  string `json:"timeslot" bson:"timeslot"`
	TeacherID string `json:"teacher" bson:"teacher"`
	// Students holds student ids; each appears at most once.
	Students      []string       `json:"students" bson:"students"`
	Announcements []Announcement `json:"announcements" bson:"announcements"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
}

// Announcement is a teacher message embedded in a classroom, oldest first.
type Announcement struct {
	ID          string    `json:"_id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Content     string    `json:"content" bson:"content"`
	Attachments []string  `json:"attachments" bson:"attachments"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Detail is a classroom with its students expanded.
type Detail struct {
	Classroom
	Students []account.Student `json:"students"`
}

// OwnedBy reports whether teacherID owns c.
func (c Classroom) OwnedBy(teacherID string) bool {
	return teacherID != "" && c.TeacherID == teacherID
}

// HasStudent reports whether studentID is enrolled.
func (c Classroom) HasStudent(studentID string) bool {
	for _, s := range c.Students {
		if s == studentID {
			return true
		}
	}
	return false
}

// Normalize replaces nil slices so responses always carry arrays.
func (c *Classroom) Normalize() {
	if c.Students == nil {
		c.Students = []string{}
	}
	if c.Announcements == nil {
		c.Announcements = []Announcement{}
	}
	for i := range c.Announcements {
		if c.Announcements[i].Attachments == nil {
			c.Announcements[i].Attachments = []string{}
		}
	}
}

// Repository persists classrooms. Missing classrooms yield apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, c Classroom) error
	Get(ctx context.Context, id string) (Classroom, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Classroom, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Classroom, error)
	ListByStudent(ctx context.Context, studentID string) ([]Classroom, error)
	// AddStudents unions studentIDs into the roster and returns the updated classroom.
	AddStudents(ctx context.Context, id string, studentIDs []string) (Classroom, error)

	AppendAnnouncement(ctx context.Context, classroomID string, a Announcement) error
	// UpdateAnnouncement replaces title, content and attachments of the announcement with a.ID.
	// ErrNotFound when the classroom or announcement is missing.
	UpdateAnnouncement(ctx context.Context, classroomID string, a Announcement) error
	// RemoveAnnouncement is a no-op when the announcement is already gone.
	RemoveAnnouncement(ctx context.Context, classroomID, announcementID string) error
}

// Directory resolves student references.
type Directory interface {
	StudentsByEmails(ctx context.Context, emails []string) ([]account.Student, error)
	StudentsByIDs(ctx context.Context, ids []string) ([]account.Student, error)
}
