// Package account manages students and teachers: registration, password checks,
// teacher profiles and avatars.
package account

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultAvatar is the avatar a teacher starts with.
const DefaultAvatar = "default-avatar.png"

// Student is a learner account. Students are referenced by classrooms, never owned.
type Student struct {
	ID           string    `json:"_id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Teacher owns classrooms.
type Teacher struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Subjects     []string  `json:"subjects" bson:"subjects"`
	Classes      []string  `json:"classes" bson:"classes"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Identity returns the request identity for s.
func (s Student) Identity() Identity {
	return Identity{ID: s.ID, Role: RoleStudent, Email: s.Email}
}

// Identity returns the request identity for t.
func (t Teacher) Identity() Identity {
	return Identity{ID: t.ID, Role: RoleTeacher, Email: t.Email, Name: t.Name}
}

// Repository persists accounts. Lookups return apperr.ErrNotFound when nothing matches and
// creates return apperr.ErrDuplicate when the email is taken.
type Repository interface {
	CreateStudent(ctx context.Context, s Student) error
	StudentByID(ctx context.Context, id string) (Student, error)
	StudentByEmail(ctx context.Context, email string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	// StudentsByEmails returns the students whose email is in emails; unknown emails are skipped.
	StudentsByEmails(ctx context.Context, emails []string) ([]Student, error)
	// StudentsByIDs returns the students whose id is in ids; unknown ids are skipped.
	StudentsByIDs(ctx context.Context, ids []string) ([]Student, error)

	CreateTeacher(ctx context.Context, t Teacher) error
	TeacherByID(ctx context.Context, id string) (Teacher, error)
	TeacherByEmail(ctx context.Context, email string) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) error
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(plain string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func checkPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
