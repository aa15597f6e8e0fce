// Package lecture owns lectures, their material attachments and whiteboard snapshots.
package lecture

import (
	"context"
	"errors"
	"time"
)

// ErrMaterialIndex is returned by RemoveMaterial when the index is out of range.
var ErrMaterialIndex = errors.New("material index out of range")

// Lecture is a scheduled session of a classroom.
type Lecture struct {
	ID          string    `json:"_id" bson:"_id"`
	Number      string    `json:"lecture_Number" bson:"lecture_Number"`
	Topic       string    `json:"topic" bson:"topic"`
	Timeslot    string    `json:"timeslot" bson:"timeslot"`
	ClassroomID string    `json:"classroom" bson:"classroom"`
	Material    []string  `json:"material" bson:"material"`
	Canvas      string    `json:"canvas,omitempty" bson:"canvas,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Normalize replaces a nil material list.
func (l *Lecture) Normalize() {
	if l.Material == nil {
		l.Material = []string{}
	}
}

// Repository persists lectures. Missing lectures yield apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, l Lecture) error
	Get(ctx context.Context, id string) (Lecture, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Lecture, error)
	ListByClassroom(ctx context.Context, classroomID string) ([]Lecture, error)

	AppendMaterial(ctx context.Context, id, url string) error
	// RemoveMaterial deletes the element at index, shifting later ones down, and returns it.
	RemoveMaterial(ctx context.Context, id string, index int) (string, error)
	// SetCanvas stores url and returns the previous snapshot url.
	SetCanvas(ctx context.Context, id, url string) (string, error)
}
