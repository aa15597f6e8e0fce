// Package recording owns captured lecture videos.
package recording

import (
	"context"
	"time"
)

// Recording is a captured video of a lecture. A capture has a screen track, a webcam track or
// both; older clients upload a single combined video stored in URL.
type Recording struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	ScreenURL string    `json:"screenUrl,omitempty" bson:"screenUrl,omitempty"`
	WebcamURL string    `json:"webcamUrl,omitempty" bson:"webcamUrl,omitempty"`
	URL       string    `json:"url,omitempty" bson:"url,omitempty"`
	Duration  float64   `json:"duration" bson:"duration"`
	Type      string    `json:"type" bson:"type"`
	LectureID string    `json:"lecture" bson:"lecture"`
	OwnerID   string    `json:"owner" bson:"owner"`
	// Stored marks files this service put into the blob store. Only those are deleted with the
	// recording; urls registered through Create belong to someone else.
	Stored    bool      `json:"stored" bson:"stored"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// URLs returns the stored file urls of r.
func (r Recording) URLs() []string {
	var out []string
	for _, u := range []string{r.ScreenURL, r.WebcamURL, r.URL} {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Repository persists recordings. Missing recordings yield apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, r Recording) error
	Get(ctx context.Context, id string) (Recording, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Recording, error)
	ListByLecture(ctx context.Context, lectureID string) ([]Recording, error)
}
