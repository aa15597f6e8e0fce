package recording

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/lecture"
	"virtualboard/internal/metrics"
)

// Lectures checks lecture ownership.
type Lectures interface {
	Owned(ctx context.Context, who account.Identity, lectureID string) (lecture.Lecture, error)
}

// Input describes a recording whose files are already stored.
type Input struct {
	Title     string
	ScreenURL string
	WebcamURL string
	URL       string
	Duration  float64
	Type      string
	LectureID string
}

// UploadInput carries the recording metadata and up to three video files.
type UploadInput struct {
	Title     string
	Duration  float64
	Type      string
	LectureID string
	Screen    *blob.Upload
	Webcam    *blob.Upload
	// Video is a single combined capture.
	Video *blob.Upload
}

// Service coordinates recordings.
type Service struct {
	repo     Repository
	lectures Lectures
	blobs    blob.Store
	reclaim  blob.Reclaimer
	policy   blob.Policy
	log      zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, lectures Lectures, blobs blob.Store, reclaim blob.Reclaimer, policy blob.Policy, log zerolog.Logger) *Service {
	if policy.Allowed == nil {
		policy = blob.VideoPolicy(500 << 20)
	}
	return &Service{repo: repo, lectures: lectures, blobs: blobs, reclaim: reclaim, policy: policy, log: log}
}

// Create records metadata for files stored elsewhere.
func (s *Service) Create(ctx context.Context, who account.Identity, in Input) (Recording, error) {
	r := Recording{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		ScreenURL: strings.TrimSpace(in.ScreenURL),
		WebcamURL: strings.TrimSpace(in.WebcamURL),
		URL:       strings.TrimSpace(in.URL),
		Duration:  in.Duration,
		Type:      strings.TrimSpace(in.Type),
		LectureID: strings.TrimSpace(in.LectureID),
		OwnerID:   who.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := validate(r); err != nil {
		return Recording{}, err
	}
	if len(r.URLs()) == 0 {
		return Recording{}, apperr.InvalidField("screenUrl", "at least one of screenUrl, webcamUrl or url is required")
	}
	if _, err := s.lectures.Owned(ctx, who, r.LectureID); err != nil {
		return Recording{}, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Recording{}, storeErr(err, "create recording")
	}
	return r, nil
}

// Upload stores the provided tracks concurrently and records them. The uploads are
// independent: when one fails, tracks that were stored are reported as orphaned rather
// than rolled back, and the request fails.
func (s *Service) Upload(ctx context.Context, who account.Identity, in UploadInput) (Recording, error) {
	r := Recording{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Duration:  in.Duration,
		Type:      strings.TrimSpace(in.Type),
		LectureID: strings.TrimSpace(in.LectureID),
		OwnerID:   who.ID,
		Stored:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := validate(r); err != nil {
		return Recording{}, err
	}
	tracks := []struct {
		field string
		file  *blob.Upload
		dst   *string
	}{
		{"screen", in.Screen, &r.ScreenURL},
		{"webcam", in.Webcam, &r.WebcamURL},
		{"video", in.Video, &r.URL},
	}
	checked := make([]blob.Upload, len(tracks))
	present := 0
	for i, t := range tracks {
		if t.file == nil {
			continue
		}
		u, err := s.policy.Check(t.field, *t.file)
		if err != nil {
			return Recording{}, err
		}
		checked[i] = u
		present++
	}
	if present == 0 {
		return Recording{}, apperr.InvalidField("screen", "at least one of screen, webcam or video is required")
	}
	if _, err := s.lectures.Owned(ctx, who, r.LectureID); err != nil {
		return Recording{}, err
	}
	if r.Type == "" {
		r.Type = captureType(in)
	}

	// no derived context: a failed track must not cancel the other one
	var g errgroup.Group
	for i, t := range tracks {
		if t.file == nil {
			continue
		}
		i, t := i, t
		g.Go(func() error {
			obj, err := s.blobs.Put(ctx, "recordings", checked[i])
			metrics.Uploads.WithLabelValues("recording", metrics.Result(err)).Inc()
			if err != nil {
				return err
			}
			*t.dst = obj.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if stored := r.URLs(); len(stored) > 0 {
			metrics.OrphanedBlobs.WithLabelValues("recording").Add(float64(len(stored)))
			s.log.Error().Err(err).Strs("urls", stored).Str("lecture", r.LectureID).
				Msg("recording upload partially failed, stored tracks orphaned")
		}
		return Recording{}, apperr.Wrap(apperr.Internal, "upload recording", err)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.reclaimAll(ctx, r.URLs())
		return Recording{}, storeErr(err, "create recording")
	}
	return r, nil
}

// Delete removes a recording created by who and reclaims the files Upload stored for it.
func (s *Service) Delete(ctx context.Context, who account.Identity, id string) (Recording, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Recording{}, storeErr(err, "load recording")
	}
	if !who.IsTeacher() || r.OwnerID != who.ID {
		return Recording{}, apperr.New(apperr.Forbidden, "not the owner of this recording")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return Recording{}, storeErr(err, "delete recording")
	}
	if r.Stored {
		s.reclaimAll(ctx, r.URLs())
	}
	return r, nil
}

// List returns every recording.
func (s *Service) List(ctx context.Context) ([]Recording, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr(err, "list recordings")
	}
	return nonNil(out), nil
}

// ListByLecture returns the recordings of a lecture.
func (s *Service) ListByLecture(ctx context.Context, lectureID string) ([]Recording, error) {
	out, err := s.repo.ListByLecture(ctx, lectureID)
	if err != nil {
		return nil, storeErr(err, "list recordings by lecture")
	}
	return nonNil(out), nil
}

func (s *Service) reclaimAll(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	if s.reclaim == nil {
		metrics.OrphanedBlobs.WithLabelValues("recording").Add(float64(len(urls)))
		return
	}
	s.reclaim.Reclaim(ctx, "recording", urls...)
}

func validate(r Recording) error {
	if r.LectureID == "" {
		return apperr.InvalidField("lecture", "lecture is required")
	}
	if r.Duration < 0 {
		return apperr.InvalidField("duration", "duration cannot be negative")
	}
	return nil
}

func captureType(in UploadInput) string {
	switch {
	case in.Screen != nil && in.Webcam != nil:
		return "screen+webcam"
	case in.Screen != nil:
		return "screen"
	case in.Webcam != nil:
		return "webcam"
	default:
		return "video"
	}
}

func nonNil(in []Recording) []Recording {
	if in == nil {
		return []Recording{}
	}
	return in
}

func storeErr(err error, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "recording not found", err)
	}
	return apperr.Wrap(apperr.Internal, op, err)
}
