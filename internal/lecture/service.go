package lecture

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/classroom"
	"virtualboard/internal/metrics"
)

// Input is the body of a new lecture.
type Input struct {
	Number      string
	Topic       string
	Timeslot    string
	ClassroomID string
}

// Classrooms checks classroom ownership.
type Classrooms interface {
	Owned(ctx context.Context, who account.Identity, classroomID string) (classroom.Classroom, error)
}

// Policies bound the files the service accepts.
type Policies struct {
	Material blob.Policy
	Canvas   blob.Policy
}

// Service coordinates lectures and their stored files.
type Service struct {
	repo       Repository
	classrooms Classrooms
	blobs      blob.Store
	reclaim    blob.Reclaimer
	policies   Policies
	log        zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, classrooms Classrooms, blobs blob.Store, reclaim blob.Reclaimer, policies Policies, log zerolog.Logger) *Service {
	if policies.Material.Allowed == nil {
		policies.Material = blob.MaterialPolicy(50 << 20)
	}
	if policies.Canvas.Allowed == nil {
		policies.Canvas = Policy(10 << 20)
	}
	return &Service{repo: repo, classrooms: classrooms, blobs: blobs, reclaim: reclaim, policies: policies, log: log}
}

// Policy allows the image formats a whiteboard export produces.
func Policy(maxBytes int64) blob.Policy {
	return blob.Policy{MaxBytes: maxBytes, Allowed: []string{"image/png", "image/jpeg", "image/webp"}}
}

// Create adds a lecture to a classroom owned by who.
func (s *Service) Create(ctx context.Context, who account.Identity, in Input) (Lecture, error) {
	l := Lecture{
		ID:          uuid.NewString(),
		Number:      strings.TrimSpace(in.Number),
		Topic:       strings.TrimSpace(in.Topic),
		Timeslot:    strings.TrimSpace(in.Timeslot),
		ClassroomID: strings.TrimSpace(in.ClassroomID),
		Material:    []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if l.ClassroomID == "" {
		return Lecture{}, apperr.InvalidField("classroom", "classroom is required")
	}
	if l.Topic == "" {
		return Lecture{}, apperr.InvalidField("topic", "topic is required")
	}
	if _, err := s.classrooms.Owned(ctx, who, l.ClassroomID); err != nil {
		return Lecture{}, err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Lecture{}, storeErr(err, "create lecture")
	}
	return l, nil
}

// Delete removes a lecture and reclaims its material and snapshot. Recordings are left in place.
func (s *Service) Delete(ctx context.Context, who account.Identity, id string) (Lecture, error) {
	l, err := s.Owned(ctx, who, id)
	if err != nil {
		return Lecture{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return Lecture{}, storeErr(err, "delete lecture")
	}
	s.reclaimAll(ctx, "lecture", append(append([]string{}, l.Material...), l.Canvas)...)
	return l, nil
}

// Get returns a lecture.
func (s *Service) Get(ctx context.Context, id string) (Lecture, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lecture{}, storeErr(err, "load lecture")
	}
	l.Normalize()
	return l, nil
}

// List returns every lecture.
func (s *Service) List(ctx context.Context) ([]Lecture, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr(err, "list lectures")
	}
	return normalized(out), nil
}

// ListByClassroom returns the lectures of a classroom.
func (s *Service) ListByClassroom(ctx context.Context, classroomID string) ([]Lecture, error) {
	out, err := s.repo.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, storeErr(err, "list lectures by classroom")
	}
	return normalized(out), nil
}

// Owned loads a lecture and checks that who owns its classroom.
func (s *Service) Owned(ctx context.Context, who account.Identity, id string) (Lecture, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return Lecture{}, err
	}
	if _, err := s.classrooms.Owned(ctx, who, l.ClassroomID); err != nil {
		return Lecture{}, err
	}
	return l, nil
}

// Material lists a lecture's material urls.
func (s *Service) Material(ctx context.Context, id string) ([]string, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.Material, nil
}

// AddMaterial stores u and appends its url to the lecture. If the lecture vanished before the
// append, the stored file is deleted again.
func (s *Service) AddMaterial(ctx context.Context, who account.Identity, id string, u blob.Upload) (Lecture, error) {
	if _, err := s.Owned(ctx, who, id); err != nil {
		return Lecture{}, err
	}
	u, err := s.policies.Material.Check("material", u)
	if err != nil {
		return Lecture{}, err
	}
	obj, err := s.blobs.Put(ctx, "materials", u)
	metrics.Uploads.WithLabelValues("material", metrics.Result(err)).Inc()
	if err != nil {
		return Lecture{}, apperr.Wrap(apperr.Internal, "store material", err)
	}

	if err := s.repo.AppendMaterial(ctx, id, obj.URL); err != nil {
		s.log.Warn().Err(err).Str("lecture", id).Str("url", obj.URL).Msg("material append failed, removing stored file")
		s.reclaimAll(ctx, "material", obj.URL)
		return Lecture{}, storeErr(err, "append material")
	}
	return s.Get(ctx, id)
}

// DeleteMaterial removes the material at index and deletes its stored file.
func (s *Service) DeleteMaterial(ctx context.Context, who account.Identity, id string, index int) ([]string, error) {
	if _, err := s.Owned(ctx, who, id); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, apperr.New(apperr.NotFound, "material not found")
	}
	url, err := s.repo.RemoveMaterial(ctx, id, index)
	if err != nil {
		if errors.Is(err, ErrMaterialIndex) {
			return nil, apperr.Wrap(apperr.NotFound, "material not found", err)
		}
		return nil, storeErr(err, "remove material")
	}
	s.reclaimAll(ctx, "material", url)
	return s.Material(ctx, id)
}

// SetCanvas stores a whiteboard export as the lecture's snapshot, replacing the previous one.
func (s *Service) SetCanvas(ctx context.Context, who account.Identity, id string, u blob.Upload) (Lecture, error) {
	if _, err := s.Owned(ctx, who, id); err != nil {
		return Lecture{}, err
	}
	u, err := s.policies.Canvas.Check("canvas", u)
	if err != nil {
		return Lecture{}, err
	}
	obj, err := s.blobs.Put(ctx, "canvas", u)
	metrics.Uploads.WithLabelValues("canvas", metrics.Result(err)).Inc()
	if err != nil {
		return Lecture{}, apperr.Wrap(apperr.Internal, "store canvas", err)
	}

	prev, err := s.repo.SetCanvas(ctx, id, obj.URL)
	if err != nil {
		s.reclaimAll(ctx, "canvas", obj.URL)
		return Lecture{}, storeErr(err, "set canvas")
	}
	s.reclaimAll(ctx, "canvas", prev)
	return s.Get(ctx, id)
}

func (s *Service) reclaimAll(ctx context.Context, reason string, urls ...string) {
	kept := urls[:0:0]
	for _, u := range urls {
		if u != "" {
			kept = append(kept, u)
		}
	}
	if urls = kept; len(urls) == 0 {
		return
	}
	if s.reclaim == nil {
		metrics.OrphanedBlobs.WithLabelValues(reason).Add(float64(len(urls)))
		s.log.Warn().Strs("urls", urls).Msg("no reclaimer configured, files left in storage")
		return
	}
	s.reclaim.Reclaim(ctx, reason, urls...)
}

func normalized(in []Lecture) []Lecture {
	if in == nil {
		return []Lecture{}
	}
	for i := range in {
		in[i].Normalize()
	}
	return in
}

func storeErr(err error, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "lecture not found", err)
	}
	return apperr.Wrap(apperr.Internal, op, err)
}
