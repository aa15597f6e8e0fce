package classroom

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

// Input is the body of a new classroom.
type Input struct {
	Name     string
	Subject  string
	Timeslot string
}

// Service coordinates classroom membership.
type Service struct {
	repo      Repository
	directory Directory
	log       zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, directory Directory, log zerolog.Logger) *Service {
	return &Service{repo: repo, directory: directory, log: log}
}

// Create adds a classroom owned by who.
func (s *Service) Create(ctx context.Context, who account.Identity, in Input) (Classroom, error) {
	if !who.IsTeacher() {
		return Classroom{}, apperr.New(apperr.Forbidden, "only teachers can create classrooms")
	}
	c := Classroom{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Subject:       strings.TrimSpace(in.Subject),
		Timeslot:      strings.TrimSpace(in.Timeslot),
		TeacherID:     who.ID,
		Students:      []string{},
		Announcements: []Announcement{},
		CreatedAt:     time.Now().UTC(),
	}
	missing := map[string]string{}
	for field, v := range map[string]string{"name": c.Name, "subject": c.Subject, "timeslot": c.Timeslot} {
		if v == "" {
			missing[field] = field + " is required"
		}
	}
	if len(missing) > 0 {
		return Classroom{}, &apperr.Error{Kind: apperr.Invalid, Message: "name, subject and timeslot are required", Fields: missing}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Classroom{}, storeErr(err, "create classroom")
	}
	return c, nil
}

// Delete removes a classroom owned by who. Lectures and recordings are left in place.
func (s *Service) Delete(ctx context.Context, who account.Identity, id string) (Classroom, error) {
	c, err := s.owned(ctx, who, id)
	if err != nil {
		return Classroom{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return Classroom{}, storeErr(err, "delete classroom")
	}
	return c, nil
}

// List returns every classroom.
func (s *Service) List(ctx context.Context) ([]Classroom, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr(err, "list classrooms")
	}
	return normalized(out), nil
}

// ListByTeacher returns the classrooms owned by who; empty is not an error.
func (s *Service) ListByTeacher(ctx context.Context, who account.Identity) ([]Classroom, error) {
	out, err := s.repo.ListByTeacher(ctx, who.ID)
	if err != nil {
		return nil, storeErr(err, "list classrooms by teacher")
	}
	return normalized(out), nil
}

// ListByStudent returns the classrooms who is enrolled in.
func (s *Service) ListByStudent(ctx context.Context, who account.Identity) ([]Classroom, error) {
	out, err := s.repo.ListByStudent(ctx, who.ID)
	if err != nil {
		return nil, storeErr(err, "list classrooms by student")
	}
	return normalized(out), nil
}

// Get returns a classroom with its students expanded.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	students := []account.Student{}
	if len(c.Students) > 0 {
		found, err := s.directory.StudentsByIDs(ctx, c.Students)
		if err != nil {
			return Detail{}, storeErr(err, "load students")
		}
		students = append(students, found...)
	}
	return Detail{Classroom: c, Students: students}, nil
}

// AddStudents enrolls the students registered under emails. Unknown emails are skipped; adding
// an already enrolled student changes nothing.
func (s *Service) AddStudents(ctx context.Context, who account.Identity, classID string, emails []string) (Classroom, error) {
	if strings.TrimSpace(classID) == "" {
		return Classroom{}, apperr.InvalidField("classId", "classId is required")
	}
	normalizedEmails := make([]string, 0, len(emails))
	seen := map[string]bool{}
	for _, e := range emails {
		e = account.NormalizeEmail(e)
		if e != "" && !seen[e] {
			seen[e] = true
			normalizedEmails = append(normalizedEmails, e)
		}
	}
	if len(normalizedEmails) == 0 {
		return Classroom{}, apperr.InvalidField("studentEmails", "at least one student email is required")
	}
	if _, err := s.owned(ctx, who, classID); err != nil {
		return Classroom{}, err
	}

	students, err := s.directory.StudentsByEmails(ctx, normalizedEmails)
	if err != nil {
		return Classroom{}, storeErr(err, "resolve student emails")
	}
	if len(students) == 0 {
		return Classroom{}, apperr.New(apperr.NotFound, "no students found for the provided emails")
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	if len(ids) < len(normalizedEmails) {
		s.log.Debug().Str("classroom", classID).Int("requested", len(normalizedEmails)).Int("resolved", len(ids)).
			Msg("some student emails did not resolve")
	}

	c, err := s.repo.AddStudents(ctx, classID, ids)
	if err != nil {
		return Classroom{}, storeErr(err, "add students")
	}
	c.Normalize()
	return c, nil
}

func (s *Service) find(ctx context.Context, id string) (Classroom, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Classroom{}, storeErr(err, "load classroom")
	}
	c.Normalize()
	return c, nil
}

// owned loads the classroom and checks that who owns it.
func (s *Service) owned(ctx context.Context, who account.Identity, id string) (Classroom, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if !c.OwnedBy(who.ID) || !who.IsTeacher() {
		return Classroom{}, apperr.New(apperr.Forbidden, "not the owner of this classroom")
	}
	return c, nil
}

// Owned exposes the ownership check for sibling services scoped to a classroom.
func (s *Service) Owned(ctx context.Context, who account.Identity, id string) (Classroom, error) {
	return s.owned(ctx, who, id)
}

func normalized(in []Classroom) []Classroom {
	if in == nil {
		return []Classroom{}
	}
	for i := range in {
		in[i].Normalize()
	}
	return in
}

func storeErr(err error, op string) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, "classroom not found", err)
	case errors.Is(err, apperr.ErrDuplicate):
		return apperr.Wrap(apperr.Conflict, "classroom already exists", err)
	default:
		return apperr.Wrap(apperr.Internal, op, err)
	}
}
