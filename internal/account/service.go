package account

import (
	"bytes"
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/metrics"
)

// AvatarSize is the edge length of stored avatar thumbnails.
const AvatarSize = 256

const minPasswordLen = 6

const avatarFolder = "avatars"

// StudentSignup is the registration input for a student.
type StudentSignup struct {
	Email    string
	Password string
}

// TeacherSignup is the registration input for a teacher.
type TeacherSignup struct {
	Name     string
	Email    string
	Password string
	Subjects []string
	Classes  []string
}

// TeacherUpdate holds optional profile changes. Nil fields are left alone.
type TeacherUpdate struct {
	Name     *string
	Subjects *[]string
	Classes  *[]string
	Avatar   *string
	Password *string
}

// Options tune the service.
type Options struct {
	BcryptCost   int
	AvatarPolicy blob.Policy
}

// Service coordinates account registration and profile changes.
type Service struct {
	repo    Repository
	blobs   blob.Store
	reclaim blob.Reclaimer
	opts    Options
	log     zerolog.Logger
}

// NewService creates a service backed by a repository. blobs and reclaim are only used for avatars.
func NewService(repo Repository, blobs blob.Store, reclaim blob.Reclaimer, opts Options, log zerolog.Logger) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.AvatarPolicy.Allowed == nil {
		opts.AvatarPolicy = blob.ImagePolicy(10 << 20)
	}
	return &Service{repo: repo, blobs: blobs, reclaim: reclaim, opts: opts, log: log}
}

// RegisterStudent creates a student account.
func (s *Service) RegisterStudent(ctx context.Context, in StudentSignup) (Student, error) {
	email, err := validEmail(in.Email)
	if err != nil {
		return Student{}, err
	}
	if err := validPassword(in.Password); err != nil {
		return Student{}, err
	}
	hash, err := hashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return Student{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}
	st := Student{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateStudent(ctx, st); err != nil {
		return Student{}, translate(err, "student")
	}
	return st, nil
}

// RegisterTeacher creates a teacher account.
func (s *Service) RegisterTeacher(ctx context.Context, in TeacherSignup) (Teacher, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Teacher{}, apperr.InvalidField("name", "name is required")
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return Teacher{}, err
	}
	if err := validPassword(in.Password); err != nil {
		return Teacher{}, err
	}
	hash, err := hashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "hash password", err)
	}
	t := Teacher{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Subjects:     cleanList(in.Subjects),
		Classes:      cleanList(in.Classes),
		Avatar:       DefaultAvatar,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateTeacher(ctx, t); err != nil {
		return Teacher{}, translate(err, "teacher")
	}
	return t, nil
}

// Students lists every student.
func (s *Service) Students(ctx context.Context) ([]Student, error) {
	out, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list students", err)
	}
	return out, nil
}

// Teachers lists every teacher.
func (s *Service) Teachers(ctx context.Context) ([]Teacher, error) {
	out, err := s.repo.ListTeachers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list teachers", err)
	}
	return out, nil
}

// Teacher fetches a single teacher.
func (s *Service) Teacher(ctx context.Context, id string) (Teacher, error) {
	t, err := s.repo.TeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, translate(err, "teacher")
	}
	return t, nil
}

var errBadCredentials = apperr.New(apperr.Unauthenticated, "invalid email or password")

// Authenticate checks credentials for the given role and returns the identity to put in a token.
func (s *Service) Authenticate(ctx context.Context, role Role, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, errBadCredentials
	}
	var (
		id   Identity
		hash string
		err  error
	)
	switch role {
	case RoleStudent:
		var st Student
		st, err = s.repo.StudentByEmail(ctx, email)
		id, hash = st.Identity(), st.PasswordHash
	case RoleTeacher:
		var t Teacher
		t, err = s.repo.TeacherByEmail(ctx, email)
		id, hash = t.Identity(), t.PasswordHash
	default:
		return Identity{}, apperr.New(apperr.Invalid, "unknown role")
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return Identity{}, errBadCredentials
	}
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.Internal, "load account", err)
	}
	if !checkPassword(hash, password) {
		return Identity{}, errBadCredentials
	}
	return id, nil
}

// UpdateTeacher applies in to the teacher's own profile.
func (s *Service) UpdateTeacher(ctx context.Context, who Identity, id string, in TeacherUpdate) (Teacher, error) {
	if err := selfOnly(who, id); err != nil {
		return Teacher{}, err
	}
	t, err := s.repo.TeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, translate(err, "teacher")
	}
	oldAvatar := t.Avatar

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Teacher{}, apperr.InvalidField("name", "name cannot be empty")
		}
		t.Name = name
	}
	if in.Subjects != nil {
		t.Subjects = cleanList(*in.Subjects)
	}
	if in.Classes != nil {
		t.Classes = cleanList(*in.Classes)
	}
	if in.Avatar != nil {
		// images are set through SetAvatar; here the avatar can only be kept or reset
		switch avatar := strings.TrimSpace(*in.Avatar); avatar {
		case t.Avatar:
		case "", DefaultAvatar:
			t.Avatar = DefaultAvatar
		default:
			return Teacher{}, apperr.InvalidField("avatar", "avatar can only be reset; upload a new one instead")
		}
	}
	if in.Password != nil {
		if err := validPassword(*in.Password); err != nil {
			return Teacher{}, err
		}
		if t.PasswordHash, err = hashPassword(*in.Password, s.opts.BcryptCost); err != nil {
			return Teacher{}, apperr.Wrap(apperr.Internal, "hash password", err)
		}
	}

	if err := s.repo.UpdateTeacher(ctx, t); err != nil {
		return Teacher{}, translate(err, "teacher")
	}
	if t.Avatar != oldAvatar {
		s.reclaimOrLog(ctx, oldAvatar)
	}
	return t, nil
}

// SetAvatar stores a square thumbnail of the uploaded image as the teacher's avatar.
func (s *Service) SetAvatar(ctx context.Context, who Identity, id string, u blob.Upload) (Teacher, error) {
	if err := selfOnly(who, id); err != nil {
		return Teacher{}, err
	}
	if s.blobs == nil {
		return Teacher{}, apperr.New(apperr.Internal, "file storage not configured")
	}
	t, err := s.repo.TeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, translate(err, "teacher")
	}

	u, err = s.opts.AvatarPolicy.Check("avatar", u)
	if err != nil {
		return Teacher{}, err
	}
	thumb, err := thumbnail(u)
	if err != nil {
		return Teacher{}, err
	}
	obj, err := s.blobs.Put(ctx, avatarFolder, blob.Upload{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Size:        int64(thumb.Len()),
		Body:        thumb,
	})
	metrics.Uploads.WithLabelValues("avatar", metrics.Result(err)).Inc()
	if err != nil {
		return Teacher{}, apperr.Wrap(apperr.Internal, "store avatar", err)
	}

	oldAvatar := t.Avatar
	t.Avatar = obj.URL
	if err := s.repo.UpdateTeacher(ctx, t); err != nil {
		s.reclaimOrLog(ctx, obj.URL)
		return Teacher{}, translate(err, "teacher")
	}
	s.reclaimOrLog(ctx, oldAvatar)
	return t, nil
}

func (s *Service) reclaimOrLog(ctx context.Context, url string) {
	if !uploadedAvatar(url) {
		return
	}
	if s.reclaim == nil {
		s.log.Warn().Str("url", url).Msg("no reclaimer configured, avatar left in storage")
		return
	}
	s.reclaim.Reclaim(ctx, "avatar", url)
}

// uploadedAvatar reports whether url looks like a key SetAvatar stored. Older profiles may
// carry arbitrary avatar urls that must never be deleted.
func uploadedAvatar(url string) bool {
	return strings.Contains(url, "/"+avatarFolder+"/")
}

func thumbnail(u blob.Upload) (*bytes.Buffer, error) {
	img, err := imaging.Decode(u.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.InvalidField("avatar", "avatar must be a png, jpeg, gif, bmp or tiff image")
	}
	fitted := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, fitted, imaging.PNG); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode avatar", err)
	}
	return buf, nil
}

func selfOnly(who Identity, id string) error {
	if !who.IsTeacher() {
		return apperr.New(apperr.Forbidden, "only teachers can edit a teacher profile")
	}
	if who.ID != id {
		return apperr.New(apperr.Forbidden, "teachers can only edit their own profile")
	}
	return nil
}

func validEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", apperr.InvalidField("email", "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", apperr.InvalidField("email", "email is not a valid address")
	}
	return email, nil
}

func validPassword(p string) error {
	if len(p) < minPasswordLen {
		return apperr.InvalidField("password", "password must be at least 6 characters")
	}
	if len(p) > 72 {
		return apperr.InvalidField("password", "password must be at most 72 bytes")
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func translate(err error, entity string) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, entity+" not found", err)
	case errors.Is(err, apperr.ErrDuplicate):
		return apperr.Wrap(apperr.Conflict, "email already registered", err)
	default:
		return apperr.Wrap(apperr.Internal, entity+" store failed", err)
	}
}
