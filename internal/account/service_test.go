package account_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/store/memstore"
)

func newService(t *testing.T) (*account.Service, *blob.Memory) {
	t.Helper()
	blobs := blob.NewMemory()
	reclaim := cleanup.NewScheduler(blobs, nil, zerolog.Nop())
	svc := account.NewService(memstore.New().Accounts(), blobs, reclaim, account.Options{BcryptCost: 4}, zerolog.Nop())
	return svc, blobs
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	st, err := svc.RegisterStudent(ctx, account.StudentSignup{Email: " Ann@School.IO ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@school.io", st.Email)
	assert.NotEqual(t, "secret1", st.PasswordHash)

	id, err := svc.Authenticate(ctx, account.RoleStudent, "ANN@school.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, st.ID, id.ID)
	assert.Equal(t, account.RoleStudent, id.Role)

	_, err = svc.Authenticate(ctx, account.RoleStudent, "ann@school.io", "wrong-pass")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
	_, err = svc.Authenticate(ctx, account.RoleTeacher, "ann@school.io", "secret1")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	_, err = svc.RegisterStudent(ctx, account.StudentSignup{Email: "ann@school.io", Password: "secret1"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		name  string
		in    account.TeacherSignup
		field string
	}{
		{"missing name", account.TeacherSignup{Email: "t@x.io", Password: "secret1"}, "name"},
		{"bad email", account.TeacherSignup{Name: "T", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", account.TeacherSignup{Name: "T", Email: "t@x.io", Password: "123"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterTeacher(ctx, tt.in)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.Invalid, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestTeacherDefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{
		Name: "Ada", Email: "ada@x.io", Password: "secret1", Subjects: []string{"Math", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, account.DefaultAvatar, tch.Avatar)
	assert.Equal(t, []string{"Math"}, tch.Subjects)
	assert.Equal(t, []string{}, tch.Classes)

	other, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Bob", Email: "bob@x.io", Password: "secret1"})
	require.NoError(t, err)

	name := "Ada L."
	_, err = svc.UpdateTeacher(ctx, other.Identity(), tch.ID, account.TeacherUpdate{Name: &name})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	pw := "new-secret"
	classes := []string{"10A"}
	updated, err := svc.UpdateTeacher(ctx, tch.Identity(), tch.ID, account.TeacherUpdate{Name: &name, Classes: &classes, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, []string{"10A"}, updated.Classes)
	assert.Equal(t, []string{"Math"}, updated.Subjects)

	_, err = svc.Authenticate(ctx, account.RoleTeacher, "ada@x.io", "new-secret")
	assert.NoError(t, err)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSetAvatarStoresThumbnailAndReclaimsOld(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Ada", Email: "ada@x.io", Password: "secret1"})
	require.NoError(t, err)

	data := pngBytes(t, 640, 480)
	first, err := svc.SetAvatar(ctx, tch.Identity(), tch.ID, blob.Upload{Filename: "me.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)
	require.True(t, blobs.Has(first.Avatar))

	second, err := svc.SetAvatar(ctx, tch.Identity(), tch.ID, blob.Upload{Filename: "me2.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)
	assert.True(t, blobs.Has(second.Avatar))
	assert.False(t, blobs.Has(first.Avatar))
	assert.Equal(t, []string{second.Avatar}, blobs.URLs())

	stored, err := svc.Teacher(ctx, tch.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Avatar, stored.Avatar)
}

func TestThumbnailIsSquare(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	svc := account.NewService(memstore.New().Accounts(), blobs, nil, account.Options{BcryptCost: 4}, zerolog.Nop())
	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Ada", Email: "ada@x.io", Password: "secret1"})
	require.NoError(t, err)

	data := pngBytes(t, 300, 120)
	_, err = svc.SetAvatar(ctx, tch.Identity(), tch.ID, blob.Upload{Filename: "a.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)

	urls := blobs.URLs()
	require.Len(t, urls, 1)
	stored := blobs.Bytes(urls[0])
	img, err := imaging.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, account.AvatarSize, img.Bounds().Dx())
	assert.Equal(t, account.AvatarSize, img.Bounds().Dy())
}

func TestSetAvatarRejectsNonImages(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Ada", Email: "ada@x.io", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SetAvatar(ctx, tch.Identity(), tch.ID, blob.Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
	assert.Empty(t, blobs.URLs())
}

func TestUpdateTeacherCannotAdoptForeignAvatar(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Eve", Email: "eve@x.io", Password: "secret1"})
	require.NoError(t, err)
	notes, err := blobs.Put(ctx, "materials", blob.Upload{Filename: "notes.pdf", Body: strings.NewReader("%PDF-1.7")})
	require.NoError(t, err)

	_, err = svc.UpdateTeacher(ctx, tch.Identity(), tch.ID, account.TeacherUpdate{Avatar: &notes.URL})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	reset := ""
	updated, err := svc.UpdateTeacher(ctx, tch.Identity(), tch.ID, account.TeacherUpdate{Avatar: &reset})
	require.NoError(t, err)
	assert.Equal(t, account.DefaultAvatar, updated.Avatar)
	assert.True(t, blobs.Has(notes.URL))
}

func TestUpdateTeacherResetsUploadedAvatar(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	tch, err := svc.RegisterTeacher(ctx, account.TeacherSignup{Name: "Ada", Email: "ada@x.io", Password: "secret1"})
	require.NoError(t, err)
	data := pngBytes(t, 40, 40)
	withAvatar, err := svc.SetAvatar(ctx, tch.Identity(), tch.ID, blob.Upload{Filename: "me.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)

	// sending the current avatar back is a no-op
	same, err := svc.UpdateTeacher(ctx, tch.Identity(), tch.ID, account.TeacherUpdate{Avatar: &withAvatar.Avatar})
	require.NoError(t, err)
	assert.Equal(t, withAvatar.Avatar, same.Avatar)
	assert.True(t, blobs.Has(withAvatar.Avatar))

	reset := account.DefaultAvatar
	updated, err := svc.UpdateTeacher(ctx, tch.Identity(), tch.ID, account.TeacherUpdate{Avatar: &reset})
	require.NoError(t, err)
	assert.Equal(t, account.DefaultAvatar, updated.Avatar)
	assert.False(t, blobs.Has(withAvatar.Avatar))
}
