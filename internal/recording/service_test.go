package recording_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/classroom"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
	"virtualboard/internal/store/memstore"
)

// minimal webm (EBML header)
var webm = "\x1a\x45\xdf\xa3\x9f\x42\x86\x81\x01\x42\xf7\x81\x01\x42\xf2\x81\x04\x42\xf3\x81\x08\x42\x82\x84webm\x42\x87\x81\x02\x42\x85\x81\x02"

func video(name string) *blob.Upload {
	return &blob.Upload{Filename: name, Size: int64(len(webm)), Body: strings.NewReader(webm)}
}

type fixture struct {
	ctx     context.Context
	blobs   *blob.Memory
	svc     *recording.Service
	teacher account.Identity
	other   account.Identity
	lecture lecture.Lecture
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	blobs := blob.NewMemory()
	reclaim := cleanup.NewScheduler(blobs, nil, zerolog.Nop())
	teacher := account.Identity{ID: "t1", Role: account.RoleTeacher}

	rooms := classroom.NewService(store.Classrooms(), store.Accounts(), zerolog.Nop())
	room, err := rooms.Create(ctx, teacher, classroom.Input{Name: "Math101", Subject: "Math", Timeslot: "Mon"})
	require.NoError(t, err)
	lectures := lecture.NewService(store.Lectures(), rooms, blobs, reclaim, lecture.Policies{}, zerolog.Nop())
	l, err := lectures.Create(ctx, teacher, lecture.Input{Topic: "Limits", ClassroomID: room.ID})
	require.NoError(t, err)

	return fixture{
		ctx:     ctx,
		blobs:   blobs,
		svc:     recording.NewService(store.Recordings(), lectures, blobs, reclaim, blob.Policy{}, zerolog.Nop()),
		teacher: teacher,
		other:   account.Identity{ID: "t2", Role: account.RoleTeacher},
		lecture: l,
	}
}

func TestUploadBothTracks(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{
		Title: "Week 1", Duration: 61.5, LectureID: f.lecture.ID,
		Screen: video("screen.webm"), Webcam: video("webcam.webm"),
	})
	require.NoError(t, err)
	assert.Equal(t, "screen+webcam", rec.Type)
	assert.True(t, f.blobs.Has(rec.ScreenURL))
	assert.True(t, f.blobs.Has(rec.WebcamURL))
	assert.Empty(t, rec.URL)

	got, err := f.svc.ListByLecture(f.ctx, f.lecture.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestUploadLegacySingleVideo(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{LectureID: f.lecture.ID, Type: "screen+webcam", Video: video("rec.webm")})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.URL)
	assert.Equal(t, "screen+webcam", rec.Type)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{LectureID: f.lecture.ID})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	_, err = f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{Screen: video("s.webm")})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	_, err = f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{
		LectureID: f.lecture.ID,
		Screen:    &blob.Upload{Filename: "s.pdf", Size: 9, Body: strings.NewReader("%PDF-1.7\n")},
	})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	_, err = f.svc.Upload(f.ctx, f.other, recording.UploadInput{LectureID: f.lecture.ID, Screen: video("s.webm")})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	_, err = f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{LectureID: "missing", Screen: video("s.webm")})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Empty(t, f.blobs.URLs())
}

func TestPartialUploadFailsWithoutRollback(t *testing.T) {
	f := newFixture(t)
	f.blobs.FailPuts = map[string]bool{"webcam.webm": true}

	_, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{
		LectureID: f.lecture.ID, Screen: video("screen.webm"), Webcam: video("webcam.webm"),
	})
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	// the screen track stays stored; no record points at it
	assert.Len(t, f.blobs.URLs(), 1)

	got, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateAndDelete(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, f.teacher, recording.Input{LectureID: f.lecture.ID})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))

	rec, err := f.svc.Create(f.ctx, f.teacher, recording.Input{Title: "ext", URL: "https://videos.example/x.webm", LectureID: f.lecture.ID})
	require.NoError(t, err)

	_, err = f.svc.Delete(f.ctx, f.other, rec.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	uploaded, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{LectureID: f.lecture.ID, Screen: video("s.webm")})
	require.NoError(t, err)
	_, err = f.svc.Delete(f.ctx, f.teacher, uploaded.ID)
	require.NoError(t, err)
	assert.False(t, f.blobs.Has(uploaded.ScreenURL))

	_, err = f.svc.Delete(f.ctx, f.teacher, uploaded.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	all, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec.ID, all[0].ID)
}

func TestDeleteKeepsFilesRegisteredByURL(t *testing.T) {
	f := newFixture(t)

	// a file stored for someone else, e.g. another teacher's lecture material
	victim, err := f.blobs.Put(f.ctx, "materials", blob.Upload{Filename: "notes.pdf", Body: strings.NewReader("%PDF-1.7")})
	require.NoError(t, err)

	rec, err := f.svc.Create(f.ctx, f.teacher, recording.Input{Title: "borrowed", URL: victim.URL, LectureID: f.lecture.ID})
	require.NoError(t, err)
	assert.False(t, rec.Stored)

	_, err = f.svc.Delete(f.ctx, f.teacher, rec.ID)
	require.NoError(t, err)
	assert.True(t, f.blobs.Has(victim.URL))

	uploaded, err := f.svc.Upload(f.ctx, f.teacher, recording.UploadInput{LectureID: f.lecture.ID, Webcam: video("cam.webm")})
	require.NoError(t, err)
	assert.True(t, uploaded.Stored)
}
