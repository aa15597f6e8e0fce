// Package storetest is a conformance suite every repository backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Repos bundles one backend's repositories.
type Repos struct {
	Accounts   account.Repository
	Classrooms classroom.Repository
	Lectures   lecture.Repository
	Recordings recording.Repository
}

// Run executes the whole suite.
func Run(t *testing.T, repos Repos) {
	t.Run("accounts", func(t *testing.T) { Accounts(t, repos.Accounts) })
	t.Run("classrooms", func(t *testing.T) { Classrooms(t, repos.Classrooms) })
	t.Run("lectures", func(t *testing.T) { Lectures(t, repos.Lectures) })
	t.Run("recordings", func(t *testing.T) { Recordings(t, repos.Recordings) })
}

// stamp returns a time with the precision every backend keeps.
func stamp(offset time.Duration) time.Time {
	return time.Now().UTC().Truncate(time.Millisecond).Add(offset)
}

func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@test.io"
}

// Accounts checks account.Repository.
func Accounts(t *testing.T, repo account.Repository) {
	ctx := context.Background()

	st := account.Student{ID: uuid.NewString(), Email: unique("st"), PasswordHash: "hash", CreatedAt: stamp(0)}
	require.NoError(t, repo.CreateStudent(ctx, st))
	dup := st
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.CreateStudent(ctx, dup), apperr.ErrDuplicate)

	got, err := repo.StudentByEmail(ctx, st.Email)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, st.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.StudentByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	other := account.Student{ID: uuid.NewString(), Email: unique("st2"), PasswordHash: "hash", CreatedAt: stamp(time.Second)}
	require.NoError(t, repo.CreateStudent(ctx, other))

	byEmail, err := repo.StudentsByEmails(ctx, []string{st.Email, "nobody@test.io", other.Email})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{st.ID, other.ID}, ids(byEmail))

	byID, err := repo.StudentsByIDs(ctx, []string{other.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(byID))

	all, err := repo.ListStudents(ctx)
	require.NoError(t, err)
	assert.Subset(t, ids(all), []string{st.ID, other.ID})

	tch := account.Teacher{
		ID: uuid.NewString(), Name: "Ada", Email: unique("t"), PasswordHash: "hash",
		Subjects: []string{"Math"}, Classes: []string{}, Avatar: account.DefaultAvatar, CreatedAt: stamp(0),
	}
	require.NoError(t, repo.CreateTeacher(ctx, tch))
	tdup := tch
	tdup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.CreateTeacher(ctx, tdup), apperr.ErrDuplicate)

	tch.Name = "Ada L."
	tch.Classes = []string{"10A", "10B"}
	tch.Avatar = "https://cdn/avatar.png"
	require.NoError(t, repo.UpdateTeacher(ctx, tch))

	gotT, err := repo.TeacherByEmail(ctx, tch.Email)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", gotT.Name)
	assert.Equal(t, []string{"Math"}, gotT.Subjects)
	assert.Equal(t, []string{"10A", "10B"}, gotT.Classes)
	assert.Equal(t, "https://cdn/avatar.png", gotT.Avatar)

	gotT, err = repo.TeacherByID(ctx, tch.ID)
	require.NoError(t, err)
	assert.Equal(t, tch.Email, gotT.Email)

	missing := tch
	missing.ID = uuid.NewString()
	assert.ErrorIs(t, repo.UpdateTeacher(ctx, missing), apperr.ErrNotFound)

	teachers, err := repo.ListTeachers(ctx)
	require.NoError(t, err)
	assert.Contains(t, teacherIDs(teachers), tch.ID)
}

// Classrooms checks classroom.Repository.
func Classrooms(t *testing.T, repo classroom.Repository) {
	ctx := context.Background()
	teacher := uuid.NewString()
	c := classroom.Classroom{
		ID: uuid.NewString(), Name: "Math101", Subject: "Math", Timeslot: "Mon 10AM", TeacherID: teacher,
		Students: []string{}, Announcements: []classroom.Announcement{}, CreatedAt: stamp(0),
	}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math101", got.Name)
	assert.Empty(t, got.Students)
	assert.Empty(t, got.Announcements)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	s1, s2 := uuid.NewString(), uuid.NewString()
	updated, err := repo.AddStudents(ctx, c.ID, []string{s1})
	require.NoError(t, err)
	assert.Equal(t, []string{s1}, updated.Students)
	updated, err = repo.AddStudents(ctx, c.ID, []string{s1, s2, s1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s1, s2}, updated.Students)
	_, err = repo.AddStudents(ctx, uuid.NewString(), []string{s1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	byTeacher, err := repo.ListByTeacher(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, byTeacher, 1)
	assert.Equal(t, c.ID, byTeacher[0].ID)

	byStudent, err := repo.ListByStudent(ctx, s2)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.Equal(t, c.ID, byStudent[0].ID)

	none, err := repo.ListByStudent(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, none)

	a1 := classroom.Announcement{ID: uuid.NewString(), Title: "Exam", Content: "Friday", Attachments: []string{"https://cdn/a.pdf"}, CreatedAt: stamp(0)}
	a2 := classroom.Announcement{ID: uuid.NewString(), Title: "Homework", Content: "p. 12", Attachments: []string{}, CreatedAt: stamp(time.Second)}
	require.NoError(t, repo.AppendAnnouncement(ctx, c.ID, a1))
	require.NoError(t, repo.AppendAnnouncement(ctx, c.ID, a2))
	assert.ErrorIs(t, repo.AppendAnnouncement(ctx, uuid.NewString(), a1), apperr.ErrNotFound)

	got, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Announcements, 2)
	assert.Equal(t, a1.ID, got.Announcements[0].ID)
	assert.Equal(t, []string{"https://cdn/a.pdf"}, got.Announcements[0].Attachments)
	assert.True(t, a1.CreatedAt.Equal(got.Announcements[0].CreatedAt))
	assert.Equal(t, a2.ID, got.Announcements[1].ID)

	a1.Title, a1.Content, a1.Attachments = "Exam moved", "Monday", []string{}
	require.NoError(t, repo.UpdateAnnouncement(ctx, c.ID, a1))
	ghost := a1
	ghost.ID = uuid.NewString()
	assert.ErrorIs(t, repo.UpdateAnnouncement(ctx, c.ID, ghost), apperr.ErrNotFound)

	got, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Announcements, 2)
	assert.Equal(t, "Exam moved", got.Announcements[0].Title)
	assert.Equal(t, "Monday", got.Announcements[0].Content)
	assert.Empty(t, got.Announcements[0].Attachments)

	require.NoError(t, repo.RemoveAnnouncement(ctx, c.ID, a1.ID))
	require.NoError(t, repo.RemoveAnnouncement(ctx, c.ID, a1.ID))
	got, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Announcements, 1)
	assert.Equal(t, a2.ID, got.Announcements[0].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, classroomIDs(all), c.ID)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), apperr.ErrNotFound)
	_, err = repo.Get(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Lectures checks lecture.Repository.
func Lectures(t *testing.T, repo lecture.Repository) {
	ctx := context.Background()
	room := uuid.NewString()
	l := lecture.Lecture{ID: uuid.NewString(), Number: "1", Topic: "Limits", Timeslot: "Mon", ClassroomID: room, Material: []string{}, CreatedAt: stamp(0)}
	l2 := lecture.Lecture{ID: uuid.NewString(), Number: "2", Topic: "Series", ClassroomID: room, Material: []string{}, CreatedAt: stamp(time.Second)}
	require.NoError(t, repo.Create(ctx, l))
	require.NoError(t, repo.Create(ctx, l2))

	byRoom, err := repo.ListByClassroom(ctx, room)
	require.NoError(t, err)
	require.Len(t, byRoom, 2)
	assert.Equal(t, l.ID, byRoom[0].ID)
	assert.Equal(t, l2.ID, byRoom[1].ID)

	for _, u := range []string{"u0", "u1", "u2"} {
		require.NoError(t, repo.AppendMaterial(ctx, l.ID, u))
	}
	assert.ErrorIs(t, repo.AppendMaterial(ctx, uuid.NewString(), "u"), apperr.ErrNotFound)

	removed, err := repo.RemoveMaterial(ctx, l.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "u1", removed)
	_, err = repo.RemoveMaterial(ctx, l.ID, 2)
	assert.ErrorIs(t, err, lecture.ErrMaterialIndex)
	_, err = repo.RemoveMaterial(ctx, uuid.NewString(), 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := repo.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u0", "u2"}, got.Material)

	prev, err := repo.SetCanvas(ctx, l.ID, "c1")
	require.NoError(t, err)
	assert.Empty(t, prev)
	prev, err = repo.SetCanvas(ctx, l.ID, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c1", prev)
	_, err = repo.SetCanvas(ctx, uuid.NewString(), "c")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err = repo.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2", got.Canvas)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Subset(t, lectureIDs(all), []string{l.ID, l2.ID})

	require.NoError(t, repo.Delete(ctx, l.ID))
	assert.ErrorIs(t, repo.Delete(ctx, l.ID), apperr.ErrNotFound)
	_, err = repo.Get(ctx, l.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Recordings checks recording.Repository.
func Recordings(t *testing.T, repo recording.Repository) {
	ctx := context.Background()
	lec := uuid.NewString()
	r := recording.Recording{
		ID: uuid.NewString(), Title: "Week 1", ScreenURL: "s", WebcamURL: "w", Duration: 61.5,
		Type: "screen+webcam", LectureID: lec, OwnerID: "t1", Stored: true, CreatedAt: stamp(0),
	}
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ScreenURL, got.ScreenURL)
	assert.Equal(t, r.WebcamURL, got.WebcamURL)
	assert.Equal(t, 61.5, got.Duration)
	assert.Equal(t, "t1", got.OwnerID)
	assert.True(t, got.Stored)

	byLecture, err := repo.ListByLecture(ctx, lec)
	require.NoError(t, err)
	require.Len(t, byLecture, 1)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	require.NoError(t, repo.Delete(ctx, r.ID))
	assert.ErrorIs(t, repo.Delete(ctx, r.ID), apperr.ErrNotFound)
	_, err = repo.Get(ctx, r.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func ids(in []account.Student) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.ID)
	}
	return out
}

func teacherIDs(in []account.Teacher) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.ID)
	}
	return out
}

func classroomIDs(in []classroom.Classroom) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.ID)
	}
	return out
}

func lectureIDs(in []lecture.Lecture) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, l.ID)
	}
	return out
}
