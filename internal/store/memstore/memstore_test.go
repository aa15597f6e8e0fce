package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
	"virtualboard/internal/lecture"
	"virtualboard/internal/store/storetest"
)

func TestClassroomCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := New().Classrooms()
	require.NoError(t, repo.Create(ctx, classroom.Classroom{ID: "c1", TeacherID: "t1", Students: []string{"s1"}}))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	got.Students[0] = "mutated"

	again, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, again.Students)
}

func TestListsAreOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	repo := New().Lectures()
	base := time.Now()
	require.NoError(t, repo.Create(ctx, lecture.Lecture{ID: "b", ClassroomID: "c", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, lecture.Lecture{ID: "a", ClassroomID: "c", CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, lecture.Lecture{ID: "z", ClassroomID: "other", CreatedAt: base}))

	got, err := repo.ListByClassroom(ctx, "c")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestRemoveMaterialBounds(t *testing.T) {
	ctx := context.Background()
	repo := New().Lectures()
	require.NoError(t, repo.Create(ctx, lecture.Lecture{ID: "l", Material: []string{"x"}}))

	_, err := repo.RemoveMaterial(ctx, "l", 1)
	assert.ErrorIs(t, err, lecture.ErrMaterialIndex)
	_, err = repo.RemoveMaterial(ctx, "missing", 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	url, err := repo.RemoveMaterial(ctx, "l", 0)
	require.NoError(t, err)
	assert.Equal(t, "x", url)
}

func TestConformance(t *testing.T) {
	s := New()
	storetest.Run(t, storetest.Repos{
		Accounts:   s.Accounts(),
		Classrooms: s.Classrooms(),
		Lectures:   s.Lectures(),
		Recordings: s.Recordings(),
	})
}
