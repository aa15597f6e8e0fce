// Package memstore keeps every repository in process memory. It backs tests and
// STORE_BACKEND=memory; values are copied on the way in and out so callers never share slices
// with the store.
package memstore

import (
	"sort"
	"sync"

	"virtualboard/internal/account"
	"virtualboard/internal/classroom"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Store holds all collections behind one lock.
type Store struct {
	mu         sync.RWMutex
	students   map[string]account.Student
	teachers   map[string]account.Teacher
	classrooms map[string]classroom.Classroom
	lectures   map[string]lecture.Lecture
	recordings map[string]recording.Recording
}

// New creates an empty store.
func New() *Store {
	return &Store{
		students:   map[string]account.Student{},
		teachers:   map[string]account.Teacher{},
		classrooms: map[string]classroom.Classroom{},
		lectures:   map[string]lecture.Lecture{},
		recordings: map[string]recording.Recording{},
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *Accounts { return &Accounts{s} }

// Classrooms returns the classroom repository view.
func (s *Store) Classrooms() *Classrooms { return &Classrooms{s} }

// Lectures returns the lecture repository view.
func (s *Store) Lectures() *Lectures { return &Lectures{s} }

// Recordings returns the recording repository view.
func (s *Store) Recordings() *Recordings { return &Recordings{s} }

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneClassroom(c classroom.Classroom) classroom.Classroom {
	c.Students = cloneStrings(c.Students)
	anns := make([]classroom.Announcement, len(c.Announcements))
	for i, a := range c.Announcements {
		a.Attachments = cloneStrings(a.Attachments)
		anns[i] = a
	}
	c.Announcements = anns
	return c
}

func cloneLecture(l lecture.Lecture) lecture.Lecture {
	l.Material = cloneStrings(l.Material)
	return l
}

func cloneTeacher(t account.Teacher) account.Teacher {
	t.Subjects = cloneStrings(t.Subjects)
	t.Classes = cloneStrings(t.Classes)
	return t
}

// sorted returns map values ordered by creation time, then id.
func sorted[T any](m map[string]T, keep func(T) bool, key func(T) (int64, string)) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, ii := key(out[i])
		tj, ij := key(out[j])
		if ti != tj {
			return ti < tj
		}
		return ii < ij
	})
	return out
}
