package memstore

import (
	"context"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

// Accounts implements account.Repository.
type Accounts struct{ s *Store }

var _ account.Repository = (*Accounts)(nil)

func studentKey(st account.Student) (int64, string) { return st.CreatedAt.UnixNano(), st.ID }
func teacherKey(t account.Teacher) (int64, string)  { return t.CreatedAt.UnixNano(), t.ID }

func (a *Accounts) CreateStudent(_ context.Context, st account.Student) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, existing := range a.s.students {
		if existing.Email == st.Email {
			return apperr.ErrDuplicate
		}
	}
	if _, ok := a.s.students[st.ID]; ok {
		return apperr.ErrDuplicate
	}
	a.s.students[st.ID] = st
	return nil
}

func (a *Accounts) StudentByID(_ context.Context, id string) (account.Student, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	st, ok := a.s.students[id]
	if !ok {
		return account.Student{}, apperr.ErrNotFound
	}
	return st, nil
}

func (a *Accounts) StudentByEmail(_ context.Context, email string) (account.Student, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	for _, st := range a.s.students {
		if st.Email == email {
			return st, nil
		}
	}
	return account.Student{}, apperr.ErrNotFound
}

func (a *Accounts) ListStudents(_ context.Context) ([]account.Student, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return sorted(a.s.students, nil, studentKey), nil
}

func (a *Accounts) StudentsByEmails(_ context.Context, emails []string) ([]account.Student, error) {
	want := set(emails)
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return sorted(a.s.students, func(st account.Student) bool { return want[st.Email] }, studentKey), nil
}

func (a *Accounts) StudentsByIDs(_ context.Context, ids []string) ([]account.Student, error) {
	want := set(ids)
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return sorted(a.s.students, func(st account.Student) bool { return want[st.ID] }, studentKey), nil
}

func (a *Accounts) CreateTeacher(_ context.Context, t account.Teacher) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, existing := range a.s.teachers {
		if existing.Email == t.Email {
			return apperr.ErrDuplicate
		}
	}
	if _, ok := a.s.teachers[t.ID]; ok {
		return apperr.ErrDuplicate
	}
	a.s.teachers[t.ID] = cloneTeacher(t)
	return nil
}

func (a *Accounts) TeacherByID(_ context.Context, id string) (account.Teacher, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	t, ok := a.s.teachers[id]
	if !ok {
		return account.Teacher{}, apperr.ErrNotFound
	}
	return cloneTeacher(t), nil
}

func (a *Accounts) TeacherByEmail(_ context.Context, email string) (account.Teacher, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	for _, t := range a.s.teachers {
		if t.Email == email {
			return cloneTeacher(t), nil
		}
	}
	return account.Teacher{}, apperr.ErrNotFound
}

func (a *Accounts) ListTeachers(_ context.Context) ([]account.Teacher, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := sorted(a.s.teachers, nil, teacherKey)
	for i := range out {
		out[i] = cloneTeacher(out[i])
	}
	return out, nil
}

func (a *Accounts) UpdateTeacher(_ context.Context, t account.Teacher) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.teachers[t.ID]; !ok {
		return apperr.ErrNotFound
	}
	a.s.teachers[t.ID] = cloneTeacher(t)
	return nil
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
