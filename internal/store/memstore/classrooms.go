package memstore

import (
	"context"

	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
)

// Classrooms implements classroom.Repository.
type Classrooms struct{ s *Store }

var _ classroom.Repository = (*Classrooms)(nil)

func classroomKey(c classroom.Classroom) (int64, string) { return c.CreatedAt.UnixNano(), c.ID }

func (r *Classrooms) Create(_ context.Context, c classroom.Classroom) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.classrooms[c.ID]; ok {
		return apperr.ErrDuplicate
	}
	r.s.classrooms[c.ID] = cloneClassroom(c)
	return nil
}

func (r *Classrooms) Get(_ context.Context, id string) (classroom.Classroom, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.classrooms[id]
	if !ok {
		return classroom.Classroom{}, apperr.ErrNotFound
	}
	return cloneClassroom(c), nil
}

func (r *Classrooms) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.classrooms[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.s.classrooms, id)
	return nil
}

func (r *Classrooms) list(keep func(classroom.Classroom) bool) []classroom.Classroom {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := sorted(r.s.classrooms, keep, classroomKey)
	for i := range out {
		out[i] = cloneClassroom(out[i])
	}
	return out
}

func (r *Classrooms) List(_ context.Context) ([]classroom.Classroom, error) {
	return r.list(nil), nil
}

func (r *Classrooms) ListByTeacher(_ context.Context, teacherID string) ([]classroom.Classroom, error) {
	return r.list(func(c classroom.Classroom) bool { return c.TeacherID == teacherID }), nil
}

func (r *Classrooms) ListByStudent(_ context.Context, studentID string) ([]classroom.Classroom, error) {
	return r.list(func(c classroom.Classroom) bool { return c.HasStudent(studentID) }), nil
}

func (r *Classrooms) AddStudents(_ context.Context, id string, studentIDs []string) (classroom.Classroom, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classrooms[id]
	if !ok {
		return classroom.Classroom{}, apperr.ErrNotFound
	}
	for _, sid := range studentIDs {
		if !c.HasStudent(sid) {
			c.Students = append(c.Students, sid)
		}
	}
	r.s.classrooms[id] = c
	return cloneClassroom(c), nil
}

func (r *Classrooms) AppendAnnouncement(_ context.Context, classroomID string, a classroom.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classrooms[classroomID]
	if !ok {
		return apperr.ErrNotFound
	}
	a.Attachments = cloneStrings(a.Attachments)
	c.Announcements = append(c.Announcements, a)
	r.s.classrooms[classroomID] = c
	return nil
}

func (r *Classrooms) UpdateAnnouncement(_ context.Context, classroomID string, a classroom.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classrooms[classroomID]
	if !ok {
		return apperr.ErrNotFound
	}
	c = cloneClassroom(c)
	for i := range c.Announcements {
		if c.Announcements[i].ID == a.ID {
			c.Announcements[i].Title = a.Title
			c.Announcements[i].Content = a.Content
			c.Announcements[i].Attachments = cloneStrings(a.Attachments)
			r.s.classrooms[classroomID] = c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (r *Classrooms) RemoveAnnouncement(_ context.Context, classroomID, announcementID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classrooms[classroomID]
	if !ok {
		return apperr.ErrNotFound
	}
	kept := make([]classroom.Announcement, 0, len(c.Announcements))
	for _, a := range c.Announcements {
		if a.ID != announcementID {
			kept = append(kept, a)
		}
	}
	c.Announcements = kept
	r.s.classrooms[classroomID] = c
	return nil
}
