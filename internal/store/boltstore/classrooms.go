package boltstore

import (
	"context"
	"time"

	"go.etcd.io/bbolt"

	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Classrooms implements classroom.Repository.
type Classrooms struct {
	db *bbolt.DB
}

var _ classroom.Repository = (*Classrooms)(nil)

func classroomCreated(c classroom.Classroom) (time.Time, string) { return c.CreatedAt, c.ID }

func (r *Classrooms) Create(_ context.Context, c classroom.Classroom) error {
	c.Normalize()
	return r.db.Update(func(tx *bbolt.Tx) error {
		return insert(tx, classroomsBucket, c.ID, c)
	})
}

func (r *Classrooms) Get(_ context.Context, id string) (classroom.Classroom, error) {
	var c classroom.Classroom
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		c, err = get[classroom.Classroom](tx, classroomsBucket, id)
		return err
	})
	c.Normalize()
	return c, err
}

func (r *Classrooms) Delete(_ context.Context, id string) error {
	return remove(r.db, classroomsBucket, id)
}

func (r *Classrooms) list(keep func(classroom.Classroom) bool) ([]classroom.Classroom, error) {
	out, err := scan(r.db, classroomsBucket, keep, classroomCreated)
	for i := range out {
		out[i].Normalize()
	}
	return out, err
}

func (r *Classrooms) List(_ context.Context) ([]classroom.Classroom, error) {
	return r.list(nil)
}

func (r *Classrooms) ListByTeacher(_ context.Context, teacherID string) ([]classroom.Classroom, error) {
	return r.list(func(c classroom.Classroom) bool { return c.TeacherID == teacherID })
}

func (r *Classrooms) ListByStudent(_ context.Context, studentID string) ([]classroom.Classroom, error) {
	return r.list(func(c classroom.Classroom) bool { return c.HasStudent(studentID) })
}

func (r *Classrooms) AddStudents(_ context.Context, id string, studentIDs []string) (classroom.Classroom, error) {
	var out classroom.Classroom
	err := update(r.db, classroomsBucket, id, func(c *classroom.Classroom) error {
		for _, sid := range studentIDs {
			if !c.HasStudent(sid) {
				c.Students = append(c.Students, sid)
			}
		}
		out = *c
		return nil
	})
	out.Normalize()
	return out, err
}

func (r *Classrooms) AppendAnnouncement(_ context.Context, classroomID string, a classroom.Announcement) error {
	if a.Attachments == nil {
		a.Attachments = []string{}
	}
	return update(r.db, classroomsBucket, classroomID, func(c *classroom.Classroom) error {
		c.Announcements = append(c.Announcements, a)
		return nil
	})
}

func (r *Classrooms) UpdateAnnouncement(_ context.Context, classroomID string, a classroom.Announcement) error {
	return update(r.db, classroomsBucket, classroomID, func(c *classroom.Classroom) error {
		for i := range c.Announcements {
			if c.Announcements[i].ID == a.ID {
				c.Announcements[i].Title = a.Title
				c.Announcements[i].Content = a.Content
				c.Announcements[i].Attachments = a.Attachments
				return nil
			}
		}
		return apperr.ErrNotFound
	})
}

func (r *Classrooms) RemoveAnnouncement(_ context.Context, classroomID, announcementID string) error {
	return update(r.db, classroomsBucket, classroomID, func(c *classroom.Classroom) error {
		kept := c.Announcements[:0]
		for _, a := range c.Announcements {
			if a.ID != announcementID {
				kept = append(kept, a)
			}
		}
		c.Announcements = kept
		return nil
	})
}

// Lectures implements lecture.Repository.
type Lectures struct {
	db *bbolt.DB
}

var _ lecture.Repository = (*Lectures)(nil)

func lectureCreated(l lecture.Lecture) (time.Time, string) { return l.CreatedAt, l.ID }

func (r *Lectures) Create(_ context.Context, l lecture.Lecture) error {
	l.Normalize()
	return r.db.Update(func(tx *bbolt.Tx) error {
		return insert(tx, lecturesBucket, l.ID, l)
	})
}

func (r *Lectures) Get(_ context.Context, id string) (lecture.Lecture, error) {
	var l lecture.Lecture
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		l, err = get[lecture.Lecture](tx, lecturesBucket, id)
		return err
	})
	l.Normalize()
	return l, err
}

func (r *Lectures) Delete(_ context.Context, id string) error {
	return remove(r.db, lecturesBucket, id)
}

func (r *Lectures) list(keep func(lecture.Lecture) bool) ([]lecture.Lecture, error) {
	out, err := scan(r.db, lecturesBucket, keep, lectureCreated)
	for i := range out {
		out[i].Normalize()
	}
	return out, err
}

func (r *Lectures) List(_ context.Context) ([]lecture.Lecture, error) {
	return r.list(nil)
}

func (r *Lectures) ListByClassroom(_ context.Context, classroomID string) ([]lecture.Lecture, error) {
	return r.list(func(l lecture.Lecture) bool { return l.ClassroomID == classroomID })
}

func (r *Lectures) AppendMaterial(_ context.Context, id, url string) error {
	return update(r.db, lecturesBucket, id, func(l *lecture.Lecture) error {
		l.Material = append(l.Material, url)
		return nil
	})
}

func (r *Lectures) RemoveMaterial(_ context.Context, id string, index int) (string, error) {
	var removed string
	err := update(r.db, lecturesBucket, id, func(l *lecture.Lecture) error {
		if index < 0 || index >= len(l.Material) {
			return lecture.ErrMaterialIndex
		}
		removed = l.Material[index]
		l.Material = append(l.Material[:index], l.Material[index+1:]...)
		return nil
	})
	return removed, err
}

func (r *Lectures) SetCanvas(_ context.Context, id, url string) (string, error) {
	var prev string
	err := update(r.db, lecturesBucket, id, func(l *lecture.Lecture) error {
		prev, l.Canvas = l.Canvas, url
		return nil
	})
	return prev, err
}

// Recordings implements recording.Repository.
type Recordings struct {
	db *bbolt.DB
}

var _ recording.Repository = (*Recordings)(nil)

func recordingCreated(r recording.Recording) (time.Time, string) { return r.CreatedAt, r.ID }

func (r *Recordings) Create(_ context.Context, rec recording.Recording) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return insert(tx, recordingsBucket, rec.ID, rec)
	})
}

func (r *Recordings) Get(_ context.Context, id string) (recording.Recording, error) {
	var rec recording.Recording
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = get[recording.Recording](tx, recordingsBucket, id)
		return err
	})
	return rec, err
}

func (r *Recordings) Delete(_ context.Context, id string) error {
	return remove(r.db, recordingsBucket, id)
}

func (r *Recordings) List(_ context.Context) ([]recording.Recording, error) {
	return scan[recording.Recording](r.db, recordingsBucket, nil, recordingCreated)
}

func (r *Recordings) ListByLecture(_ context.Context, lectureID string) ([]recording.Recording, error) {
	return scan(r.db, recordingsBucket, func(rec recording.Recording) bool { return rec.LectureID == lectureID }, recordingCreated)
}
