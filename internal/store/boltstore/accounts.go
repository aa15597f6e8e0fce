package boltstore

import (
	"context"
	"time"

	"go.etcd.io/bbolt"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

// Accounts implements account.Repository. Email uniqueness is kept with email->id index buckets.
type Accounts struct {
	db *bbolt.DB
}

var _ account.Repository = (*Accounts)(nil)

// studentRecord is the stored shape; account.Student hides the hash from JSON.
type studentRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

type teacherRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Subjects  []string  `json:"subjects"`
	Classes   []string  `json:"classes"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStudentRecord(s account.Student) studentRecord {
	return studentRecord{ID: s.ID, Email: s.Email, Password: s.PasswordHash, CreatedAt: s.CreatedAt}
}

func (r studentRecord) student() account.Student {
	return account.Student{ID: r.ID, Email: r.Email, PasswordHash: r.Password, CreatedAt: r.CreatedAt}
}

func toTeacherRecord(t account.Teacher) teacherRecord {
	return teacherRecord{
		ID: t.ID, Name: t.Name, Email: t.Email, Password: t.PasswordHash,
		Subjects: t.Subjects, Classes: t.Classes, Avatar: t.Avatar, CreatedAt: t.CreatedAt,
	}
}

func (r teacherRecord) teacher() account.Teacher {
	subjects, classes := r.Subjects, r.Classes
	if subjects == nil {
		subjects = []string{}
	}
	if classes == nil {
		classes = []string{}
	}
	return account.Teacher{
		ID: r.ID, Name: r.Name, Email: r.Email, PasswordHash: r.Password,
		Subjects: subjects, Classes: classes, Avatar: r.Avatar, CreatedAt: r.CreatedAt,
	}
}

func studentCreated(r studentRecord) (time.Time, string) { return r.CreatedAt, r.ID }
func teacherCreated(r teacherRecord) (time.Time, string) { return r.CreatedAt, r.ID }

// claimEmail reserves email for id in the index bucket.
func claimEmail(tx *bbolt.Tx, bucket []byte, email, id string) error {
	b := tx.Bucket(bucket)
	if owner := b.Get([]byte(email)); owner != nil && string(owner) != id {
		return apperr.ErrDuplicate
	}
	return b.Put([]byte(email), []byte(id))
}

func lookupEmail(tx *bbolt.Tx, bucket []byte, email string) (string, bool) {
	v := tx.Bucket(bucket).Get([]byte(email))
	return string(v), v != nil
}

func (r *Accounts) CreateStudent(_ context.Context, s account.Student) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := claimEmail(tx, studentEmailsBucket, s.Email, s.ID); err != nil {
			return err
		}
		return insert(tx, studentsBucket, s.ID, toStudentRecord(s))
	})
}

func (r *Accounts) StudentByID(_ context.Context, id string) (account.Student, error) {
	var out account.Student
	err := r.db.View(func(tx *bbolt.Tx) error {
		rec, err := get[studentRecord](tx, studentsBucket, id)
		out = rec.student()
		return err
	})
	return out, err
}

func (r *Accounts) StudentByEmail(ctx context.Context, email string) (account.Student, error) {
	var id string
	err := r.db.View(func(tx *bbolt.Tx) error {
		var ok bool
		if id, ok = lookupEmail(tx, studentEmailsBucket, email); !ok {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return account.Student{}, err
	}
	return r.StudentByID(ctx, id)
}

func (r *Accounts) listStudents(keep func(studentRecord) bool) ([]account.Student, error) {
	recs, err := scan(r.db, studentsBucket, keep, studentCreated)
	if err != nil {
		return nil, err
	}
	out := make([]account.Student, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.student())
	}
	return out, nil
}

func (r *Accounts) ListStudents(_ context.Context) ([]account.Student, error) {
	return r.listStudents(nil)
}

func (r *Accounts) StudentsByEmails(_ context.Context, emails []string) ([]account.Student, error) {
	return r.listStudents(func(s studentRecord) bool { return contains(emails, s.Email) })
}

func (r *Accounts) StudentsByIDs(_ context.Context, ids []string) ([]account.Student, error) {
	return r.listStudents(func(s studentRecord) bool { return contains(ids, s.ID) })
}

func (r *Accounts) CreateTeacher(_ context.Context, t account.Teacher) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := claimEmail(tx, teacherEmailsBucket, t.Email, t.ID); err != nil {
			return err
		}
		return insert(tx, teachersBucket, t.ID, toTeacherRecord(t))
	})
}

func (r *Accounts) TeacherByID(_ context.Context, id string) (account.Teacher, error) {
	var out account.Teacher
	err := r.db.View(func(tx *bbolt.Tx) error {
		rec, err := get[teacherRecord](tx, teachersBucket, id)
		out = rec.teacher()
		return err
	})
	return out, err
}

func (r *Accounts) TeacherByEmail(ctx context.Context, email string) (account.Teacher, error) {
	var id string
	err := r.db.View(func(tx *bbolt.Tx) error {
		var ok bool
		if id, ok = lookupEmail(tx, teacherEmailsBucket, email); !ok {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return account.Teacher{}, err
	}
	return r.TeacherByID(ctx, id)
}

func (r *Accounts) ListTeachers(_ context.Context) ([]account.Teacher, error) {
	recs, err := scan[teacherRecord](r.db, teachersBucket, nil, teacherCreated)
	if err != nil {
		return nil, err
	}
	out := make([]account.Teacher, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.teacher())
	}
	return out, nil
}

// UpdateTeacher rewrites the record and moves the email index entry when the address changes.
func (r *Accounts) UpdateTeacher(_ context.Context, t account.Teacher) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		old, err := get[teacherRecord](tx, teachersBucket, t.ID)
		if err != nil {
			return err
		}
		if old.Email != t.Email {
			if err := claimEmail(tx, teacherEmailsBucket, t.Email, t.ID); err != nil {
				return err
			}
			if err := tx.Bucket(teacherEmailsBucket).Delete([]byte(old.Email)); err != nil {
				return err
			}
		}
		rec := toTeacherRecord(t)
		rec.CreatedAt = old.CreatedAt
		return put(tx, teachersBucket, t.ID, rec)
	})
}
