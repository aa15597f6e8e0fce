package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
)

// Classrooms implements classroom.Repository. Roster rows and announcements live in child
// tables and are folded back into the document shape on read.
type Classrooms struct {
	db *sql.DB
}

var _ classroom.Repository = (*Classrooms)(nil)

const classroomSelect = `SELECT c.id, c.name, c.subject, c.timeslot, c.teacher_id, c.created_at,
	COALESCE((SELECT array_agg(cs.student_id ORDER BY cs.position)
		FROM classroom_students cs WHERE cs.classroom_id = c.id), '{}'::text[]),
	COALESCE((SELECT json_agg(json_build_object(
			'_id', a.id, 'title', a.title, 'content', a.content,
			'attachments', a.attachments, 'createdAt', a.created_at) ORDER BY a.position)
		FROM announcements a WHERE a.classroom_id = c.id), '[]'::json)
	FROM classrooms c`

func scanClassroom(row scanner) (classroom.Classroom, error) {
	var (
		c    classroom.Classroom
		anns []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.Timeslot, &c.TeacherID, &c.CreatedAt, textArray(&c.Students), &anns); err != nil {
		return classroom.Classroom{}, mapErr(err)
	}
	if err := json.Unmarshal(anns, &c.Announcements); err != nil {
		return classroom.Classroom{}, fmt.Errorf("pgstore: decode announcements of %s: %w", c.ID, err)
	}
	c.Normalize()
	return c, nil
}

func (r *Classrooms) list(ctx context.Context, where string, args ...any) ([]classroom.Classroom, error) {
	rows, err := r.db.QueryContext(ctx, classroomSelect+" "+where+" ORDER BY c.created_at, c.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []classroom.Classroom{}
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Classrooms) Create(ctx context.Context, c classroom.Classroom) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO classrooms (id, name, subject, timeslot, teacher_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Subject, c.Timeslot, c.TeacherID, c.CreatedAt); err != nil {
		return mapErr(err)
	}
	if len(c.Students) > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classroom_students (classroom_id, student_id)
			 SELECT $1, s FROM unnest($2::text[]) WITH ORDINALITY AS t(s, n) ORDER BY n
			 ON CONFLICT DO NOTHING`, c.ID, c.Students); err != nil {
			return mapErr(err)
		}
	}
	for _, a := range c.Announcements {
		if err := insertAnnouncement(ctx, tx, c.ID, a); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Classrooms) Get(ctx context.Context, id string) (classroom.Classroom, error) {
	return scanClassroom(r.db.QueryRowContext(ctx, classroomSelect+` WHERE c.id = $1`, id))
}

func (r *Classrooms) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id))
}

func (r *Classrooms) List(ctx context.Context) ([]classroom.Classroom, error) {
	return r.list(ctx, "")
}

func (r *Classrooms) ListByTeacher(ctx context.Context, teacherID string) ([]classroom.Classroom, error) {
	return r.list(ctx, `WHERE c.teacher_id = $1`, teacherID)
}

func (r *Classrooms) ListByStudent(ctx context.Context, studentID string) ([]classroom.Classroom, error) {
	return r.list(ctx, `WHERE EXISTS (SELECT 1 FROM classroom_students cs WHERE cs.classroom_id = c.id AND cs.student_id = $1)`, studentID)
}

func (r *Classrooms) AddStudents(ctx context.Context, id string, studentIDs []string) (classroom.Classroom, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO classroom_students (classroom_id, student_id)
		 SELECT $1, s FROM unnest($2::text[]) WITH ORDINALITY AS t(s, n) ORDER BY n
		 ON CONFLICT DO NOTHING`, id, orEmpty(studentIDs)); err != nil {
		return classroom.Classroom{}, mapErr(err)
	}
	return r.Get(ctx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAnnouncement(ctx context.Context, db execer, classroomID string, a classroom.Announcement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO announcements (id, classroom_id, title, content, attachments, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, classroomID, a.Title, a.Content, orEmpty(a.Attachments), a.CreatedAt)
	return mapErr(err)
}

func (r *Classrooms) AppendAnnouncement(ctx context.Context, classroomID string, a classroom.Announcement) error {
	return insertAnnouncement(ctx, r.db, classroomID, a)
}

func (r *Classrooms) UpdateAnnouncement(ctx context.Context, classroomID string, a classroom.Announcement) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE announcements SET title = $3, content = $4, attachments = $5 WHERE classroom_id = $1 AND id = $2`,
		classroomID, a.ID, a.Title, a.Content, orEmpty(a.Attachments)))
}

func (r *Classrooms) RemoveAnnouncement(ctx context.Context, classroomID, announcementID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE classroom_id = $1 AND id = $2`, classroomID, announcementID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM classrooms WHERE id = $1)`, classroomID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.ErrNotFound
	}
	return nil
}
