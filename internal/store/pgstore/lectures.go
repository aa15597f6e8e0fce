package pgstore

import (
	"context"
	"database/sql"

	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Lectures implements lecture.Repository.
type Lectures struct {
	db *sql.DB
}

var _ lecture.Repository = (*Lectures)(nil)

const lectureColumns = `id, lecture_number, topic, timeslot, classroom_id, material, canvas, created_at`

func scanLecture(row scanner) (lecture.Lecture, error) {
	var l lecture.Lecture
	if err := row.Scan(&l.ID, &l.Number, &l.Topic, &l.Timeslot, &l.ClassroomID, textArray(&l.Material), &l.Canvas, &l.CreatedAt); err != nil {
		return lecture.Lecture{}, mapErr(err)
	}
	l.Normalize()
	return l, nil
}

func (r *Lectures) list(ctx context.Context, where string, args ...any) ([]lecture.Lecture, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+lectureColumns+` FROM lectures `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []lecture.Lecture{}
	for rows.Next() {
		l, err := scanLecture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Lectures) Create(ctx context.Context, l lecture.Lecture) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lectures (`+lectureColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.Number, l.Topic, l.Timeslot, l.ClassroomID, orEmpty(l.Material), l.Canvas, l.CreatedAt)
	return mapErr(err)
}

func (r *Lectures) Get(ctx context.Context, id string) (lecture.Lecture, error) {
	return scanLecture(r.db.QueryRowContext(ctx, `SELECT `+lectureColumns+` FROM lectures WHERE id = $1`, id))
}

func (r *Lectures) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, `DELETE FROM lectures WHERE id = $1`, id))
}

func (r *Lectures) List(ctx context.Context) ([]lecture.Lecture, error) {
	return r.list(ctx, "")
}

func (r *Lectures) ListByClassroom(ctx context.Context, classroomID string) ([]lecture.Lecture, error) {
	return r.list(ctx, `WHERE classroom_id = $1`, classroomID)
}

func (r *Lectures) AppendMaterial(ctx context.Context, id, url string) error {
	return affected(r.db.ExecContext(ctx, `UPDATE lectures SET material = array_append(material, $2) WHERE id = $1`, id, url))
}

// RemoveMaterial locks the row so the index refers to the list the caller saw.
func (r *Lectures) RemoveMaterial(ctx context.Context, id string, index int) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var material []string
	if err := tx.QueryRowContext(ctx, `SELECT material FROM lectures WHERE id = $1 FOR UPDATE`, id).Scan(textArray(&material)); err != nil {
		return "", mapErr(err)
	}
	if index < 0 || index >= len(material) {
		return "", lecture.ErrMaterialIndex
	}
	removed := material[index]
	kept := append(append([]string{}, material[:index]...), material[index+1:]...)
	if _, err := tx.ExecContext(ctx, `UPDATE lectures SET material = $2 WHERE id = $1`, id, kept); err != nil {
		return "", err
	}
	return removed, tx.Commit()
}

func (r *Lectures) SetCanvas(ctx context.Context, id, url string) (string, error) {
	var prev string
	err := r.db.QueryRowContext(ctx,
		`UPDATE lectures l SET canvas = $2
		 FROM (SELECT id, canvas FROM lectures WHERE id = $1 FOR UPDATE) old
		 WHERE l.id = old.id
		 RETURNING old.canvas`, id, url).Scan(&prev)
	return prev, mapErr(err)
}

// Recordings implements recording.Repository.
type Recordings struct {
	db *sql.DB
}

var _ recording.Repository = (*Recordings)(nil)

const recordingColumns = `id, title, screen_url, webcam_url, url, duration, type, lecture_id, owner_id, stored, created_at`

func scanRecording(row scanner) (recording.Recording, error) {
	var rec recording.Recording
	err := row.Scan(&rec.ID, &rec.Title, &rec.ScreenURL, &rec.WebcamURL, &rec.URL, &rec.Duration, &rec.Type, &rec.LectureID, &rec.OwnerID, &rec.Stored, &rec.CreatedAt)
	return rec, mapErr(err)
}

func (r *Recordings) list(ctx context.Context, where string, args ...any) ([]recording.Recording, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []recording.Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Recordings) Create(ctx context.Context, rec recording.Recording) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recordings (`+recordingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Title, rec.ScreenURL, rec.WebcamURL, rec.URL, rec.Duration, rec.Type, rec.LectureID, rec.OwnerID, rec.Stored, rec.CreatedAt)
	return mapErr(err)
}

func (r *Recordings) Get(ctx context.Context, id string) (recording.Recording, error) {
	return scanRecording(r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
}

func (r *Recordings) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = $1`, id))
}

func (r *Recordings) List(ctx context.Context) ([]recording.Recording, error) {
	return r.list(ctx, "")
}

func (r *Recordings) ListByLecture(ctx context.Context, lectureID string) ([]recording.Recording, error) {
	return r.list(ctx, `WHERE lecture_id = $1`, lectureID)
}
