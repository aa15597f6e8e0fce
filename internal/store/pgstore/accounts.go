package pgstore

import (
	"context"
	"database/sql"

	"virtualboard/internal/account"
)

// Accounts implements account.Repository.
type Accounts struct {
	db *sql.DB
}

var _ account.Repository = (*Accounts)(nil)

const (
	studentColumns = `id, email, password, created_at`
	teacherColumns = `id, name, email, password, subjects, classes, avatar, created_at`
)

func scanStudent(row scanner) (account.Student, error) {
	var s account.Student
	err := row.Scan(&s.ID, &s.Email, &s.PasswordHash, &s.CreatedAt)
	return s, mapErr(err)
}

func scanTeacher(row scanner) (account.Teacher, error) {
	var t account.Teacher
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, textArray(&t.Subjects), textArray(&t.Classes), &t.Avatar, &t.CreatedAt)
	t.Subjects = orEmpty(t.Subjects)
	t.Classes = orEmpty(t.Classes)
	return t, mapErr(err)
}

func (r *Accounts) students(ctx context.Context, query string, args ...any) ([]account.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []account.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Accounts) CreateStudent(ctx context.Context, s account.Student) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (`+studentColumns+`) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Email, s.PasswordHash, s.CreatedAt)
	return mapErr(err)
}

func (r *Accounts) StudentByID(ctx context.Context, id string) (account.Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

func (r *Accounts) StudentByEmail(ctx context.Context, email string) (account.Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email))
}

func (r *Accounts) ListStudents(ctx context.Context) ([]account.Student, error) {
	return r.students(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, id`)
}

func (r *Accounts) StudentsByEmails(ctx context.Context, emails []string) ([]account.Student, error) {
	return r.students(ctx, `SELECT `+studentColumns+` FROM students WHERE email = ANY($1) ORDER BY created_at, id`, orEmpty(emails))
}

func (r *Accounts) StudentsByIDs(ctx context.Context, ids []string) ([]account.Student, error) {
	return r.students(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ANY($1) ORDER BY created_at, id`, orEmpty(ids))
}

func (r *Accounts) CreateTeacher(ctx context.Context, t account.Teacher) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teachers (`+teacherColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.Email, t.PasswordHash, orEmpty(t.Subjects), orEmpty(t.Classes), t.Avatar, t.CreatedAt)
	return mapErr(err)
}

func (r *Accounts) TeacherByID(ctx context.Context, id string) (account.Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id))
}

func (r *Accounts) TeacherByEmail(ctx context.Context, email string) (account.Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE email = $1`, email))
}

func (r *Accounts) ListTeachers(ctx context.Context) ([]account.Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []account.Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Accounts) UpdateTeacher(ctx context.Context, t account.Teacher) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE teachers SET name = $2, email = $3, password = $4, subjects = $5, classes = $6, avatar = $7 WHERE id = $1`,
		t.ID, t.Name, t.Email, t.PasswordHash, orEmpty(t.Subjects), orEmpty(t.Classes), t.Avatar))
}
