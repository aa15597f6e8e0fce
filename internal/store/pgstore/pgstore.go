// Package pgstore implements the repositories on Postgres through database/sql and the pgx driver.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"virtualboard/internal/apperr"
)

// schema is applied by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		subjects TEXT[] NOT NULL DEFAULT '{}',
		classes TEXT[] NOT NULL DEFAULT '{}',
		avatar TEXT NOT NULL DEFAULT 'default-avatar.png',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS classrooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		subject TEXT NOT NULL,
		timeslot TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS classrooms_teacher_idx ON classrooms (teacher_id)`,
	`CREATE TABLE IF NOT EXISTS classroom_students (
		classroom_id TEXT NOT NULL REFERENCES classrooms (id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		position BIGSERIAL,
		PRIMARY KEY (classroom_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS classroom_students_student_idx ON classroom_students (student_id)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id TEXT PRIMARY KEY,
		classroom_id TEXT NOT NULL REFERENCES classrooms (id) ON DELETE CASCADE,
		position BIGSERIAL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		attachments TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS announcements_classroom_idx ON announcements (classroom_id, position)`,
	`CREATE TABLE IF NOT EXISTS lectures (
		id TEXT PRIMARY KEY,
		lecture_number TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL,
		timeslot TEXT NOT NULL DEFAULT '',
		classroom_id TEXT NOT NULL,
		material TEXT[] NOT NULL DEFAULT '{}',
		canvas TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS lectures_classroom_idx ON lectures (classroom_id)`,
	`CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		screen_url TEXT NOT NULL DEFAULT '',
		webcam_url TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT '',
		lecture_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		stored BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE recordings ADD COLUMN IF NOT EXISTS stored BOOLEAN NOT NULL DEFAULT false`,
	`CREATE INDEX IF NOT EXISTS recordings_lecture_idx ON recordings (lecture_id)`,
}

// Migrate creates the tables and indexes when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: migrate: %w", err)
		}
	}
	return nil
}

// Store groups the Postgres repositories over one pool.
type Store struct {
	db *sql.DB
}

// New wraps an open pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Accounts() *Accounts     { return &Accounts{db: s.db} }
func (s *Store) Classrooms() *Classrooms { return &Classrooms{db: s.db} }
func (s *Store) Lectures() *Lectures     { return &Lectures{db: s.db} }
func (s *Store) Recordings() *Recordings { return &Recordings{db: s.db} }

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapErr turns driver errors into the repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperr.ErrDuplicate
		case foreignKeyViolation:
			return apperr.ErrNotFound
		}
	}
	return err
}

// textArray scans a TEXT[] column into dst. pgtype.Map is not safe for concurrent use, so each
// scan gets its own.
func textArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// affected returns ErrNotFound when res touched no rows.
func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
