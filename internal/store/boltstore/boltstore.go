// Package boltstore keeps every repository in a single bbolt file. It suits single-node
// deployments (STORE_BACKEND=bolt); records are JSON values keyed by id.
package boltstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"virtualboard/internal/apperr"
)

var (
	studentsBucket      = []byte("students")
	studentEmailsBucket = []byte("student_emails")
	teachersBucket      = []byte("teachers")
	teacherEmailsBucket = []byte("teacher_emails")
	classroomsBucket    = []byte("classrooms")
	lecturesBucket      = []byte("lectures")
	recordingsBucket    = []byte("recordings")
)

var allBuckets = [][]byte{
	studentsBucket, studentEmailsBucket, teachersBucket, teacherEmailsBucket,
	classroomsBucket, lecturesBucket, recordingsBucket,
}

// Store owns the bbolt handle.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file and its buckets.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Accounts() *Accounts     { return &Accounts{db: s.db} }
func (s *Store) Classrooms() *Classrooms { return &Classrooms{db: s.db} }
func (s *Store) Lectures() *Lectures     { return &Lectures{db: s.db} }
func (s *Store) Recordings() *Recordings { return &Recordings{db: s.db} }

func put[T any](tx *bbolt.Tx, bucket []byte, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

func get[T any](tx *bbolt.Tx, bucket []byte, key string) (T, error) {
	var out T
	v := tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return out, apperr.ErrNotFound
	}
	return out, json.Unmarshal(v, &out)
}

// insert stores value under a fresh key.
func insert[T any](tx *bbolt.Tx, bucket []byte, key string, value T) error {
	if tx.Bucket(bucket).Get([]byte(key)) != nil {
		return apperr.ErrDuplicate
	}
	return put(tx, bucket, key, value)
}

// update applies fn to the record under key and writes it back.
func update[T any](db *bbolt.DB, bucket []byte, key string, fn func(*T) error) error {
	return db.Update(func(tx *bbolt.Tx) error {
		v, err := get[T](tx, bucket, key)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		return put(tx, bucket, key, v)
	})
}

func remove(db *bbolt.DB, bucket []byte, key string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(key)) == nil {
			return apperr.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

// scan returns every record accepted by keep, oldest first.
func scan[T any](db *bbolt.DB, bucket []byte, keep func(T) bool, created func(T) (time.Time, string)) ([]T, error) {
	out := []T{}
	err := db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if keep == nil || keep(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, idi := created(out[i])
		tj, idj := created(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
