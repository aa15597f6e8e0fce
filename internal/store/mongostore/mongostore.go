// Package mongostore implements the repositories on MongoDB. Classrooms embed their roster and
// announcements, matching the JSON documents the API returns.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"virtualboard/internal/apperr"
)

const (
	studentsColl   = "students"
	teachersColl   = "teachers"
	classroomsColl = "classrooms"
	lecturesColl   = "lectures"
	recordingsColl = "recordings"
)

// Store groups the repositories over one database.
type Store struct {
	db *mongo.Database
}

// New wraps db.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Accounts() *Accounts {
	return &Accounts{students: s.db.Collection(studentsColl), teachers: s.db.Collection(teachersColl)}
}
func (s *Store) Classrooms() *Classrooms { return &Classrooms{coll: s.db.Collection(classroomsColl)} }
func (s *Store) Lectures() *Lectures     { return &Lectures{coll: s.db.Collection(lecturesColl)} }
func (s *Store) Recordings() *Recordings { return &Recordings{coll: s.db.Collection(recordingsColl)} }

// EnsureIndexes creates the unique email indexes and the lookup indexes used by list filters.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		studentsColl: {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		teachersColl: {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		classroomsColl: {
			{Keys: bson.D{{Key: "teacher", Value: 1}}},
			{Keys: bson.D{{Key: "students", Value: 1}}},
		},
		lecturesColl:   {{Keys: bson.D{{Key: "classroom", Value: 1}}}},
		recordingsColl: {{Keys: bson.D{{Key: "lecture", Value: 1}}}},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: indexes on %s: %w", coll, err)
		}
	}
	return nil
}

var byCreation = options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return apperr.ErrDuplicate
	}
	return err
}

// matched returns ErrNotFound when an update matched nothing.
func matched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, normalize func(*T)) ([]T, error) {
	cur, err := coll.Find(ctx, filter, byCreation)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if normalize != nil {
		for i := range out {
			normalize(&out[i])
		}
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		var zero T
		return zero, mapErr(err)
	}
	return out, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
