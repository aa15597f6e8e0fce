package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Lectures implements lecture.Repository.
type Lectures struct {
	coll *mongo.Collection
}

var _ lecture.Repository = (*Lectures)(nil)

// errMaterialMoved signals that the list changed between read and write.
var errMaterialMoved = errors.New("material list changed concurrently")

const removeAttempts = 3

func (r *Lectures) Create(ctx context.Context, l lecture.Lecture) error {
	l.Normalize()
	_, err := r.coll.InsertOne(ctx, l)
	return mapErr(err)
}

func (r *Lectures) Get(ctx context.Context, id string) (lecture.Lecture, error) {
	l, err := findOne[lecture.Lecture](ctx, r.coll, bson.M{"_id": id})
	if err != nil {
		return lecture.Lecture{}, err
	}
	l.Normalize()
	return l, nil
}

func (r *Lectures) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *Lectures) List(ctx context.Context) ([]lecture.Lecture, error) {
	return findAll(ctx, r.coll, bson.M{}, (*lecture.Lecture).Normalize)
}

func (r *Lectures) ListByClassroom(ctx context.Context, classroomID string) ([]lecture.Lecture, error) {
	return findAll(ctx, r.coll, bson.M{"classroom": classroomID}, (*lecture.Lecture).Normalize)
}

func (r *Lectures) AppendMaterial(ctx context.Context, id, url string) error {
	return matched(r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"material": url}}))
}

// RemoveMaterial drops the element at index with a pipeline update guarded on the value read,
// retrying when another writer moved the list in between.
func (r *Lectures) RemoveMaterial(ctx context.Context, id string, index int) (string, error) {
	for attempt := 0; attempt < removeAttempts; attempt++ {
		l, err := r.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if index < 0 || index >= len(l.Material) {
			return "", lecture.ErrMaterialIndex
		}
		removed := l.Material[index]
		field := fmt.Sprintf("material.%d", index)
		pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{
			"material": bson.M{"$concatArrays": bson.A{
				bson.M{"$slice": bson.A{"$material", index}},
				bson.M{"$slice": bson.A{"$material", index + 1, bson.M{"$size": "$material"}}},
			}},
		}}}}
		res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, field: removed}, pipeline)
		if err != nil {
			return "", err
		}
		if res.MatchedCount == 1 {
			return removed, nil
		}
	}
	return "", errMaterialMoved
}

func (r *Lectures) SetCanvas(ctx context.Context, id, url string) (string, error) {
	var prev lecture.Lecture
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"canvas": url}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before).SetProjection(bson.M{"canvas": 1}),
	).Decode(&prev)
	if err != nil {
		return "", mapErr(err)
	}
	return prev.Canvas, nil
}

// Recordings implements recording.Repository.
type Recordings struct {
	coll *mongo.Collection
}

var _ recording.Repository = (*Recordings)(nil)

func (r *Recordings) Create(ctx context.Context, rec recording.Recording) error {
	_, err := r.coll.InsertOne(ctx, rec)
	return mapErr(err)
}

func (r *Recordings) Get(ctx context.Context, id string) (recording.Recording, error) {
	return findOne[recording.Recording](ctx, r.coll, bson.M{"_id": id})
}

func (r *Recordings) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *Recordings) List(ctx context.Context) ([]recording.Recording, error) {
	return findAll[recording.Recording](ctx, r.coll, bson.M{}, nil)
}

func (r *Recordings) ListByLecture(ctx context.Context, lectureID string) ([]recording.Recording, error) {
	return findAll[recording.Recording](ctx, r.coll, bson.M{"lecture": lectureID}, nil)
}
