package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"virtualboard/internal/classroom"
)

// Classrooms implements classroom.Repository. Every mutation is a single-document update.
type Classrooms struct {
	coll *mongo.Collection
}

var _ classroom.Repository = (*Classrooms)(nil)

func (r *Classrooms) Create(ctx context.Context, c classroom.Classroom) error {
	c.Normalize()
	_, err := r.coll.InsertOne(ctx, c)
	return mapErr(err)
}

func (r *Classrooms) Get(ctx context.Context, id string) (classroom.Classroom, error) {
	c, err := findOne[classroom.Classroom](ctx, r.coll, bson.M{"_id": id})
	if err != nil {
		return classroom.Classroom{}, err
	}
	c.Normalize()
	return c, nil
}

func (r *Classrooms) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *Classrooms) List(ctx context.Context) ([]classroom.Classroom, error) {
	return findAll(ctx, r.coll, bson.M{}, (*classroom.Classroom).Normalize)
}

func (r *Classrooms) ListByTeacher(ctx context.Context, teacherID string) ([]classroom.Classroom, error) {
	return findAll(ctx, r.coll, bson.M{"teacher": teacherID}, (*classroom.Classroom).Normalize)
}

func (r *Classrooms) ListByStudent(ctx context.Context, studentID string) ([]classroom.Classroom, error) {
	return findAll(ctx, r.coll, bson.M{"students": studentID}, (*classroom.Classroom).Normalize)
}

func (r *Classrooms) AddStudents(ctx context.Context, id string, studentIDs []string) (classroom.Classroom, error) {
	var c classroom.Classroom
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"students": bson.M{"$each": orEmpty(studentIDs)}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return classroom.Classroom{}, mapErr(err)
	}
	c.Normalize()
	return c, nil
}

func (r *Classrooms) AppendAnnouncement(ctx context.Context, classroomID string, a classroom.Announcement) error {
	a.Attachments = orEmpty(a.Attachments)
	return matched(r.coll.UpdateOne(ctx, bson.M{"_id": classroomID}, bson.M{"$push": bson.M{"announcements": a}}))
}

func (r *Classrooms) UpdateAnnouncement(ctx context.Context, classroomID string, a classroom.Announcement) error {
	return matched(r.coll.UpdateOne(ctx,
		bson.M{"_id": classroomID, "announcements._id": a.ID},
		bson.M{"$set": bson.M{
			"announcements.$.title":       a.Title,
			"announcements.$.content":     a.Content,
			"announcements.$.attachments": orEmpty(a.Attachments),
		}}))
}

func (r *Classrooms) RemoveAnnouncement(ctx context.Context, classroomID, announcementID string) error {
	return matched(r.coll.UpdateOne(ctx,
		bson.M{"_id": classroomID},
		bson.M{"$pull": bson.M{"announcements": bson.M{"_id": announcementID}}}))
}
