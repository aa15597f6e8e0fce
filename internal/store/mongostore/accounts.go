package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"virtualboard/internal/account"
)

// Accounts implements account.Repository over the students and teachers collections.
type Accounts struct {
	students *mongo.Collection
	teachers *mongo.Collection
}

var _ account.Repository = (*Accounts)(nil)

func normalizeTeacher(t *account.Teacher) {
	t.Subjects = orEmpty(t.Subjects)
	t.Classes = orEmpty(t.Classes)
}

func (r *Accounts) CreateStudent(ctx context.Context, s account.Student) error {
	_, err := r.students.InsertOne(ctx, s)
	return mapErr(err)
}

func (r *Accounts) StudentByID(ctx context.Context, id string) (account.Student, error) {
	return findOne[account.Student](ctx, r.students, bson.M{"_id": id})
}

func (r *Accounts) StudentByEmail(ctx context.Context, email string) (account.Student, error) {
	return findOne[account.Student](ctx, r.students, bson.M{"email": email})
}

func (r *Accounts) ListStudents(ctx context.Context) ([]account.Student, error) {
	return findAll[account.Student](ctx, r.students, bson.M{}, nil)
}

func (r *Accounts) StudentsByEmails(ctx context.Context, emails []string) ([]account.Student, error) {
	return findAll[account.Student](ctx, r.students, bson.M{"email": bson.M{"$in": orEmpty(emails)}}, nil)
}

func (r *Accounts) StudentsByIDs(ctx context.Context, ids []string) ([]account.Student, error) {
	return findAll[account.Student](ctx, r.students, bson.M{"_id": bson.M{"$in": orEmpty(ids)}}, nil)
}

func (r *Accounts) CreateTeacher(ctx context.Context, t account.Teacher) error {
	normalizeTeacher(&t)
	_, err := r.teachers.InsertOne(ctx, t)
	return mapErr(err)
}

func (r *Accounts) TeacherByID(ctx context.Context, id string) (account.Teacher, error) {
	t, err := findOne[account.Teacher](ctx, r.teachers, bson.M{"_id": id})
	normalizeTeacher(&t)
	return t, err
}

func (r *Accounts) TeacherByEmail(ctx context.Context, email string) (account.Teacher, error) {
	t, err := findOne[account.Teacher](ctx, r.teachers, bson.M{"email": email})
	normalizeTeacher(&t)
	return t, err
}

func (r *Accounts) ListTeachers(ctx context.Context) ([]account.Teacher, error) {
	return findAll(ctx, r.teachers, bson.M{}, normalizeTeacher)
}

func (r *Accounts) UpdateTeacher(ctx context.Context, t account.Teacher) error {
	return matched(r.teachers.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"name":     t.Name,
		"email":    t.Email,
		"password": t.PasswordHash,
		"subjects": orEmpty(t.Subjects),
		"classes":  orEmpty(t.Classes),
		"avatar":   t.Avatar,
	}}))
}
