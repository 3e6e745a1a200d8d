package api

import (
	"context"
	"fmt"

	"github.com/nhle/automail/internal/model"
)

// TeacherClient talks to the teacher directory service group.
type TeacherClient struct {
	client *Client
}

// NewTeacherClient creates a client for the teacher group.
func NewTeacherClient(svc model.ServiceConfig) *TeacherClient {
	return &TeacherClient{client: NewClient(model.GroupTeacher, svc)}
}

// List returns the whole directory.
func (t *TeacherClient) List(ctx context.Context) ([]model.Teacher, error) {
	return t.list(ctx, "/")
}

// Get returns one teacher by id.
func (t *TeacherClient) Get(ctx context.Context, id string) (model.Teacher, error) {
	var teacher model.Teacher
	if err := requireID("teacher", id); err != nil {
		return teacher, err
	}
	err := t.client.Get(ctx, segment(id), nil, &teacher)
	return teacher, err
}

// Create adds a teacher and returns the stored record with its id.
func (t *TeacherClient) Create(ctx context.Context, teacher model.Teacher) (model.Teacher, error) {
	teacher.ID = ""
	var created model.Teacher
	err := t.client.Post(ctx, "/", teacher, &created)
	return created, err
}

// Update applies a partial update. An empty patch is rejected locally.
func (t *TeacherClient) Update(ctx context.Context, id string, patch model.TeacherPatch) error {
	if err := requireID("teacher", id); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return &ValidationError{err: fmt.Errorf("empty update for teacher %s", id)}
	}
	return t.client.Put(ctx, segment(id), patch, nil)
}

// Delete removes a teacher from the directory.
func (t *TeacherClient) Delete(ctx context.Context, id string) error {
	if err := requireID("teacher", id); err != nil {
		return err
	}
	return t.client.Delete(ctx, segment(id), nil)
}

// ByCollege returns the teachers of one college.
func (t *TeacherClient) ByCollege(ctx context.Context, college string) ([]model.Teacher, error) {
	return t.list(ctx, "/college"+segment(college))
}

// ByResearch returns the teachers working in a research area.
func (t *TeacherClient) ByResearch(ctx context.Context, area string) ([]model.Teacher, error) {
	return t.list(ctx, "/research"+segment(area))
}

type schoolLevelQuery struct {
	SchoolLevel string `json:"school_level" validate:"required"`
}

type schoolQuery struct {
	School string `json:"school" validate:"required"`
}

// BySchoolLevel returns the teachers whose school has the given level.
func (t *TeacherClient) BySchoolLevel(ctx context.Context, level string) ([]model.Teacher, error) {
	teachers := []model.Teacher{}
	if err := t.client.Post(ctx, "/search/school_level", schoolLevelQuery{SchoolLevel: level}, &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// BySchool returns the teachers of one school.
func (t *TeacherClient) BySchool(ctx context.Context, school string) ([]model.Teacher, error) {
	teachers := []model.Teacher{}
	if err := t.client.Post(ctx, "/search/school", schoolQuery{School: school}, &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (t *TeacherClient) list(ctx context.Context, path string) ([]model.Teacher, error) {
	teachers := []model.Teacher{}
	if err := t.client.Get(ctx, path, nil, &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}
