package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefOf_KeepsOnlySelectionFields(t *testing.T) {
	teacher := Teacher{
		ID:            "64b7f0c2",
		Name:          "Zhang Wei",
		Title:         "Professor",
		URL:           "https://cs.example.edu/~zhang",
		Email:         "zhang@example.edu",
		Research:      "machine learning",
		SchoolCollege: "School of Computer Science",
		SchoolLevel:   "985",
		School:        "Example University",
	}

	assert.Equal(t, TeacherRef{
		ID:            "64b7f0c2",
		Name:          "Zhang Wei",
		Email:         "zhang@example.edu",
		Title:         "Professor",
		SchoolCollege: "School of Computer Science",
	}, teacher.Ref())
}

func TestTeacherPatch_IsEmpty(t *testing.T) {
	assert.True(t, TeacherPatch{}.IsEmpty())

	title := "Associate Professor"
	assert.False(t, TeacherPatch{Title: &title}.IsEmpty())
}
