package model

// Teacher is a directory record as served by the teacher service.
type Teacher struct {
	ID            string `json:"id,omitempty" db:"id"`
	Name          string `json:"name" db:"name" validate:"required"`
	Title         string `json:"title" db:"title" validate:"required"`
	URL           string `json:"url" db:"url" validate:"required"`
	Email         string `json:"email" db:"email" validate:"required,email"`
	Research      string `json:"resh_dict" db:"research" validate:"required"`
	SchoolCollege string `json:"school_college" db:"school_college" validate:"required"`
	SchoolLevel   string `json:"school_level,omitempty" db:"school_level"`
	School        string `json:"school,omitempty" db:"school"`
}

// Ref projects the teacher onto the five fields kept for selection.
func (t Teacher) Ref() TeacherRef {
	return RefOf(t)
}

// TeacherRef is the reduced snapshot of a teacher held in a selection.
// It is copied at selection time and never follows later directory edits.
type TeacherRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Title         string `json:"title"`
	SchoolCollege string `json:"school_college"`
}

// Ref returns the snapshot itself so refs can be re-added to a selection.
func (r TeacherRef) Ref() TeacherRef {
	return r
}

// RefOf extracts exactly the identifier, name, email, title and
// affiliation from a full teacher record.
func RefOf(t Teacher) TeacherRef {
	return TeacherRef{
		ID:            t.ID,
		Name:          t.Name,
		Email:         t.Email,
		Title:         t.Title,
		SchoolCollege: t.SchoolCollege,
	}
}

// TeacherPatch carries a partial update; nil fields are left untouched
// by the service.
type TeacherPatch struct {
	Name          *string `json:"name,omitempty"`
	Title         *string `json:"title,omitempty"`
	URL           *string `json:"url,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Research      *string `json:"resh_dict,omitempty"`
	SchoolCollege *string `json:"school_college,omitempty"`
	SchoolLevel   *string `json:"school_level,omitempty"`
	School        *string `json:"school,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p TeacherPatch) IsEmpty() bool {
	return p.Name == nil && p.Title == nil && p.URL == nil &&
		p.Email == nil && p.Research == nil && p.SchoolCollege == nil &&
		p.SchoolLevel == nil && p.School == nil
}
