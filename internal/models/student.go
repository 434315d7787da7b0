package models

import "time"

// Student is an enrolled learner visible in the staff/admin listings.
type Student struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	LRN         string    `db:"lrn" json:"lrn"`
	LastName    string    `db:"last_name" json:"last_name"`
	FirstName   string    `db:"first_name" json:"first_name"`
	MiddleName  string    `db:"middle_name" json:"middle_name"`
	GradeLevel  string    `db:"grade_level" json:"grade_level"`
	Section     string    `db:"section" json:"section"`
	Email       string    `db:"email" json:"email"`
	ContactNo   string    `db:"contact_no" json:"contact_no"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfile enriches Student with the registration it originated from.
type StudentProfile struct {
	Student
	EnrollmentID string             `db:"enrollment_id" json:"enrollment_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
}

// StudentUpdate is the mutable subset staff may edit in place.
type StudentUpdate struct {
	GradeLevel string `json:"grade_level" validate:"required"`
	Section    string `json:"section"`
	Email      string `json:"email" validate:"omitempty,email"`
	ContactNo  string `json:"contact_no"`
	Active     *bool  `json:"active"`
}

// StudentFilter captures listing criteria for the students table view.
type StudentFilter struct {
	GradeLevel string
	Section    string
	Search     string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
