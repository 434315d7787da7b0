package models

import "time"

// RegistrationStatus tracks the lifecycle of a submitted enrollment.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// Registration is the finalized applicant record written when step 3
// submits. The full draft is retained as JSON alongside the searchable
// columns.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	EnrollmentID string             `db:"enrollment_id" json:"enrollment_id"`
	UserID       *string            `db:"user_id" json:"user_id,omitempty"`
	LRN          string             `db:"lrn" json:"lrn"`
	LastName     string             `db:"last_name" json:"last_name"`
	FirstName    string             `db:"first_name" json:"first_name"`
	MiddleName   string             `db:"middle_name" json:"middle_name"`
	GradeLevel   string             `db:"grade_level" json:"grade_level"`
	StudentType  StudentType        `db:"student_type" json:"student_type"`
	Email        string             `db:"email" json:"email"`
	DraftJSON    []byte             `db:"draft_json" json:"-"`
	Status       RegistrationStatus `db:"status" json:"status"`
	SubmittedAt  time.Time          `db:"submitted_at" json:"submitted_at"`
	ReviewedAt   *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy   *string            `db:"reviewed_by" json:"reviewed_by,omitempty"`
}

// RegistrationFilter captures listing criteria for applicant views.
type RegistrationFilter struct {
	Status     RegistrationStatus
	GradeLevel string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
