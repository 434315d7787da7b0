package models

import "time"

// Classroom is one section offered for a grade level.
type Classroom struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel string    `db:"grade_level" json:"grade_level"`
	Adviser    string    `db:"adviser" json:"adviser"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Enrolled   int       `db:"enrolled" json:"enrolled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
