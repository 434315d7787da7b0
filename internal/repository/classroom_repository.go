package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// ClassroomRepository reads the classroom/section catalog.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms, optionally filtered by grade level.
func (r *ClassroomRepository) List(ctx context.Context, gradeLevel string) ([]models.Classroom, error) {
	const base = `SELECT c.id, c.name, c.grade_level, c.adviser, c.capacity,
        (SELECT COUNT(*) FROM students s WHERE s.section = c.name AND s.grade_level = c.grade_level AND s.active) AS enrolled,
        c.created_at
        FROM classrooms c`
	var classrooms []models.Classroom
	if gradeLevel != "" {
		query := base + " WHERE c.grade_level = $1 ORDER BY c.grade_level, c.name"
		if err := r.db.SelectContext(ctx, &classrooms, query, gradeLevel); err != nil {
			return nil, fmt.Errorf("list classrooms: %w", err)
		}
		return classrooms, nil
	}
	if err := r.db.SelectContext(ctx, &classrooms, base+" ORDER BY c.grade_level, c.name"); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}
