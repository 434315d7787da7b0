package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// StudentRepository manages persistence for enrolled learners.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.user_id, s.lrn, s.last_name, s.first_name, s.middle_name,
        s.grade_level, s.section, s.email, s.contact_no, s.active, s.created_at, s.updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("s.section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.last_name) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR s.lrn LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"last_name":   "s.last_name",
		"lrn":         "s.lrn",
		"grade_level": "s.grade_level",
		"created_at":  "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, base+clause, orderBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindProfileByUserID loads the signed-in student's profile with the
// registration it originated from.
func (r *StudentRepository) FindProfileByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s, COALESCE(reg.enrollment_id, '') AS enrollment_id,
        COALESCE(reg.status, 'PENDING') AS status
        FROM students s
        LEFT JOIN registrations reg ON reg.user_id = s.user_id
        WHERE s.user_id = $1`, studentColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Update applies the staff-editable fields in place.
func (r *StudentRepository) Update(ctx context.Context, id string, update models.StudentUpdate, updatedAt time.Time) error {
	const query = `UPDATE students SET grade_level = $2, section = $3, email = $4, contact_no = $5,
        active = COALESCE($6, active), updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, update.GradeLevel, update.Section, update.Email, update.ContactNo, update.Active, updatedAt); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}
