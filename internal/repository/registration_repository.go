package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// RegistrationRepository handles persistence of submitted enrollments.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, enrollment_id, user_id, lrn, last_name, first_name, middle_name,
        grade_level, student_type, email, draft_json, status, submitted_at, reviewed_at, reviewed_by`

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	base := "FROM registrations"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(last_name) LIKE $%d OR LOWER(first_name) LIKE $%d OR lrn LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"submitted_at": "submitted_at",
		"last_name":    "last_name",
		"grade_level":  "grade_level",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "submitted_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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
		registrationColumns, base+clause, orderBy, order, size, offset)

	var registrations []models.Registration
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// FindByEnrollmentID returns the registration for a wizard enrollment ID.
func (r *RegistrationRepository) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE enrollment_id = $1", registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, enrollmentID); err != nil {
		return nil, err
	}
	return &registration, nil
}

// ExistsPendingByLRN guards against duplicate submissions for the same LRN.
func (r *RegistrationRepository) ExistsPendingByLRN(ctx context.Context, lrn string) (bool, error) {
	const query = `SELECT 1 FROM registrations WHERE lrn = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, lrn, models.RegistrationStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending registration: %w", err)
	}
	return true, nil
}

// Create persists a new registration record.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.SubmittedAt.IsZero() {
		registration.SubmittedAt = time.Now().UTC()
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusPending
	}
	const query = `INSERT INTO registrations (id, enrollment_id, user_id, lrn, last_name, first_name, middle_name,
        grade_level, student_type, email, draft_json, status, submitted_at, reviewed_at, reviewed_by)
        VALUES (:id, :enrollment_id, :user_id, :lrn, :last_name, :first_name, :middle_name,
        :grade_level, :student_type, :email, :draft_json, :status, :submitted_at, :reviewed_at, :reviewed_by)`
	if _, err := r.db.NamedExecContext(ctx, query, registration); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// UpdateStatus records the review decision for a registration.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, enrollmentID string, status models.RegistrationStatus, reviewedBy string, reviewedAt time.Time) error {
	const query = `UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4 WHERE enrollment_id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, status, reviewedBy, reviewedAt); err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return nil
}

// CountByStatus powers the pending applicant badge.
func (r *RegistrationRepository) CountByStatus(ctx context.Context, status models.RegistrationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE status = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count registrations by status: %w", err)
	}
	return total, nil
}
