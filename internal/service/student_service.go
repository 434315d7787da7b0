package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindProfileByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, id string, update models.StudentUpdate, updatedAt time.Time) error
}

type registrationLister interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
}

type emailLister interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// StudentService serves the staff and student read/update views.
type StudentService struct {
	students      studentRepository
	registrations registrationLister
	emails        emailLister
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepository, registrations registrationLister, emails emailLister, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		students:      students,
		registrations: registrations,
		emails:        emails,
		validator:     validate,
		logger:        logger,
	}
}

// List returns enrolled students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Profile returns the student record behind a signed-in account.
func (s *StudentService) Profile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.students.FindProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student profile")
	}
	return profile, nil
}

// Applicants returns submitted registrations for the review queue.
func (s *StudentService) Applicants(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	registrations, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicants")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return registrations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Emails returns every active account email for staff mail tooling.
func (s *StudentService) Emails(ctx context.Context) ([]string, error) {
	emails, err := s.emails.ListEmails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list emails")
	}
	return emails, nil
}

// Update edits the mutable subset of a student record.
func (s *StudentService) Update(ctx context.Context, id string, update models.StudentUpdate) (*models.Student, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student update")
	}

	if _, err := s.students.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	if err := s.students.Update(ctx, id, update, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload student")
	}

	s.logger.Info("student updated", zap.String("student_id", id))
	return student, nil
}
