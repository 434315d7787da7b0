package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/export"
	"github.com/noah-isme/enroll-portal-api/pkg/jobs"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const exportJobKeyPrefix = "export:job:"

// ExportRequest describes one applicant-list export.
type ExportRequest struct {
	Format      ExportFormat              `json:"format"`
	Filter      models.RegistrationFilter `json:"filter"`
	RequestedBy string                    `json:"requested_by"`
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"relative_path"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExportStatus is the pollable state of an async export job.
type ExportStatus struct {
	JobID  string        `json:"job_id"`
	State  string        `json:"state"`
	Error  string        `json:"error,omitempty"`
	Result *ExportResult `json:"result,omitempty"`
}

type registrationExportSource interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Registration, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderForm(title string, sections []export.FormSection) ([]byte, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders applicant-list exports and per-registration form
// printouts. List exports run on a background queue; the printable form is
// generated inline since it is a single record.
type ExportService struct {
	registrations registrationExportSource
	storage       exportStorage
	csv           csvRenderer
	pdf           pdfRenderer
	signer        previewSigner
	cache         countCache
	queue         *jobs.Queue
	logger        *zap.Logger
	cfg           ExportConfig
}

// NewExportService constructs an ExportService. Call Bind afterwards to
// attach the worker queue.
func NewExportService(registrations registrationExportSource, storage exportStorage, signer previewSigner, cache countCache, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		registrations: registrations,
		storage:       storage,
		csv:           csv,
		pdf:           pdf,
		signer:        signer,
		cache:         cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Bind attaches the worker queue that processes async exports.
func (s *ExportService) Bind(queue *jobs.Queue) {
	s.queue = queue
}

// HandleJob is the queue handler for async export jobs.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("encode export payload: %w", err)
	}
	var req ExportRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode export payload: %w", err)
	}

	result, err := s.Generate(ctx, job.ID, req)
	status := ExportStatus{JobID: job.ID, State: "done", Result: result}
	if err != nil {
		status = ExportStatus{JobID: job.ID, State: "failed", Error: err.Error()}
	}
	if cacheErr := s.cache.Set(ctx, exportJobKeyPrefix+job.ID, status, s.cfg.ResultTTL); cacheErr != nil {
		s.logger.Warn("failed to record export status", zap.String("job_id", job.ID), zap.Error(cacheErr))
	}
	return err
}

// Enqueue submits an async applicant-list export and returns its job ID.
func (s *ExportService) Enqueue(ctx context.Context, req ExportRequest) (string, error) {
	if req.Format != ExportFormatCSV && req.Format != ExportFormatPDF {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "export queue not running")
	}

	jobID := uuid.NewString()
	if err := s.cache.Set(ctx, exportJobKeyPrefix+jobID, ExportStatus{JobID: jobID, State: "queued"}, s.cfg.ResultTTL); err != nil {
		s.logger.Warn("failed to record queued export", zap.String("job_id", jobID), zap.Error(err))
	}
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: "applicants_export", Payload: req}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return jobID, nil
}

// Status returns the state of an async export job.
func (s *ExportService) Status(ctx context.Context, jobID string) (*ExportStatus, error) {
	var status ExportStatus
	if err := s.cache.Get(ctx, exportJobKeyPrefix+jobID, &status); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &status, nil
}

// Generate renders the applicant list and stores the file.
func (s *ExportService) Generate(ctx context.Context, jobID string, req ExportRequest) (*ExportResult, error) {
	filter := req.Filter
	filter.Page = 1
	filter.PageSize = 100

	var rows []map[string]string
	for {
		registrations, total, err := s.registrations.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list registrations: %w", err)
		}
		for _, reg := range registrations {
			rows = append(rows, map[string]string{
				"LRN":          reg.LRN,
				"Last Name":    reg.LastName,
				"First Name":   reg.FirstName,
				"Middle Name":  reg.MiddleName,
				"Grade Level":  reg.GradeLevel,
				"Student Type": string(reg.StudentType),
				"Status":       string(reg.Status),
				"Submitted":    reg.SubmittedAt.Format("2006-01-02"),
			})
		}
		if filter.Page*filter.PageSize >= total || len(registrations) == 0 {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"LRN", "Last Name", "First Name", "Middle Name", "Grade Level", "Student Type", "Status", "Submitted"},
		Rows:    rows,
	}

	var (
		payload []byte
		err     error
	)
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Enrollment Applicants")
	default:
		err = fmt.Errorf("unsupported format %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("applicants_%s.%s", time.Now().UTC().Format("20060102_150405"), req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       req.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenderRegistrationForm produces the printable PDF of one submitted
// registration, built from the draft retained at submission time.
func (s *ExportService) RenderRegistrationForm(ctx context.Context, enrollmentID string) ([]byte, error) {
	registration, err := s.registrations.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}

	var draft models.EnrollmentDraft
	if err := json.Unmarshal(registration.DraftJSON, &draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode stored draft")
	}

	sections := registrationFormSections(registration, &draft)
	payload, err := s.pdf.RenderForm("Learner Enrollment Form", sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render form")
	}
	return payload, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes export files older than ttl, defaulting to the configured
// result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func registrationFormSections(registration *models.Registration, draft *models.EnrollmentDraft) []export.FormSection {
	learner := draft.LearnerInfo
	address := draft.Address
	family := draft.ParentGuardianInfo

	sections := []export.FormSection{
		{
			Title: "Learner Information",
			Fields: []export.FormField{
				{Label: "LRN", Value: learner.LRN},
				{Label: "Name", Value: fullName(learner.LastName, learner.FirstName, learner.MiddleName, learner.ExtensionName)},
				{Label: "Birth Date", Value: learner.BirthDate},
				{Label: "Sex", Value: learner.Sex},
				{Label: "PSA Birth Certificate No", Value: learner.PSANo},
				{Label: "Grade Level to Enroll", Value: draft.GradeLevelToEnroll},
				{Label: "Student Type", Value: string(draft.StudentType)},
			},
		},
		{
			Title: "Current Address",
			Fields: []export.FormField{
				{Label: "House No / Street", Value: strings.TrimSpace(address.Current.HouseNumber + " " + address.Current.Street)},
				{Label: "Barangay", Value: address.Current.Barangay},
				{Label: "City / Municipality", Value: address.Current.Municipality},
				{Label: "Province", Value: address.Current.Province},
				{Label: "Region", Value: address.Current.Region},
				{Label: "ZIP Code", Value: address.Current.ZipCode},
			},
		},
		{
			Title: "Parent / Guardian",
			Fields: []export.FormField{
				{Label: "Father", Value: fullName(family.Father.LastName, family.Father.FirstName, family.Father.MiddleName, "")},
				{Label: "Mother", Value: fullName(family.Mother.LastName, family.Mother.FirstName, family.Mother.MiddleName, "")},
				{Label: "Guardian", Value: fullName(family.Guardian.LastName, family.Guardian.FirstName, family.Guardian.MiddleName, "")},
				{Label: "Guardian Contact", Value: family.Guardian.ContactNumber},
			},
		},
	}

	if len(learner.DisabilityTypes) > 0 {
		sections = append(sections, export.FormSection{
			Title: "Disabilities",
			Fields: []export.FormField{
				{Label: "Types", Value: strings.Join(learner.DisabilityTypes.Encode(), "; ")},
			},
		})
	}

	if draft.SeniorHigh.Track != "" {
		sections = append(sections, export.FormSection{
			Title: "Senior High",
			Fields: []export.FormField{
				{Label: "Semester", Value: draft.SeniorHigh.Semester},
				{Label: "Track", Value: string(draft.SeniorHigh.Track)},
				{Label: "Strand", Value: draft.SeniorHigh.Strand},
			},
		})
	}

	sections = append(sections, export.FormSection{
		Title: "Application",
		Fields: []export.FormField{
			{Label: "Enrollment ID", Value: registration.EnrollmentID},
			{Label: "Status", Value: string(registration.Status)},
			{Label: "Submitted", Value: registration.SubmittedAt.Format("January 2, 2006")},
		},
	})

	return sections
}

func fullName(last, first, middle, extension string) string {
	parts := []string{strings.TrimSpace(last + ",")}
	parts = append(parts, first)
	if middle != "" {
		parts = append(parts, middle)
	}
	if extension != "" {
		parts = append(parts, extension)
	}
	name := strings.Join(parts, " ")
	if name == "," {
		return ""
	}
	return name
}
