package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
	"github.com/noah-isme/enroll-portal-api/pkg/export"
	"github.com/noah-isme/enroll-portal-api/pkg/jobs"
)

type fakeExportSource struct {
	registrations []models.Registration
	listErr       error
}

func (f *fakeExportSource) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.registrations, len(f.registrations), nil
}

func (f *fakeExportSource) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Registration, error) {
	for i := range f.registrations {
		if f.registrations[i].EnrollmentID == enrollmentID {
			return &f.registrations[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeExportStorage struct {
	saved map[string][]byte
}

func (f *fakeExportStorage) Save(filename string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[filename] = data
	return filename, nil
}

func (f *fakeExportStorage) Open(filename string) (*os.File, error) {
	return nil, fmt.Errorf("not a real file store")
}

func (f *fakeExportStorage) Delete(filename string) error {
	delete(f.saved, filename)
	return nil
}

func (f *fakeExportStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

// jsonCache round-trips values through JSON so Status can read back what
// HandleJob recorded.
type jsonCache struct {
	values map[string][]byte
}

func (c *jsonCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *jsonCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.values == nil {
		c.values = make(map[string][]byte)
	}
	c.values[key] = raw
	return nil
}

func (c *jsonCache) Delete(ctx context.Context, key string) {
	delete(c.values, key)
}

type recordingPDFRenderer struct {
	dataset   export.Dataset
	formTitle string
	sections  []export.FormSection
}

func (r *recordingPDFRenderer) Render(data export.Dataset, title string) ([]byte, error) {
	r.dataset = data
	return []byte("%PDF " + title), nil
}

func (r *recordingPDFRenderer) RenderForm(title string, sections []export.FormSection) ([]byte, error) {
	r.formTitle = title
	r.sections = sections
	return []byte("%PDF " + title), nil
}

func sampleRegistration() models.Registration {
	return models.Registration{
		ID:           "reg-1",
		EnrollmentID: "enr-1",
		LRN:          "123456789012",
		LastName:     "Dela Cruz",
		FirstName:    "Juan",
		MiddleName:   "Santos",
		GradeLevel:   "Grade 7",
		StudentType:  models.StudentTypeRegular,
		Email:        "juan@example.com",
		Status:       models.RegistrationStatusPending,
		SubmittedAt:  time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC),
	}
}

func newTestExportService(source *fakeExportSource, storage *fakeExportStorage, cache *jsonCache, pdf *recordingPDFRenderer) *ExportService {
	return NewExportService(source, storage, &fakeSigner{}, cache,
		ExportConfig{APIPrefix: "/api", ResultTTL: time.Hour}, zap.NewNop(), nil, pdf)
}

func TestGenerateCSVExport(t *testing.T) {
	source := &fakeExportSource{registrations: []models.Registration{sampleRegistration()}}
	storage := &fakeExportStorage{}
	svc := newTestExportService(source, storage, &jsonCache{}, &recordingPDFRenderer{})

	result, err := svc.Generate(context.Background(), "job-1", ExportRequest{Format: ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/api/export/"))
	assert.Equal(t, "signed:job-1:"+result.RelativePath, result.Token)

	require.Len(t, storage.saved, 1)
	var payload []byte
	for name, data := range storage.saved {
		assert.True(t, strings.HasSuffix(name, ".csv"))
		payload = data
	}
	require.True(t, bytes.HasPrefix(payload, []byte("\ufeff")))
	body := string(bytes.TrimPrefix(payload, []byte("\ufeff")))
	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "LRN,Last Name,First Name,Middle Name,Grade Level,Student Type,Status,Submitted", lines[0])
	assert.Equal(t, "123456789012,Dela Cruz,Juan,Santos,Grade 7,regular,PENDING,2026-08-15", lines[1])
}

func TestGeneratePDFExportMapsRowsByHeader(t *testing.T) {
	source := &fakeExportSource{registrations: []models.Registration{sampleRegistration()}}
	pdf := &recordingPDFRenderer{}
	svc := newTestExportService(source, &fakeExportStorage{}, &jsonCache{}, pdf)

	_, err := svc.Generate(context.Background(), "job-1", ExportRequest{Format: ExportFormatPDF})
	require.NoError(t, err)
	require.Len(t, pdf.dataset.Rows, 1)
	row := pdf.dataset.Rows[0]
	assert.Equal(t, "123456789012", row["LRN"])
	assert.Equal(t, "Dela Cruz", row["Last Name"])
	assert.Equal(t, "PENDING", row["Status"])
	assert.Equal(t, "2026-08-15", row["Submitted"])
}

func TestEnqueueRejectsUnknownFormat(t *testing.T) {
	svc := newTestExportService(&fakeExportSource{}, &fakeExportStorage{}, &jsonCache{}, &recordingPDFRenderer{})

	_, err := svc.Enqueue(context.Background(), ExportRequest{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnqueueRequiresRunningQueue(t *testing.T) {
	svc := newTestExportService(&fakeExportSource{}, &fakeExportStorage{}, &jsonCache{}, &recordingPDFRenderer{})

	_, err := svc.Enqueue(context.Background(), ExportRequest{Format: ExportFormatCSV})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestHandleJobRecordsStatus(t *testing.T) {
	source := &fakeExportSource{registrations: []models.Registration{sampleRegistration()}}
	cache := &jsonCache{}
	svc := newTestExportService(source, &fakeExportStorage{}, cache, &recordingPDFRenderer{})

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Payload: ExportRequest{Format: ExportFormatCSV}})
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "done", status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, ExportFormatCSV, status.Result.Format)
}

func TestHandleJobRecordsFailure(t *testing.T) {
	source := &fakeExportSource{listErr: fmt.Errorf("db down")}
	cache := &jsonCache{}
	svc := newTestExportService(source, &fakeExportStorage{}, cache, &recordingPDFRenderer{})

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-2", Payload: ExportRequest{Format: ExportFormatCSV}})
	require.Error(t, err)

	status, err := svc.Status(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", status.State)
	assert.Contains(t, status.Error, "db down")
	assert.Nil(t, status.Result)
}

func TestStatusUnknownJob(t *testing.T) {
	svc := newTestExportService(&fakeExportSource{}, &fakeExportStorage{}, &jsonCache{}, &recordingPDFRenderer{})

	_, err := svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRenderRegistrationForm(t *testing.T) {
	registration := sampleRegistration()
	draft := models.NewEnrollmentDraft()
	draft.LearnerInfo.LRN = registration.LRN
	draft.LearnerInfo.LastName = registration.LastName
	draft.LearnerInfo.FirstName = registration.FirstName
	draft.GradeLevelToEnroll = registration.GradeLevel
	raw, err := json.Marshal(draft)
	require.NoError(t, err)
	registration.DraftJSON = raw

	source := &fakeExportSource{registrations: []models.Registration{registration}}
	pdf := &recordingPDFRenderer{}
	svc := newTestExportService(source, &fakeExportStorage{}, &jsonCache{}, pdf)

	payload, err := svc.RenderRegistrationForm(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "Learner Enrollment Form", pdf.formTitle)

	titles := make([]string, 0, len(pdf.sections))
	for _, section := range pdf.sections {
		titles = append(titles, section.Title)
	}
	assert.Contains(t, titles, "Learner Information")
	assert.Contains(t, titles, "Application")
}

func TestRenderRegistrationFormMissing(t *testing.T) {
	svc := newTestExportService(&fakeExportSource{}, &fakeExportStorage{}, &jsonCache{}, &recordingPDFRenderer{})

	_, err := svc.RenderRegistrationForm(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
