package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/dto"
	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

type fakeDraftStore struct {
	sessions map[string]*models.DraftSession
	cleared  []string
}

func (f *fakeDraftStore) Load(ctx context.Context, sessionID string) (*models.DraftSession, error) {
	if s, ok := f.sessions[sessionID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeDraftStore) Save(ctx context.Context, sessionID string, session *models.DraftSession) error {
	if f.sessions == nil {
		f.sessions = make(map[string]*models.DraftSession)
	}
	copied := *session
	f.sessions[sessionID] = &copied
	return nil
}

func (f *fakeDraftStore) Clear(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	f.cleared = append(f.cleared, sessionID)
	return nil
}

type fakeRegistrationStore struct {
	registrations map[string]models.Registration
	pendingLRNs   map[string]bool
	created       *models.Registration
	statuses      map[string]models.RegistrationStatus
	pendingCount  int
	countCalls    int
}

func (f *fakeRegistrationStore) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = "reg-1"
	}
	if f.registrations == nil {
		f.registrations = make(map[string]models.Registration)
	}
	f.registrations[registration.EnrollmentID] = *registration
	f.created = registration
	return nil
}

func (f *fakeRegistrationStore) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Registration, error) {
	if r, ok := f.registrations[enrollmentID]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) ExistsPendingByLRN(ctx context.Context, lrn string) (bool, error) {
	return f.pendingLRNs[lrn], nil
}

func (f *fakeRegistrationStore) UpdateStatus(ctx context.Context, enrollmentID string, status models.RegistrationStatus, reviewedBy string, reviewedAt time.Time) error {
	if f.statuses == nil {
		f.statuses = make(map[string]models.RegistrationStatus)
	}
	f.statuses[enrollmentID] = status
	return nil
}

func (f *fakeRegistrationStore) CountByStatus(ctx context.Context, status models.RegistrationStatus) (int, error) {
	f.countCalls++
	return f.pendingCount, nil
}

func (f *fakeRegistrationStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	var out []models.Registration
	for _, r := range f.registrations {
		out = append(out, r)
	}
	return out, len(out), nil
}

type fakeCache struct {
	values  map[string][]byte
	deleted []string
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) {
	f.deleted = append(f.deleted, key)
}

func newTestEnrollmentService(drafts *fakeDraftStore, registrations *fakeRegistrationStore) *EnrollmentService {
	return NewEnrollmentService(drafts, registrations, &fakeCache{}, nil, validator.New(), zap.NewNop(), time.Minute)
}

func validStep1() *dto.Step1Payload {
	return &dto.Step1Payload{
		GradeLevelToEnroll: "Grade 7",
		StudentType:        models.StudentTypeRegular,
		LearnerInfo: models.LearnerInfo{
			LastName:  "Dela Cruz",
			FirstName: "Juan",
			BirthDate: "2012-06-15",
			Sex:       "Male",
			LRN:       "123456789012",
			Email:     "juan@example.com",
		},
	}
}

func validStep2() *dto.Step2Payload {
	return &dto.Step2Payload{
		Address: models.AddressBlock{
			Current: models.Address{
				RegionCode:       "040000000",
				Region:           "CALABARZON",
				ProvinceCode:     "042100000",
				Province:         "Cavite",
				MunicipalityCode: "042116000",
				Municipality:     "Trece Martires City",
				BarangayCode:     "042116010",
				Barangay:         "San Agustin",
				ZipCode:          "4109",
			},
			SameAsCurrent: true,
		},
		ParentGuardianInfo: models.ParentGuardianInfo{
			Guardian: models.ParentContact{
				LastName:      "Dela Cruz",
				FirstName:     "Maria",
				ContactNumber: "09171234567",
			},
		},
	}
}

func acceptedSession(t *testing.T, svc *EnrollmentService) string {
	t.Helper()
	session, err := svc.AcceptTerms(context.Background(), "", true)
	require.NoError(t, err)
	return session.EnrollmentID
}

func TestAcceptTermsDeclined(t *testing.T) {
	svc := newTestEnrollmentService(&fakeDraftStore{}, &fakeRegistrationStore{})

	_, err := svc.AcceptTerms(context.Background(), "", false)
	assert.ErrorIs(t, err, appErrors.ErrTermsNotAccepted)
}

func TestAcceptTermsCreatesSession(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})

	session, err := svc.AcceptTerms(context.Background(), "", true)
	require.NoError(t, err)
	assert.NotEmpty(t, session.EnrollmentID)
	assert.True(t, session.TermsAccepted)
	assert.NotNil(t, drafts.sessions[session.EnrollmentID])
}

func TestSaveStepRequiresTerms(t *testing.T) {
	svc := newTestEnrollmentService(&fakeDraftStore{}, &fakeRegistrationStore{})

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:         dto.StepLearnerInfo,
		EnrollmentID: "missing",
		Step1:        validStep1(),
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrTermsNotAccepted)
}

func TestSaveStepStaffSkipsTermsGate(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})

	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
	res, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:  dto.StepLearnerInfo,
		Step1: validStep1(),
	}, staff)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.NotEmpty(t, res.EnrollmentID)
	assert.True(t, drafts.sessions[res.EnrollmentID].TermsAccepted)
}

func TestSaveStepRejectsImplausibleBirthDate(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	payload := validStep1()
	payload.LearnerInfo.BirthDate = "1875-01-01"
	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:         dto.StepLearnerInfo,
		EnrollmentID: id,
		Step1:        payload,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "learner_info.birth_date")
}

func TestSaveStepEnforcesOrder(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:         dto.StepAddress,
		EnrollmentID: id,
		Step2:        validStep2(),
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrStepIncomplete)
}

func TestSaveStepValidationFields(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	payload := validStep1()
	payload.LearnerInfo.LRN = "1234"
	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:         dto.StepLearnerInfo,
		EnrollmentID: id,
		Step1:        payload,
	}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "learner_info.lrn")
}

func TestSaveStepIdenticalResume(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	req := dto.SaveStepRequest{Step: dto.StepLearnerInfo, EnrollmentID: id, Step1: validStep1()}

	first, err := svc.SaveStep(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, first.Saved)
	assert.False(t, first.Resumed)

	second, err := svc.SaveStep(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, second.Saved)
	assert.True(t, second.Resumed)
}

func TestSaveStepSanitizesDigits(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	payload := validStep1()
	payload.LearnerInfo.LRN = "1234-5678-9012 extra"
	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{
		Step:         dto.StepLearnerInfo,
		EnrollmentID: id,
		Step1:        payload,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", drafts.sessions[id].Draft.LearnerInfo.LRN)
}

func TestSaveStepRejectsStaleCascadeCarryover(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepLearnerInfo, EnrollmentID: id, Step1: validStep1()}, nil)
	require.NoError(t, err)
	_, err = svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepAddress, EnrollmentID: id, Step2: validStep2()}, nil)
	require.NoError(t, err)

	// Switch the region but keep the old Cavite descendants in place.
	stale := validStep2()
	stale.Address.Current.RegionCode = "130000000"
	stale.Address.Current.Region = "NCR"
	_, err = svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepAddress, EnrollmentID: id, Step2: stale}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "address.current.municipality_code")
}

func TestSaveStepMirrorsPermanentAddress(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepLearnerInfo, EnrollmentID: id, Step1: validStep1()}, nil)
	require.NoError(t, err)

	_, err = svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepAddress, EnrollmentID: id, Step2: validStep2()}, nil)
	require.NoError(t, err)

	block := drafts.sessions[id].Draft.Address
	assert.True(t, block.SameAsCurrent)
	assert.Equal(t, block.Current, block.Permanent)
}

func submitReadySession(t *testing.T, svc *EnrollmentService, drafts *fakeDraftStore) string {
	t.Helper()
	id := acceptedSession(t, svc)

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepLearnerInfo, EnrollmentID: id, Step1: validStep1()}, nil)
	require.NoError(t, err)
	_, err = svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepAddress, EnrollmentID: id, Step2: validStep2()}, nil)
	require.NoError(t, err)

	session := drafts.sessions[id]
	for _, kind := range models.RequiredDocuments {
		slot := session.Draft.Certification.Slot(kind)
		slot.StoredPath = id + "/" + string(kind) + ".jpg"
		slot.FileName = string(kind) + ".jpg"
		slot.PreviewToken = "token-" + string(kind)
	}
	return id
}

func TestSubmitRequiresDocuments(t *testing.T) {
	drafts := &fakeDraftStore{}
	svc := newTestEnrollmentService(drafts, &fakeRegistrationStore{})
	id := acceptedSession(t, svc)

	_, err := svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepLearnerInfo, EnrollmentID: id, Step1: validStep1()}, nil)
	require.NoError(t, err)
	_, err = svc.SaveStep(context.Background(), dto.SaveStepRequest{Step: dto.StepAddress, EnrollmentID: id, Step2: validStep2()}, nil)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), id, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Fields, string(models.DocPSABirthCert))
	assert.NotContains(t, appErr.Fields, string(models.DocGoodMoral))
}

func TestSubmitCreatesRegistration(t *testing.T) {
	drafts := &fakeDraftStore{}
	registrations := &fakeRegistrationStore{}
	svc := newTestEnrollmentService(drafts, registrations)
	id := submitReadySession(t, svc, drafts)

	res, err := svc.Submit(context.Background(), id, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, registrations.created)
	assert.Equal(t, "123456789012", registrations.created.LRN)
	assert.Equal(t, models.RegistrationStatusPending, registrations.created.Status)
	assert.Contains(t, drafts.cleared, id)
}

func TestSubmitRejectsDuplicatePendingLRN(t *testing.T) {
	drafts := &fakeDraftStore{}
	registrations := &fakeRegistrationStore{pendingLRNs: map[string]bool{"123456789012": true}}
	svc := newTestEnrollmentService(drafts, registrations)
	id := submitReadySession(t, svc, drafts)

	_, err := svc.Submit(context.Background(), id, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApprovePendingRegistration(t *testing.T) {
	registrations := &fakeRegistrationStore{registrations: map[string]models.Registration{
		"enr-1": {EnrollmentID: "enr-1", Status: models.RegistrationStatusPending},
	}}
	svc := newTestEnrollmentService(&fakeDraftStore{}, registrations)

	err := svc.Approve(context.Background(), "enr-1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusApproved, registrations.statuses["enr-1"])
}

func TestApproveAlreadyReviewed(t *testing.T) {
	registrations := &fakeRegistrationStore{registrations: map[string]models.Registration{
		"enr-1": {EnrollmentID: "enr-1", Status: models.RegistrationStatusApproved},
	}}
	svc := newTestEnrollmentService(&fakeDraftStore{}, registrations)

	err := svc.Approve(context.Background(), "enr-1", "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveMissingRegistration(t *testing.T) {
	svc := newTestEnrollmentService(&fakeDraftStore{}, &fakeRegistrationStore{})

	err := svc.Approve(context.Background(), "missing", "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPendingCount(t *testing.T) {
	registrations := &fakeRegistrationStore{pendingCount: 7}
	svc := newTestEnrollmentService(&fakeDraftStore{}, registrations)

	count, err := svc.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, 1, registrations.countCalls)
}
