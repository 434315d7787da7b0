package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/dto"
	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/psgc"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

const pendingCountCacheKey = "portal:pending_count"

type draftStore interface {
	Load(ctx context.Context, sessionID string) (*models.DraftSession, error)
	Save(ctx context.Context, sessionID string, session *models.DraftSession) error
	Clear(ctx context.Context, sessionID string) error
}

type registrationStore interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Registration, error)
	ExistsPendingByLRN(ctx context.Context, lrn string) (bool, error)
	UpdateStatus(ctx context.Context, enrollmentID string, status models.RegistrationStatus, reviewedBy string, reviewedAt time.Time) error
	CountByStatus(ctx context.Context, status models.RegistrationStatus) (int, error)
}

type countCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string)
}

type stepMetrics interface {
	RecordStepSave(step, outcome string)
	RecordSubmission()
	RecordApproval()
}

// EnrollmentService drives the three-step enrollment wizard: the terms gate,
// per-step saves with resume, final submission and staff review.
type EnrollmentService struct {
	drafts          draftStore
	registrations   registrationStore
	cache           countCache
	metrics         stepMetrics
	validator       *validator.Validate
	logger          *zap.Logger
	pendingCountTTL time.Duration
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(drafts draftStore, registrations registrationStore, cache countCache, metrics stepMetrics, validate *validator.Validate, logger *zap.Logger, pendingCountTTL time.Duration) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if pendingCountTTL <= 0 {
		pendingCountTTL = time.Minute
	}
	return &EnrollmentService{
		drafts:          drafts,
		registrations:   registrations,
		cache:           cache,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		pendingCountTTL: pendingCountTTL,
	}
}

// AcceptTerms records the terms-and-conditions gate. With an empty session ID
// a fresh session and enrollment ID are created; declining never creates one.
func (s *EnrollmentService) AcceptTerms(ctx context.Context, sessionID string, accepted bool) (*models.DraftSession, error) {
	if !accepted {
		return nil, appErrors.ErrTermsNotAccepted
	}

	var session *models.DraftSession
	if sessionID != "" {
		loaded, err := s.drafts.Load(ctx, sessionID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
		}
		session = loaded
	}

	if session == nil {
		session = &models.DraftSession{
			EnrollmentID: uuid.NewString(),
			Draft:        models.NewEnrollmentDraft(),
		}
	}
	session.TermsAccepted = true

	if err := s.drafts.Save(ctx, session.EnrollmentID, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment session")
	}
	return session, nil
}

// Session returns the resumable state for an enrollment, including which
// steps are already saved, so a returning applicant lands on the right step.
func (s *EnrollmentService) Session(ctx context.Context, sessionID string) (*dto.DraftResponse, error) {
	session, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no enrollment in progress")
	}
	return &dto.DraftResponse{
		EnrollmentID:  session.EnrollmentID,
		Draft:         session.Draft,
		Step1Saved:    session.Step1Saved,
		Step2Saved:    session.Step2Saved,
		TermsAccepted: session.TermsAccepted,
		Status:        session.Status,
	}, nil
}

// SaveStep persists one wizard step. Re-submitting content identical to what
// is already saved is acknowledged as a resume instead of a duplicate save.
// Staff and admin actors skip the terms gate: they record enrollments on an
// applicant's behalf and never see the dialog.
func (s *EnrollmentService) SaveStep(ctx context.Context, req dto.SaveStepRequest, actor *models.JWTClaims) (*dto.SaveStepResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid step payload")
	}

	session, err := s.drafts.Load(ctx, req.EnrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
	}

	staff := actor != nil && (actor.Role == models.RoleStaff || actor.Role == models.RoleAdmin)
	if session == nil && staff {
		id := req.EnrollmentID
		if id == "" {
			id = uuid.NewString()
		}
		session = &models.DraftSession{
			EnrollmentID:  id,
			Draft:         models.NewEnrollmentDraft(),
			TermsAccepted: true,
		}
	}
	if session == nil || (!session.TermsAccepted && !staff) {
		s.recordSave(req.Step, "rejected")
		return nil, appErrors.ErrTermsNotAccepted
	}
	if session.Draft == nil {
		session.Draft = models.NewEnrollmentDraft()
	}

	switch req.Step {
	case dto.StepLearnerInfo:
		if req.Step1 == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "step1 payload missing")
		}
		if fields := validateStep1(req.Step1); len(fields) > 0 {
			s.recordSave(req.Step, "rejected")
			return nil, appErrors.WithFields(fields)
		}
	case dto.StepAddress:
		if !session.Step1Saved {
			s.recordSave(req.Step, "rejected")
			return nil, appErrors.ErrStepIncomplete
		}
		if req.Step2 == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "step2 payload missing")
		}
		reconcileCascade(&req.Step2.Address.Current, session.Draft.Address.Current)
		if !req.Step2.Address.SameAsCurrent {
			reconcileCascade(&req.Step2.Address.Permanent, session.Draft.Address.Permanent)
		}
		if fields := validateStep2(req.Step2); len(fields) > 0 {
			s.recordSave(req.Step, "rejected")
			return nil, appErrors.WithFields(fields)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown step")
	}

	next := cloneDraft(session.Draft)
	applyStep(next, req)

	if draftEqual(session.Draft, next) && stepSaved(session, req.Step) {
		s.recordSave(req.Step, "resumed")
		return &dto.SaveStepResponse{
			EnrollmentID: session.EnrollmentID,
			Step:         req.Step,
			Saved:        true,
			Resumed:      true,
		}, nil
	}

	session.Draft = next
	markStepSaved(session, req.Step)

	if err := s.drafts.Save(ctx, session.EnrollmentID, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment step")
	}

	s.recordSave(req.Step, "saved")
	return &dto.SaveStepResponse{
		EnrollmentID: session.EnrollmentID,
		Step:         req.Step,
		Saved:        true,
	}, nil
}

// Submit finalizes the wizard after step 3. It enforces step order, required
// documents and the one-pending-application-per-LRN rule, then writes the
// registration and discards the draft session.
func (s *EnrollmentService) Submit(ctx context.Context, sessionID string, userID *string) (*dto.SubmitResponse, error) {
	session, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment session")
	}
	if session == nil || !session.TermsAccepted {
		return nil, appErrors.ErrTermsNotAccepted
	}
	if !session.Step1Saved || !session.Step2Saved {
		return nil, appErrors.ErrStepIncomplete
	}

	draft := session.Draft
	missing := map[string]string{}
	for _, kind := range models.RequiredDocuments {
		if slot := draft.Certification.Slot(kind); slot == nil || slot.Empty() {
			missing[string(kind)] = "document is required"
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithFields(missing)
	}

	lrn := draft.LearnerInfo.LRN
	exists, err := s.registrations.ExistsPendingByLRN(ctx, lrn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending application already exists for this LRN")
	}

	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode draft")
	}

	registration := &models.Registration{
		EnrollmentID: session.EnrollmentID,
		UserID:       userID,
		LRN:          lrn,
		LastName:     draft.LearnerInfo.LastName,
		FirstName:    draft.LearnerInfo.FirstName,
		MiddleName:   draft.LearnerInfo.MiddleName,
		GradeLevel:   draft.GradeLevelToEnroll,
		StudentType:  draft.StudentType,
		Email:        draft.LearnerInfo.Email,
		DraftJSON:    draftJSON,
		Status:       models.RegistrationStatusPending,
	}
	if err := s.registrations.Create(ctx, registration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}

	if err := s.drafts.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear submitted draft", zap.String("enrollment_id", sessionID), zap.Error(err))
	}
	if s.cache != nil {
		s.cache.Delete(ctx, pendingCountCacheKey)
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission()
	}

	s.logger.Info("enrollment submitted",
		zap.String("enrollment_id", session.EnrollmentID),
		zap.String("lrn", lrn),
		zap.String("grade_level", draft.GradeLevelToEnroll))

	return &dto.SubmitResponse{
		Success:        true,
		Message:        "enrollment submitted for review",
		RegistrationID: registration.ID,
	}, nil
}

// Approve marks a pending registration as approved.
func (s *EnrollmentService) Approve(ctx context.Context, enrollmentID, reviewerID string) error {
	return s.review(ctx, enrollmentID, reviewerID, models.RegistrationStatusApproved)
}

// Reject marks a pending registration as rejected.
func (s *EnrollmentService) Reject(ctx context.Context, enrollmentID, reviewerID string) error {
	return s.review(ctx, enrollmentID, reviewerID, models.RegistrationStatusRejected)
}

func (s *EnrollmentService) review(ctx context.Context, enrollmentID, reviewerID string, status models.RegistrationStatus) error {
	registration, err := s.registrations.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch registration")
	}
	if registration.Status != models.RegistrationStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration already %s", strings.ToLower(string(registration.Status))))
	}

	if err := s.registrations.UpdateStatus(ctx, enrollmentID, status, reviewerID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}

	if s.cache != nil {
		s.cache.Delete(ctx, pendingCountCacheKey)
	}
	if status == models.RegistrationStatusApproved && s.metrics != nil {
		s.metrics.RecordApproval()
	}

	s.logger.Info("registration reviewed",
		zap.String("enrollment_id", enrollmentID),
		zap.String("status", string(status)),
		zap.String("reviewed_by", reviewerID))
	return nil
}

// PendingCount powers the staff badge showing how many applications await
// review. The count is cached briefly since the badge polls.
func (s *EnrollmentService) PendingCount(ctx context.Context) (int, error) {
	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, pendingCountCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	count, err := s.registrations.CountByStatus(ctx, models.RegistrationStatusPending)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending registrations")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, pendingCountCacheKey, count, s.pendingCountTTL); err != nil {
			s.logger.Warn("failed to cache pending count", zap.Error(err))
		}
	}
	return count, nil
}

func (s *EnrollmentService) recordSave(step, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordStepSave(step, outcome)
	}
}

func stepSaved(session *models.DraftSession, step string) bool {
	switch step {
	case dto.StepLearnerInfo:
		return session.Step1Saved
	case dto.StepAddress:
		return session.Step2Saved
	}
	return false
}

func markStepSaved(session *models.DraftSession, step string) {
	switch step {
	case dto.StepLearnerInfo:
		session.Step1Saved = true
	case dto.StepAddress:
		session.Step2Saved = true
	}
}

func cloneDraft(draft *models.EnrollmentDraft) *models.EnrollmentDraft {
	if draft == nil {
		return models.NewEnrollmentDraft()
	}
	clone := *draft
	if draft.LearnerInfo.DisabilityTypes != nil {
		set := make(models.DisabilitySet, len(draft.LearnerInfo.DisabilityTypes))
		for cat, subs := range draft.LearnerInfo.DisabilityTypes {
			set[cat] = append([]string(nil), subs...)
		}
		clone.LearnerInfo.DisabilityTypes = set
	}
	return &clone
}

func draftEqual(a, b *models.EnrollmentDraft) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

func applyStep(draft *models.EnrollmentDraft, req dto.SaveStepRequest) {
	switch req.Step {
	case dto.StepLearnerInfo:
		p := req.Step1
		draft.GradeLevelToEnroll = p.GradeLevelToEnroll
		draft.IsReturning = p.IsReturning
		draft.StudentType = p.StudentType
		draft.LearnerInfo = p.LearnerInfo
		draft.LearnerInfo.LRN = models.SanitizeDigits(p.LearnerInfo.LRN, 12)
		draft.LearnerInfo.PSANo = models.SanitizeDigits(p.LearnerInfo.PSANo, 12)
		draft.LearnerInfo.FourPsHouseholdID = models.SanitizeDigits(p.LearnerInfo.FourPsHouseholdID, 12)
		if !draft.LearnerInfo.WithDisability {
			draft.LearnerInfo.DisabilityTypes = models.DisabilitySet{}
		}
		if !draft.LearnerInfo.IndigenousCommunity {
			draft.LearnerInfo.CommunityName = ""
		}
		if !draft.LearnerInfo.FourPsBeneficiary {
			draft.LearnerInfo.FourPsHouseholdID = ""
		}
		draft.SchoolHistory = p.SchoolHistory
		draft.SeniorHigh = p.SeniorHigh
		if !isSeniorHigh(p.GradeLevelToEnroll) {
			draft.SeniorHigh = models.SeniorHigh{}
		}
	case dto.StepAddress:
		p := req.Step2
		block := p.Address
		block.Current.Country = defaultCountry(block.Current.Country)
		block.Permanent.Country = defaultCountry(block.Permanent.Country)
		if block.SameAsCurrent {
			block.SameAsCurrent = false
			block.SetSameAsCurrent(true)
		}
		draft.Address = block
		info := p.ParentGuardianInfo
		info.Father.ContactNumber = models.SanitizeDigits(info.Father.ContactNumber, 11)
		info.Mother.ContactNumber = models.SanitizeDigits(info.Mother.ContactNumber, 11)
		info.Guardian.ContactNumber = models.SanitizeDigits(info.Guardian.ContactNumber, 11)
		draft.ParentGuardianInfo = info
	}
}

// reconcileCascade drops dropdown descendants that survived a parent change
// unmodified. A PSGC code embeds its parents, so an old barangay under a new
// municipality is stale carryover, never a valid selection; clearing it here
// lets validation demand a fresh pick.
func reconcileCascade(next *models.Address, prev models.Address) {
	regionChanged := next.RegionCode != prev.RegionCode
	provinceChanged := regionChanged || next.ProvinceCode != prev.ProvinceCode
	municipalityChanged := provinceChanged || next.MunicipalityCode != prev.MunicipalityCode

	switch {
	case regionChanged && next.ProvinceCode != "" && next.ProvinceCode == prev.ProvinceCode:
		next.ClearBelow(models.LevelRegion)
	case provinceChanged && next.MunicipalityCode != "" && next.MunicipalityCode == prev.MunicipalityCode:
		next.ClearBelow(models.LevelProvince)
	case municipalityChanged && next.BarangayCode != "" && next.BarangayCode == prev.BarangayCode:
		next.ClearBelow(models.LevelMunicipality)
	}
}

func defaultCountry(country string) string {
	if country == "" {
		return "Philippines"
	}
	return country
}

func isSeniorHigh(gradeLevel string) bool {
	return gradeLevel == "Grade 11" || gradeLevel == "Grade 12"
}

func validateStep1(p *dto.Step1Payload) map[string]string {
	fields := map[string]string{}

	requireText(fields, "grade_level_to_enroll", p.GradeLevelToEnroll)
	requireText(fields, "learner_info.last_name", p.LearnerInfo.LastName)
	requireText(fields, "learner_info.first_name", p.LearnerInfo.FirstName)
	requireText(fields, "learner_info.birth_date", p.LearnerInfo.BirthDate)
	requireText(fields, "learner_info.sex", p.LearnerInfo.Sex)

	if p.LearnerInfo.BirthDate != "" {
		if birth, err := time.Parse("2006-01-02", p.LearnerInfo.BirthDate); err != nil {
			fields["learner_info.birth_date"] = "birth date must be YYYY-MM-DD"
		} else if year, now := birth.Year(), time.Now().Year(); year < now-80 || year > now-3 {
			fields["learner_info.birth_date"] = "birth year is out of range"
		}
	}

	lrn := models.SanitizeDigits(p.LearnerInfo.LRN, 12)
	if len(lrn) != 12 {
		fields["learner_info.lrn"] = "LRN must be exactly 12 digits"
	}
	if p.LearnerInfo.Email != "" && !strings.Contains(p.LearnerInfo.Email, "@") {
		fields["learner_info.email"] = "invalid email address"
	}

	switch p.StudentType {
	case models.StudentTypeRegular, models.StudentTypeTransferee, models.StudentTypeReturnee:
	default:
		fields["student_type"] = "unknown student type"
	}

	if p.LearnerInfo.WithDisability && len(p.LearnerInfo.DisabilityTypes) == 0 {
		fields["learner_info.disability_types"] = "select at least one disability type"
	}
	if p.LearnerInfo.IndigenousCommunity && strings.TrimSpace(p.LearnerInfo.CommunityName) == "" {
		fields["learner_info.community_name"] = "community name is required"
	}
	if p.LearnerInfo.FourPsBeneficiary && models.SanitizeDigits(p.LearnerInfo.FourPsHouseholdID, 12) == "" {
		fields["learner_info.four_ps_household_id"] = "household ID is required"
	}

	if p.IsReturning || p.StudentType == models.StudentTypeTransferee {
		requireText(fields, "school_history.last_grade_level", p.SchoolHistory.LastGradeLevel)
		requireText(fields, "school_history.last_school_year", p.SchoolHistory.LastSchoolYear)
		requireText(fields, "school_history.last_school", p.SchoolHistory.LastSchool)
	}

	if isSeniorHigh(p.GradeLevelToEnroll) {
		requireText(fields, "senior_high.semester", p.SeniorHigh.Semester)
		strands, ok := models.SeniorHighStrands[p.SeniorHigh.Track]
		if !ok {
			fields["senior_high.track"] = "select a track"
		} else if !containsString(strands, p.SeniorHigh.Strand) {
			fields["senior_high.strand"] = "strand does not belong to the selected track"
		}
	}

	return fields
}

func validateStep2(p *dto.Step2Payload) map[string]string {
	fields := map[string]string{}

	validateAddress(fields, "address.current", p.Address.Current)
	if !p.Address.SameAsCurrent {
		validateAddress(fields, "address.permanent", p.Address.Permanent)
	}

	requireText(fields, "parent_guardian_info.guardian.last_name", p.ParentGuardianInfo.Guardian.LastName)
	requireText(fields, "parent_guardian_info.guardian.first_name", p.ParentGuardianInfo.Guardian.FirstName)

	contact := models.SanitizeDigits(p.ParentGuardianInfo.Guardian.ContactNumber, 11)
	if len(contact) != 11 {
		fields["parent_guardian_info.guardian.contact_number"] = "contact number must be 11 digits"
	}

	return fields
}

func validateAddress(fields map[string]string, prefix string, addr models.Address) {
	requireText(fields, prefix+".region_code", addr.RegionCode)
	requireText(fields, prefix+".municipality_code", addr.MunicipalityCode)
	requireText(fields, prefix+".barangay_code", addr.BarangayCode)
	// NCR has no province tier.
	if addr.RegionCode != "" && addr.RegionCode != psgc.RegionNCR && addr.ProvinceCode == "" {
		fields[prefix+".province_code"] = "field is required"
	}
}

func requireText(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "field is required"
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
