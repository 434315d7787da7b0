package dto

import "github.com/noah-isme/enroll-portal-api/internal/models"

// Step names accepted by the enrollment endpoint.
const (
	StepLearnerInfo = "step1"
	StepAddress     = "step2"
	StepDocuments   = "step3"
)

// Step1Payload carries the learner-info slice of the draft.
type Step1Payload struct {
	GradeLevelToEnroll string               `json:"grade_level_to_enroll"`
	IsReturning        bool                 `json:"is_returning"`
	StudentType        models.StudentType   `json:"student_type"`
	LearnerInfo        models.LearnerInfo   `json:"learner_info"`
	SchoolHistory      models.SchoolHistory `json:"school_history"`
	SeniorHigh         models.SeniorHigh    `json:"senior_high"`
}

// Step2Payload carries the address and family slice of the draft.
type Step2Payload struct {
	Address            models.AddressBlock       `json:"address"`
	ParentGuardianInfo models.ParentGuardianInfo `json:"parent_guardian_info"`
}

// SaveStepRequest is the JSON body of POST /enrollment for steps 1 and 2.
// Step 3 arrives as multipart and is handled separately.
type SaveStepRequest struct {
	Step         string        `json:"step" validate:"required,oneof=step1 step2"`
	EnrollmentID string        `json:"enrollment_id"`
	Step1        *Step1Payload `json:"step1,omitempty"`
	Step2        *Step2Payload `json:"step2,omitempty"`
}

// SaveStepResponse acknowledges a per-step save.
type SaveStepResponse struct {
	EnrollmentID string `json:"enrollment_id"`
	Step         string `json:"step"`
	Saved        bool   `json:"saved"`
	Resumed      bool   `json:"resumed"`
}

// SubmitResponse closes the enrollment after step 3.
type SubmitResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RegistrationID string `json:"registration_id,omitempty"`
}

// AcceptTermsRequest records the first-visit terms gate.
type AcceptTermsRequest struct {
	Accepted bool `json:"accepted" validate:"required"`
}

// ApproveApplicantRequest approves a pending registration.
type ApproveApplicantRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
}

// DraftResponse returns the resumable session to the client.
type DraftResponse struct {
	EnrollmentID  string                  `json:"enrollment_id"`
	Draft         *models.EnrollmentDraft `json:"draft"`
	Step1Saved    bool                    `json:"step1_saved"`
	Step2Saved    bool                    `json:"step2_saved"`
	TermsAccepted bool                    `json:"terms_accepted"`
	Status        string                  `json:"status_registration,omitempty"`
}

// DocumentUploadResponse describes one stored certification document.
type DocumentUploadResponse struct {
	Kind         models.DocumentKind `json:"kind"`
	FileName     string              `json:"file_name"`
	PreviewToken string              `json:"preview_token"`
	SizeBytes    int64               `json:"size_bytes"`
}
