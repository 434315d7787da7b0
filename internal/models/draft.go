package models

import "time"

// StudentType distinguishes how an applicant enters the school.
type StudentType string

const (
	StudentTypeRegular    StudentType = "regular"
	StudentTypeTransferee StudentType = "transferee"
	StudentTypeReturnee   StudentType = "returnee"
)

// SeniorHighTrack enumerates senior-high academic tracks.
type SeniorHighTrack string

const (
	TrackAcademic SeniorHighTrack = "Academic"
	TrackTVL      SeniorHighTrack = "TVL"
)

// SeniorHighStrands lists the valid strands per track.
var SeniorHighStrands = map[SeniorHighTrack][]string{
	TrackAcademic: {"STEM", "ABM", "HUMSS", "GAS"},
	TrackTVL:      {"ICT", "Home Economics", "Industrial Arts", "Agri-Fishery Arts"},
}

// LearnerInfo holds the personal identity slice collected in step 1.
type LearnerInfo struct {
	LastName      string `json:"last_name"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	ExtensionName string `json:"extension_name"`
	BirthDate     string `json:"birth_date"`
	Sex           string `json:"sex"`
	LRN           string `json:"lrn"`
	PSANo         string `json:"psa_no"`
	Email         string `json:"email"`

	WithDisability      bool          `json:"learner_with_disability"`
	DisabilityTypes     DisabilitySet `json:"disability_types"`
	IndigenousCommunity bool          `json:"indigenous_community"`
	CommunityName       string        `json:"community_name"`
	FourPsBeneficiary   bool          `json:"four_ps_beneficiary"`
	FourPsHouseholdID   string        `json:"four_ps_household_id"`
}

// ParentContact is one parent or guardian record.
type ParentContact struct {
	LastName      string `json:"last_name"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	ContactNumber string `json:"contact_number"`
}

// ParentGuardianInfo covers the step-2 family slice. Only the guardian's
// last and first name are mandatory.
type ParentGuardianInfo struct {
	Father   ParentContact `json:"father"`
	Mother   ParentContact `json:"mother"`
	Guardian ParentContact `json:"guardian"`
}

// SchoolHistory is required only for returning learners and transferees.
type SchoolHistory struct {
	Returning      bool   `json:"returning"`
	LastGradeLevel string `json:"last_grade_level"`
	LastSchoolYear string `json:"last_school_year"`
	LastSchool     string `json:"last_school"`
	LastSchoolID   string `json:"last_school_id"`
}

// SeniorHigh captures the semester/track/strand selection for grades 11-12.
type SeniorHigh struct {
	Semester string          `json:"semester"`
	Track    SeniorHighTrack `json:"track"`
	Strand   string          `json:"strand"`
}

// DocumentKind names the four certification slots.
type DocumentKind string

const (
	DocPSABirthCert DocumentKind = "psaBirthCert"
	DocReportCard   DocumentKind = "reportCard"
	DocGoodMoral    DocumentKind = "goodMoral"
	DocIDPicture    DocumentKind = "idPicture"
)

// RequiredDocuments are the slots that must be filled before step 3 can
// submit. goodMoral is exempt.
var RequiredDocuments = []DocumentKind{DocPSABirthCert, DocReportCard, DocIDPicture}

// DocumentSlot tracks one uploaded certification document: the stored file
// reference, the display filename and a revocable signed preview token.
type DocumentSlot struct {
	StoredPath   string `json:"stored_path,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	PreviewToken string `json:"preview_token,omitempty"`
}

// Empty reports whether the slot holds nothing at all.
func (s DocumentSlot) Empty() bool {
	return s.StoredPath == "" && s.FileName == "" && s.PreviewToken == ""
}

// Certification groups the step-3 document slots.
type Certification struct {
	PSABirthCert DocumentSlot `json:"psa_birth_cert"`
	ReportCard   DocumentSlot `json:"report_card"`
	GoodMoral    DocumentSlot `json:"good_moral"`
	IDPicture    DocumentSlot `json:"id_picture"`
}

// Slot returns a pointer to the slot for the given kind, or nil.
func (c *Certification) Slot(kind DocumentKind) *DocumentSlot {
	switch kind {
	case DocPSABirthCert:
		return &c.PSABirthCert
	case DocReportCard:
		return &c.ReportCard
	case DocGoodMoral:
		return &c.GoodMoral
	case DocIDPicture:
		return &c.IDPicture
	}
	return nil
}

// EnrollmentDraft is the accumulating form state for one applicant across
// the three wizard steps.
type EnrollmentDraft struct {
	GradeLevelToEnroll string             `json:"grade_level_to_enroll"`
	IsReturning        bool               `json:"is_returning"`
	StudentType        StudentType        `json:"student_type"`
	LearnerInfo        LearnerInfo        `json:"learner_info"`
	Address            AddressBlock       `json:"address"`
	ParentGuardianInfo ParentGuardianInfo `json:"parent_guardian_info"`
	SchoolHistory      SchoolHistory      `json:"school_history"`
	SeniorHigh         SeniorHigh         `json:"senior_high"`
	Certification      Certification      `json:"certification"`
}

// NewEnrollmentDraft returns the empty draft created on first load of step 1.
func NewEnrollmentDraft() *EnrollmentDraft {
	return &EnrollmentDraft{
		LearnerInfo: LearnerInfo{DisabilityTypes: DisabilitySet{}},
		Address: AddressBlock{
			Current:   Address{Country: "Philippines"},
			Permanent: Address{Country: "Philippines"},
		},
	}
}

// DraftSession is the server-side record of one in-progress enrollment:
// the draft plus the resume bookkeeping the client previously kept in
// session storage.
type DraftSession struct {
	EnrollmentID  string           `json:"enrollment_id"`
	Draft         *EnrollmentDraft `json:"draft"`
	Step1Saved    bool             `json:"step1_saved"`
	Step2Saved    bool             `json:"step2_saved"`
	TermsAccepted bool             `json:"terms_accepted"`
	Status        string           `json:"status_registration,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// SanitizeDigits strips every non-digit rune and truncates to max digits.
// Applied to LRN, PSA number and 4Ps household ID inputs so pasted content
// can never store anything but digits.
func SanitizeDigits(raw string, max int) string {
	out := make([]rune, 0, max)
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		out = append(out, r)
		if len(out) == max {
			break
		}
	}
	return string(out)
}
