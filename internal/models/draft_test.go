package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDigits(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain digits", "123456789012", 12, "123456789012"},
		{"strips separators", "1234-5678-9012", 12, "123456789012"},
		{"strips letters", "LRN: 1234abc", 12, "1234"},
		{"truncates overflow", "12345678901299999", 12, "123456789012"},
		{"empty input", "", 12, ""},
		{"only junk", "abc-def", 12, ""},
		{"contact number", "+63 917 123 4567", 11, "63917123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeDigits(tc.in, tc.max))
		})
	}
}

func TestNewEnrollmentDraftDefaults(t *testing.T) {
	draft := NewEnrollmentDraft()

	assert.Equal(t, "Philippines", draft.Address.Current.Country)
	assert.Equal(t, "Philippines", draft.Address.Permanent.Country)
	assert.NotNil(t, draft.LearnerInfo.DisabilityTypes)
	assert.Empty(t, draft.LearnerInfo.DisabilityTypes)
}

func TestCertificationSlot(t *testing.T) {
	var cert Certification

	slot := cert.Slot(DocIDPicture)
	assert.NotNil(t, slot)
	slot.FileName = "photo.jpg"
	assert.Equal(t, "photo.jpg", cert.IDPicture.FileName)

	assert.Nil(t, cert.Slot(DocumentKind("unknown")))
}

func TestRequiredDocumentsExemptGoodMoral(t *testing.T) {
	assert.NotContains(t, RequiredDocuments, DocGoodMoral)
	assert.Len(t, RequiredDocuments, 3)
}
