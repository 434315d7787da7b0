package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// DisabilityCategory enumerates the learner-with-disability checklist
// categories on the enrollment form.
type DisabilityCategory string

const (
	DisabilityVisualImpairment       DisabilityCategory = "Visual Impairment"
	DisabilityHearingImpairment      DisabilityCategory = "Hearing Impairment"
	DisabilityLearningDisability     DisabilityCategory = "Learning Disability"
	DisabilityIntellectualDisability DisabilityCategory = "Intellectual Disability"
	DisabilityAutismSpectrum         DisabilityCategory = "Autism Spectrum Disorder"
	DisabilitySpeechImpairment       DisabilityCategory = "Speech/Language Disorder"
	DisabilityOrthopedicHandicap     DisabilityCategory = "Orthopedic/Physical Handicap"
	DisabilityCerebralPalsy          DisabilityCategory = "Cerebral Palsy"
	DisabilityEmotionalBehavioral    DisabilityCategory = "Emotional-Behavioral Disorder"
	DisabilityMultipleDisorder       DisabilityCategory = "Multiple Disorder"
)

// DisabilitySet is a structured tagged set: category to its selected
// sub-options. A category present with no sub-options is a bare selection.
// The backend wire format is the legacy string list ("Category" or
// "Category: sub1, sub2"), preserved only at the JSON boundary.
type DisabilitySet map[DisabilityCategory][]string

// Toggle adds or removes a whole category. Removing a category drops every
// sub-option selected under it.
func (s DisabilitySet) Toggle(cat DisabilityCategory, on bool) {
	if on {
		if _, ok := s[cat]; !ok {
			s[cat] = nil
		}
		return
	}
	delete(s, cat)
}

// ToggleSub adds or removes one sub-option, implicitly selecting the parent
// category when a sub-option is added.
func (s DisabilitySet) ToggleSub(cat DisabilityCategory, sub string, on bool) {
	subs := s[cat]
	idx := -1
	for i, v := range subs {
		if v == sub {
			idx = i
			break
		}
	}
	if on {
		if idx < 0 {
			s[cat] = append(subs, sub)
		}
		return
	}
	if idx >= 0 {
		s[cat] = append(subs[:idx], subs[idx+1:]...)
	}
}

// Has reports whether the category is selected in either form.
func (s DisabilitySet) Has(cat DisabilityCategory) bool {
	_, ok := s[cat]
	return ok
}

// Encode renders the set back into the legacy string list. Each category
// appears exactly once: bare when it has no sub-options, compound otherwise.
func (s DisabilitySet) Encode() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for cat, subs := range s {
		if len(subs) == 0 {
			out = append(out, string(cat))
			continue
		}
		sorted := append([]string(nil), subs...)
		sort.Strings(sorted)
		out = append(out, string(cat)+": "+strings.Join(sorted, ", "))
	}
	sort.Strings(out)
	return out
}

// ParseDisabilityList decodes the legacy colon-delimited encoding.
func ParseDisabilityList(entries []string) DisabilitySet {
	set := make(DisabilitySet, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		cat, rest, found := strings.Cut(entry, ":")
		category := DisabilityCategory(strings.TrimSpace(cat))
		if !found {
			if _, ok := set[category]; !ok {
				set[category] = nil
			}
			continue
		}
		for _, sub := range strings.Split(rest, ",") {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				set.ToggleSub(category, sub, true)
			}
		}
	}
	return set
}

// MarshalJSON writes the legacy wire encoding.
func (s DisabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Encode())
}

// UnmarshalJSON reads the legacy wire encoding.
func (s *DisabilitySet) UnmarshalJSON(data []byte) error {
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = ParseDisabilityList(entries)
	return nil
}
