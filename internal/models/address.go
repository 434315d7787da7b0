package models

// Address is one flat address record as collected by the enrollment form.
// The *Code fields hold PSGC codes backing the cascading dropdowns; the name
// fields hold the resolved display values that end up on the registration.
type Address struct {
	HouseNumber      string `json:"house_number"`
	Street           string `json:"street"`
	RegionCode       string `json:"region_code"`
	Region           string `json:"region"`
	ProvinceCode     string `json:"province_code"`
	Province         string `json:"province"`
	MunicipalityCode string `json:"municipality_code"`
	Municipality     string `json:"municipality"`
	BarangayCode     string `json:"barangay_code"`
	Barangay         string `json:"barangay"`
	Country          string `json:"country"`
	ZipCode          string `json:"zip_code"`
}

// AddressBlock pairs the current and permanent addresses. Permanent mirrors
// current field-for-field while SameAsCurrent holds; the copy happens at
// toggle time only and is never re-applied retroactively.
type AddressBlock struct {
	Current       Address `json:"current"`
	Permanent     Address `json:"permanent"`
	SameAsCurrent bool    `json:"same_as_current"`
}

// SetSameAsCurrent flips the mirror flag. Turning it on copies every current
// field into permanent; turning it off leaves the copied values in place for
// manual editing.
func (b *AddressBlock) SetSameAsCurrent(v bool) {
	b.SameAsCurrent = v
	if v {
		b.Permanent = b.Current
	}
}

// CascadeLevel identifies one tier of the PSGC address hierarchy.
type CascadeLevel string

const (
	LevelRegion       CascadeLevel = "region"
	LevelProvince     CascadeLevel = "province"
	LevelMunicipality CascadeLevel = "municipality"
	LevelBarangay     CascadeLevel = "barangay"
)

// CascadeOption is a selectable entry for one dropdown tier.
type CascadeOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ClearBelow resets every tier dependent on the given level, both code and
// display value. Selecting a new parent invalidates all descendants.
func (a *Address) ClearBelow(level CascadeLevel) {
	switch level {
	case LevelRegion:
		a.ProvinceCode, a.Province = "", ""
		fallthrough
	case LevelProvince:
		a.MunicipalityCode, a.Municipality = "", ""
		a.ZipCode = ""
		fallthrough
	case LevelMunicipality:
		a.BarangayCode, a.Barangay = "", ""
	}
}
