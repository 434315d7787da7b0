package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleAddress() Address {
	return Address{
		HouseNumber:      "123",
		Street:           "Mabini St",
		RegionCode:       "040000000",
		Region:           "CALABARZON",
		ProvinceCode:     "042100000",
		Province:         "Cavite",
		MunicipalityCode: "042116000",
		Municipality:     "Trece Martires City",
		BarangayCode:     "042116010",
		Barangay:         "San Agustin",
		Country:          "Philippines",
		ZipCode:          "4109",
	}
}

func TestSetSameAsCurrentCopiesOnToggleOn(t *testing.T) {
	block := AddressBlock{Current: sampleAddress()}

	block.SetSameAsCurrent(true)
	assert.Equal(t, block.Current, block.Permanent)
	assert.True(t, block.SameAsCurrent)
}

func TestSetSameAsCurrentKeepsValuesOnToggleOff(t *testing.T) {
	block := AddressBlock{Current: sampleAddress()}
	block.SetSameAsCurrent(true)

	block.SetSameAsCurrent(false)
	assert.False(t, block.SameAsCurrent)
	assert.Equal(t, sampleAddress(), block.Permanent)
}

func TestSetSameAsCurrentCopyIsNotRetroactive(t *testing.T) {
	block := AddressBlock{Current: sampleAddress()}
	block.SetSameAsCurrent(true)

	// Edits to current after the toggle do not flow into permanent.
	block.Current.Street = "Rizal Ave"
	assert.Equal(t, "Mabini St", block.Permanent.Street)
}

func TestClearBelowRegion(t *testing.T) {
	addr := sampleAddress()

	addr.ClearBelow(LevelRegion)
	assert.Empty(t, addr.ProvinceCode)
	assert.Empty(t, addr.Province)
	assert.Empty(t, addr.MunicipalityCode)
	assert.Empty(t, addr.Municipality)
	assert.Empty(t, addr.BarangayCode)
	assert.Empty(t, addr.Barangay)
	assert.Empty(t, addr.ZipCode)
	assert.Equal(t, "040000000", addr.RegionCode)
}

func TestClearBelowProvince(t *testing.T) {
	addr := sampleAddress()

	addr.ClearBelow(LevelProvince)
	assert.Equal(t, "042100000", addr.ProvinceCode)
	assert.Empty(t, addr.MunicipalityCode)
	assert.Empty(t, addr.BarangayCode)
	assert.Empty(t, addr.ZipCode)
}

func TestClearBelowMunicipality(t *testing.T) {
	addr := sampleAddress()

	addr.ClearBelow(LevelMunicipality)
	assert.Equal(t, "042116000", addr.MunicipalityCode)
	assert.Equal(t, "4109", addr.ZipCode)
	assert.Empty(t, addr.BarangayCode)
	assert.Empty(t, addr.Barangay)
}
