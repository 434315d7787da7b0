package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/psgc"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

type fakePSGCGateway struct {
	regions          []psgc.Entity
	provinces        map[string][]psgc.Entity
	citiesByRegion   map[string][]psgc.Entity
	citiesByProvince map[string][]psgc.Entity
	barangays        map[string][]psgc.Entity
	cities           map[string]*psgc.Entity
	err              error

	regionCityCalls   int
	provinceCityCalls int
}

func (f *fakePSGCGateway) Regions(ctx context.Context) ([]psgc.Entity, error) {
	return f.regions, f.err
}

func (f *fakePSGCGateway) Provinces(ctx context.Context, regionCode string) ([]psgc.Entity, error) {
	return f.provinces[regionCode], f.err
}

func (f *fakePSGCGateway) CitiesByRegion(ctx context.Context, regionCode string) ([]psgc.Entity, error) {
	f.regionCityCalls++
	return f.citiesByRegion[regionCode], f.err
}

func (f *fakePSGCGateway) CitiesByProvince(ctx context.Context, provinceCode string) ([]psgc.Entity, error) {
	f.provinceCityCalls++
	return f.citiesByProvince[provinceCode], f.err
}

func (f *fakePSGCGateway) Barangays(ctx context.Context, cityCode string) ([]psgc.Entity, error) {
	return f.barangays[cityCode], f.err
}

func (f *fakePSGCGateway) City(ctx context.Context, cityCode string) (*psgc.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.cities[cityCode]; ok {
		return c, nil
	}
	return nil, errors.New("not found")
}

func TestAddressOptionsSorted(t *testing.T) {
	gateway := &fakePSGCGateway{regions: []psgc.Entity{
		{Code: "13", Name: "NCR"},
		{Code: "01", Name: "Ilocos Region"},
		{Code: "04", Name: "CALABARZON"},
	}}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	options, err := svc.Regions(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 3)
	assert.Equal(t, "CALABARZON", options[0].Name)
	assert.Equal(t, "NCR", options[2].Name)
}

func TestProvincesForNCRIsEmpty(t *testing.T) {
	gateway := &fakePSGCGateway{provinces: map[string][]psgc.Entity{
		psgc.RegionNCR: {{Code: "x", Name: "should never appear"}},
	}}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	options, err := svc.Provinces(context.Background(), psgc.RegionNCR)
	require.NoError(t, err)
	assert.Empty(t, options)
}

func TestMunicipalitiesNCRBypassesProvince(t *testing.T) {
	gateway := &fakePSGCGateway{citiesByRegion: map[string][]psgc.Entity{
		psgc.RegionNCR: {{Code: "137404000", Name: "Pasig City"}},
	}}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	options, err := svc.Municipalities(context.Background(), psgc.RegionNCR, "")
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "Pasig City", options[0].Name)
	assert.Equal(t, 1, gateway.regionCityCalls)
	assert.Zero(t, gateway.provinceCityCalls)
}

func TestMunicipalitiesRequireProvinceOutsideNCR(t *testing.T) {
	svc := NewAddressService(&fakePSGCGateway{}, nil, zap.NewNop())

	_, err := svc.Municipalities(context.Background(), "040000000", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveZipFromEntity(t *testing.T) {
	gateway := &fakePSGCGateway{cities: map[string]*psgc.Entity{
		"042116000": {Code: "042116000", Name: "Trece Martires City", ZipCode: "4109"},
	}}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	zip, err := svc.ResolveZip(context.Background(), "042116000")
	require.NoError(t, err)
	assert.Equal(t, "4109", zip)
}

func TestResolveZipFallsBackToStaticTable(t *testing.T) {
	gateway := &fakePSGCGateway{cities: map[string]*psgc.Entity{
		"042116000": {Code: "042116000", Name: "City of Trece Martires"},
	}}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	zip, err := svc.ResolveZip(context.Background(), "042116000")
	require.NoError(t, err)
	assert.Equal(t, "4109", zip)
}

func TestResolveZipDegradesSilently(t *testing.T) {
	gateway := &fakePSGCGateway{err: errors.New("upstream down")}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	zip, err := svc.ResolveZip(context.Background(), "042116000")
	require.NoError(t, err)
	assert.Empty(t, zip)
}

func TestOptionsUpstreamError(t *testing.T) {
	gateway := &fakePSGCGateway{err: errors.New("timeout")}
	svc := NewAddressService(gateway, nil, zap.NewNop())

	_, err := svc.Regions(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}
