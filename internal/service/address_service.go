package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/psgc"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

type psgcGateway interface {
	Regions(ctx context.Context) ([]psgc.Entity, error)
	Provinces(ctx context.Context, regionCode string) ([]psgc.Entity, error)
	CitiesByRegion(ctx context.Context, regionCode string) ([]psgc.Entity, error)
	CitiesByProvince(ctx context.Context, provinceCode string) ([]psgc.Entity, error)
	Barangays(ctx context.Context, cityCode string) ([]psgc.Entity, error)
	City(ctx context.Context, cityCode string) (*psgc.Entity, error)
}

type fetchMetrics interface {
	RecordPSGCFetch(result string)
}

// AddressService serves the cascading address dropdowns and ZIP inference.
type AddressService struct {
	gateway psgcGateway
	metrics fetchMetrics
	logger  *zap.Logger
}

// NewAddressService constructs an AddressService.
func NewAddressService(gateway psgcGateway, metrics fetchMetrics, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressService{gateway: gateway, metrics: metrics, logger: logger}
}

// Regions lists the top tier of the cascade.
func (s *AddressService) Regions(ctx context.Context) ([]models.CascadeOption, error) {
	entities, err := s.gateway.Regions(ctx)
	return s.options(entities, err)
}

// Provinces lists the provinces of a region. NCR has none; callers should
// jump straight to Municipalities for it.
func (s *AddressService) Provinces(ctx context.Context, regionCode string) ([]models.CascadeOption, error) {
	if regionCode == psgc.RegionNCR {
		return []models.CascadeOption{}, nil
	}
	entities, err := s.gateway.Provinces(ctx, regionCode)
	return s.options(entities, err)
}

// Municipalities lists cities/municipalities. For NCR the lookup goes by
// region since the province tier does not exist there.
func (s *AddressService) Municipalities(ctx context.Context, regionCode, provinceCode string) ([]models.CascadeOption, error) {
	var (
		entities []psgc.Entity
		err      error
	)
	if regionCode == psgc.RegionNCR {
		entities, err = s.gateway.CitiesByRegion(ctx, regionCode)
	} else {
		if provinceCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "province code is required")
		}
		entities, err = s.gateway.CitiesByProvince(ctx, provinceCode)
	}
	return s.options(entities, err)
}

// Barangays lists the barangays of a city/municipality.
func (s *AddressService) Barangays(ctx context.Context, municipalityCode string) ([]models.CascadeOption, error) {
	entities, err := s.gateway.Barangays(ctx, municipalityCode)
	return s.options(entities, err)
}

// ResolveZip infers the ZIP code for a municipality: the per-entity PSGC
// record first, then the static table keyed by city name. An empty result is
// not an error since the field stays editable.
func (s *AddressService) ResolveZip(ctx context.Context, municipalityCode string) (string, error) {
	entity, err := s.gateway.City(ctx, municipalityCode)
	if err != nil {
		s.recordFetch("error")
		s.logger.Warn("zip lookup degraded, upstream unavailable",
			zap.String("municipality_code", municipalityCode), zap.Error(err))
		return "", nil
	}
	s.recordFetch("ok")

	if entity.ZipCode != "" {
		return entity.ZipCode, nil
	}
	zip, _ := psgc.LookupZip(entity.Name)
	return zip, nil
}

func (s *AddressService) options(entities []psgc.Entity, err error) ([]models.CascadeOption, error) {
	if err != nil {
		s.recordFetch("error")
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "address lookup service unavailable")
	}
	s.recordFetch("ok")

	options := make([]models.CascadeOption, 0, len(entities))
	for _, entity := range entities {
		options = append(options, models.CascadeOption{Code: entity.Code, Name: entity.Name})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options, nil
}

func (s *AddressService) recordFetch(result string) {
	if s.metrics != nil {
		s.metrics.RecordPSGCFetch(result)
	}
}
