package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
	appErrors "github.com/noah-isme/enroll-portal-api/pkg/errors"
)

const (
	classroomsCacheKey    = "portal:classrooms:"
	announcementsCacheKey = "portal:announcements:"
)

type classroomRepository interface {
	List(ctx context.Context, gradeLevel string) ([]models.Classroom, error)
}

type announcementRepository interface {
	ListPublished(ctx context.Context, audience string, now time.Time) ([]models.Announcement, error)
}

// PortalService serves the public dashboard reads: classrooms per grade and
// home-page announcements. Both are cached briefly since the portal landing
// page fetches them on every visit.
type PortalService struct {
	classrooms    classroomRepository
	announcements announcementRepository
	cache         countCache
	logger        *zap.Logger
	cacheTTL      time.Duration
}

// NewPortalService constructs a PortalService.
func NewPortalService(classrooms classroomRepository, announcements announcementRepository, cache countCache, logger *zap.Logger, cacheTTL time.Duration) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PortalService{
		classrooms:    classrooms,
		announcements: announcements,
		cache:         cache,
		logger:        logger,
		cacheTTL:      cacheTTL,
	}
}

// Classrooms lists sections, optionally filtered by grade level.
func (s *PortalService) Classrooms(ctx context.Context, gradeLevel string) ([]models.Classroom, error) {
	key := classroomsCacheKey + gradeLevel
	if s.cache != nil {
		var cached []models.Classroom
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	classrooms, err := s.classrooms.List(ctx, gradeLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, classrooms, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache classrooms", zap.Error(err))
		}
	}
	return classrooms, nil
}

// Announcements lists live home-page announcements for an audience.
func (s *PortalService) Announcements(ctx context.Context, audience string) ([]models.Announcement, error) {
	key := announcementsCacheKey + audience
	if s.cache != nil {
		var cached []models.Announcement
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	announcements, err := s.announcements.ListPublished(ctx, audience, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, announcements, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache announcements", zap.Error(err))
		}
	}
	return announcements, nil
}
