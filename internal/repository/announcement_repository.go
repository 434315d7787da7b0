package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// AnnouncementRepository reads home-page announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs an AnnouncementRepository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListPublished returns the currently visible announcements for an audience.
func (r *AnnouncementRepository) ListPublished(ctx context.Context, audience string, now time.Time) ([]models.Announcement, error) {
	const query = `SELECT id, title, body, audience, published, posted_at, expires_at
        FROM announcements
        WHERE published = TRUE
          AND (audience = $1 OR audience = 'ALL')
          AND (expires_at IS NULL OR expires_at > $2)
        ORDER BY posted_at DESC`
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, audience, now); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}
