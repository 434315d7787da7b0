package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/enroll-portal-api/internal/models"
)

// DraftRepository persists in-progress enrollment sessions in redis,
// replacing the browser session-storage resume mechanism. Missing or
// corrupt entries surface as an absent session, never as an error the
// wizard cannot recover from.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDraftRepository constructs a DraftRepository.
func NewDraftRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DraftRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &DraftRepository{client: client, ttl: ttl, logger: logger}
}

func draftKey(sessionID string) string {
	return "enrollment:draft:" + sessionID
}

// Load returns the session for the given ID, or nil when none exists.
// Malformed JSON is logged and treated as absent.
func (r *DraftRepository) Load(ctx context.Context, sessionID string) (*models.DraftSession, error) {
	raw, err := r.client.Get(ctx, draftKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft %s: %w", sessionID, err)
	}

	var session models.DraftSession
	if err := json.Unmarshal(raw, &session); err != nil {
		r.logger.Warn("corrupt draft session discarded", zap.String("session_id", sessionID), zap.Error(err))
		return nil, nil
	}
	return &session, nil
}

// Save writes the session back, refreshing its TTL.
func (r *DraftRepository) Save(ctx context.Context, sessionID string, session *models.DraftSession) error {
	session.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, draftKey(sessionID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", sessionID, err)
	}
	return nil
}

// Clear discards the session after final submission or cancellation.
func (r *DraftRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear draft %s: %w", sessionID, err)
	}
	return nil
}
