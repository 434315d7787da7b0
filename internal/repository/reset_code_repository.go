package repository

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetCodeRepository stores short-lived password reset codes in redis.
type ResetCodeRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetCodeRepository constructs a ResetCodeRepository.
func NewResetCodeRepository(client *redis.Client, ttl time.Duration) *ResetCodeRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResetCodeRepository{client: client, ttl: ttl}
}

func resetKey(email string) string {
	return "auth:reset:" + email
}

// Issue generates a fresh 6-digit code for the email, replacing any
// outstanding one.
func (r *ResetCodeRepository) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := r.client.Set(ctx, resetKey(email), code, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store reset code: %w", err)
	}
	return code, nil
}

// Verify reports whether the code matches the outstanding one for the email.
func (r *ResetCodeRepository) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := r.client.Get(ctx, resetKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("load reset code: %w", err)
	}
	return stored == code, nil
}

// Consume removes the code once the reset completes.
func (r *ResetCodeRepository) Consume(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, resetKey(email)).Err(); err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	return nil
}
