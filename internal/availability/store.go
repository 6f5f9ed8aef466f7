package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists working-hours schedules in Redis.
type Store struct {
	redis           *redis.Client
	defaultTimezone string
	now             func() time.Time
}

// NewStore creates a schedule store. Providers without a stored schedule get
// DefaultSchedule in defaultTimezone.
func NewStore(redisClient *redis.Client, defaultTimezone string) *Store {
	return &Store{redis: redisClient, defaultTimezone: defaultTimezone, now: time.Now}
}

func (s *Store) key(providerID string) string {
	return fmt.Sprintf("availability:hours:%s", providerID)
}

// Get retrieves a provider's schedule, returning the default if none is stored.
func (s *Store) Get(ctx context.Context, providerID string) (*Schedule, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultSchedule(providerID, s.defaultTimezone), nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability: get schedule: %w", err)
	}

	var sched Schedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return nil, fmt.Errorf("availability: unmarshal schedule: %w", err)
	}
	return &sched, nil
}

// Set validates and saves a schedule.
func (s *Store) Set(ctx context.Context, sched *Schedule) error {
	if sched.Timezone == "" {
		sched.Timezone = s.defaultTimezone
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	now := s.now().UTC()
	sched.UpdatedAt = &now

	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("availability: marshal schedule: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sched.ProviderID), data, 0).Err(); err != nil {
		return fmt.Errorf("availability: set schedule: %w", err)
	}
	return nil
}

// Reset removes a stored schedule so the provider falls back to the default.
func (s *Store) Reset(ctx context.Context, providerID string) error {
	if err := s.redis.Del(ctx, s.key(providerID)).Err(); err != nil {
		return fmt.Errorf("availability: reset schedule: %w", err)
	}
	return nil
}
