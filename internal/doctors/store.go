package doctors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store provides persistence for doctor working hours.
type Store struct {
	redis *redis.Client
}

// NewStore creates a working-hours store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(doctorID string) string {
	return fmt.Sprintf("doctor:hours:%s", doctorID)
}

// Get retrieves a doctor's weekly hours, returning the default schedule if
// none are configured.
func (s *Store) Get(ctx context.Context, doctorID string) (*WeeklyHours, error) {
	data, err := s.redis.Get(ctx, s.key(doctorID)).Bytes()
	if err == redis.Nil {
		return DefaultWeeklyHours(doctorID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: get hours: %w", err)
	}

	var hours WeeklyHours
	if err := json.Unmarshal(data, &hours); err != nil {
		return nil, fmt.Errorf("doctors: unmarshal hours: %w", err)
	}
	return &hours, nil
}

// Set saves a doctor's weekly hours.
func (s *Store) Set(ctx context.Context, hours *WeeklyHours) error {
	data, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("doctors: marshal hours: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(hours.DoctorID), data, 0).Err(); err != nil {
		return fmt.Errorf("doctors: set hours: %w", err)
	}
	return nil
}
