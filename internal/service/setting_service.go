package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
)

// SettingService reads and writes application toggles. Reads go through a
// short-TTL Redis cache because the portal toggle sits on every student
// request path.
type SettingService struct {
	settingRepo *repository.SettingRepository
	rdb         *redis.Client
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewSettingService creates a new SettingService.
func NewSettingService(settingRepo *repository.SettingRepository, rdb *redis.Client, cacheTTL time.Duration, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		rdb:         rdb,
		cacheTTL:    cacheTTL,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

// PortalEnabled reports whether the student exam portal is open.
// A missing setting row counts as closed.
func (s *SettingService) PortalEnabled(ctx context.Context) (bool, error) {
	value, err := s.get(ctx, model.SettingExamPortalEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

// GetAll returns every setting as a key → value map.
func (s *SettingService) GetAll(ctx context.Context) (map[string]string, error) {
	settings, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	m := make(map[string]string, len(settings))
	for _, setting := range settings {
		m[setting.Key] = setting.Value
	}
	return m, nil
}

// Update upserts the given settings and invalidates their cache entries.
func (s *SettingService) Update(ctx context.Context, settings map[string]string) error {
	for key, value := range settings {
		if err := s.settingRepo.Upsert(ctx, key, value); err != nil {
			return fmt.Errorf("update setting %s: %w", key, err)
		}
		if err := s.rdb.Del(ctx, config.CacheKey.SettingKey(key)).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate setting cache")
		}
	}
	return nil
}

func (s *SettingService) get(ctx context.Context, key string) (string, error) {
	cacheKey := config.CacheKey.SettingKey(key)

	cached, err := s.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("key", key).Msg("Setting cache read failed")
	}

	setting, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, cacheKey, setting.Value, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Setting cache write failed")
	}
	return setting.Value, nil
}
