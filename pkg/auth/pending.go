package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library_service/pkg/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PendingStore keeps registrations that have not been confirmed yet. Entries
// disappear after their TTL; Load reports ErrPendingNotFound for them.
type PendingStore interface {
	Save(ctx context.Context, p models.PendingRegistration, ttl time.Duration) error
	Load(ctx context.Context, token string) (*models.PendingRegistration, error)
	Delete(ctx context.Context, token string) error
}

type GormPendingStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormPendingStore(db *gorm.DB) *GormPendingStore {
	return &GormPendingStore{db: db, now: time.Now}
}

// Save replaces any earlier pending registration for the same email and
// purges expired rows.
func (s *GormPendingStore) Save(ctx context.Context, p models.PendingRegistration, ttl time.Duration) error {
	now := s.now()
	p.ExpiresAt = now.Add(ttl)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ? OR expires_at <= ?", p.Email, now).
			Delete(&models.PendingRegistration{}).Error
		if err != nil {
			return fmt.Errorf("purge pending registrations: %w", err)
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("save pending registration: %w", err)
		}
		return nil
	})
}

func (s *GormPendingStore) Load(ctx context.Context, token string) (*models.PendingRegistration, error) {
	var p models.PendingRegistration
	err := s.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, s.now()).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	return &p, nil
}

func (s *GormPendingStore) Delete(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.PendingRegistration{}).Error
	if err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}

const pendingKeyPrefix = "pending_registration:"

// RedisPendingStore keeps pending registrations as JSON values with a
// server-side expiry.
type RedisPendingStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisPendingStore(client redis.Cmdable) *RedisPendingStore {
	return &RedisPendingStore{client: client, now: time.Now}
}

func pendingKey(token string) string {
	return pendingKeyPrefix + token
}

func (s *RedisPendingStore) Save(ctx context.Context, p models.PendingRegistration, ttl time.Duration) error {
	p.ExpiresAt = s.now().Add(ttl)
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", err)
	}
	if err := s.client.Set(ctx, pendingKey(p.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("save pending registration: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Load(ctx context.Context, token string) (*models.PendingRegistration, error) {
	data, err := s.client.Get(ctx, pendingKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}

	var p models.PendingRegistration
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending registration: %w", err)
	}
	return &p, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, pendingKey(token)).Err(); err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}
