// Package drafts persists listing forms between admin requests.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"catalog-admin-service/internal/kv"
	"catalog-admin-service/internal/listing"
)

var (
	ErrDraftNotFound = errors.New("drafts: draft not found or expired")
	ErrInvalidID     = errors.New("drafts: invalid draft id")
)

// Draft is a stored listing form.
type Draft struct {
	ID        string        `json:"id"`
	Form      *listing.Form `json:"form"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Storer defines the draft operations.
type Storer interface {
	Create(ctx context.Context, form *listing.Form) (*Draft, error)
	Get(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps drafts as JSON under listing:draft:<uuid>. Every save
// refreshes the TTL.
type RedisStore struct {
	client kv.Client
	ttl    time.Duration
}

var _ Storer = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore.
func NewRedisStore(client kv.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return "listing:draft:" + id
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func (s *RedisStore) Create(ctx context.Context, form *listing.Form) (*Draft, error) {
	if form == nil {
		form = listing.NewForm()
	}
	now := time.Now().UTC()
	d := &Draft{ID: uuid.NewString(), Form: form, CreatedAt: now, UpdatedAt: now}
	if err := s.write(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Draft, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("drafts: get %s: %w", id, err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("drafts: decode %s: %w", id, err)
	}
	if d.Form == nil {
		d.Form = listing.NewForm()
	}
	d.Form.Grid()
	return &d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	if _, err := parseID(d.ID); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	return s.write(ctx, d)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("drafts: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrDraftNotFound
	}
	return nil
}

func (s *RedisStore) write(ctx context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("drafts: encode %s: %w", d.ID, err)
	}
	if err := s.client.Set(ctx, s.key(d.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("drafts: save %s: %w", d.ID, err)
	}
	return nil
}
