// Package redisstore is an alternative credential store for deployments that
// want pending passcodes in a purely ephemeral store instead of DynamoDB.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saas-starter-api/internal/domain"
)

const keyPrefix = "secret:"

// storedSecret is the wire form of a SecretRecord. The domain struct hides
// code_hash from JSON so it can never end up in an HTTP response; persistence
// needs it, so the adapter maps through this struct instead.
type storedSecret struct {
	Identifier string `json:"identifier"`
	CodeHash   string `json:"code_hash"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

// SecretRepo stores pending one-time passcodes in Redis. SET with a TTL is a
// single atomic replace-on-issue, and Redis expiry handles the sweep; the
// expires_at field is still checked on read so semantics match the DynamoDB
// adapter exactly.
type SecretRepo struct {
	client *redis.Client
}

func NewSecretRepo(client *redis.Client) *SecretRepo {
	return &SecretRepo{client: client}
}

func (r *SecretRepo) key(identifier string) string {
	return keyPrefix + identifier
}

func (r *SecretRepo) Put(ctx context.Context, rec *domain.SecretRecord) error {
	data, err := json.Marshal(storedSecret{
		Identifier: rec.Identifier,
		CodeHash:   rec.CodeHash,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal secret record: %w", err)
	}
	ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, r.key(rec.Identifier), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func (r *SecretRepo) Get(ctx context.Context, identifier string) (*domain.SecretRecord, error) {
	data, err := r.client.Get(ctx, r.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("secret not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	var stored storedSecret
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal secret record: %w", err)
	}
	rec := domain.SecretRecord{
		Identifier: stored.Identifier,
		CodeHash:   stored.CodeHash,
		CreatedAt:  stored.CreatedAt,
		ExpiresAt:  stored.ExpiresAt,
	}
	if rec.Expired(time.Now()) {
		return nil, fmt.Errorf("secret expired: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (r *SecretRepo) Delete(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, r.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}
