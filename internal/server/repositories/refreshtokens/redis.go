package refreshtokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces refresh token keys.
const DefaultKeyPrefix = "refresh:"

// RedisStore keeps each record as a JSON value under prefix+fingerprint.
// Keys carry a PX TTL matching the record expiry so Redis evicts dead
// records on its own; expiry is still judged by the caller at read time.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(fp tokens.Fingerprint) string {
	return s.prefix + string(fp)
}

func (s *RedisStore) ttl(rec *models.RefreshToken) time.Duration {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		// A zero expiration would make the key permanent.
		ttl = time.Millisecond
	}
	return ttl
}

func (s *RedisStore) Repository() Repository {
	return &redisRepository{store: s}
}

// WithinTx runs fn inside a WATCH/MULTI/EXEC optimistic transaction. Every
// key fn reads or deletes is watched; fn's writes are queued and executed in
// one MULTI block. If a watched key changed in the meantime EXEC is aborted
// and WithinTx returns ErrConflict without retrying.
func (s *RedisStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		repo := &redisTxRepository{
			store:   s,
			tx:      tx,
			watched: map[string]bool{},
			pending: map[string]*models.RefreshToken{},
		}
		if err := fn(ctx, repo); err != nil {
			return err
		}
		if len(repo.ops) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range repo.ops {
				op(pipe)
			}
			return nil
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) encode(rec *models.RefreshToken) ([]byte, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("error encoding refresh token: %w", err)
	}
	return b, nil
}

func decode(data []byte) (*models.RefreshToken, error) {
	rec := &models.RefreshToken{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("error decoding refresh token: %w", err)
	}
	return rec, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) find(ctx context.Context, c getter, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	data, err := c.Get(ctx, s.key(fp)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return decode(data)
}

type redisRepository struct {
	store *RedisStore
}

func (r *redisRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	b, err := r.store.encode(rec)
	if err != nil {
		return err
	}
	ok, err := r.store.rdb.SetNX(ctx, r.store.key(rec.Fingerprint), b, r.store.ttl(rec)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis error: fingerprint already stored")
	}
	return nil
}

func (r *redisRepository) FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	return r.store.find(ctx, r.store.rdb, fp)
}

func (r *redisRepository) DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error) {
	n, err := r.store.rdb.Del(ctx, r.store.key(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// redisTxRepository reads through a watched connection and queues writes.
// pending mirrors the queued writes so fn observes its own changes: a nil
// entry marks a queued delete.
type redisTxRepository struct {
	store   *RedisStore
	tx      *redis.Tx
	ops     []func(redis.Pipeliner)
	watched map[string]bool
	pending map[string]*models.RefreshToken
}

func (r *redisTxRepository) watch(ctx context.Context, key string) error {
	if r.watched[key] {
		return nil
	}
	if err := r.tx.Watch(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	r.watched[key] = true
	return nil
}

func (r *redisTxRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	key := r.store.key(rec.Fingerprint)
	if err := r.watch(ctx, key); err != nil {
		return err
	}
	if existing, err := r.FindByFingerprint(ctx, rec.Fingerprint); err == nil && existing != nil {
		return fmt.Errorf("redis error: fingerprint already stored")
	} else if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	b, err := r.store.encode(rec)
	if err != nil {
		return err
	}
	ttl := r.store.ttl(rec)
	r.ops = append(r.ops, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, key, b, ttl)
	})
	saved := *rec
	r.pending[key] = &saved
	return nil
}

func (r *redisTxRepository) FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	key := r.store.key(fp)
	if rec, seen := r.pending[key]; seen {
		if rec == nil {
			return nil, common.ErrorNotFound
		}
		out := *rec
		return &out, nil
	}
	if err := r.watch(ctx, key); err != nil {
		return nil, err
	}
	return r.store.find(ctx, r.tx, fp)
}

func (r *redisTxRepository) DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error) {
	if _, err := r.FindByFingerprint(ctx, fp); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	key := r.store.key(fp)
	r.ops = append(r.ops, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
	})
	r.pending[key] = nil
	return true, nil
}
