package signingtokens

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "signtok:"
	pairKeyPrefix   = "signtok:pair:"
)

// RedisStore keeps token records in Redis with a native TTL, so
// expired records disappear without sweeping. A secondary key per
// (document, signer) pair points at the currently outstanding token
// so resends can retire it.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{Client: redis.NewClient(&redis.Options{Addr: addr, Password: password})}
}

var _ Store = (*RedisStore)(nil)

func recordKey(tokenHash string) string {
	return recordKeyPrefix + tokenHash
}

func pairKey(documentID, signerEmail string) string {
	return pairKeyPrefix + documentID + ":" + signerEmail
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.Client.Set(ctx, recordKey(rec.TokenHash), data, ttl).Err(); err != nil {
		return err
	}
	return s.Client.Set(ctx, pairKey(rec.DocumentID, rec.SignerEmail), rec.TokenHash, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	data, err := s.Client.Get(ctx, recordKey(tokenHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisStore) MarkUsed(ctx context.Context, tokenHash string) error {
	rec, err := s.Get(ctx, tokenHash)
	if err != nil {
		return err
	}
	rec.Used = true
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, recordKey(tokenHash), data, redis.KeepTTL).Err()
}

func (s *RedisStore) InvalidateFor(ctx context.Context, documentID, signerEmail string) error {
	hash, err := s.Client.Get(ctx, pairKey(documentID, signerEmail)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	if err := s.MarkUsed(ctx, hash); err != nil && err != ErrNotFound {
		return err
	}
	return nil
}

// DeleteExpired is a no-op for Redis because records carry a native
// TTL and expire on their own.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
