package signals

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"wizkid-search/internal/models"
)

// RedisStore keeps counters in hashes and entity bias in sorted sets.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, closer: client.Close}
}

// NewRedisStoreWith wraps any Cmdable; Close is a no-op.
func NewRedisStoreWith(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, closer: func() error { return nil }}
}

func (s *RedisStore) Counters(ctx context.Context, hosts []string) (map[string]DomainCounters, error) {
	hosts = uniqueHosts(hosts)
	out := make(map[string]DomainCounters, len(hosts))
	if len(hosts) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(hosts))
	for i, h := range hosts {
		cmds[i] = pipe.HGetAll(ctx, DomainKey(h))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return out, fmt.Errorf("read domain counters: %w", err)
	}

	for i, h := range hosts {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		out[h] = DomainCounters{
			Shows:  parseInt(fields["shows"]),
			Clicks: parseInt(fields["clicks"]),
		}
	}
	return out, nil
}

func (s *RedisStore) RecordShown(ctx context.Context, hosts ...string) error {
	hosts = uniqueHosts(hosts)
	if len(hosts) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, h := range hosts {
		pipe.HIncrBy(ctx, DomainKey(h), "shows", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record shown: %w", err)
	}
	return nil
}

func (s *RedisStore) RecordClicked(ctx context.Context, host string) error {
	host = Host(host)
	if host == "" {
		return nil
	}
	if err := s.client.HIncrBy(ctx, DomainKey(host), "clicks", 1).Err(); err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadBias(ctx context.Context, query string) (models.Bias, error) {
	bias := models.NewBias()
	for _, kind := range []string{kindPrefer, kindAvoid} {
		dst := bias.Prefer
		if kind == kindAvoid {
			dst = bias.Avoid
		}
		members, err := s.client.ZRangeWithScores(ctx, EntityKey(query, kind), 0, -1).Result()
		if err != nil {
			return models.NewBias(), fmt.Errorf("load %s bias: %w", kind, err)
		}
		for _, m := range members {
			if name, ok := m.Member.(string); ok {
				dst[name] = m.Score
			}
		}
	}
	return bias, nil
}

func (s *RedisStore) Prefer(ctx context.Context, query, name string) error {
	return s.incr(ctx, query, kindPrefer, name)
}

func (s *RedisStore) Avoid(ctx context.Context, query, name string) error {
	return s.incr(ctx, query, kindAvoid, name)
}

func (s *RedisStore) incr(ctx context.Context, query, kind, name string) error {
	if err := s.client.ZIncrBy(ctx, EntityKey(query, kind), 1, name).Err(); err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.closer() }

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
