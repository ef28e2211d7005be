package oracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/loangraph/microlend/internal/chain"
	"github.com/redis/go-redis/v9"
)

const (
	scoresKey    = "microlend:scores"
	approversKey = "microlend:approvers"
	verifiedKey  = "microlend:verified"
)

// RedisBook reads scores from a hash and predicates from sets, as written by
// the scoring and governance services.
type RedisBook struct {
	client *redis.Client
}

func NewRedisBook(client *redis.Client) *RedisBook {
	return &RedisBook{client: client}
}

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (b *RedisBook) Score(ctx context.Context, who chain.Principal) (uint64, error) {
	raw, err := b.client.HGet(ctx, scoresKey, string(who)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoScore
	}
	if err != nil {
		return 0, fmt.Errorf("score lookup: %w", err)
	}
	score, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("score lookup: %w", err)
	}
	return score, nil
}

func (b *RedisBook) IsApprover(ctx context.Context, who chain.Principal) (bool, error) {
	return b.client.SIsMember(ctx, approversKey, string(who)).Result()
}

func (b *RedisBook) IsVerified(ctx context.Context, who chain.Principal) (bool, error) {
	return b.client.SIsMember(ctx, verifiedKey, string(who)).Result()
}
