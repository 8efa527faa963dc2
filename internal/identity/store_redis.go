// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/propvault/propvault/internal/platform/constants"
)

// RedisAllowlist is the Redis-backed implementation of [AllowlistChecker].
//
// The compliance desk maintains one set of lowercase wallet addresses; a
// wallet login reads its membership to stamp the Whitelisted claim.
type RedisAllowlist struct {
	client *redis.Client
}

// NewRedisAllowlist creates a [RedisAllowlist] on the given client.
func NewRedisAllowlist(client *redis.Client) *RedisAllowlist {
	return &RedisAllowlist{client: client}
}

/*
IsAllowed reports allow-list membership for a wallet address.

Parameters:
  - ctx: Request context
  - address: Wallet address, normalized to lowercase before lookup

Returns:
  - bool: true when the address is on the allow-list
  - error: Wrapped client error when Redis is unreachable
*/
func (allowlist *RedisAllowlist) IsAllowed(ctx context.Context, address string) (bool, error) {
	member, err := allowlist.client.SIsMember(ctx, constants.RedisKeyAllowlist, strings.ToLower(address)).Result()
	if err != nil {
		return false, fmt.Errorf("identity: allowlist check failed: %w", err)
	}
	return member, nil
}

/*
Add places a wallet address on the allow-list.
*/
func (allowlist *RedisAllowlist) Add(ctx context.Context, address string) error {
	if err := allowlist.client.SAdd(ctx, constants.RedisKeyAllowlist, strings.ToLower(address)).Err(); err != nil {
		return fmt.Errorf("identity: allowlist add failed: %w", err)
	}
	return nil
}

/*
Remove deletes a wallet address from the allow-list.
*/
func (allowlist *RedisAllowlist) Remove(ctx context.Context, address string) error {
	if err := allowlist.client.SRem(ctx, constants.RedisKeyAllowlist, strings.ToLower(address)).Err(); err != nil {
		return fmt.Errorf("identity: allowlist remove failed: %w", err)
	}
	return nil
}

// RedisStateRepository is the Redis-backed implementation of [StateRepository].
type RedisStateRepository struct {
	client *redis.Client
}

// NewRedisStateRepository creates a [RedisStateRepository] on the given client.
func NewRedisStateRepository(client *redis.Client) *RedisStateRepository {
	return &RedisStateRepository{client: client}
}

/*
Save stores a one-time OAuth state nonce with the standard TTL.
*/
func (repo *RedisStateRepository) Save(ctx context.Context, state string) error {
	key := constants.RedisPrefixOAuthState + state
	if err := repo.client.Set(ctx, key, "1", constants.OAuthStateTTL).Err(); err != nil {
		return fmt.Errorf("identity: oauth state save failed: %w", err)
	}
	return nil
}

/*
Consume atomically checks and deletes a state nonce.

GETDEL makes check-and-burn a single round trip, so a replayed callback can
never win a race against the first one.

Returns:
  - bool: true when the nonce existed and was consumed
  - error: Wrapped client error when Redis is unreachable
*/
func (repo *RedisStateRepository) Consume(ctx context.Context, state string) (bool, error) {
	key := constants.RedisPrefixOAuthState + state

	_, err := repo.client.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("identity: oauth state consume failed: %w", err)
	}

	return true, nil
}
