package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	permissionsPrefix = "perms:"
	PermissionsTTL    = 5 * time.Minute
)

func permissionsKey(accountID int64) string {
	return permissionsPrefix + strconv.FormatInt(accountID, 10)
}

// GetPermissions returns the cached grants of an account. The second return
// value is false on a cache miss.
func (c *Client) GetPermissions(ctx context.Context, accountID int64) ([]string, bool, error) {
	val, err := c.rdb.Get(ctx, permissionsKey(accountID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting permissions: %w", err)
	}

	var grants []string
	if err := json.Unmarshal(val, &grants); err != nil {
		return nil, false, fmt.Errorf("decoding permissions: %w", err)
	}
	if grants == nil {
		grants = []string{}
	}
	return grants, true, nil
}

// SetPermissions caches the grants of an account for PermissionsTTL.
func (c *Client) SetPermissions(ctx context.Context, accountID int64, grants []string) error {
	if grants == nil {
		grants = []string{}
	}
	val, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}
	return c.rdb.Set(ctx, permissionsKey(accountID), val, PermissionsTTL).Err()
}

// InvalidatePermissions drops the cached grants of an account.
func (c *Client) InvalidatePermissions(ctx context.Context, accountID int64) error {
	return c.rdb.Del(ctx, permissionsKey(accountID)).Err()
}
