package service

import (
	"context"
	"log/slog"

	"github.com/victorivanov/mship/internal/database"
	"github.com/victorivanov/mship/internal/permissions"
	"github.com/victorivanov/mship/internal/policy"
)

// PermissionCache stores resolved grants per account.
// *redis.Client implements it.
type PermissionCache interface {
	GetPermissions(ctx context.Context, accountID int64) ([]string, bool, error)
	SetPermissions(ctx context.Context, accountID int64, grants []string) error
	InvalidatePermissions(ctx context.Context, accountID int64) error
}

// PermissionLoader resolves an account's grants from its roles and binds
// them to the configured policy engine.
type PermissionLoader struct {
	roles  database.RoleRepository
	cache  PermissionCache
	engine policy.Engine
}

// NewPermissionLoader creates a PermissionLoader. cache may be nil, and a nil
// engine decides on grants alone.
func NewPermissionLoader(roles database.RoleRepository, cache PermissionCache, engine policy.Engine) *PermissionLoader {
	return &PermissionLoader{roles: roles, cache: cache, engine: engine}
}

// Grants returns the account's resolved permission set. Cache failures fall
// back to the database.
func (l *PermissionLoader) Grants(ctx context.Context, accountID int64) (permissions.Set, error) {
	if l.cache != nil {
		grants, ok, err := l.cache.GetPermissions(ctx, accountID)
		if err != nil {
			slog.Warn("permission cache read failed", "accountID", accountID, "error", err)
		} else if ok {
			return permissions.NewSet(grants...), nil
		}
	}

	roles, err := l.roles.GetByAccount(ctx, accountID)
	if err != nil {
		return permissions.Set{}, err
	}
	set := permissions.Resolve(nil, roles)

	if l.cache != nil {
		if err := l.cache.SetPermissions(ctx, accountID, set.Grants()); err != nil {
			slog.Warn("permission cache write failed", "accountID", accountID, "error", err)
		}
	}
	return set, nil
}

// Viewer returns the capability surface of accountID.
func (l *PermissionLoader) Viewer(ctx context.Context, accountID int64) (*policy.Viewer, error) {
	set, err := l.Grants(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return policy.NewViewer(accountID, set, l.engine), nil
}

// CanViewBans reports whether viewerID may see accountID's bans.
func (l *PermissionLoader) CanViewBans(ctx context.Context, viewerID, accountID int64) (bool, error) {
	v, err := l.Viewer(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return v.CanViewBans(accountID), nil
}

// AssignRole gives accountID the role and drops its cached grants.
func (l *PermissionLoader) AssignRole(ctx context.Context, accountID, roleID int64) error {
	if err := l.roles.Assign(ctx, accountID, roleID); err != nil {
		return err
	}
	return l.Invalidate(ctx, accountID)
}

// RevokeRole takes the role from accountID and drops its cached grants.
func (l *PermissionLoader) RevokeRole(ctx context.Context, accountID, roleID int64) error {
	if err := l.roles.Unassign(ctx, accountID, roleID); err != nil {
		return err
	}
	return l.Invalidate(ctx, accountID)
}

// Invalidate drops the cached grants of an account.
func (l *PermissionLoader) Invalidate(ctx context.Context, accountID int64) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.InvalidatePermissions(ctx, accountID)
}
