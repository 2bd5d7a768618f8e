package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/mship/internal/models"
)

type roleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepo{pool: pool}
}

func (r *roleRepo) Create(ctx context.Context, role *models.Role) error {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, name, permissions) VALUES ($1, $2, $3)`,
		role.ID, role.Name, perms,
	)
	return err
}

func (r *roleRepo) GetByAccount(ctx context.Context, accountID int64) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.permissions
		 FROM roles r
		 JOIN account_roles ar ON ar.role_id = r.id
		 WHERE ar.account_id = $1
		 ORDER BY r.id`, accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *roleRepo) Assign(ctx context.Context, accountID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2)
		 ON CONFLICT (account_id, role_id) DO NOTHING`,
		accountID, roleID,
	)
	return err
}

func (r *roleRepo) Unassign(ctx context.Context, accountID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM account_roles WHERE account_id = $1 AND role_id = $2`, accountID, roleID,
	)
	return err
}

func (r *roleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}
