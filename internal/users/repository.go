package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/assetdesk/internal/authz"
	"github.com/odyssey-erp/assetdesk/internal/platform/db"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	db.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool  DB
	retry db.RetryPolicy
}

// NewRepository constructs a repository.
func NewRepository(pool DB, retry db.RetryPolicy) *Repository {
	return &Repository{pool: pool, retry: retry}
}

var selectUsers = func() string {
	cols := []string{"u.id", "u.email", "u.name"}
	for _, c := range authz.PermissionColumns() {
		cols = append(cols, "p."+c)
	}
	cols = append(cols, "u.created_at", "GREATEST(u.updated_at, p.updated_at)")
	return "SELECT " + strings.Join(cols, ", ") + " FROM users u JOIN user_permissions p ON p.user_id = u.id"
}()

// ListUsers returns all users ordered by email.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	return db.RetryValue(ctx, r.retry, func(ctx context.Context) ([]User, error) {
		rows, err := r.pool.Query(ctx, selectUsers+" ORDER BY u.email")
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []User
		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, user)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// GetUser fetches a single user.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	return db.RetryValue(ctx, r.retry, func(ctx context.Context) (User, error) {
		user, err := scanUser(r.pool.QueryRow(ctx, selectUsers+" WHERE u.id = $1", id))
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return user, err
	})
}

// UpdatePermissions applies the role and flag changes in one statement.
func (r *Repository) UpdatePermissions(ctx context.Context, id string, upd PermissionUpdate) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	if upd.Role != nil {
		args = append(args, string(*upd.Role))
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	caps := make([]authz.Capability, 0, len(upd.Flags))
	for c := range upd.Flags {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	for _, c := range caps {
		args = append(args, upd.Flags[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column(), len(args)))
	}
	query := "UPDATE user_permissions SET " + strings.Join(sets, ", ") + " WHERE user_id = $1"
	return r.execOne(ctx, query, args...)
}

// SetActive toggles the account activation flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, "UPDATE user_permissions SET is_active = $2, updated_at = now() WHERE user_id = $1", id, active)
}

// Approve marks the account as approved.
func (r *Repository) Approve(ctx context.Context, id string) error {
	return r.execOne(ctx, "UPDATE user_permissions SET is_approved = TRUE, updated_at = now() WHERE user_id = $1", id)
}

// DeleteUser removes the permission record and the account together.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM user_permissions WHERE user_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		return expectOne(tag)
	})
}

func expectOne(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	permDest, finish := authz.ScanTargets(&user.Permissions)
	dest := make([]any, 0, len(permDest)+5)
	dest = append(dest, &user.ID, &user.Email, &user.Name)
	dest = append(dest, permDest...)
	dest = append(dest, &user.CreatedAt, &user.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return User{}, err
	}
	finish()
	user.Permissions.UserID = user.ID
	return user, nil
}
