package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/assetdesk/internal/platform/db"
)

// ErrRecordNotFound is returned by a Store when no permission record exists.
var ErrRecordNotFound = errors.New("authz: permission record not found")

// Store is the authoritative source of permission records.
type Store interface {
	PermissionsByUserID(ctx context.Context, userID string) (PermissionRecord, error)
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var permissionsQuery = "SELECT " + strings.Join(PermissionColumns(), ", ") + " FROM user_permissions WHERE user_id = $1"

// Repository reads permission records from PostgreSQL.
type Repository struct {
	db    Querier
	retry db.RetryPolicy
}

// NewRepository constructs a Repository. Transient failures are retried
// according to policy before they surface.
func NewRepository(q Querier, policy db.RetryPolicy) *Repository {
	return &Repository{db: q, retry: policy}
}

// PermissionsByUserID loads the role, activation flags and capability flags for userID.
func (r *Repository) PermissionsByUserID(ctx context.Context, userID string) (PermissionRecord, error) {
	return db.RetryValue(ctx, r.retry, func(ctx context.Context) (PermissionRecord, error) {
		return r.fetch(ctx, userID)
	})
}

func (r *Repository) fetch(ctx context.Context, userID string) (PermissionRecord, error) {
	rec := PermissionRecord{UserID: userID}
	dest, finish := ScanTargets(&rec)
	if err := r.db.QueryRow(ctx, permissionsQuery, userID).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PermissionRecord{}, ErrRecordNotFound
		}
		return PermissionRecord{}, err
	}
	finish()
	return rec, nil
}
