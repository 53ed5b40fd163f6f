package db

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
)

// SQLSTATE codes that indicate the server is temporarily unable to serve.
var transientCodes = map[string]struct{}{
	"53300": {}, // too_many_connections
	"53400": {}, // configuration_limit_exceeded
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
	"40001": {}, // serialization_failure
}

// IsTransient reports whether err signals a connectivity condition that is
// expected to resolve on its own: pool exhaustion, timeouts, an unreachable
// server or a restarting backend.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		_, ok := transientCodes[pgErr.Code]
		return ok
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, puddle.ErrClosedPool) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
