package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
)

const writeAttempts = 3

// IsTransient reports whether err is a lock or serialization conflict that
// may succeed when the statement is run again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// Write runs fn, retrying transient failures with a short linear backoff.
// Inside a transaction fn runs once: a failed statement aborts the whole
// transaction, so only the caller can retry it.
func Write(dbc dbctx.Context, fn func() error) error {
	attempts := writeAttempts
	if dbc.Tx != nil {
		attempts = 1
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
