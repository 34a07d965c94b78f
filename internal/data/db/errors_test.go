package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&pgconn.PgError{Code: "40001"}, true},
		{fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{gorm.ErrRecordNotFound, false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

func TestWriteRetriesTransient(t *testing.T) {
	calls := 0
	err := Write(dbctx.New(context.Background()), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	calls = 0
	permanent := errors.New("no such table")
	if err := Write(dbctx.New(context.Background()), func() error { calls++; return permanent }); !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("permanent error retried: err=%v calls=%d", err, calls)
	}
}

func TestWriteRunsOnceInTransaction(t *testing.T) {
	calls := 0
	dbc := dbctx.Context{Ctx: context.Background(), Tx: &gorm.DB{}}
	_ = Write(dbc, func() error { calls++; return errors.New("database is locked") })
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}
