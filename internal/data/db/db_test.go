package db

import (
	"testing"

	"github.com/yungbote/materialgen-backend/internal/domain/generation"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

func TestDialectorFor(t *testing.T) {
	cases := []struct {
		url     string
		dialect string
		wantErr bool
	}{
		{"", "sqlite", false},
		{"sqlite://./x.db", "sqlite", false},
		{"postgres://u:p@localhost:5432/db", "postgres", false},
		{"postgresql://localhost/db", "postgres", false},
		{"./plain.db", "sqlite", false},
		{"sqlite://", "", true},
		{"mysql://localhost/db", "", true},
	}
	for _, tc := range cases {
		_, dialect, err := dialectorFor(tc.url)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.url)
			}
			continue
		}
		if err != nil || dialect != tc.dialect {
			t.Fatalf("%q: dialect=%q err=%v", tc.url, dialect, err)
		}
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	svc, err := Open("sqlite://file::memory:?cache=shared", logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !svc.DB().Migrator().HasTable(&generation.Generation{}) {
		t.Fatalf("generations table missing")
	}
	if !svc.DB().Migrator().HasTable("generation_jobs") {
		t.Fatalf("generation_jobs table missing")
	}
}
