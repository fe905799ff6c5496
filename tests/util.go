// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
	"github.com/darpanintel/darpan/storage/database"
)

// tables emptied between DB backed tests; dependants first
var tables = []string{
	"offer_letter_infos", "coe_infos", "analyses", "appointments",
	"document_checklists", "document_templates", "scholarships", "users",
}

// PrepareDB returns a migrated, empty test database.
// The test is skipped when no database is configured (TEST_DATABASE_HOST unset).
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, core.Conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	for _, tbl := range tables {
		if _, err = db.ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
			t.Fatalf("PrepareDB(): %v", err)
		}
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
