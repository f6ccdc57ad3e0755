package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/store"
	"github.com/hrygo/confidant/store/db"
)

// NewTestingStore returns a migrated store. SQLite in a temp dir is used
// unless DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	require.NoError(t, err, "failed to create db driver")

	s := store.New(dbDriver, p)
	require.NoError(t, s.Migrate(ctx), "failed to migrate db")
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:    "dev",
		Driver:  driver,
		Version: "test",
	}

	switch driver {
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
		p.DSN = dsn
	default:
		dir := t.TempDir()
		p.Data = dir
		p.DSN = filepath.Join(dir, fmt.Sprintf("confidant_%s.db", p.Mode))
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
