// Package db selects the corpus storage driver from the instance profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/cheonanurc/urcbot/internal/profile"
	"github.com/cheonanurc/urcbot/store"
	"github.com/cheonanurc/urcbot/store/db/postgres"
	"github.com/cheonanurc/urcbot/store/db/sqlite"
)

// NewDBDriver creates a new driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported database driver %q", profile.Driver)
	}
}
