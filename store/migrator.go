package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// Schema bootstrap: a single LATEST.sql per driver, applied when the
// database has no schema yet. Lives at store/migration/{driver}/LATEST.sql.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the latest schema file.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the database schema if it is not present.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization state")
	}
	if initialized {
		slog.Debug("database already initialized", "driver", s.profile.Driver)
		return nil
	}

	buf, err := migrationFS.ReadFile(fmt.Sprintf("migration/%s/%s", s.profile.Driver, LatestSchemaFileName))
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema for driver %q", s.profile.Driver)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database schema initialized", "driver", s.profile.Driver)
	return nil
}
