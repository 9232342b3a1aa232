// Package backends opens a storage.Backend by name.
package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/storage"
	"github.com/FranksOps/scout/internal/storage/csvbackend"
	"github.com/FranksOps/scout/internal/storage/jsonbackend"
	"github.com/FranksOps/scout/internal/storage/postgres"
	"github.com/FranksOps/scout/internal/storage/sqlite"
)

// Names lists the accepted backend names. "none" disables the archive.
var Names = []string{"none", "json", "csv", "sqlite", "postgres"}

// Open returns the named backend, or nil when name is "none" or empty.
func Open(ctx context.Context, name, dsn string) (storage.Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return nil, nil
	}
	if dsn == "" {
		return nil, apperr.Newf(apperr.KindConfig, "archive.open", "archive.dsn is required for backend %q", name)
	}

	var (
		b   storage.Backend
		err error
	)
	switch name {
	case "json", "ndjson":
		b, err = jsonbackend.New(dsn)
	case "csv":
		b, err = csvbackend.New(dsn)
	case "sqlite":
		b, err = sqlite.New(dsn)
	case "postgres", "postgresql":
		b, err = postgres.New(ctx, dsn)
	default:
		return nil, apperr.Newf(apperr.KindConfig, "archive.open", "unknown backend %q (want one of %s)",
			name, strings.Join(Names, ", "))
	}
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, "archive.open", fmt.Errorf("%s: %s", name, apperr.Redact(err.Error())))
	}
	return b, nil
}
