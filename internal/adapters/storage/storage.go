// Package storage selects the durable key-value store named in configuration.
package storage

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/adapters/storage/file"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Opened is the durable store plus the optional hooks the driver supports.
type Opened struct {
	Store ports.KeyValueStore

	// Health is nil for drivers with nothing to probe.
	Health ports.HealthChecker

	closer io.Closer
}

// Close releases the driver's resources.
func (o *Opened) Close() error {
	if o.closer == nil {
		return nil
	}

	return o.closer.Close()
}

// Open builds the store for cfg.Driver.
func Open(cfg config.StorageConfig, logger *slog.Logger) (*Opened, error) {
	switch cfg.Driver {
	case config.StorageDriverSQLite:
		s, err := sqlite.Open(cfg.Path, logger)
		if err != nil {
			return nil, err
		}

		return &Opened{Store: s, Health: s, closer: s}, nil

	case config.StorageDriverFile:
		s, err := file.Open(cfg.Path)
		if err != nil {
			return nil, err
		}

		return &Opened{Store: s, Health: s}, nil

	case config.StorageDriverMemory:
		return &Opened{Store: memory.NewStore()}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
