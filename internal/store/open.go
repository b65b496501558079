package store

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. An empty driver selects the in-memory store.
func Open(driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		logrus.Info("Using in-memory store, the health ledger will not survive a restart")
		return NewMemoryStore(), nil
	case DriverSQLite, "sqlite3":
		if dsn == "" {
			dsn = "supervisor.db"
		}
		logrus.Infof("Using SQLite store at %s", dsn)
		return NewSQLiteStore(dsn)
	case DriverPostgres, "postgresql":
		logrus.Info("Using PostgreSQL store")
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
