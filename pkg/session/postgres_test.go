package session

import (
	"github.com/resilix/orchestrator/pkg/database"
)

// badConfig points at a host that cannot resolve, so Init fails fast with a
// DNS error rather than hanging on a connection attempt.
func badConfig() database.Config {
	return database.Config{
		Host:            "resilix-session-store-test.invalid",
		Port:            5432,
		User:            "resilix",
		Password:        "x",
		Database:        "resilix",
		SSLMode:         "disable",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
	}
}
