// Package database provides database helper functions
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/pkg/config"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// TestTursoConnection verifies the Turso database is reachable before the
// main connection pool opens
func TestTursoConnection(databaseURL, authToken string) error {
	db, err := sql.Open("libsql", TursoConnStr(databaseURL, authToken))
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	err = db.QueryRow("SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("connection test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	return nil
}

// TursoConnStr builds a libsql connection string from URL and auth token
func TursoConnStr(databaseURL, authToken string) string {
	return fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)
}

// CheckAndLogSlowQuery logs a query through the slow query channel when its
// duration exceeds the configured threshold
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, context string) {
	if duration > config.SlowQueryThreshold {
		logger.LogSlowQuery(query, duration, context)
	}
}
