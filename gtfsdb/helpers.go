package gtfsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
)

//go:embed schema.sql
var ddl string

// createDB opens the SQLite database and applies pragmas, schema and pool settings.
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	// Pool settings first: an in-memory database only exists on one connection.
	configureConnectionPool(db, config)

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// configureSQLitePerformance applies PRAGMA settings for bulk imports and
// read-heavy planning queries.
func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		{"PRAGMA cache_size=-64000", "Set cache size to 64MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma.name); err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	logging.LogDebug(logger, "sqlite_performance_settings_applied",
		slog.Int("pragma_count", len(pragmas)))

	return nil
}

// configureConnectionPool limits :memory: databases to a single connection,
// since every connection to one opens a separate, empty database.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullInt64(i int64) sql.NullInt64 {
	if i != 0 {
		return sql.NullInt64{Int64: i, Valid: true}
	}
	return sql.NullInt64{}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ToNullString converts a string to sql.NullString, with empty strings becoming NULL.
func ToNullString(s string) sql.NullString {
	return toNullString(s)
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// inTx runs fn inside a transaction on the client's database.
func (c *Client) inTx(ctx context.Context, operation string, fn func(*Queries) error) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, operation)

	if err := fn(c.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// bulkInsertStopTimes writes stop times with multi-row INSERT statements
// inside one transaction.
func (c *Client) bulkInsertStopTimes(ctx context.Context, stopTimes []CreateStopTimeParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))
	logging.LogOperation(logger, "inserting_stop_times", slog.Int("count", len(stopTimes)))

	const baseQuery = `INSERT OR REPLACE INTO stop_times (
		trip_id, arrival_time, departure_time, stop_id, stop_sequence, stop_headsign
	) VALUES `
	batchSize := c.config.GetBulkInsertBatchSize()

	err := c.inTx(ctx, "bulk_insert_stop_times", func(q *Queries) error {
		for start := 0; start < len(stopTimes); start += batchSize {
			end := start + batchSize
			if end > len(stopTimes) {
				end = len(stopTimes)
			}
			batch := stopTimes[start:end]

			var query strings.Builder
			query.WriteString(baseQuery)
			args := make([]interface{}, 0, len(batch)*6)
			for j, p := range batch {
				if j > 0 {
					query.WriteString(", ")
				}
				query.WriteString("(?, ?, ?, ?, ?, ?)")
				args = append(args, p.TripID, p.ArrivalTime, p.DepartureTime, p.StopID, p.StopSequence, p.StopHeadsign)
			}

			if _, err := q.db.ExecContext(ctx, query.String(), args...); err != nil {
				return fmt.Errorf("stop_times batch %d-%d: %w", start, end, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.LogOperation(logger, "stop_times_inserted", slog.Int("count", len(stopTimes)))
	return nil
}
