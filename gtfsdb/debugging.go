package gtfsdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MBL11/transit-app-sub002/internal/logging"
)

var tableCountQueries = map[string]string{
	"agencies":        "SELECT COUNT(*) FROM agencies",
	"routes":          "SELECT COUNT(*) FROM routes",
	"stops":           "SELECT COUNT(*) FROM stops",
	"trips":           "SELECT COUNT(*) FROM trips",
	"stop_times":      "SELECT COUNT(*) FROM stop_times",
	"calendar":        "SELECT COUNT(*) FROM calendar",
	"calendar_dates":  "SELECT COUNT(*) FROM calendar_dates",
	"route_stops":     "SELECT COUNT(*) FROM route_stops",
	"import_metadata": "SELECT COUNT(*) FROM import_metadata",
}

// TableCounts returns row counts for the known schedule tables that exist.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	logger := slog.Default().With(slog.String("component", "debugging"))

	rows, err := c.DB.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			logging.SafeCloseWithLogging(rows, logger, "database_rows")
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	// Released before counting: an in-memory store has a single connection.
	logging.SafeCloseWithLogging(rows, logger, "database_rows")
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, table := range tables {
		query, ok := tableCountQueries[table]
		if !ok {
			continue
		}
		var count int
		if err := c.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, err
		}
		counts[table] = count
	}

	return counts, nil
}
