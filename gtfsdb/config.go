package gtfsdb

import "github.com/MBL11/transit-app-sub002/internal/appconf"

const defaultBulkInsertBatchSize = 500

// Config configures a schedule store.
type Config struct {
	// DBPath is the SQLite file, or ":memory:".
	DBPath string
	Env    appconf.Environment

	// BulkInsertBatchSize is the number of rows per multi-row INSERT during
	// import. Zero selects the default.
	BulkInsertBatchSize int

	// EnableGTFSTidy runs every imported feed through gtfstidy first. A
	// failing tidy imports the original feed.
	EnableGTFSTidy bool

	verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

func (c Config) GetBulkInsertBatchSize() int {
	if c.BulkInsertBatchSize <= 0 {
		return defaultBulkInsertBatchSize
	}
	return c.BulkInsertBatchSize
}
