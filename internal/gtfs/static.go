package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/logging"
)

const inMemoryDBPath = ":memory:"

func buildGtfsDB(ctx context.Context, config Config, isLocalFile bool, dbPath string) (*gtfsdb.Client, error) {
	// If no specific path is provided, use the one from config
	if dbPath == "" {
		dbPath = config.GTFSDataPath
	}
	dbConfig := gtfsdb.NewConfig(dbPath, config.Env, config.Verbose)
	dbConfig.EnableGTFSTidy = config.EnableGTFSTidy
	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GTFS database client: %w", err)
	}

	if isLocalFile {
		err = client.ImportFromFile(ctx, config.GtfsURL)
	} else {
		err = client.DownloadAndStore(ctx, config.GtfsURL, config.StaticAuthHeaderKey, config.StaticAuthHeaderValue)
	}
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// setStaticGTFS installs client and builds its indexes. It is used for the
// initial load.
func (manager *Manager) setStaticGTFS(ctx context.Context, client *gtfsdb.Client) error {
	index, err := buildStaticIndex(ctx, client.Queries)
	if err != nil {
		return fmt.Errorf("error building stop indexes: %w", err)
	}

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	manager.GtfsDB = client
	manager.index = index
	manager.lastUpdated = time.Now()
	manager.isHealthy = true

	if manager.config.Verbose {
		logger := slog.Default().With(slog.String("component", "gtfs_manager"))
		logging.LogOperation(logger, "gtfs_data_set_successfully",
			slog.String("source", manager.config.GtfsURL),
			slog.Int("stops_indexed", index.stops.Len()),
			slog.Int("co_located_stops", len(index.coLocated)))
	}
	return nil
}

// updateStaticGTFS re-imports a remote feed on a regular schedule.
func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "gtfs_static_updater"))

	if manager.isLocalFile {
		logging.LogOperation(logger, "gtfs_source_is_local_file_skipping_periodic_updates",
			slog.String("source", manager.config.GtfsURL))
		return
	}

	ticker := time.NewTicker(manager.config.updateInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()

			if err != nil {
				logging.LogError(logger, "Error updating GTFS data", err,
					slog.String("source", manager.config.GtfsURL))
				continue
			}

		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

// ForceUpdate re-imports the feed and hot-swaps the store and its indexes.
//
// The new feed is imported into a staging database ("*.temp.db" next to the
// configured file) and indexed there, so readers keep the old data until the
// swap. The swap itself closes the old database and renames the staging file
// over it under the write lock, then reopens it. An in-memory store is
// swapped by reference.
//
// If the update fails before the swap, the staging file is removed and the
// old data keeps serving. If the rename fails, the old database is reopened;
// if that fails too the manager is marked unhealthy.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	logger := slog.Default().With(slog.String("component", "gtfs_updater"))

	finalDBPath := manager.config.GTFSDataPath
	if finalDBPath == inMemoryDBPath || finalDBPath == "" {
		return manager.swapInMemory(ctx, logger)
	}
	tempDBPath := strings.TrimSuffix(finalDBPath, ".db") + ".temp.db"

	if err := os.Remove(tempDBPath); err != nil && !os.IsNotExist(err) {
		logging.LogError(logger, "Failed to remove existing temp DB", err)
	}

	cleanup := func(client *gtfsdb.Client, reason string) {
		if closeErr := client.Close(); closeErr != nil {
			logging.LogError(logger, "Failed to close new GTFS DB during "+reason, closeErr)
		}
		if removeErr := os.Remove(tempDBPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogError(logger, "Failed to remove temp DB during "+reason, removeErr)
		}
	}

	newGtfsDB, err := buildGtfsDB(ctx, manager.config, manager.isLocalFile, tempDBPath)
	if err != nil {
		logging.LogError(logger, "Error building new GTFS DB", err,
			slog.String("source", manager.config.GtfsURL))
		if removeErr := os.Remove(tempDBPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogError(logger, "Failed to remove temp DB after build failure", removeErr)
		}
		return err
	}

	if err := ctx.Err(); err != nil {
		cleanup(newGtfsDB, "cancellation cleanup")
		return err
	}

	newIndex, err := buildStaticIndex(ctx, newGtfsDB.Queries)
	if err != nil {
		logging.LogError(logger, "Error building stop indexes", err)
		cleanup(newGtfsDB, "cleanup")
		return err
	}

	if err := newGtfsDB.Close(); err != nil {
		logging.LogError(logger, "Error closing new GTFS DB", err)
		return err
	}

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	if oldGtfsDB := manager.GtfsDB; oldGtfsDB != nil {
		if err := oldGtfsDB.Close(); err != nil {
			logging.LogError(logger, "Error closing old GTFS DB, did not swap DB", err)
			return err
		}
	}

	dbConfig := gtfsdb.NewConfig(finalDBPath, manager.config.Env, manager.config.Verbose)

	// Rename: finalDBPath is overwritten by tempDBPath
	if err := os.Rename(tempDBPath, finalDBPath); err != nil {
		logging.LogError(logger, "Error renaming temp DB to final DB", err)

		if removeErr := os.Remove(tempDBPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogError(logger, "Failed to remove temp DB after rename failure", removeErr)
		}

		logging.LogOperation(logger, "attempting_recovery_reopening_old_db")
		if reopenedClient, reopenErr := gtfsdb.NewClient(dbConfig); reopenErr == nil {
			manager.GtfsDB = reopenedClient
			logging.LogOperation(logger, "recovery_successful_old_db_reopened")
		} else {
			logging.LogError(logger, "CRITICAL: Failed to recover old DB after rename failure", reopenErr)
			manager.GtfsDB = nil
			manager.isHealthy = false
		}
		return err
	}

	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		logging.LogError(logger, "CRITICAL: Failed to create new GTFS client after database swap", err,
			slog.String("db_path", finalDBPath))
		manager.GtfsDB = nil
		manager.isHealthy = false
		return fmt.Errorf("failed to update GTFS database client: %w", err)
	}

	manager.GtfsDB = client
	manager.index = newIndex
	manager.lastUpdated = time.Now()
	manager.isHealthy = true

	logging.LogOperation(logger, "gtfs_static_data_updated_hot_swap",
		slog.String("source", manager.config.GtfsURL),
		slog.String("db_path", finalDBPath))
	return nil
}

func (manager *Manager) swapInMemory(ctx context.Context, logger *slog.Logger) error {
	newGtfsDB, err := buildGtfsDB(ctx, manager.config, manager.isLocalFile, inMemoryDBPath)
	if err != nil {
		logging.LogError(logger, "Error building new GTFS DB", err,
			slog.String("source", manager.config.GtfsURL))
		return err
	}
	newIndex, err := buildStaticIndex(ctx, newGtfsDB.Queries)
	if err != nil {
		logging.LogError(logger, "Error building stop indexes", err)
		_ = newGtfsDB.Close()
		return err
	}

	manager.staticMutex.Lock()
	oldGtfsDB := manager.GtfsDB
	manager.GtfsDB = newGtfsDB
	manager.index = newIndex
	manager.lastUpdated = time.Now()
	manager.isHealthy = true
	manager.staticMutex.Unlock()

	if oldGtfsDB != nil {
		logging.SafeCloseWithLogging(oldGtfsDB, logger, "old_gtfs_database")
	}
	logging.LogOperation(logger, "gtfs_static_data_updated_in_memory",
		slog.String("source", manager.config.GtfsURL))
	return nil
}
