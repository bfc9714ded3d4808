// Package gtfs owns the loaded static timetable: the schedule store, the
// in-memory stop indexes built over it, and periodic re-import. A Manager
// answers the schedule and geography questions the planner asks.
package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/planner"
)

// Manager serves reads over the current store. Reads take staticMutex for
// reading; ForceUpdate swaps the store and its indexes under the write lock.
type Manager struct {
	GtfsDB *gtfsdb.Client

	config      Config
	isLocalFile bool

	staticMutex       sync.RWMutex
	staticUpdateMutex sync.Mutex
	index             *staticIndex
	lastUpdated       time.Time
	isHealthy         bool

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

var (
	_ planner.Schedule  = (*Manager)(nil)
	_ planner.Geography = (*Manager)(nil)
)

// InitGTFSManager imports the configured feed into a new store, builds the
// stop indexes and, for remote feeds, starts the periodic updater.
func InitGTFSManager(config Config) (*Manager, error) {
	ctx := context.Background()
	isLocalFile := config.isLocalFile()

	client, err := buildGtfsDB(ctx, config, isLocalFile, "")
	if err != nil {
		return nil, fmt.Errorf("error loading GTFS data: %w", err)
	}

	manager := &Manager{
		config:       config,
		isLocalFile:  isLocalFile,
		shutdownChan: make(chan struct{}),
	}
	if err := manager.setStaticGTFS(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	if !isLocalFile {
		manager.wg.Add(1)
		go manager.updateStaticGTFS()
	}
	return manager, nil
}

// NewManager wraps an already populated store. It never re-imports.
func NewManager(ctx context.Context, client *gtfsdb.Client) (*Manager, error) {
	manager := &Manager{
		config:       Config{GTFSDataPath: client.GetDBPath()},
		isLocalFile:  true,
		shutdownChan: make(chan struct{}),
	}
	if err := manager.setStaticGTFS(ctx, client); err != nil {
		return nil, err
	}
	return manager, nil
}

// Shutdown stops the periodic updater and closes the store.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
	})
	manager.wg.Wait()

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	if manager.GtfsDB != nil {
		logging.SafeCloseWithLogging(manager.GtfsDB,
			slog.Default().With(slog.String("component", "gtfs_manager")),
			"gtfs_database")
		manager.GtfsDB = nil
	}
	manager.isHealthy = false
}

func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

func (manager *Manager) MarkHealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = true
}

func (manager *Manager) MarkUnhealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = false
}

// LastUpdated is when the current data was loaded.
func (manager *Manager) LastUpdated() time.Time {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.lastUpdated
}

// Location is the feed's agency timezone, UTC when the feed has none.
func (manager *Manager) Location() *time.Location {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.index == nil || manager.index.timezone == nil {
		return time.UTC
	}
	return manager.index.timezone
}

// StopCount is the number of stops in the spatial index.
func (manager *Manager) StopCount() int {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.index == nil {
		return 0
	}
	return manager.index.stops.Len()
}

// reader returns the current queries and index. Callers must hold
// staticMutex for reading.
func (manager *Manager) reader() (*gtfsdb.Queries, *staticIndex, error) {
	if manager.GtfsDB == nil || manager.index == nil {
		return nil, nil, ErrNotLoaded
	}
	return manager.GtfsDB.Queries, manager.index, nil
}
