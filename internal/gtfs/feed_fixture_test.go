package gtfs

import (
	"context"
	"testing"

	"github.com/MBL11/transit-app-sub002/gtfsdb"
	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/MBL11/transit-app-sub002/internal/gtfstest"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	require.NoError(t, client.ImportFromBytes(context.Background(), gtfstest.Zip(t, gtfstest.Files()), "fixture.zip"))

	manager, err := NewManager(context.Background(), client)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)
	return manager
}
