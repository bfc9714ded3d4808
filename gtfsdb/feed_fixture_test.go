package gtfsdb

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/MBL11/transit-app-sub002/internal/appconf"
	"github.com/stretchr/testify/require"
)

// fixtureFeed is a small network: metro L1 runs a-b-c in both directions,
// bus V15 runs b-d, and service WK runs on weekdays except 2024-06-17.
var fixtureFeed = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A1,Test Transit,https://example.com,Europe/Madrid
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type,route_color
L1,A1,L1,Línia 1,1,E2001A
V15,A1,V15,Vertical 15,3,
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type,wheelchair_boarding
a,Plaça Catalunya,41.3870,2.1701,0,1
b,Passeig de Gràcia,41.3917,2.1649,0,1
c,Diagonal,41.3966,2.1596,0,2
d,Hospital Clínic,41.3889,2.1500,0,0
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WK,1,1,1,1,1,0,0,20240101,20241231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WK,20240617,2
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign,direction_id
L1,WK,t1,Diagonal,0
L1,WK,t2,Diagonal,0
L1,WK,t3,Plaça Catalunya,1
V15,WK,t4,Hospital Clínic,0
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
t1,08:00:00,08:00:00,a,1
t1,08:05:00,08:05:00,b,2
t1,08:12:00,08:12:00,c,3
t2,08:10:00,08:10:00,a,1
t2,08:15:00,08:15:00,b,2
t2,08:22:00,08:22:00,c,3
t3,09:00:00,09:00:00,c,1
t3,09:06:00,09:06:00,b,2
t3,09:12:00,09:12:00,a,3
t4,08:20:00,08:20:00,b,1
t4,08:30:00,08:30:00,d,2
`,
}

func buildFeedZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newImportedClient(t *testing.T) *Client {
	t.Helper()
	client := newTestClient(t)
	require.NoError(t, client.ImportFromBytes(context.Background(), buildFeedZip(t, fixtureFeed), "fixture.zip"))
	return client
}
