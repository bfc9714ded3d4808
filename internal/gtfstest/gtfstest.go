// Package gtfstest provides a small static feed for tests: metro L1 runs
// a-b-c, bus V15 runs b-d, and rail R2 leaves Sants Estació, whose metro and
// rail platforms share a parent station. Trip t7 runs past midnight. Service
// WK runs on weekdays of 2024 except 2024-06-17; agency time is Europe/Madrid.
package gtfstest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var feed = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A1,Test Transit,https://example.com,Europe/Madrid
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
L1,A1,L1,Línia 1,1
V15,A1,V15,Vertical 15,3
R2,A1,R2,Rodalies 2,2
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station,wheelchair_boarding
a,Plaça Catalunya,41.3870,2.1701,0,,1
b,Passeig de Gràcia,41.3917,2.1649,0,,1
c,Diagonal,41.3966,2.1596,0,,2
d,Hospital Clínic,41.3889,2.1500,0,,0
sants,Sants Estació,41.3791,2.1401,1,,0
metro_sants,Sants Estació,41.3790,2.1400,0,sants,1
rail_sants,Sants Estació,41.3792,2.1403,0,sants,1
rail_bdn,Badalona,41.4500,2.2470,0,,1
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
R2,WK,t6,Badalona,0
R2,WK,t7,Badalona,0
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
t6,07:30:00,07:30:00,rail_sants,1
t6,07:55:00,07:55:00,rail_bdn,2
t7,25:10:00,25:10:00,rail_sants,1
t7,25:35:00,25:35:00,rail_bdn,2
`,
}

// Files returns a copy of the feed, keyed by file name.
func Files() map[string]string {
	files := make(map[string]string, len(feed))
	for name, content := range feed {
		files[name] = content
	}
	return files
}

// Zip packs files into a GTFS zip archive.
func Zip(t testing.TB, files map[string]string) []byte {
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

// WriteZip writes the feed to a zip file in a temporary directory and
// returns its path.
func WriteZip(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, Zip(t, Files()), 0o600))
	return path
}
