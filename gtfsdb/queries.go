package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateAgencyParams struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
}

const createAgency = `
INSERT OR REPLACE INTO agencies (id, name, url, timezone, lang, phone)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAgency(ctx context.Context, arg CreateAgencyParams) error {
	_, err := q.db.ExecContext(ctx, createAgency,
		arg.ID, arg.Name, arg.Url, arg.Timezone, arg.Lang, arg.Phone)
	return err
}

type CreateRouteParams struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Desc      sql.NullString
	Type      int64
	Url       sql.NullString
	Color     sql.NullString
	TextColor sql.NullString
}

const createRoute = `
INSERT OR REPLACE INTO routes (id, agency_id, short_name, long_name, "desc", type, url, color, text_color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateRoute(ctx context.Context, arg CreateRouteParams) error {
	_, err := q.db.ExecContext(ctx, createRoute,
		arg.ID, arg.AgencyID, arg.ShortName, arg.LongName, arg.Desc,
		arg.Type, arg.Url, arg.Color, arg.TextColor)
	return err
}

type CreateStopParams struct {
	ID                 string
	Code               sql.NullString
	Name               sql.NullString
	NormalizedName     string
	Desc               sql.NullString
	Lat                float64
	Lon                float64
	LocationType       sql.NullInt64
	ParentStation      sql.NullString
	WheelchairBoarding sql.NullInt64
	PlatformCode       sql.NullString
}

const createStop = `
INSERT OR REPLACE INTO stops (
    id, code, name, normalized_name, "desc", lat, lon,
    location_type, parent_station, wheelchair_boarding, platform_code
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateStop(ctx context.Context, arg CreateStopParams) error {
	_, err := q.db.ExecContext(ctx, createStop,
		arg.ID, arg.Code, arg.Name, arg.NormalizedName, arg.Desc, arg.Lat, arg.Lon,
		arg.LocationType, arg.ParentStation, arg.WheelchairBoarding, arg.PlatformCode)
	return err
}

type CreateCalendarParams struct {
	ID        string
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string
	EndDate   string
}

const createCalendar = `
INSERT OR REPLACE INTO calendar (
    id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateCalendar(ctx context.Context, arg CreateCalendarParams) error {
	_, err := q.db.ExecContext(ctx, createCalendar,
		arg.ID, arg.Monday, arg.Tuesday, arg.Wednesday, arg.Thursday,
		arg.Friday, arg.Saturday, arg.Sunday, arg.StartDate, arg.EndDate)
	return err
}

type CreateCalendarDateParams struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

const createCalendarDate = `
INSERT OR REPLACE INTO calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)
`

func (q *Queries) CreateCalendarDate(ctx context.Context, arg CreateCalendarDateParams) error {
	_, err := q.db.ExecContext(ctx, createCalendarDate, arg.ServiceID, arg.Date, arg.ExceptionType)
	return err
}

type CreateTripParams struct {
	ID           string
	RouteID      string
	ServiceID    string
	TripHeadsign sql.NullString
	DirectionID  sql.NullInt64
}

const createTrip = `
INSERT OR REPLACE INTO trips (id, route_id, service_id, trip_headsign, direction_id)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateTrip(ctx context.Context, arg CreateTripParams) error {
	_, err := q.db.ExecContext(ctx, createTrip,
		arg.ID, arg.RouteID, arg.ServiceID, arg.TripHeadsign, arg.DirectionID)
	return err
}

type CreateStopTimeParams struct {
	TripID        string
	ArrivalTime   int64
	DepartureTime int64
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
}

const createStopTime = `
INSERT OR REPLACE INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence, stop_headsign)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateStopTime(ctx context.Context, arg CreateStopTimeParams) error {
	_, err := q.db.ExecContext(ctx, createStopTime,
		arg.TripID, arg.ArrivalTime, arg.DepartureTime, arg.StopID, arg.StopSequence, arg.StopHeadsign)
	return err
}

const rebuildRouteStops = `
INSERT OR REPLACE INTO route_stops (route_id, stop_id, stop_order)
SELECT t.route_id, st.stop_id, MIN(st.stop_sequence)
FROM stop_times st
JOIN trips t ON t.id = st.trip_id
GROUP BY t.route_id, st.stop_id
`

// RebuildRouteStops derives the route/stop membership table from stop
// times. A stop's order on a route is the lowest sequence it has on any trip.
func (q *Queries) RebuildRouteStops(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM route_stops"); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, rebuildRouteStops)
	return err
}

type UpsertImportMetadataParams struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, import_time, file_source)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time,
    file_source = excluded.file_source
`

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg UpsertImportMetadataParams) error {
	_, err := q.db.ExecContext(ctx, upsertImportMetadata, arg.FileHash, arg.ImportTime, arg.FileSource)
	return err
}

const getImportMetadata = `
SELECT id, file_hash, import_time, file_source FROM import_metadata WHERE id = 1
`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadatum, error) {
	row := q.db.QueryRowContext(ctx, getImportMetadata)
	var i ImportMetadatum
	err := row.Scan(&i.ID, &i.FileHash, &i.ImportTime, &i.FileSource)
	return i, err
}

// clearTables lists tables in the order they must be emptied.
var clearTables = []string{
	"route_stops",
	"stop_times",
	"trips",
	"calendar_dates",
	"calendar",
	"stops",
	"routes",
	"agencies",
}

// ClearScheduleData deletes every imported row, keeping import metadata.
func (q *Queries) ClearScheduleData(ctx context.Context) error {
	for _, table := range clearTables {
		if _, err := q.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
