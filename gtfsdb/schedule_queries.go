package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const stopColumns = `s.id, s.code, s.name, s.normalized_name, s."desc", s.lat, s.lon,
    s.location_type, s.parent_station, s.wheelchair_boarding, s.platform_code`

const routeColumns = `r.id, r.agency_id, r.short_name, r.long_name, r."desc", r.type, r.url, r.color, r.text_color`

// busRouteFilter excludes the basic bus type and the extended bus range.
const busRouteFilter = ` AND r.type != 3 AND NOT (r.type BETWEEN 700 AND 799)`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStop(row scanner, extra ...interface{}) (Stop, error) {
	var s Stop
	dest := []interface{}{
		&s.ID, &s.Code, &s.Name, &s.NormalizedName, &s.Desc, &s.Lat, &s.Lon,
		&s.LocationType, &s.ParentStation, &s.WheelchairBoarding, &s.PlatformCode,
	}
	err := row.Scan(append(extra, dest...)...)
	return s, err
}

func scanRoute(row scanner, extra ...interface{}) (Route, error) {
	var r Route
	dest := []interface{}{
		&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Desc, &r.Type, &r.Url, &r.Color, &r.TextColor,
	}
	err := row.Scan(append(extra, dest...)...)
	return r, err
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func (q *Queries) GetStop(ctx context.Context, id string) (Stop, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stops s WHERE s.id = ?`, id)
	return scanStop(row)
}

func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+stopColumns+` FROM stops s ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// SearchStopsByName returns stops whose normalized name starts with or
// contains the normalized term, prefix matches first.
func (q *Queries) SearchStopsByName(ctx context.Context, normalizedTerm string, limit int) ([]Stop, error) {
	if normalizedTerm == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(normalizedTerm)
	rows, err := q.db.QueryContext(ctx, `
SELECT `+stopColumns+`
FROM stops s
WHERE s.normalized_name LIKE ? ESCAPE '\'
ORDER BY
    CASE WHEN s.normalized_name = ? THEN 0
         WHEN s.normalized_name LIKE ? ESCAPE '\' THEN 1
         ELSE 2 END,
    COALESCE(s.location_type, 0) DESC,
    s.name,
    s.id
LIMIT ?`, "%"+escaped+"%", normalizedTerm, escaped+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListStopsByNormalizedNames returns every stop whose normalized name is one of names.
func (q *Queries) ListStopsByNormalizedNames(ctx context.Context, names []string) ([]Stop, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+stopColumns+` FROM stops s WHERE s.normalized_name IN (`+placeholders(len(names))+`) ORDER BY s.id`,
		stringArgs(names)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListAgencies returns every agency ordered by id.
func (q *Queries) ListAgencies(ctx context.Context) ([]Agency, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, url, timezone, lang, phone FROM agencies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Url, &a.Timezone, &a.Lang, &a.Phone); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (q *Queries) GetRoute(ctx context.Context, id string) (Route, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes r WHERE r.id = ?`, id)
	return scanRoute(row)
}

// GetRoutesForStop returns the routes serving stopID, optionally without buses.
func (q *Queries) GetRoutesForStop(ctx context.Context, stopID string, includeBus bool) ([]Route, error) {
	query := `
SELECT ` + routeColumns + `
FROM route_stops rs
JOIN routes r ON r.id = rs.route_id
WHERE rs.stop_id = ?`
	if !includeBus {
		query += busRouteFilter
	}
	query += ` ORDER BY r.id`

	rows, err := q.db.QueryContext(ctx, query, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// GetRoutesForStops batches GetRoutesForStop over stopIDs.
func (q *Queries) GetRoutesForStops(ctx context.Context, stopIDs []string, includeBus bool) (map[string][]Route, error) {
	result := make(map[string][]Route, len(stopIDs))
	if len(stopIDs) == 0 {
		return result, nil
	}
	query := `
SELECT rs.stop_id, ` + routeColumns + `
FROM route_stops rs
JOIN routes r ON r.id = rs.route_id
WHERE rs.stop_id IN (` + placeholders(len(stopIDs)) + `)`
	if !includeBus {
		query += busRouteFilter
	}
	query += ` ORDER BY rs.stop_id, r.id`

	rows, err := q.db.QueryContext(ctx, query, stringArgs(stopIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	for rows.Next() {
		var stopID string
		r, err := scanRoute(rows, &stopID)
		if err != nil {
			return nil, err
		}
		result[stopID] = append(result[stopID], r)
	}
	return result, rows.Err()
}

// GetStopsForRoute returns the stops of routeID ordered along the route.
func (q *Queries) GetStopsForRoute(ctx context.Context, routeID string) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT `+stopColumns+`
FROM route_stops rs
JOIN stops s ON s.id = rs.stop_id
WHERE rs.route_id = ?
ORDER BY rs.stop_order, s.id`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// GetRouteStopsForRoutes returns the stops of every route in routeIDs.
func (q *Queries) GetRouteStopsForRoutes(ctx context.Context, routeIDs []string) ([]RouteStop, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.QueryContext(ctx, `
SELECT rs.route_id, rs.stop_order, `+stopColumns+`
FROM route_stops rs
JOIN stops s ON s.id = rs.stop_id
WHERE rs.route_id IN (`+placeholders(len(routeIDs))+`)
ORDER BY rs.route_id, rs.stop_order, s.id`, stringArgs(routeIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []RouteStop
	for rows.Next() {
		var rs RouteStop
		stop, err := scanStop(rows, &rs.RouteID, &rs.StopOrder)
		if err != nil {
			return nil, err
		}
		rs.Stop = stop
		items = append(items, rs)
	}
	return items, rows.Err()
}

type GetNextDepartureParams struct {
	RouteID string
	StopID  string
	// After and Before bound departure_time, in seconds since midnight.
	After  int64
	Before int64
	// ServiceIDs restricts trips to these services; nil means every service.
	ServiceIDs []string
}

// GetNextDeparture returns the earliest departure of RouteID at StopID in
// [After, Before]. ok is false when there is none.
func (q *Queries) GetNextDeparture(ctx context.Context, arg GetNextDepartureParams) (seconds int64, ok bool, err error) {
	if arg.ServiceIDs != nil && len(arg.ServiceIDs) == 0 {
		return 0, false, nil
	}
	query := `
SELECT MIN(st.departure_time)
FROM stop_times st
JOIN trips t ON t.id = st.trip_id
WHERE t.route_id = ?
  AND st.stop_id = ?
  AND st.departure_time >= ?
  AND st.departure_time <= ?`
	args := []interface{}{arg.RouteID, arg.StopID, arg.After, arg.Before}
	if arg.ServiceIDs != nil {
		query += ` AND t.service_id IN (` + placeholders(len(arg.ServiceIDs)) + `)`
		args = append(args, stringArgs(arg.ServiceIDs)...)
	}

	var departure sql.NullInt64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&departure); err != nil {
		return 0, false, err
	}
	return departure.Int64, departure.Valid, nil
}

// HasStopTimes reports whether any trip of routeID stops at stopID.
func (q *Queries) HasStopTimes(ctx context.Context, routeID, stopID string) (bool, error) {
	var found bool
	err := q.db.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM stop_times st
    JOIN trips t ON t.id = st.trip_id
    WHERE t.route_id = ?
      AND st.stop_id = ?
)`, routeID, stopID).Scan(&found)
	return found, err
}

// GetActualTravelTime returns the mean scheduled seconds from fromStopID to
// toStopID over trips of routeID. Trips visiting the stops in the opposite
// order are ignored. An empty routeID matches any route.
func (q *Queries) GetActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (seconds float64, ok bool, err error) {
	query := `
SELECT AVG(b.arrival_time - a.departure_time)
FROM stop_times a
JOIN stop_times b ON b.trip_id = a.trip_id AND b.stop_sequence > a.stop_sequence
JOIN trips t ON t.id = a.trip_id
WHERE a.stop_id = ?
  AND b.stop_id = ?`
	args := []interface{}{fromStopID, toStopID}
	if routeID != "" {
		query += ` AND t.route_id = ?`
		args = append(args, routeID)
	}

	var avg sql.NullFloat64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return 0, false, err
	}
	if !avg.Valid || avg.Float64 < 0 {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

var weekdayColumns = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// GetActiveServiceIDs returns the services running on date. all is true when
// the feed carries no calendar information, in which case every trip runs.
func (q *Queries) GetActiveServiceIDs(ctx context.Context, date time.Time) (ids []string, all bool, err error) {
	var calendars int64
	err = q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM calendar) + (SELECT COUNT(*) FROM calendar_dates)`).Scan(&calendars)
	if err != nil {
		return nil, false, err
	}
	if calendars == 0 {
		return nil, true, nil
	}

	day := date.Format("20060102")
	column := weekdayColumns[date.Weekday()]
	rows, err := q.db.QueryContext(ctx, `
SELECT id FROM calendar
WHERE `+column+` = 1 AND start_date <= ? AND end_date >= ?
UNION
SELECT service_id FROM calendar_dates WHERE date = ? AND exception_type = 1
EXCEPT
SELECT service_id FROM calendar_dates WHERE date = ? AND exception_type = 2
ORDER BY 1`, day, day, day, day)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, false, rows.Err()
}

// representativeTrip picks the trip of routeID that visits fromStopID then
// toStopID, preferring the one with the fewest stops in between.
func (q *Queries) representativeTrip(ctx context.Context, routeID, fromStopID, toStopID string) (tripID string, fromSeq, toSeq int64, err error) {
	err = q.db.QueryRowContext(ctx, `
SELECT a.trip_id, a.stop_sequence, b.stop_sequence
FROM stop_times a
JOIN stop_times b ON b.trip_id = a.trip_id AND b.stop_sequence > a.stop_sequence
JOIN trips t ON t.id = a.trip_id
WHERE t.route_id = ? AND a.stop_id = ? AND b.stop_id = ?
ORDER BY (b.stop_sequence - a.stop_sequence), a.departure_time, a.trip_id
LIMIT 1`, routeID, fromStopID, toStopID).Scan(&tripID, &fromSeq, &toSeq)
	return tripID, fromSeq, toSeq, err
}

// GetIntermediateStops returns the stops strictly between fromStopID and
// toStopID on a trip of routeID. It returns no stops when no trip serves
// the pair in that order.
func (q *Queries) GetIntermediateStops(ctx context.Context, routeID, fromStopID, toStopID string) ([]Stop, error) {
	tripID, fromSeq, toSeq, err := q.representativeTrip(ctx, routeID, fromStopID, toStopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
SELECT `+stopColumns+`
FROM stop_times st
JOIN stops s ON s.id = st.stop_id
WHERE st.trip_id = ? AND st.stop_sequence > ? AND st.stop_sequence < ?
ORDER BY st.stop_sequence`, tripID, fromSeq, toSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	var items []Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// GetTripHeadsign returns the headsign shown when riding routeID from
// fromStopID towards toStopID; the stop headsign wins over the trip headsign.
func (q *Queries) GetTripHeadsign(ctx context.Context, routeID, fromStopID, toStopID string) (string, error) {
	tripID, fromSeq, _, err := q.representativeTrip(ctx, routeID, fromStopID, toStopID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var headsign sql.NullString
	err = q.db.QueryRowContext(ctx, `
SELECT COALESCE(NULLIF(st.stop_headsign, ''), t.trip_headsign)
FROM stop_times st
JOIN trips t ON t.id = st.trip_id
WHERE st.trip_id = ? AND st.stop_sequence = ?`, tripID, fromSeq).Scan(&headsign)
	if err != nil {
		return "", err
	}
	return headsign.String, nil
}
