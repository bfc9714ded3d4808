package gtfsdb

import "database/sql"

type Agency struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
}

type Route struct {
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

type Stop struct {
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

type Calendar struct {
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

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

type Trip struct {
	ID           string
	RouteID      string
	ServiceID    string
	TripHeadsign sql.NullString
	DirectionID  sql.NullInt64
}

// StopTime times are seconds since midnight of the service day and may
// exceed 86400 for trips running past midnight.
type StopTime struct {
	TripID        string
	ArrivalTime   int64
	DepartureTime int64
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
}

type ImportMetadatum struct {
	ID         int64
	FileHash   string
	ImportTime int64
	FileSource string
}

// RouteStop is a stop served by a route with its position along the route.
type RouteStop struct {
	RouteID   string
	StopOrder int64
	Stop      Stop
}
