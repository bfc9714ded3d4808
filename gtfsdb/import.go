package gtfsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/logging"
	"github.com/MBL11/transit-app-sub002/internal/utils"
	"github.com/OneBusAway/go-gtfs"
)

// processAndStore parses a static feed and replaces the stored schedule with
// it. A feed whose hash and source match the last import is skipped.
func (c *Client) processAndStore(ctx context.Context, b []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
		logging.LogOperation(logger, "gtfs_data_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("source", source))
	}()

	hash := sha256.Sum256(b)
	hashStr := hex.EncodeToString(hash[:])

	existing, err := c.Queries.GetImportMetadata(ctx)
	switch {
	case err == nil:
		if existing.FileHash == hashStr && existing.FileSource == source {
			logging.LogOperation(logger, "gtfs_data_unchanged_skipping_import",
				slog.String("hash", hashStr[:8]))
			return nil
		}
		logging.LogOperation(logger, "gtfs_data_changed_reimporting",
			slog.String("old_hash", shortHash(existing.FileHash)),
			slog.String("new_hash", hashStr[:8]))
		if err := c.Queries.ClearScheduleData(ctx); err != nil {
			return fmt.Errorf("error clearing existing GTFS data: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("error checking import metadata: %w", err)
	}

	if c.config.EnableGTFSTidy {
		logging.LogOperation(logger, "gtfstidy_enabled_processing_gtfs_data")
		tidied, err := tidyGTFSData(ctx, b, logger)
		if err != nil {
			logging.LogError(logger, "Failed to tidy GTFS data, using original data", err)
		} else {
			b = tidied
		}
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("error parsing GTFS data: %w", err)
	}

	logging.LogOperation(logger, "gtfs_static_data_parsed",
		slog.Int("warnings", len(staticData.Warnings)),
		slog.Int("agencies", len(staticData.Agencies)),
		slog.Int("routes", len(staticData.Routes)),
		slog.Int("stops", len(staticData.Stops)),
		slog.Int("trips", len(staticData.Trips)))

	if err := c.storeStatic(ctx, staticData); err != nil {
		return err
	}

	err = c.Queries.UpsertImportMetadata(ctx, UpsertImportMetadataParams{
		FileHash:   hashStr,
		ImportTime: time.Now().Unix(),
		FileSource: source,
	})
	if err != nil {
		logging.LogError(logger, "Error updating import metadata", err)
		return fmt.Errorf("error updating import metadata: %w", err)
	}

	return nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func (c *Client) storeStatic(ctx context.Context, staticData *gtfs.Static) error {
	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	err := c.inTx(ctx, "insert_reference_data", func(q *Queries) error {
		for _, a := range staticData.Agencies {
			err := q.CreateAgency(ctx, CreateAgencyParams{
				ID:       a.Id,
				Name:     a.Name,
				Url:      a.Url,
				Timezone: a.Timezone,
				Lang:     toNullString(a.Language),
				Phone:    toNullString(a.Phone),
			})
			if err != nil {
				return fmt.Errorf("unable to create agency: %w", err)
			}
		}

		for _, r := range staticData.Routes {
			agencyID := singleAgencyID
			if r.Agency != nil {
				agencyID = pickFirstAvailable(r.Agency.Id, singleAgencyID)
			}
			err := q.CreateRoute(ctx, CreateRouteParams{
				ID:        r.Id,
				AgencyID:  agencyID,
				ShortName: toNullString(r.ShortName),
				LongName:  toNullString(r.LongName),
				Desc:      toNullString(r.Description),
				Type:      int64(r.Type),
				Url:       toNullString(r.Url),
				Color:     toNullString(r.Color),
				TextColor: toNullString(r.TextColor),
			})
			if err != nil {
				return fmt.Errorf("unable to create route: %w", err)
			}
		}

		for _, s := range staticData.Stops {
			// Generic nodes and boarding areas may omit coordinates; they are
			// never journey endpoints.
			if s.Latitude == nil || s.Longitude == nil {
				continue
			}
			var parent sql.NullString
			if s.Parent != nil {
				parent = toNullString(s.Parent.Id)
			}
			err := q.CreateStop(ctx, CreateStopParams{
				ID:                 s.Id,
				Code:               toNullString(s.Code),
				Name:               toNullString(s.Name),
				NormalizedName:     utils.NormalizeName(s.Name),
				Desc:               toNullString(s.Description),
				Lat:                *s.Latitude,
				Lon:                *s.Longitude,
				LocationType:       toNullInt64(int64(s.Type)),
				ParentStation:      parent,
				WheelchairBoarding: toNullInt64(int64(s.WheelchairBoarding)),
				PlatformCode:       toNullString(s.PlatformCode),
			})
			if err != nil {
				return fmt.Errorf("unable to create stop: %w", err)
			}
		}

		for _, s := range staticData.Services {
			err := q.CreateCalendar(ctx, CreateCalendarParams{
				ID:        s.Id,
				Monday:    boolToInt(s.Monday),
				Tuesday:   boolToInt(s.Tuesday),
				Wednesday: boolToInt(s.Wednesday),
				Thursday:  boolToInt(s.Thursday),
				Friday:    boolToInt(s.Friday),
				Saturday:  boolToInt(s.Saturday),
				Sunday:    boolToInt(s.Sunday),
				StartDate: s.StartDate.Format("20060102"),
				EndDate:   s.EndDate.Format("20060102"),
			})
			if err != nil {
				return fmt.Errorf("unable to create calendar: %w", err)
			}
			for _, date := range s.AddedDates {
				err := q.CreateCalendarDate(ctx, CreateCalendarDateParams{
					ServiceID: s.Id, Date: date.Format("20060102"), ExceptionType: 1,
				})
				if err != nil {
					return fmt.Errorf("unable to create calendar date: %w", err)
				}
			}
			for _, date := range s.RemovedDates {
				err := q.CreateCalendarDate(ctx, CreateCalendarDateParams{
					ServiceID: s.Id, Date: date.Format("20060102"), ExceptionType: 2,
				})
				if err != nil {
					return fmt.Errorf("unable to create calendar date: %w", err)
				}
			}
		}

		for _, t := range staticData.Trips {
			if t.Route == nil || t.Service == nil {
				continue
			}
			err := q.CreateTrip(ctx, CreateTripParams{
				ID:           t.ID,
				RouteID:      t.Route.Id,
				ServiceID:    t.Service.Id,
				TripHeadsign: toNullString(t.Headsign),
				DirectionID:  toNullInt64(int64(t.DirectionId)),
			})
			if err != nil {
				return fmt.Errorf("unable to create trip: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var stopTimes []CreateStopTimeParams
	for _, t := range staticData.Trips {
		if t.Route == nil || t.Service == nil {
			continue
		}
		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			stopTimes = append(stopTimes, CreateStopTimeParams{
				TripID:        t.ID,
				ArrivalTime:   int64(st.ArrivalTime / time.Second),
				DepartureTime: int64(st.DepartureTime / time.Second),
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
				StopHeadsign:  toNullString(st.Headsign),
			})
		}
	}
	if err := c.bulkInsertStopTimes(ctx, stopTimes); err != nil {
		return fmt.Errorf("unable to create stop times: %w", err)
	}

	if err := c.Queries.RebuildRouteStops(ctx); err != nil {
		return fmt.Errorf("unable to build route stops: %w", err)
	}
	return nil
}
