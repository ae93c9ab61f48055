package resort

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL resort repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// viewQuery joins each enabled resort with its most recent condition and
// weather rows. Callers append the WHERE tail and ordering.
const viewQuery = `
	SELECT
		r.id, r.name, r.slug, r.location, r.lat, r.lon,
		r.elevation_min, r.elevation_max,
		r.address, r.city, r.zip_code, r.phone, r.website, r.opening_hours,
		c.status, c.new_snow, c.base_depth,
		c.lifts_open, c.lifts_total, c.trails_open, c.trails_total,
		c.temperature, c.extra_data, c.data_source, c.timestamp,
		w.current_temp, w.apparent_temp, w.humidity,
		w.wind_speed, w.wind_direction, w.wind_compass,
		w.freezing_level, w.freezing_level_24h_avg, w.avg_windspeed_24h,
		w.snowfall_24h, w.precipitation_24h,
		w.temp_base, w.temp_mid, w.temp_summit,
		w.today_sunrise, w.today_sunset, w.today_temp_max, w.today_temp_min,
		w.hourly_forecast, w.forecast_7d, w.source, w.timestamp
	FROM resorts r
	LEFT JOIN LATERAL (
		SELECT * FROM resort_conditions
		WHERE resort_id = r.id
		ORDER BY timestamp DESC
		LIMIT 1
	) c ON TRUE
	LEFT JOIN LATERAL (
		SELECT * FROM resort_weather
		WHERE resort_id = r.id
		ORDER BY timestamp DESC
		LIMIT 1
	) w ON TRUE
	WHERE r.enabled
`

// SaveSnapshot persists one collection result in a single transaction.
// All rows share one timestamp so the snapshot reads back as a unit.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	now := time.Now().UTC()

	if err := upsertResort(ctx, tx, &snap.Resort, now); err != nil {
		return fmt.Errorf("upsert resort %d: %w", snap.Resort.ID, err)
	}
	if err := insertCondition(ctx, tx, &snap.Condition, now); err != nil {
		return fmt.Errorf("insert condition for resort %d: %w", snap.Resort.ID, err)
	}
	if snap.Weather != nil {
		if err := insertWeather(ctx, tx, snap.Weather, now); err != nil {
			return fmt.Errorf("insert weather for resort %d: %w", snap.Resort.ID, err)
		}
	}
	for i := range snap.Webcams {
		if err := insertWebcam(ctx, tx, &snap.Webcams[i], now); err != nil {
			return fmt.Errorf("insert webcam for resort %d: %w", snap.Resort.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func upsertResort(ctx context.Context, tx pgx.Tx, res *Resort, now time.Time) error {
	query := `
		INSERT INTO resorts (
			id, name, slug, location, lat, lon,
			elevation_min, elevation_max,
			data_source, source_url, source_id, enabled, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`
	_, err := tx.Exec(ctx, query,
		res.ID, res.Name, res.Slug, textOrNil(res.Location), res.Lat, res.Lon,
		res.ElevationMin, res.ElevationMax,
		res.DataSource, res.SourceURL, res.SourceID, res.Enabled, res.Notes,
		now,
	)
	return err
}

func insertCondition(ctx context.Context, tx pgx.Tx, cond *Condition, now time.Time) error {
	query := `
		INSERT INTO resort_conditions (
			resort_id, timestamp, status,
			new_snow, base_depth,
			lifts_open, lifts_total, trails_open, trails_total,
			temperature, extra_data, source, data_source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $2)
	`
	var extra []byte
	if len(cond.Extra) > 0 {
		var err error
		extra, err = json.Marshal(cond.Extra)
		if err != nil {
			return fmt.Errorf("encode extra data: %w", err)
		}
	}
	_, err := tx.Exec(ctx, query,
		cond.ResortID, now, string(cond.Status),
		cond.NewSnow, cond.BaseDepth,
		cond.LiftsOpen, cond.LiftsTotal, cond.TrailsOpen, cond.TrailsTotal,
		cond.Temperature, extra, textOrNil(cond.Source), cond.DataSource,
	)
	return err
}

func insertWeather(ctx context.Context, tx pgx.Tx, w *Weather, now time.Time) error {
	query := `
		INSERT INTO resort_weather (
			resort_id, timestamp,
			current_temp, apparent_temp, humidity,
			wind_speed, wind_direction, wind_compass,
			freezing_level, freezing_level_24h_avg, avg_windspeed_24h,
			snowfall_24h, precipitation_24h,
			temp_base, temp_mid, temp_summit,
			today_sunrise, today_sunset, today_temp_max, today_temp_min,
			hourly_forecast, forecast_7d, source, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $2
		)
	`
	hourly, err := forecastJSON(w.Hourly)
	if err != nil {
		return fmt.Errorf("encode hourly forecast: %w", err)
	}
	daily, err := forecastJSON(w.Daily)
	if err != nil {
		return fmt.Errorf("encode daily forecast: %w", err)
	}
	_, err = tx.Exec(ctx, query,
		w.ResortID, now,
		w.Current.Temperature, w.Current.ApparentTemperature, w.Current.Humidity,
		w.Current.WindSpeed, w.Current.WindDirection, textOrNil(w.Current.WindCompass),
		w.FreezingLevel, w.FreezingLevel24hAvg, w.AvgWindspeed24h,
		w.Snowfall24h, w.Precipitation24h,
		w.TempBase, w.TempMid, w.TempSummit,
		textOrNil(w.TodaySunrise), textOrNil(w.TodaySunset), w.TodayTempMax, w.TodayTempMin,
		hourly, daily, textOrNil(w.Source),
	)
	return err
}

func insertWebcam(ctx context.Context, tx pgx.Tx, cam *Webcam, now time.Time) error {
	query := `
		INSERT INTO resort_webcams (
			resort_id, timestamp, webcam_uuid, title,
			image_url, thumbnail_url, video_url,
			type, featured, last_updated, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $2)
	`
	_, err := tx.Exec(ctx, query,
		cam.ResortID, now, cam.UUID, textOrNil(cam.Title),
		textOrNil(cam.ImageURL), textOrNil(cam.ThumbnailURL), textOrNil(cam.VideoURL),
		textOrNil(cam.Type), cam.Featured, textOrNil(cam.LastUpdated), textOrNil(cam.Source),
	)
	return err
}

// SaveContact stores places enrichment on the resort row.
func (r *PostgresRepository) SaveContact(ctx context.Context, resortID int64, info *ContactInfo) error {
	query := `
		UPDATE resorts SET
			address = $2, city = $3, zip_code = $4,
			phone = $5, website = $6, opening_hours = $7,
			updated_at = $8
		WHERE id = $1
	`
	var hours []byte
	if info.OpeningHours != nil {
		var err error
		hours, err = json.Marshal(info.OpeningHours)
		if err != nil {
			return fmt.Errorf("encode opening hours: %w", err)
		}
	}
	result, err := r.pool.Exec(ctx, query,
		resortID, info.Address, info.City, info.ZipCode,
		info.Phone, info.Website, hours, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update contact for resort %d: %w", resortID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceTrails swaps the resort's trail set in one transaction. The
// boundary ring is stored alongside when the collector fetched one.
func (r *PostgresRepository) ReplaceTrails(ctx context.Context, resortID int64, boundary [][]float64, trails []Trail) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin trails transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	now := time.Now().UTC()

	if boundary != nil {
		ring, err := json.Marshal(boundary)
		if err != nil {
			return fmt.Errorf("encode boundary: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE resorts SET boundary = $2, updated_at = $3 WHERE id = $1`,
			resortID, ring, now,
		); err != nil {
			return fmt.Errorf("update boundary for resort %d: %w", resortID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM resort_trails WHERE resort_id = $1`, resortID,
	); err != nil {
		return fmt.Errorf("delete stale trails for resort %d: %w", resortID, err)
	}

	if len(trails) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"resort_trails"},
			[]string{
				"resort_id", "osm_id", "osm_type", "name",
				"difficulty", "piste_type", "geometry", "length_meters",
				"lit", "grooming", "width", "ref",
				"last_updated", "created_at",
			},
			pgx.CopyFromSlice(len(trails), func(i int) ([]any, error) {
				t := trails[i]
				geom, err := json.Marshal(t.Geometry)
				if err != nil {
					return nil, fmt.Errorf("encode geometry for trail %s: %w", t.OSMID, err)
				}
				return []any{
					resortID, t.OSMID, t.OSMType, textOrNil(t.Name),
					textOrNil(t.Difficulty), textOrNil(t.PisteType), geom, t.LengthMeters,
					t.Lit, textOrNil(t.Grooming), textOrNil(t.Width), textOrNil(t.Ref),
					now, now,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy trails for resort %d: %w", resortID, err)
		}
	}

	return tx.Commit(ctx)
}

// Disable soft-deletes a resort and returns its slug.
func (r *PostgresRepository) Disable(ctx context.Context, id int64) (string, error) {
	query := `
		UPDATE resorts SET enabled = FALSE, updated_at = $2
		WHERE id = $1 AND enabled
		RETURNING slug
	`
	var slug string
	if err := r.pool.QueryRow(ctx, query, id, time.Now().UTC()).Scan(&slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("disable resort %d: %w", id, err)
	}
	return slug, nil
}

// GetByID returns one enabled resort's assembled view.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*View, error) {
	return r.getView(ctx, viewQuery+` AND r.id = $1`, id)
}

// GetBySlug returns one enabled resort's assembled view.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*View, error) {
	return r.getView(ctx, viewQuery+` AND r.slug = $1`, slug)
}

func (r *PostgresRepository) getView(ctx context.Context, query string, arg any) (*View, error) {
	v, err := scanView(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resort view: %w", err)
	}
	cams, err := r.latestWebcams(ctx, []int64{v.ResortID})
	if err != nil {
		return nil, err
	}
	v.Webcams = cams[v.ResortID]
	return v, nil
}

// ListEnabled returns assembled views for every enabled resort.
func (r *PostgresRepository) ListEnabled(ctx context.Context) ([]*View, error) {
	rows, err := r.pool.Query(ctx, viewQuery+` ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("list resorts: %w", err)
	}
	defer rows.Close()

	var views []*View
	var ids []int64
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resort view: %w", err)
		}
		views = append(views, v)
		ids = append(ids, v.ResortID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resorts: %w", err)
	}

	if len(ids) > 0 {
		cams, err := r.latestWebcams(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			v.Webcams = cams[v.ResortID]
		}
	}
	return views, nil
}

// latestWebcams returns the most recent observation of each webcam,
// keyed by resort. Webcams are append-only, so recency is resolved per
// webcam_uuid rather than per row.
func (r *PostgresRepository) latestWebcams(ctx context.Context, resortIDs []int64) (map[int64][]WebcamView, error) {
	query := `
		SELECT DISTINCT ON (resort_id, webcam_uuid)
			resort_id, webcam_uuid, title, image_url, thumbnail_url,
			video_url, type, featured, last_updated
		FROM resort_webcams
		WHERE resort_id = ANY($1)
		ORDER BY resort_id, webcam_uuid, timestamp DESC
	`
	rows, err := r.pool.Query(ctx, query, resortIDs)
	if err != nil {
		return nil, fmt.Errorf("list webcams: %w", err)
	}
	defer rows.Close()

	cams := make(map[int64][]WebcamView)
	for rows.Next() {
		var (
			resortID                                   int64
			cam                                        WebcamView
			title, image, thumb, video, camType, lastUpdated *string
		)
		if err := rows.Scan(
			&resortID, &cam.UUID, &title, &image, &thumb,
			&video, &camType, &cam.Featured, &lastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan webcam: %w", err)
		}
		cam.Title = deref(title)
		cam.ImageURL = deref(image)
		cam.ThumbnailURL = deref(thumb)
		cam.VideoURL = deref(video)
		cam.Type = deref(camType)
		cam.LastUpdated = deref(lastUpdated)
		cams[resortID] = append(cams[resortID], cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list webcams: %w", err)
	}
	return cams, nil
}

const trailsQuery = `
	SELECT
		t.id, t.osm_id, t.osm_type, t.name, t.difficulty, t.piste_type,
		t.geometry, t.length_meters, t.lit, t.grooming, t.width, t.ref
	FROM resort_trails t
	JOIN resorts r ON r.id = t.resort_id
	WHERE r.enabled
`

// TrailsByID returns the stored trail set for one resort.
func (r *PostgresRepository) TrailsByID(ctx context.Context, id int64) ([]TrailView, error) {
	return r.listTrails(ctx, trailsQuery+` AND r.id = $1 ORDER BY t.id`, id)
}

// TrailsBySlug returns the stored trail set for one resort.
func (r *PostgresRepository) TrailsBySlug(ctx context.Context, slug string) ([]TrailView, error) {
	return r.listTrails(ctx, trailsQuery+` AND r.slug = $1 ORDER BY t.id`, slug)
}

func (r *PostgresRepository) listTrails(ctx context.Context, query string, arg any) ([]TrailView, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}
	defer rows.Close()

	var trails []TrailView
	for rows.Next() {
		var (
			t                                     TrailView
			osmID, osmType, name, difficulty      *string
			pisteType, grooming, width, ref       *string
			geometry                              []byte
			length                                *float64
		)
		if err := rows.Scan(
			&t.ID, &osmID, &osmType, &name, &difficulty, &pisteType,
			&geometry, &length, &t.Lit, &grooming, &width, &ref,
		); err != nil {
			return nil, fmt.Errorf("scan trail: %w", err)
		}
		t.OSMID = deref(osmID)
		t.OSMType = deref(osmType)
		t.Name = deref(name)
		t.Difficulty = deref(difficulty)
		t.PisteType = deref(pisteType)
		t.Grooming = deref(grooming)
		t.Width = deref(width)
		t.Ref = deref(ref)
		if length != nil {
			t.LengthMeters = *length
		}
		if len(geometry) > 0 {
			if err := json.Unmarshal(geometry, &t.Geometry); err != nil {
				return nil, fmt.Errorf("decode geometry for trail %d: %w", t.ID, err)
			}
		}
		trails = append(trails, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}
	return trails, nil
}

// CountEnabled returns the number of enabled resorts.
func (r *PostgresRepository) CountEnabled(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resorts WHERE enabled`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count resorts: %w", err)
	}
	return count, nil
}

// Ping verifies database reachability.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// scanView assembles one View from a viewQuery row. Condition and
// weather blocks are only populated when their lateral row exists.
func scanView(row pgx.Row) (*View, error) {
	var (
		v View

		location, address, city, zip, phone, website *string
		elevMin, elevMax                             *int
		hoursJSON                                    []byte

		status, condDataSource *string
		extraJSON              []byte
		condTS                 *time.Time

		currentTemp, apparentTemp, windSpeed, windDirection *float64
		humidity                                            *int
		windCompass                                         *string
		freezingLevel, freezing24h, avgWind24h              *float64
		snowfall24h, precip24h                              *float64
		tempBase, tempMid, tempSummit                       *float64
		sunrise, sunset                                     *string
		todayMax, todayMin                                  *float64
		hourlyJSON, dailyJSON                               []byte
		weatherSource                                       *string
		weatherTS                                           *time.Time
	)

	err := row.Scan(
		&v.ResortID, &v.Name, &v.Slug, &location, &v.Lat, &v.Lon,
		&elevMin, &elevMax,
		&address, &city, &zip, &phone, &website, &hoursJSON,
		&status, &v.NewSnow, &v.BaseDepth,
		&v.LiftsOpen, &v.LiftsTotal, &v.TrailsOpen, &v.TrailsTotal,
		&v.Temperature, &extraJSON, &condDataSource, &condTS,
		&currentTemp, &apparentTemp, &humidity,
		&windSpeed, &windDirection, &windCompass,
		&freezingLevel, &freezing24h, &avgWind24h,
		&snowfall24h, &precip24h,
		&tempBase, &tempMid, &tempSummit,
		&sunrise, &sunset, &todayMax, &todayMin,
		&hourlyJSON, &dailyJSON, &weatherSource, &weatherTS,
	)
	if err != nil {
		return nil, err
	}

	v.Location = deref(location)
	if elevMin != nil && elevMax != nil {
		v.Elevation = &ElevationView{
			Min:      *elevMin,
			Max:      *elevMax,
			Vertical: *elevMax - *elevMin,
		}
	}

	if condTS != nil {
		v.Status = Status(deref(status))
		v.DataSource = deref(condDataSource)
		v.LastUpdate = condTS.UTC().Format(time.RFC3339)
		if len(extraJSON) > 0 {
			if err := json.Unmarshal(extraJSON, &v.Extra); err != nil {
				return nil, fmt.Errorf("decode extra data: %w", err)
			}
		}
	}

	if weatherTS != nil {
		w := &WeatherView{
			Current: WeatherCurrent{
				Temperature:         currentTemp,
				ApparentTemperature: apparentTemp,
				Humidity:            humidity,
				WindSpeed:           windSpeed,
				WindDirection:       windDirection,
				WindCompass:         deref(windCompass),
			},
			FreezingLevel:       freezingLevel,
			FreezingLevel24hAvg: freezing24h,
			AvgWindspeed24h:     avgWind24h,
			Snowfall24h:         snowfall24h,
			Precipitation24h:    precip24h,
			TempBase:            tempBase,
			TempMid:             tempMid,
			TempSummit:          tempSummit,
			Today: &TodayView{
				Sunrise: deref(sunrise),
				Sunset:  deref(sunset),
				TempMax: todayMax,
				TempMin: todayMin,
			},
			Source:     deref(weatherSource),
			LastUpdate: weatherTS.UTC().Format(time.RFC3339),
		}
		if len(hourlyJSON) > 0 {
			if err := json.Unmarshal(hourlyJSON, &w.Hourly); err != nil {
				return nil, fmt.Errorf("decode hourly forecast: %w", err)
			}
		}
		if len(dailyJSON) > 0 {
			if err := json.Unmarshal(dailyJSON, &w.Daily); err != nil {
				return nil, fmt.Errorf("decode daily forecast: %w", err)
			}
		}
		v.Weather = w
	}

	if address != nil || city != nil || zip != nil || phone != nil || website != nil || len(hoursJSON) > 0 {
		contact := &ContactView{
			Address: address,
			City:    city,
			ZipCode: zip,
			Phone:   phone,
			Website: website,
		}
		if len(hoursJSON) > 0 {
			var hours OpeningHours
			if err := json.Unmarshal(hoursJSON, &hours); err != nil {
				return nil, fmt.Errorf("decode opening hours: %w", err)
			}
			contact.OpeningHours = &hours
		}
		v.Contact = contact
	}

	return &v, nil
}

// forecastJSON marshals a forecast sequence, mapping empty to NULL.
func forecastJSON[T any](points []T) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}
	return json.Marshal(points)
}

func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Repository = (*PostgresRepository)(nil)
