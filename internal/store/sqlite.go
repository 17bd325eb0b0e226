package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

const schema = `
CREATE TABLE IF NOT EXISTS vessels (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	mmsi               TEXT UNIQUE,
	name               TEXT NOT NULL DEFAULT '',
	type               TEXT NOT NULL DEFAULT '',
	flag_country       TEXT NOT NULL DEFAULT '',
	latitude           REAL NOT NULL DEFAULT 0,
	longitude          REAL NOT NULL DEFAULT 0,
	speed_over_ground  REAL NOT NULL DEFAULT 0,
	heading            INTEGER NOT NULL DEFAULT 0,
	course_over_ground REAL NOT NULL DEFAULT 0,
	nav_status         TEXT NOT NULL DEFAULT 'underway',
	destination        TEXT NOT NULL DEFAULT '',
	last_update_ms     INTEGER NOT NULL DEFAULT 0,
	data_source        TEXT NOT NULL DEFAULT '',
	is_tracked         INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS vessel_assignments (
	user_id   TEXT    NOT NULL,
	vessel_id INTEGER NOT NULL REFERENCES vessels(id) ON DELETE CASCADE,
	is_active INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (user_id, vessel_id)
);
`

const vesselColumns = `id, COALESCE(mmsi, ''), name, type, flag_country, latitude, longitude,
	speed_over_ground, heading, course_over_ground, nav_status, destination,
	last_update_ms, is_tracked`

// SQLite is a vessel.Store backed by a SQLite database through the
// pure-Go modernc driver.
type SQLite struct {
	db *sql.DB
}

var _ vessel.Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path, applies
// pragmas and the schema.
func OpenSQLite(path string, busyTimeout time.Duration) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// dsn carries the connection-scoped pragmas in the DSN so the driver applies
// them to every pooled connection, not only the first.
func dsn(path string, busyTimeout time.Duration) string {
	pragmas := []string{
		"foreign_keys(1)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
		"synchronous(NORMAL)",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Upsert inserts a vessel keyed by MMSI, or updates the existing row with
// the same MMSI. It returns the vessel id.
func (s *SQLite) Upsert(ctx context.Context, v vessel.State) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vessels (mmsi, name, type, flag_country, latitude, longitude,
			speed_over_ground, heading, course_over_ground, nav_status, destination,
			last_update_ms, data_source, is_tracked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'manual', ?)
		ON CONFLICT(mmsi) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			flag_country = excluded.flag_country,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			speed_over_ground = excluded.speed_over_ground,
			heading = excluded.heading,
			course_over_ground = excluded.course_over_ground,
			nav_status = excluded.nav_status,
			destination = excluded.destination,
			last_update_ms = excluded.last_update_ms,
			is_tracked = excluded.is_tracked
		RETURNING id`,
		nullString(v.MMSI), v.Name, v.Type, v.FlagCountry, v.Latitude, v.Longitude,
		v.SpeedOverGround, v.Heading, v.CourseOverGround, v.NavStatus.String(), v.Destination,
		toMillis(v.LastUpdate), boolInt(v.IsTracked),
	).Scan(&id)
	if err != nil {
		return 0, unavailable("upsert vessel", err)
	}
	return id, nil
}

// Assign records an operator assignment.
func (s *SQLite) Assign(ctx context.Context, a vessel.Assignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vessel_assignments (user_id, vessel_id, is_active) VALUES (?, ?, ?)
		ON CONFLICT(user_id, vessel_id) DO UPDATE SET is_active = excluded.is_active`,
		a.UserID, a.VesselID, boolInt(a.IsActive))
	if err != nil {
		return unavailable("assign vessel", err)
	}
	return nil
}

func (s *SQLite) ListTracked(ctx context.Context) ([]vessel.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vesselColumns+` FROM vessels WHERE is_tracked = 1 ORDER BY id`)
	if err != nil {
		return nil, unavailable("list tracked", err)
	}
	defer rows.Close()

	var out []vessel.State
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, unavailable("scan vessel", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list tracked", err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (vessel.State, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE id = ?`, id)
	v, err := scanVessel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vessel.State{}, fmt.Errorf("vessel %d: %w", id, vessel.ErrNotFound)
	}
	if err != nil {
		return vessel.State{}, unavailable("get vessel", err)
	}
	return v, nil
}

func (s *SQLite) ApplyUpdate(ctx context.Context, id int64, u vessel.PositionUpdate) error {
	if !vessel.ValidCoordinates(u.Latitude, u.Longitude) {
		return fmt.Errorf("vessel %d: %w", id, vessel.ErrCoordinateOutOfRange)
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE vessels SET latitude = ?, longitude = ?, speed_over_ground = ?, heading = ?,
			course_over_ground = ?, nav_status = ?, last_update_ms = ?, data_source = ?
		WHERE id = ?`,
		u.Latitude, u.Longitude, u.SpeedOverGround, u.Heading, u.CourseOverGround,
		u.NavStatus.String(), toMillis(u.Timestamp), string(u.Source), id)
	if err != nil {
		return unavailable("apply update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("apply update", err)
	}
	if n == 0 {
		return fmt.Errorf("vessel %d: %w", id, vessel.ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListAssignments(ctx context.Context, userID string) ([]vessel.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, vessel_id, is_active FROM vessel_assignments WHERE user_id = ? ORDER BY vessel_id`, userID)
	if err != nil {
		return nil, unavailable("list assignments", err)
	}
	defer rows.Close()

	var out []vessel.Assignment
	for rows.Next() {
		var a vessel.Assignment
		var active int
		if err := rows.Scan(&a.UserID, &a.VesselID, &active); err != nil {
			return nil, unavailable("scan assignment", err)
		}
		a.IsActive = active != 0
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list assignments", err)
	}
	return out, nil
}

func (s *SQLite) ResolveMMSI(ctx context.Context, mmsis []string) (map[string]int64, error) {
	out := make(map[string]int64)
	if len(mmsis) == 0 {
		return out, nil
	}
	args := make([]any, len(mmsis))
	for i, m := range mmsis {
		args[i] = m
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(mmsis)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT mmsi, id FROM vessels WHERE mmsi IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, unavailable("resolve mmsi", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mmsi string
		var id int64
		if err := rows.Scan(&mmsi, &id); err != nil {
			return nil, unavailable("scan mmsi", err)
		}
		out[mmsi] = id
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("resolve mmsi", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVessel(r scanner) (vessel.State, error) {
	var (
		v       vessel.State
		status  string
		lastMs  int64
		tracked int
	)
	err := r.Scan(&v.ID, &v.MMSI, &v.Name, &v.Type, &v.FlagCountry, &v.Latitude, &v.Longitude,
		&v.SpeedOverGround, &v.Heading, &v.CourseOverGround, &status, &v.Destination,
		&lastMs, &tracked)
	if err != nil {
		return vessel.State{}, err
	}
	v.NavStatus, _ = vessel.ParseNavStatus(status)
	if lastMs != 0 {
		v.LastUpdate = time.UnixMilli(lastMs).UTC()
	}
	v.IsTracked = tracked != 0
	return v, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, vessel.ErrUnavailable, err)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
