package db

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// DB wraps the SQL database connection
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database
func Open(path string) (*DB, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates or updates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT,
		cpu_name TEXT,
		codename TEXT,
		pm_table_version INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		interval_ms INTEGER NOT NULL,
		sample_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		captured_at DATETIME NOT NULL,
		socket_power REAL,
		package_power REAL,
		peak_temp REAL,
		peak_freq REAL,
		avg_voltage REAL,
		reading TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		cron_expr TEXT NOT NULL,
		interval_ms INTEGER NOT NULL,
		duration_s INTEGER NOT NULL,
		label TEXT,
		enabled BOOLEAN DEFAULT 1,
		last_session_id INTEGER,
		last_run_time DATETIME,
		next_run_time DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (last_session_id) REFERENCES sessions(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_label ON sessions(label);
	CREATE INDEX IF NOT EXISTS idx_samples_session_id ON samples(session_id);
	CREATE INDEX IF NOT EXISTS idx_samples_captured_at ON samples(captured_at);
	CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);
	CREATE INDEX IF NOT EXISTS idx_schedules_next_run ON schedules(next_run_time);

	-- Trigger to update updated_at timestamp
	CREATE TRIGGER IF NOT EXISTS update_sessions_timestamp
	AFTER UPDATE ON sessions
	BEGIN
		UPDATE sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;

	CREATE TRIGGER IF NOT EXISTS update_schedules_timestamp
	AFTER UPDATE ON schedules
	BEGIN
		UPDATE schedules SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}

// CreateSession creates a new recording session record
func (db *DB) CreateSession(label string, info monitor.SystemData, interval time.Duration) (*Session, error) {
	session := &Session{
		Label:          label,
		CPUName:        info.CPUName,
		Codename:       info.Codename,
		PMTableVersion: info.PMTableVersion,
		StartTime:      time.Now(),
		Interval:       interval.Milliseconds(),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	result, err := db.conn.Exec(
		`INSERT INTO sessions (label, cpu_name, codename, pm_table_version, start_time, interval_ms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.Label, session.CPUName, session.Codename, session.PMTableVersion,
		session.StartTime, session.Interval, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	session.ID = id
	return session, nil
}

// EndSession marks a session finished and records its final sample count
func (db *DB) EndSession(id int64, endTime time.Time, sampleCount int64) error {
	_, err := db.conn.Exec(
		`UPDATE sessions SET end_time = ?, sample_count = ?, updated_at = ? WHERE id = ?`,
		endTime, sampleCount, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(id int64) (*Session, error) {
	session := &Session{}
	err := db.conn.QueryRow(
		`SELECT id, label, cpu_name, codename, pm_table_version, start_time,
		 end_time, interval_ms, sample_count, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(
		&session.ID, &session.Label, &session.CPUName, &session.Codename,
		&session.PMTableVersion, &session.StartTime, &session.EndTime,
		&session.Interval, &session.SampleCount, &session.CreatedAt, &session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions retrieves sessions based on filters
func (db *DB) ListSessions(filter SessionFilter) ([]*Session, error) {
	query := `SELECT id, label, cpu_name, codename, pm_table_version, start_time,
	          end_time, interval_ms, sample_count, created_at, updated_at
	          FROM sessions WHERE 1=1`
	args := []interface{}{}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	if filter.StartTime != nil {
		query += " AND start_time >= ?"
		args = append(args, filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND start_time <= ?"
		args = append(args, filter.EndTime)
	}

	if filter.Active != nil {
		if *filter.Active {
			query += " AND end_time IS NULL"
		} else {
			query += " AND end_time IS NOT NULL"
		}
	}

	query += " ORDER BY start_time DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		session := &Session{}
		err := rows.Scan(
			&session.ID, &session.Label, &session.CPUName, &session.Codename,
			&session.PMTableVersion, &session.StartTime, &session.EndTime,
			&session.Interval, &session.SampleCount, &session.CreatedAt, &session.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// DeleteSession removes a session and, via the cascade, its samples
func (db *DB) DeleteSession(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

// InsertSample stores one telemetry snapshot for a session
func (db *DB) InsertSample(sessionID int64, reading *monitor.Reading) error {
	_, err := db.conn.Exec(
		`INSERT INTO samples (session_id, captured_at, socket_power, package_power,
		 peak_temp, peak_freq, avg_voltage, reading)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, reading.Timestamp,
		metricColumn(reading.Power.SocketPower),
		metricColumn(reading.Power.PackagePower),
		metricColumn(reading.Stats.PeakCoreTemp),
		metricColumn(reading.Stats.PeakCoreFrequency),
		metricColumn(reading.Stats.AvgCoreVoltage),
		ReadingData{reading},
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// InsertSamples stores multiple snapshots in one transaction
func (db *DB) InsertSamples(sessionID int64, readings []*monitor.Reading) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Only rollback if we haven't committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO samples (session_id, captured_at, socket_power, package_power,
		 peak_temp, peak_freq, avg_voltage, reading)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, reading := range readings {
		_, err := stmt.Exec(
			sessionID, reading.Timestamp,
			metricColumn(reading.Power.SocketPower),
			metricColumn(reading.Power.PackagePower),
			metricColumn(reading.Stats.PeakCoreTemp),
			metricColumn(reading.Stats.PeakCoreFrequency),
			metricColumn(reading.Stats.AvgCoreVoltage),
			ReadingData{reading},
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSamples retrieves all samples of a session in capture order
func (db *DB) GetSamples(sessionID int64) ([]*Sample, error) {
	rows, err := db.conn.Query(
		`SELECT id, session_id, captured_at, socket_power, package_power,
		 peak_temp, peak_freq, avg_voltage, reading, created_at
		 FROM samples WHERE session_id = ? ORDER BY captured_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []*Sample
	for rows.Next() {
		sample := &Sample{}
		var socket, pkg, temp, freq, voltage sql.NullFloat64
		err := rows.Scan(
			&sample.ID, &sample.SessionID, &sample.CapturedAt,
			&socket, &pkg, &temp, &freq, &voltage,
			&sample.Reading, &sample.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.SocketPower = nullMetric(socket)
		sample.PackagePower = nullMetric(pkg)
		sample.PeakTemp = nullMetric(temp)
		sample.PeakFreq = nullMetric(freq)
		sample.AvgVoltage = nullMetric(voltage)
		samples = append(samples, sample)
	}

	return samples, nil
}

// SessionStats computes aggregates over a session's samples in SQL
func (db *DB) SessionStats(sessionID int64) (*SessionStats, error) {
	stats := &SessionStats{}
	err := db.conn.QueryRow(
		`SELECT COUNT(*),
		 COALESCE(MIN(socket_power), 0), COALESCE(MAX(socket_power), 0), COALESCE(AVG(socket_power), 0),
		 COALESCE(MIN(package_power), 0), COALESCE(MAX(package_power), 0), COALESCE(AVG(package_power), 0),
		 COALESCE(MIN(peak_temp), 0), COALESCE(MAX(peak_temp), 0), COALESCE(AVG(peak_temp), 0),
		 COALESCE(MAX(peak_freq), 0), COALESCE(AVG(peak_freq), 0),
		 COALESCE(AVG(avg_voltage), 0)
		 FROM samples WHERE session_id = ?`,
		sessionID,
	).Scan(
		&stats.SampleCount,
		&stats.MinSocketPower, &stats.MaxSocketPower, &stats.AvgSocketPower,
		&stats.MinPackagePower, &stats.MaxPackagePower, &stats.AvgPackagePower,
		&stats.MinPeakTemp, &stats.MaxPeakTemp, &stats.AvgPeakTemp,
		&stats.MaxPeakFreq, &stats.AvgPeakFreq,
		&stats.AvgVoltage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute session stats: %w", err)
	}
	return stats, nil
}

// metricColumn maps an absent metric to NULL so SQL aggregates skip it
func metricColumn(m monitor.Metric) interface{} {
	if !m.Valid() {
		return nil
	}
	return float64(m)
}

// nullMetric maps a NULL column back to an absent metric
func nullMetric(v sql.NullFloat64) monitor.Metric {
	if !v.Valid {
		return monitor.Metric(math.NaN())
	}
	return monitor.Metric(v.Float64)
}
