package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ponytojas/go-parking-monitor/config"
	"github.com/ponytojas/go-parking-monitor/internal/models"
)

// TimescaleDB stores diagnostic sensor readings
type TimescaleDB struct {
	conn   *pgx.Conn
	table  string
	logger *slog.Logger
}

// NewTimescaleDB creates a new TimescaleDB instance
func NewTimescaleDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*TimescaleDB, error) {
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"user", cfg.Database.User,
		"dbname", cfg.Database.DBName,
		"sslmode", cfg.Database.SSLMode,
	)
	conn, err := pgx.Connect(ctx, cfg.GetDBConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &TimescaleDB{
		conn:   conn,
		table:  pgx.Identifier{cfg.Diagnostics.TableName}.Sanitize(),
		logger: logger,
	}, nil
}

// Close closes the database connection
func (db *TimescaleDB) Close(ctx context.Context) error {
	return db.conn.Close(ctx)
}

// InitializeTable checks if the table exists and creates it if it doesn't
func (db *TimescaleDB) InitializeTable(ctx context.Context) error {
	var exists bool
	err := db.conn.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, db.table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if table exists: %w", err)
	}
	if exists {
		db.logger.Info("table already exists", "table", db.table)
		return nil
	}

	db.logger.Info("creating table", "table", db.table)
	_, err = db.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			time TIMESTAMPTZ NOT NULL,
			sensor_key TEXT NOT NULL,
			value INTEGER,
			valid BOOLEAN NOT NULL
		)
	`, db.table))
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Convert to hypertable
	_, err = db.conn.Exec(ctx, `SELECT create_hypertable($1::regclass, 'time')`, db.table)
	if err != nil {
		return fmt.Errorf("failed to convert table to hypertable: %w", err)
	}

	db.logger.Info("table created and converted to hypertable", "table", db.table)
	return nil
}

// InsertReading inserts one sensor reading. Readings without an integer
// value are stored with a NULL value.
func (db *TimescaleDB) InsertReading(ctx context.Context, reading models.SensorReading, at time.Time) error {
	var value *int
	if reading.Valid {
		value = &reading.Value
	}

	_, err := db.conn.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (time, sensor_key, value, valid)
		VALUES ($1, $2, $3, $4)
	`, db.table), at, reading.Key, value, reading.Valid)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return nil
}
