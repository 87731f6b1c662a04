package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/kass/occmap/pkg/models"
	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostGIS reads occurrence records from a table with an id column and a
// POINT geometry column named location
type PostGIS struct {
	db *sql.DB
}

// Open creates a new PostGIS connection from a libpq connection string
func Open(ctx context.Context, dsn string) (*PostGIS, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostGIS{db: db}, nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *PostGIS {
	return &PostGIS{db: db}
}

// QuoteTable validates a table name, optionally schema-qualified, and
// returns it quoted for use in SQL
func QuoteTable(table string) (string, error) {
	if !identifierPattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

// Records streams every row of table as a record, in physical order
func (p *PostGIS) Records(ctx context.Context, table string) (*RowSource, error) {
	quoted, err := QuoteTable(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, ST_Y(location) AS lat, ST_X(location) AS lon FROM %s`, quoted)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &RowSource{rows: rows}, nil
}

// Count returns the number of rows in table
func (p *PostGIS) Count(ctx context.Context, table string) (int64, error) {
	quoted, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}

	var count int64
	err = p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (p *PostGIS) Close() error {
	return p.db.Close()
}

// RowSource adapts query rows to the record source interface
type RowSource struct {
	rows *sql.Rows
}

// Next returns the next row; rows with a NULL location have no coord
func (r *RowSource) Next() (models.Record, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return models.Record{}, fmt.Errorf("rows error: %w", err)
		}
		return models.Record{}, io.EOF
	}

	var id sql.NullString
	var lat, lon sql.NullFloat64
	if err := r.rows.Scan(&id, &lat, &lon); err != nil {
		return models.Record{}, fmt.Errorf("failed to scan row: %w", err)
	}

	rec := models.Record{ID: id.String}
	if lat.Valid && lon.Valid {
		rec.Coord = &models.Location{Lat: lat.Float64, Lon: lon.Float64}
	}
	return rec, nil
}

// Close releases the underlying rows
func (r *RowSource) Close() error {
	return r.rows.Close()
}
