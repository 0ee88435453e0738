package sink

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema.sql defines the run, row and value tables of the results store.
//
//go:embed schema.sql
var schemaSQL string

// SQLite stores every appended row in a SQLite database, tagged with the run
// that produced it. NaN values are stored as NULL.
type SQLite struct {
	*sql.DB
	RunID string
}

// OpenSQLite opens (or creates) the database at path and starts a new run
// for command.
func OpenSQLite(path, command string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps in-memory databases shared between statements.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise results schema: %w", err)
	}

	runID := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO runs (id, command) VALUES (?, ?)`, runID, command); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return &SQLite{DB: db, RunID: runID}, nil
}

// Append implements Appender.
func (s *SQLite) Append(t Table, row []float64) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO measurements (run_id, table_name, header, row_text)
		VALUES (?, ?, ?, ?)
	`, s.RunID, t.Name, t.Header, FormatRow(row))
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get measurement ID: %w", err)
	}

	for i, v := range row {
		var value any = v
		if math.IsNaN(v) {
			value = nil
		}
		if _, err := tx.Exec(`
			INSERT INTO measurement_values (measurement_id, position, value)
			VALUES (?, ?, ?)
		`, id, i, value); err != nil {
			return fmt.Errorf("failed to insert measurement value: %w", err)
		}
	}
	return tx.Commit()
}

// Rows returns the rows appended to t during this run, in insertion order.
func (s *SQLite) Rows(t Table) ([][]float64, error) {
	rows, err := s.Query(`
		SELECT m.id, v.position, v.value
		FROM measurements m
		LEFT JOIN measurement_values v ON v.measurement_id = m.id
		WHERE m.run_id = ? AND m.table_name = ?
		ORDER BY m.id, v.position
	`, s.RunID, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out    [][]float64
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			id       int64
			position sql.NullInt64
			value    sql.NullFloat64
		)
		if err := rows.Scan(&id, &position, &value); err != nil {
			return nil, err
		}
		if id != lastID {
			out = append(out, []float64{})
			lastID = id
		}
		if !position.Valid {
			continue
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		out[len(out)-1] = append(out[len(out)-1], v)
	}
	return out, rows.Err()
}
