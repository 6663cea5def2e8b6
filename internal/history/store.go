// internal/history/store.go
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	ts                  INTEGER NOT NULL,
	detailed            INTEGER NOT NULL DEFAULT 0,
	power_kw            REAL NOT NULL,
	energy_kwh          REAL NOT NULL,
	reactive_power_kvar REAL NOT NULL,
	apparent_power_kva  REAL NOT NULL,
	power_factor        REAL NOT NULL,
	current_avg         REAL NOT NULL,
	voltage_ll_avg      REAL NOT NULL,
	voltage_ln_avg      REAL NOT NULL,
	frequency           REAL NOT NULL,
	data_scalar         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`

// Row is one persisted reading, trimmed to the trend fields the
// dashboard charts.
type Row struct {
	Timestamp         time.Time `json:"timestamp"`
	Detailed          bool      `json:"detailed"`
	PowerKW           float64   `json:"power_kw"`
	EnergyKWh         float64   `json:"energy_kwh"`
	ReactivePowerKVAr float64   `json:"reactive_power_kvar"`
	ApparentPowerKVA  float64   `json:"apparent_power_kva"`
	PowerFactor       float64   `json:"power_factor"`
	CurrentAvg        float64   `json:"current_avg"`
	VoltageLLAvg      float64   `json:"voltage_ll_avg"`
	VoltageLNAvg      float64   `json:"voltage_ln_avg"`
	Frequency         float64   `json:"frequency"`
	Scalar            int       `json:"data_scalar"`
}

// Store keeps a rolling log of readings in SQLite. One writer (the
// orchestrator), many readers (the API); database/sql handles the
// connection serialization.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists one reading.
func (s *Store) Append(r *meter.Reading) error {
	_, err := s.db.Exec(`INSERT INTO readings
		(ts, detailed, power_kw, energy_kwh, reactive_power_kvar, apparent_power_kva,
		 power_factor, current_avg, voltage_ll_avg, voltage_ln_avg, frequency, data_scalar)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.Unix(), r.Detailed,
		r.System.PowerKW, r.System.EnergyKWh,
		r.System.ReactivePowerKVAr, r.System.ApparentPowerKVA,
		r.System.ApparentPF, r.System.CurrentAvg,
		r.System.VoltageLLAvg, r.System.VoltageLNAvg,
		r.Frequency, r.Scalar,
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Recent returns up to limit readings, newest first.
func (s *Store) Recent(limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`SELECT ts, detailed, power_kw, energy_kwh,
		reactive_power_kvar, apparent_power_kva, power_factor, current_avg,
		voltage_ll_avg, voltage_ln_avg, frequency, data_scalar
		FROM readings ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var ts int64
		if err := rows.Scan(&ts, &r.Detailed, &r.PowerKW, &r.EnergyKWh,
			&r.ReactivePowerKVAr, &r.ApparentPowerKVA, &r.PowerFactor, &r.CurrentAvg,
			&r.VoltageLLAvg, &r.VoltageLNAvg, &r.Frequency, &r.Scalar); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune removes readings older than the cutoff and reports how many went.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM readings WHERE ts < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}
