package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"StockPulse/internal/model"
)

// SQLiteRecorder persists snapshot history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			source           TEXT,
			is_synthetic     INTEGER,
			estimated        INTEGER,
			current_price    REAL,
			previous_close   REAL,
			price_change_pct REAL,
			high_52w         REAL,
			low_52w          REAL,
			volume           INTEGER,
			avg_volume       INTEGER,
			pe_ratio         REAL,
			market_cap       TEXT,
			sma_20           REAL,
			sma_50           REAL,
			sma_200          REAL,
			rsi              REAL,
			macd             REAL,
			bollinger_upper  REAL,
			bollinger_lower  REAL,
			signals          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_ts ON snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS provider_attempts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
			seq         INTEGER NOT NULL,
			provider    TEXT,
			outcome     TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_snapshot ON provider_attempts(snapshot_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	signals, err := json.Marshal(snap.TechnicalAnalysis.Signals)
	if err != nil {
		return fmt.Errorf("encode signals: %w", err)
	}
	var pe sql.NullFloat64
	if snap.PERatio.Valid {
		pe = sql.NullFloat64{Float64: snap.PERatio.Value, Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ta := snap.TechnicalAnalysis
	res, err := tx.Exec(`INSERT INTO snapshots
		(timestamp, symbol, source, is_synthetic, estimated,
		 current_price, previous_close, price_change_pct, high_52w, low_52w,
		 volume, avg_volume, pe_ratio, market_cap,
		 sma_20, sma_50, sma_200, rsi, macd, bollinger_upper, bollinger_lower, signals)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.Symbol, snap.Provenance.Source,
		boolInt(snap.IsSynthetic), boolInt(snap.Provenance.EstimatedHistory),
		snap.CurrentPrice, snap.PreviousClose, snap.PriceChangePct, snap.High52w, snap.Low52w,
		snap.Volume, snap.AvgVolume, pe, snap.MarketCap,
		ta.SMA20, ta.SMA50, ta.SMA200, ta.RSI, ta.MACD, ta.BollingerUpper, ta.BollingerLower,
		string(signals),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	for i, a := range snap.Provenance.Attempts {
		if _, err := tx.Exec(`INSERT INTO provider_attempts
			(snapshot_id, seq, provider, outcome, error) VALUES (?,?,?,?,?)`,
			id, i, a.Provider, a.Category, a.Error,
		); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentSnapshots(symbol string, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, source, is_synthetic, estimated,
			current_price, price_change_pct, volume, market_cap,
			sma_20, sma_50, sma_200, rsi, macd, bollinger_upper, bollinger_lower, signals
		FROM snapshots WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var (
			rec                  SnapshotRecord
			ts                   int64
			synthetic, estimated int
			signals              string
		)
		ta := &rec.Indicators
		if err := rows.Scan(&rec.ID, &ts, &rec.Symbol, &rec.Source, &synthetic, &estimated,
			&rec.CurrentPrice, &rec.PriceChangePct, &rec.Volume, &rec.MarketCap,
			&ta.SMA20, &ta.SMA50, &ta.SMA200, &ta.RSI, &ta.MACD, &ta.BollingerUpper, &ta.BollingerLower,
			&signals); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.RecordedAt = time.Unix(ts, 0)
		rec.Synthetic = synthetic == 1
		rec.Estimated = estimated == 1
		if err := json.Unmarshal([]byte(signals), &ta.Signals); err != nil {
			return nil, fmt.Errorf("decode signals: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		attempts, err := r.attempts(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Attempts = attempts
	}
	return out, nil
}

func (r *SQLiteRecorder) attempts(snapshotID int64) ([]model.Attempt, error) {
	rows, err := r.db.Query(`SELECT provider, outcome, error FROM provider_attempts
		WHERE snapshot_id = ? ORDER BY seq`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.Provider, &a.Category, &a.Error); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
