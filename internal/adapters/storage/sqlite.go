package storage

// sqlite.go: histórico de scans sin ruido.
//
// Estrategia:
//   - `scans`: resumen ligero por scan (pares, señales, oportunidades, fallos). Siempre 1 fila.
//   - `pair_results`: UNA fila por par (UPSERT) con first_seen, last_seen y peak_margin.
//   - `failures`: un registro por par fallido, con la fase y el motivo.
//   - Cache en memoria: evita reescribir un par si su estado no cambió y
//     last_seen es reciente.
//   - Prune automático al arrancar: scans > 30d, pares no vistos en 14d, fallos > 7d.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

const schema = `
-- Resumen ligero por scan
CREATE TABLE IF NOT EXISTS scans (
    id            TEXT PRIMARY KEY,
    started_at    DATETIME NOT NULL,
    finished_at   DATETIME NOT NULL,
    pairs         INTEGER  NOT NULL DEFAULT 0,
    signals       INTEGER  NOT NULL DEFAULT 0,
    opportunities INTEGER  NOT NULL DEFAULT 0,
    failures      INTEGER  NOT NULL DEFAULT 0,
    best_margin   REAL     NOT NULL DEFAULT 0
);

-- Una fila por par evaluado, sin duplicados
CREATE TABLE IF NOT EXISTS pair_results (
    market_pair_id    TEXT PRIMARY KEY,
    total_probability REAL    NOT NULL,
    margin            REAL    NOT NULL DEFAULT 0,
    opportunity       INTEGER NOT NULL DEFAULT 0,
    matched           INTEGER NOT NULL DEFAULT 0,
    unmatched         INTEGER NOT NULL DEFAULT 0,
    unmatched_mass    REAL    NOT NULL DEFAULT 0,
    first_seen        DATETIME NOT NULL,
    last_seen         DATETIME NOT NULL,
    peak_margin       REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS failures (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id        TEXT     NOT NULL,
    market_pair_id TEXT     NOT NULL,
    stage          TEXT     NOT NULL,
    reason         TEXT     NOT NULL,
    failed_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_at     ON scans(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_pairs_last   ON pair_results(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_pairs_peak   ON pair_results(peak_margin DESC);
CREATE INDEX IF NOT EXISTS idx_failures_at  ON failures(failed_at DESC);
`

// timeLayout tiene ancho fijo para que las comparaciones de texto en SQL respeten el orden temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	retentionScans    = 30 * 24 * time.Hour
	retentionPairs    = 14 * 24 * time.Hour
	retentionFailures = 7 * 24 * time.Hour
	totalChangeEps    = 1e-4             // cambio mínimo en total para reescribir
	lastSeenRefresh   = 10 * time.Minute // reescribir igualmente pasado este tiempo
)

// cachedState es el snapshot del último estado guardado de un par.
type cachedState struct {
	total       float64
	opportunity bool
	matched     int
	unmatched   int
	writtenAt   time.Time
}

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[string]cachedState // market_pair_id → estado guardado
	mu    sync.Mutex
	now   func() time.Time
}

var _ ports.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[string]cachedState),
		now:   time.Now,
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// SaveScan persiste el resumen del scan, los fallos y hace upsert de los pares
// que cambiaron respecto al scan anterior.
func (s *SQLiteStorage) SaveScan(ctx context.Context, report domain.ScanReport) error {
	now := s.now().UTC()
	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	started, finished := report.StartedAt, report.FinishedAt
	if started.IsZero() {
		started = now
	}
	if finished.IsZero() {
		finished = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: begin tx: %w", err)
	}
	defer tx.Rollback()

	// 1. Resumen del scan
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (id, started_at, finished_at, pairs, signals, opportunities, failures, best_margin)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, formatTime(started), formatTime(finished),
		len(report.Results)+len(report.Failures), len(report.Signals),
		len(report.Opportunities()), len(report.Failures), bestMargin(report),
	); err != nil {
		return fmt.Errorf("storage.SaveScan: insert scan: %w", err)
	}

	// 2. Fallos por par
	for _, f := range report.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (scan_id, market_pair_id, stage, reason, failed_at) VALUES (?, ?, ?, ?, ?)`,
			id, f.MarketPairID, string(f.Stage), f.Reason(), formatTime(finished),
		); err != nil {
			return fmt.Errorf("storage.SaveScan: insert failure %s: %w", f.MarketPairID, err)
		}
	}

	// 3. Upsert de los pares que cambiaron
	toWrite := s.filterChanged(report, now)
	if len(toWrite) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pair_results
				(market_pair_id, total_probability, margin, opportunity, matched, unmatched,
				 unmatched_mass, first_seen, last_seen, peak_margin)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(market_pair_id) DO UPDATE SET
				total_probability = excluded.total_probability,
				margin            = excluded.margin,
				opportunity       = excluded.opportunity,
				matched           = excluded.matched,
				unmatched         = excluded.unmatched,
				unmatched_mass    = excluded.unmatched_mass,
				last_seen         = excluded.last_seen,
				peak_margin       = MAX(peak_margin, excluded.margin)
		`)
		if err != nil {
			return fmt.Errorf("storage.SaveScan: prepare: %w", err)
		}
		defer stmt.Close()

		for _, r := range toWrite {
			margin := math.Max(0, 1-r.TotalProbability)
			opp := 0
			if r.TotalProbability < 1 {
				opp = 1
			}
			if _, err := stmt.ExecContext(ctx,
				r.MarketPairID,
				r.TotalProbability,
				margin,
				opp,
				len(r.MatchedPairs),
				len(r.Unmatched),
				r.UnmatchedMass,
				formatTime(now), // first_seen: ignorado en ON CONFLICT
				formatTime(now),
				margin,
			); err != nil {
				return fmt.Errorf("storage.SaveScan: upsert %s: %w", r.MarketPairID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScan: commit: %w", err)
	}
	s.remember(toWrite, now)
	return nil
}

// GetHistory devuelve los pares cuyo last_seen está en el rango dado,
// ordenados por peak_margin desc.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.PairRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_pair_id, total_probability, margin, opportunity, matched, unmatched,
		       peak_margin, first_seen, last_seen
		FROM pair_results
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY peak_margin DESC, market_pair_id
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var records []domain.PairRecord
	for rows.Next() {
		var rec domain.PairRecord
		var firstSeen, lastSeen string
		var opp int

		if err := rows.Scan(
			&rec.MarketPairID,
			&rec.TotalProbability,
			&rec.Margin,
			&opp,
			&rec.Matched,
			&rec.Unmatched,
			&rec.PeakMargin,
			&firstSeen,
			&lastSeen,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		rec.Opportunity = opp == 1
		rec.FirstSeen, _ = time.Parse(timeLayout, firstSeen)
		rec.LastSeen, _ = time.Parse(timeLayout, lastSeen)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ScanCount devuelve cuántos scans hay registrados.
func (s *SQLiteStorage) ScanCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.ScanCount: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve los resultados cuyo estado difiere del guardado, o
// cuyo last_seen quedó viejo.
func (s *SQLiteStorage) filterChanged(report domain.ScanReport, now time.Time) []domain.MarketPairResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toWrite []domain.MarketPairResult
	for _, r := range report.Results {
		if prev, ok := s.cache[r.MarketPairID]; ok {
			unchanged := prev.opportunity == (r.TotalProbability < 1) &&
				prev.matched == len(r.MatchedPairs) &&
				prev.unmatched == len(r.Unmatched) &&
				math.Abs(prev.total-r.TotalProbability) < totalChangeEps &&
				now.Sub(prev.writtenAt) < lastSeenRefresh
			if unchanged {
				continue
			}
		}
		toWrite = append(toWrite, r)
	}
	return toWrite
}

// remember actualiza la caché solo tras un commit correcto.
func (s *SQLiteStorage) remember(written []domain.MarketPairResult, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range written {
		s.cache[r.MarketPairID] = cachedState{
			total:       r.TotalProbability,
			opportunity: r.TotalProbability < 1,
			matched:     len(r.MatchedPairs),
			unmatched:   len(r.Unmatched),
			writtenAt:   now,
		}
	}
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := s.now().UTC()
	s.db.ExecContext(ctx, `DELETE FROM scans WHERE started_at < ?`, formatTime(now.Add(-retentionScans)))
	s.db.ExecContext(ctx, `DELETE FROM pair_results WHERE last_seen < ?`, formatTime(now.Add(-retentionPairs)))
	s.db.ExecContext(ctx, `DELETE FROM failures WHERE failed_at < ?`, formatTime(now.Add(-retentionFailures)))
}

// warmCache precarga la caché desde la DB al arrancar, evitando escrituras
// redundantes en el primer scan tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market_pair_id, total_probability, opportunity, matched, unmatched, last_seen FROM pair_results`,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var id, lastSeen string
		var total float64
		var opp, matched, unmatched int
		if rows.Scan(&id, &total, &opp, &matched, &unmatched, &lastSeen) == nil {
			at, _ := time.Parse(timeLayout, lastSeen)
			s.cache[id] = cachedState{
				total:       total,
				opportunity: opp == 1,
				matched:     matched,
				unmatched:   unmatched,
				writtenAt:   at,
			}
		}
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// bestMargin devuelve el mayor margen entre las señales con oportunidad.
func bestMargin(report domain.ScanReport) float64 {
	best := 0.0
	for _, sig := range report.Opportunities() {
		best = math.Max(best, sig.Margin)
	}
	return best
}
