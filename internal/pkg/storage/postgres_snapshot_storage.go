package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// Ensure PostgresSnapshotStorage implements SnapshotStorage
var _ SnapshotStorage = (*PostgresSnapshotStorage)(nil)

// PostgresSnapshotStorage stores the latest snapshot, one row per cell.
// Each save replaces the previous rows; no history is kept.
type PostgresSnapshotStorage struct {
	db *sql.DB
}

// NewPostgresSnapshotStorage creates a new PostgreSQL storage for the latest snapshot.
func NewPostgresSnapshotStorage(cfg *config.PostgresConfig) (*PostgresSnapshotStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresSnapshotStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL snapshot storage initialized successfully")
	return s, nil
}

func (s *PostgresSnapshotStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS snapshot_meta (
		id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		cycle BIGINT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		reference VARCHAR(100) NOT NULL,
		sources TEXT[] NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS snapshot_cells (
		event_pos INTEGER NOT NULL,
		team1 VARCHAR(200) NOT NULL,
		team2 VARCHAR(200) NOT NULL,
		slot SMALLINT NOT NULL,
		source_pos INTEGER NOT NULL,
		source VARCHAR(100) NOT NULL,
		price INTEGER,
		best VARCHAR(32) NOT NULL DEFAULT '',
		change VARCHAR(32) NOT NULL DEFAULT '',
		PRIMARY KEY (team1, team2, slot, source)
	);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// cellRow is one stored cell.
type cellRow struct {
	EventPos  int
	Team1     string
	Team2     string
	Slot      int
	SourcePos int
	Source    string
	Price     sql.NullInt64
	Best      string
	Change    string
}

// SaveSnapshot replaces the stored snapshot in one transaction.
func (s *PostgresSnapshotStorage) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil || snap.Stale {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_cells`); err != nil {
		return fmt.Errorf("failed to clear snapshot cells: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("snapshot_cells",
		"event_pos", "team1", "team2", "slot", "source_pos", "source", "price", "best", "change"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, r := range flattenSnapshot(snap) {
		if _, err := stmt.ExecContext(ctx, r.EventPos, r.Team1, r.Team2, r.Slot, r.SourcePos, r.Source, r.Price, r.Best, r.Change); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy cell: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	query := `
	INSERT INTO snapshot_meta (id, cycle, generated_at, reference, sources, updated_at)
	VALUES (1, $1, $2, $3, $4, NOW())
	ON CONFLICT (id) DO UPDATE SET
		cycle = EXCLUDED.cycle,
		generated_at = EXCLUDED.generated_at,
		reference = EXCLUDED.reference,
		sources = EXCLUDED.sources,
		updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, snap.Cycle, snap.GeneratedAt, snap.Reference, pq.Array(snap.Sources)); err != nil {
		return fmt.Errorf("failed to upsert snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the stored snapshot, or nil if nothing was saved yet.
func (s *PostgresSnapshotStorage) LoadLatest(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	var sources []string
	err := s.db.QueryRowContext(ctx,
		`SELECT cycle, generated_at, reference, sources FROM snapshot_meta WHERE id = 1`,
	).Scan(&snap.Cycle, &snap.GeneratedAt, &snap.Reference, pq.Array(&sources))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot meta: %w", err)
	}
	snap.Sources = sources

	rows, err := s.db.QueryContext(ctx, `
	SELECT event_pos, team1, team2, slot, source_pos, source, price, best, change
	FROM snapshot_cells
	ORDER BY event_pos, slot, source_pos
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot cells: %w", err)
	}
	defer rows.Close()

	var cells []cellRow
	for rows.Next() {
		var r cellRow
		if err := rows.Scan(&r.EventPos, &r.Team1, &r.Team2, &r.Slot, &r.SourcePos, &r.Source, &r.Price, &r.Best, &r.Change); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot cell: %w", err)
		}
		cells = append(cells, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot cells: %w", err)
	}

	assembleSnapshot(snap, cells)
	return snap, nil
}

// Close closes the database connection.
func (s *PostgresSnapshotStorage) Close() error {
	return s.db.Close()
}

func flattenSnapshot(snap *models.Snapshot) []cellRow {
	out := make([]cellRow, 0, len(snap.Events)*2*len(snap.Sources))
	for ei, ev := range snap.Events {
		for slot, row := range ev.Rows {
			for ci, c := range row.Cells {
				r := cellRow{
					EventPos:  ei,
					Team1:     ev.Team1,
					Team2:     ev.Team2,
					Slot:      slot,
					SourcePos: ci,
					Source:    c.Source,
					Best:      string(c.Best),
					Change:    string(c.Change),
				}
				if v, ok := c.Price.Value(); ok {
					r.Price = sql.NullInt64{Int64: int64(v), Valid: true}
				}
				out = append(out, r)
			}
		}
	}
	return out
}

// assembleSnapshot rebuilds events from stored cells in event/slot/source order.
func assembleSnapshot(snap *models.Snapshot, cells []cellRow) {
	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.EventPos != b.EventPos {
			return a.EventPos < b.EventPos
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.SourcePos < b.SourcePos
	})

	snap.Events = nil
	pos := -1
	for _, r := range cells {
		if r.Slot < 0 || r.Slot > 1 {
			continue
		}
		if len(snap.Events) == 0 || r.EventPos != pos {
			pos = r.EventPos
			snap.Events = append(snap.Events, models.Event{
				Key:   models.EventKey(r.Team1, r.Team2),
				Team1: r.Team1,
				Team2: r.Team2,
				Rows: [2]models.Row{
					{Team: r.Team1},
					{Team: r.Team2},
				},
			})
		}
		ev := &snap.Events[len(snap.Events)-1]
		price := odds.Absent
		if r.Price.Valid {
			price = odds.American(int(r.Price.Int64))
		}
		ev.Rows[r.Slot].Cells = append(ev.Rows[r.Slot].Cells, models.Cell{
			Source: r.Source,
			Price:  price,
			Best:   models.BestLabel(r.Best),
			Change: models.ChangeLabel(r.Change),
		})
	}
}
