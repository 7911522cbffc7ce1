package storage

import (
	"context"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// SnapshotStorage keeps the latest good snapshot so a restarted service can
// classify changes on its first cycle.
type SnapshotStorage interface {
	// SaveSnapshot replaces the stored snapshot. Stale snapshots are ignored.
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error

	// LoadLatest returns the stored snapshot, or nil if there is none.
	LoadLatest(ctx context.Context) (*models.Snapshot, error)

	Close() error
}

// SnapshotPublisher pushes every published snapshot to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *models.Snapshot) error
	Close() error
}
