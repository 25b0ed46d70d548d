package sheets

import (
	"context"

	"scadenze/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter writes a computed bill snapshot to an external sheet.
	// Exports replace the previous content for the same window; they are
	// best-effort mirrors and never the source of truth.
	SnapshotExporter interface {
		ExportSnapshot(ctx context.Context, winStart, winEnd core.Date, snap core.Snapshot) error
	}
)
