package memory

import (
	"context"
	"sync"

	"scadenze/internal/core"
)

// Export is one recorded ExportSnapshot call.
type Export struct {
	WinStart core.Date
	WinEnd   core.Date
	Snapshot core.Snapshot
}

// Exporter records exports in memory. Used in tests and when no
// spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	exports []Export
}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportSnapshot(_ context.Context, winStart, winEnd core.Date, snap core.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports = append(e.exports, Export{WinStart: winStart, WinEnd: winEnd, Snapshot: snap})
	return nil
}

// Exports returns a copy of all recorded exports.
func (e *Exporter) Exports() []Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Export(nil), e.exports...)
}
