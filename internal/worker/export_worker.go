package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
	"scadenze/internal/services"
	"scadenze/internal/sheets"
)

// ExportWorker mirrors computed snapshots to an external sheet whenever
// bills change. The sheet is a read-only view: losing an export never
// loses data, the next one rewrites the full window.
type ExportWorker struct {
	bills    *services.BillsService
	exporter sheets.SnapshotExporter
}

func NewExportWorker(bills *services.BillsService, exporter sheets.SnapshotExporter) *ExportWorker {
	return &ExportWorker{bills: bills, exporter: exporter}
}

// HandleChange processes a single change message from AMQP.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"scope", msg.Scope,
		"action", msg.Action,
		"entry_id", msg.EntryID,
		"rule_id", msg.RuleID,
		"occurrence_date", msg.OccurrenceDate)

	// Occurrence changes carry a date; export that month. Everything
	// else affects the current month view.
	ref := core.Today()
	if msg.OccurrenceDate != "" {
		d, err := core.ParseDate(msg.OccurrenceDate)
		if err != nil {
			return fmt.Errorf("parse occurrence date %q: %w", msg.OccurrenceDate, err)
		}
		ref = d
	}

	return w.ExportMonth(ctx, ref)
}

// ExportMonth recomputes and exports the calendar month containing ref.
func (w *ExportWorker) ExportMonth(ctx context.Context, ref core.Date) error {
	winStart, winEnd := MonthWindow(ref)

	snap, err := w.bills.Snapshot(ctx, winStart, winEnd, core.Today())
	if err != nil {
		return fmt.Errorf("compute snapshot %s..%s: %w", winStart, winEnd, err)
	}

	if err := w.exporter.ExportSnapshot(ctx, winStart, winEnd, snap); err != nil {
		return fmt.Errorf("export snapshot %s..%s: %w", winStart, winEnd, err)
	}

	slog.InfoContext(ctx, "Snapshot exported",
		"window_start", winStart.String(),
		"window_end", winEnd.String(),
		"rows", len(snap.Rows))

	return nil
}

// RunPeriodicExport re-exports the current month on every tick. This is
// the backup path for lost AMQP messages.
func (w *ExportWorker) RunPeriodicExport(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExportMonth(ctx, core.Today()); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

// MonthWindow returns the first and last day of the month containing d.
func MonthWindow(d core.Date) (core.Date, core.Date) {
	start := core.NewDate(d.Year(), d.Month(), 1)
	end := core.NewDate(d.Year(), d.Month()+1, 0)
	return start, end
}
