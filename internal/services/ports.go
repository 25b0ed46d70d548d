package services

import (
	"context"
	"errors"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the persistence port for the bills module. The engine
// in internal/core never sees it; the service loads collections through
// it and hands them to the engine already materialized.
type Repository interface {
	ListEntries(ctx context.Context) ([]core.OneTimeEntry, error)
	GetEntry(ctx context.Context, id int64) (core.OneTimeEntry, error)
	UpsertEntry(ctx context.Context, e core.OneTimeEntry) (int64, error)
	DeleteEntry(ctx context.Context, id int64) error
	SetEntryPaid(ctx context.Context, id int64, paidOn core.Date) error
	SetEntryDueDate(ctx context.Context, id int64, due core.Date) error

	ListRules(ctx context.Context) ([]core.RecurringRule, error)
	GetRule(ctx context.Context, id int64) (core.RecurringRule, error)
	UpsertRule(ctx context.Context, r core.RecurringRule) (int64, error)
	// DeleteRule removes the rule only. Its overrides stay behind as
	// orphans, which the engine treats as inert.
	DeleteRule(ctx context.Context, id int64) error

	ListOverrides(ctx context.Context) ([]core.Override, error)
	GetOverride(ctx context.Context, key core.OverrideKey) (core.Override, error)
	UpsertOverride(ctx context.Context, ov core.Override) error
}

// ChangePublisher notifies interested consumers that a bill collection
// changed. Publishing is best-effort; the service never fails a
// mutation because the broker is down.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}
