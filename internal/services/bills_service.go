// Package services orchestrates bill operations across storage, the
// obligation engine and the change-event bus.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
)

// BillsService is the engine's caller. Every snapshot re-loads the
// collections from the repository: the engine offers no consistency
// across calls, so no loaded state is ever reused after a mutation.
type BillsService struct {
	repo      Repository
	publisher ChangePublisher
}

func NewBillsService(repo Repository, publisher ChangePublisher) *BillsService {
	return &BillsService{
		repo:      repo,
		publisher: publisher,
	}
}

// Snapshot materializes the obligations falling in [windowStart,
// windowEnd] with payment state as of today.
func (s *BillsService) Snapshot(ctx context.Context, windowStart, windowEnd, today core.Date) (core.Snapshot, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load entries: %w", err)
	}
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load rules: %w", err)
	}
	overrides, err := s.repo.ListOverrides(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load overrides: %w", err)
	}

	in := core.SnapshotInput{Entries: entries, Rules: rules, Overrides: overrides}
	snap, err := core.ComputeSnapshot(in, windowStart, windowEnd, today)
	if err != nil {
		return core.Snapshot{}, err
	}

	slog.DebugContext(ctx, "Snapshot computed",
		"window_start", windowStart.String(),
		"window_end", windowEnd.String(),
		"row_count", len(snap.Rows))
	return snap, nil
}

// WeekAhead is the dashboard's "this week" view: the seven days
// starting at today.
func (s *BillsService) WeekAhead(ctx context.Context, today core.Date) (core.Snapshot, error) {
	return s.Snapshot(ctx, today, today.AddDays(6), today)
}

// ListEntries returns every one-time entry, unfiltered.
func (s *BillsService) ListEntries(ctx context.Context) ([]core.OneTimeEntry, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return entries, nil
}

// ListRules returns every recurring rule.
func (s *BillsService) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rules, nil
}

// UpsertEntry validates and stores a one-time entry and returns its id.
func (s *BillsService) UpsertEntry(ctx context.Context, e core.OneTimeEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate entry: %w", err)
	}
	id, err := s.repo.UpsertEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("upsert entry: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeEntry, amqp.ActionUpsert).WithEntry(id))
	return id, nil
}

// DeleteEntry removes a one-time entry.
func (s *BillsService) DeleteEntry(ctx context.Context, id int64) error {
	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeEntry, amqp.ActionDelete).WithEntry(id))
	return nil
}

// MarkEntryPaid records the payment of a one-time entry.
func (s *BillsService) MarkEntryPaid(ctx context.Context, id int64, paidOn core.Date) error {
	if err := paidOn.Validate(); err != nil {
		return fmt.Errorf("paid_on: %w", err)
	}
	if err := s.repo.SetEntryPaid(ctx, id, paidOn); err != nil {
		return fmt.Errorf("mark entry paid: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeEntry, amqp.ActionPay).WithEntry(id))
	return nil
}

// PostponeEntry moves a one-time entry's due date. Unlike recurring
// occurrences, a one-time entry has no separate effective date; its due
// date simply moves.
func (s *BillsService) PostponeEntry(ctx context.Context, id int64, newDue core.Date) error {
	if err := newDue.Validate(); err != nil {
		return fmt.Errorf("new due date: %w", err)
	}
	if err := s.repo.SetEntryDueDate(ctx, id, newDue); err != nil {
		return fmt.Errorf("postpone entry: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeEntry, amqp.ActionPostpone).WithEntry(id))
	return nil
}

// UpsertRule validates and stores a recurring rule and returns its id.
// Validation is strict: a malformed dom/dow is rejected here rather
// than clamped later.
func (s *BillsService) UpsertRule(ctx context.Context, r core.RecurringRule) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("validate rule: %w", err)
	}
	id, err := s.repo.UpsertRule(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("upsert rule: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeRule, amqp.ActionUpsert).WithRule(id))
	return id, nil
}

// DeleteRule removes a recurring rule. Its overrides become orphans,
// which is legal and leaves the next snapshot unaffected by them.
func (s *BillsService) DeleteRule(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeRule, amqp.ActionDelete).WithRule(id))
	return nil
}

// MarkOccurrencePaid records payment of one recurring occurrence,
// creating its override lazily on first touch. An earlier postponement
// on the same occurrence is preserved.
func (s *BillsService) MarkOccurrencePaid(ctx context.Context, ruleID int64, occurrenceDate, paidOn core.Date) error {
	if err := paidOn.Validate(); err != nil {
		return fmt.Errorf("paid_on: %w", err)
	}
	ov, err := s.loadOrCreateOverride(ctx, ruleID, occurrenceDate)
	if err != nil {
		return err
	}
	ov.IsPaid = true
	ov.PaidOn = paidOn
	if err := s.repo.UpsertOverride(ctx, ov); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeOccurrence, amqp.ActionPay).
		WithOccurrence(ruleID, occurrenceDate.String()))
	return nil
}

// PostponeOccurrence moves the effective date of one recurring
// occurrence. The override stays keyed by the original occurrence date,
// so postponing twice updates the same record instead of forking it.
func (s *BillsService) PostponeOccurrence(ctx context.Context, ruleID int64, occurrenceDate, newEffective core.Date) error {
	if err := newEffective.Validate(); err != nil {
		return fmt.Errorf("effective date: %w", err)
	}
	ov, err := s.loadOrCreateOverride(ctx, ruleID, occurrenceDate)
	if err != nil {
		return err
	}
	ov.EffectiveDate = newEffective
	if err := s.repo.UpsertOverride(ctx, ov); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeOccurrence, amqp.ActionPostpone).
		WithOccurrence(ruleID, occurrenceDate.String()))
	return nil
}

// SkipOccurrence suppresses one recurring occurrence from every future
// snapshot.
func (s *BillsService) SkipOccurrence(ctx context.Context, ruleID int64, occurrenceDate core.Date) error {
	ov, err := s.loadOrCreateOverride(ctx, ruleID, occurrenceDate)
	if err != nil {
		return err
	}
	ov.Skipped = true
	if err := s.repo.UpsertOverride(ctx, ov); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ScopeOccurrence, amqp.ActionSkip).
		WithOccurrence(ruleID, occurrenceDate.String()))
	return nil
}

func (s *BillsService) loadOrCreateOverride(ctx context.Context, ruleID int64, occurrenceDate core.Date) (core.Override, error) {
	if err := occurrenceDate.Validate(); err != nil {
		return core.Override{}, fmt.Errorf("occurrence date: %w", err)
	}
	// The rule must still exist to mutate one of its occurrences;
	// existing orphan overrides are merely tolerated, not extended.
	if _, err := s.repo.GetRule(ctx, ruleID); err != nil {
		return core.Override{}, fmt.Errorf("rule %d: %w", ruleID, err)
	}

	key := core.OverrideKey{RuleID: ruleID, Date: occurrenceDate.String()}
	ov, err := s.repo.GetOverride(ctx, key)
	switch {
	case err == nil:
		return ov, nil
	case isNotFound(err):
		return core.Override{RuleID: ruleID, OccurrenceDate: occurrenceDate}, nil
	default:
		return core.Override{}, fmt.Errorf("get override: %w", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func (s *BillsService) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		// Mutations never fail because the broker is unavailable.
		slog.ErrorContext(ctx, "Failed to publish change message",
			"scope", msg.Scope,
			"action", msg.Action,
			"error", err)
	}
}
