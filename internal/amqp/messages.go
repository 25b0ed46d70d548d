package amqp

import (
	"encoding/json"
	"time"
)

// Change scopes: which collection a mutation touched.
const (
	ScopeEntry      = "entry"
	ScopeRule       = "rule"
	ScopeOccurrence = "occurrence"
)

// Change actions.
const (
	ActionUpsert   = "upsert"
	ActionDelete   = "delete"
	ActionPay      = "pay"
	ActionPostpone = "postpone"
	ActionSkip     = "skip"
)

// ChangeMessage is a lightweight notification that a bill collection
// changed. Consumers re-load from the database; the message carries
// only enough to locate what moved.
type ChangeMessage struct {
	Scope          string    `json:"scope"`
	Action         string    `json:"action"`
	EntryID        int64     `json:"entry_id,omitempty"`
	RuleID         int64     `json:"rule_id,omitempty"`
	OccurrenceDate string    `json:"occurrence_date,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(scope, action string) *ChangeMessage {
	return &ChangeMessage{
		Scope:     scope,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithEntry attaches the affected entry id.
func (m *ChangeMessage) WithEntry(id int64) *ChangeMessage {
	m.EntryID = id
	return m
}

// WithRule attaches the affected rule id.
func (m *ChangeMessage) WithRule(id int64) *ChangeMessage {
	m.RuleID = id
	return m
}

// WithOccurrence attaches the affected rule id and original occurrence date.
func (m *ChangeMessage) WithOccurrence(ruleID int64, occurrenceDate string) *ChangeMessage {
	m.RuleID = ruleID
	m.OccurrenceDate = occurrenceDate
	return m
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
