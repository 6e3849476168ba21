package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chitieu/internal/core"
)

type ChangeKind string

type ChangeOp string

const (
	KindTransaction ChangeKind = "transaction"
	KindBudget      ChangeKind = "budget"
	KindCategory    ChangeKind = "category"

	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// LedgerChangedMessage announces a write to a user's ledger. It carries no
// data; consumers reload what they need. Month is empty for category
// changes, which affect every month.
type LedgerChangedMessage struct {
	UserID    string     `json:"userId"`
	Month     string     `json:"month,omitempty"`
	Kind      ChangeKind `json:"kind"`
	Op        ChangeOp   `json:"op"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message stamped with the current time.
func NewLedgerChangedMessage(userID string, month core.MonthKey, kind ChangeKind, op ChangeOp) *LedgerChangedMessage {
	msg := &LedgerChangedMessage{
		UserID:    userID,
		Kind:      kind,
		Op:        op,
		Timestamp: time.Now(),
	}
	if !month.IsZero() {
		msg.Month = month.String()
	}
	return msg
}

// MonthKey parses Month. ok is false when the message has no month.
func (m *LedgerChangedMessage) MonthKey() (core.MonthKey, bool, error) {
	if m.Month == "" {
		return core.MonthKey{}, false, nil
	}
	k, err := core.ParseMonthKey(m.Month)
	if err != nil {
		return core.MonthKey{}, false, err
	}
	return k, true, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and checks a message.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("message without userId")
	}
	switch msg.Kind {
	case KindTransaction, KindBudget, KindCategory:
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	if _, _, err := msg.MonthKey(); err != nil {
		return nil, err
	}
	return &msg, nil
}
