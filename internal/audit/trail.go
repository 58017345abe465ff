package audit

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValueKind tags the legal diff value types. Diff values form a closed
// union so that audit serialization stays well-defined.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
)

// FieldValue is a tagged union of the values a field-level diff can carry:
// string, number, boolean or null.
type FieldValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// Null returns the null field value
func Null() FieldValue { return FieldValue{Kind: ValueNull} }

// String wraps a string diff value
func String(s string) FieldValue { return FieldValue{Kind: ValueString, Str: s} }

// Number wraps a numeric diff value
func Number(n float64) FieldValue { return FieldValue{Kind: ValueNumber, Num: n} }

// Bool wraps a boolean diff value
func Bool(b bool) FieldValue { return FieldValue{Kind: ValueBool, Bool: b} }

// Equal reports whether two field values hold the same kind and payload
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueNumber:
		return v.Num == o.Num
	case ValueBool:
		return v.Bool == o.Bool
	default:
		return true
	}
}

// MarshalJSON serializes the union as the bare JSON scalar
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON restores the union from a JSON scalar
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*v = Null()
		return nil
	}
	if s == "true" || s == "false" {
		*v = Bool(s == "true")
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = String(str)
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

// FieldChange records one field-level difference within an audit entry
type FieldChange struct {
	Field    string     `json:"field"`
	OldValue FieldValue `json:"old_value"`
	NewValue FieldValue `json:"new_value"`
}

// Entry is one immutable audit trail record
type Entry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	UserID     string        `json:"user_id"`
	UserName   string        `json:"user_name"`
	UserRole   string        `json:"user_role"`
	Action     string        `json:"action"`
	TargetID   string        `json:"target_id"`
	TargetName string        `json:"target_name"`
	Changes    []FieldChange `json:"changes"`
}

// NewEntry builds an audit entry with a fresh identity
func NewEntry(ts time.Time, userID, userName, userRole, action, targetID, targetName string, changes []FieldChange) *Entry {
	return &Entry{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		UserID:     userID,
		UserName:   userName,
		UserRole:   userRole,
		Action:     action,
		TargetID:   targetID,
		TargetName: targetName,
		Changes:    changes,
	}
}

// Trail is the append-only, newest-first audit log. Entries are prepended
// in real-time insertion order; no reordering or coalescing happens after
// the fact.
type Trail struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	entries []*Entry
}

// NewTrail creates an empty audit trail
func NewTrail(logger *zap.Logger) *Trail {
	return &Trail{
		logger:  logger,
		entries: make([]*Entry, 0),
	}
}

// Record prepends an entry to the trail
func (t *Trail) Record(entry *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append([]*Entry{entry}, t.entries...)

	t.logger.Info("Audit entry recorded",
		zap.String("entry_id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("target_id", entry.TargetID),
		zap.Int("changes", len(entry.Changes)),
	)
}

// Filter narrows an audit trail query
type Filter struct {
	UserID   string     `json:"user_id,omitempty"`
	Action   string     `json:"action,omitempty"`
	TargetID string     `json:"target_id,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// Entries returns matching entries newest-first
func (t *Trail) Entries(filter Filter) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matched := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if t.matches(e, filter) {
			matched = append(matched, e)
		}
	}

	if filter.Limit > 0 {
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		if filter.Offset < len(matched) {
			matched = matched[filter.Offset:end]
		} else {
			matched = []*Entry{}
		}
	}

	return matched
}

// Len returns the number of recorded entries
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Trail) matches(e *Entry, filter Filter) bool {
	if filter.UserID != "" && e.UserID != filter.UserID {
		return false
	}
	if filter.Action != "" && e.Action != filter.Action {
		return false
	}
	if filter.TargetID != "" && e.TargetID != filter.TargetID {
		return false
	}
	if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && e.Timestamp.After(*filter.Until) {
		return false
	}
	return true
}

// Statistics summarizes audit trail activity
type Statistics struct {
	TotalEntries int            `json:"total_entries"`
	ActionCounts map[string]int `json:"action_counts"`
	UserCounts   map[string]int `json:"user_counts"`
	RoleCounts   map[string]int `json:"role_counts"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Stats aggregates counts across the whole trail
func (t *Trail) Stats() *Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := &Statistics{
		ActionCounts: make(map[string]int),
		UserCounts:   make(map[string]int),
		RoleCounts:   make(map[string]int),
		GeneratedAt:  time.Now(),
	}

	for _, e := range t.entries {
		stats.TotalEntries++
		stats.ActionCounts[e.Action]++
		stats.UserCounts[e.UserName]++
		stats.RoleCounts[e.UserRole]++
	}

	return stats
}
