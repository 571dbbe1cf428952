package models

import "time"

// ChangeEntry is one recorded field-level change. Immutable once appended:
// nothing in this package or its callers edits an entry after the fact.
type ChangeEntry struct {
	Field      Field     `json:"field"`
	Previous   any       `json:"previous_value"`
	New        any       `json:"new_value"`
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor"`
}

// ChangeLog is the append-only audit trail embedded in an Event. The entry
// slice is unexported so the only way to grow it is Append; there is no way
// to reorder or remove.
type ChangeLog struct {
	entries []ChangeEntry
}

// NewChangeLog rehydrates a log from stored entries, preserving their order.
func NewChangeLog(entries []ChangeEntry) ChangeLog {
	return ChangeLog{entries: append([]ChangeEntry(nil), entries...)}
}

// Append adds entries at the end of the log.
func (l *ChangeLog) Append(entries ...ChangeEntry) {
	l.entries = append(l.entries, entries...)
}

// Entries returns a copy of the log in append order.
func (l *ChangeLog) Entries() []ChangeEntry {
	return append([]ChangeEntry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *ChangeLog) Len() int {
	return len(l.entries)
}
