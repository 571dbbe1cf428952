package models

// Snapshot is the transient pre-mutation copy of an Event's tracked-field
// values, taken at load time and owned by the in-flight save operation. It is
// never persisted and never attached to the Event, so concurrent handles to
// the same logical record cannot share or leak snapshot state.
type Snapshot struct {
	fields FieldMap
}

// TakeSnapshot copies the event's current tracked-field values. The copy is
// deep for reference-typed values; later mutation of the event cannot reach
// back into the snapshot.
func TakeSnapshot(e *Event) Snapshot {
	fields := e.Fields()
	copied := make(FieldMap, len(fields))
	for field, value := range fields {
		if s, ok := value.([]string); ok {
			value = append([]string(nil), s...)
		}
		copied[field] = value
	}
	return Snapshot{fields: copied}
}

// Diff compares the snapshot against the event's value at save time and
// returns the resulting deltas in tracked-field declaration order.
func (s Snapshot) Diff(e *Event) ([]ChangeEntry, error) {
	return Diff(s.fields, e.Fields())
}
