package models

import (
	"time"

	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/timezone"
)

// Field names a tracked attribute of an Event. The audit log itself and the
// system updated_at timestamp are deliberately not Fields, so they can never
// participate in diffing and no exclusion list has to be maintained.
type Field string

const (
	FieldTitle    Field = "title"
	FieldProfiles Field = "profiles"
	FieldTimezone Field = "timezone"
	FieldStart    Field = "start_date_time"
	FieldEnd      Field = "end_date_time"
)

// trackedFields fixes the order deltas are emitted in, independent of the
// order fields happen to be touched.
var trackedFields = []Field{FieldTitle, FieldProfiles, FieldTimezone, FieldStart, FieldEnd}

// fieldDefaults supplies values for tracked fields that may legitimately be
// absent from an older snapshot.
var fieldDefaults = map[Field]any{
	FieldTimezone: "UTC",
}

// FieldMap is a point-in-time view of an Event's tracked field values.
// Values are canonical: strings for title and timezone, UUID strings for the
// profile list, UTC instants for the temporal fields.
type FieldMap map[Field]any

// Diff compares two field maps and returns one delta per tracked field whose
// value differs, in tracked-field declaration order. Timestamps and actors
// are stamped by the caller at append time.
//
// A tracked field present in current but absent from previous with no
// declared default signals a snapshot bug and fails with an unknown_field
// error rather than being skipped.
func Diff(previous, current FieldMap) ([]ChangeEntry, error) {
	var deltas []ChangeEntry
	for _, field := range trackedFields {
		curr, inCurrent := current[field]
		if !inCurrent {
			continue
		}
		prev, inPrevious := previous[field]
		if !inPrevious {
			def, hasDefault := fieldDefaults[field]
			if !hasDefault {
				return nil, dErrors.New(dErrors.CodeUnknownField,
					"snapshot is missing tracked field "+string(field))
			}
			prev = def
		}
		if fieldEqual(field, prev, curr) {
			continue
		}
		deltas = append(deltas, ChangeEntry{
			Field:    field,
			Previous: canonicalValue(prev),
			New:      canonicalValue(curr),
		})
	}
	return deltas, nil
}

// fieldEqual applies each field's defined equality: structural for scalars
// and instants, set equality for the profile reference list so serialization
// reordering never registers as a change.
func fieldEqual(field Field, a, b any) bool {
	switch field {
	case FieldProfiles:
		return sameMembers(asStringSlice(a), asStringSlice(b))
	case FieldStart, FieldEnd:
		at, aok := a.(time.Time)
		bt, bok := b.(time.Time)
		return aok && bok && at.Equal(bt)
	default:
		return a == b
	}
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func asStringSlice(v any) []string {
	s, _ := v.([]string)
	return s
}

// canonicalValue renders a field value in its storage-stable form. Instants
// become reference-zone strings so log rows never depend on a display zone.
func canonicalValue(v any) any {
	switch typed := v.(type) {
	case time.Time:
		return typed.In(timezone.Reference).Format(timezone.DisplayLayout)
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}
