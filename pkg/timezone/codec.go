// Package timezone converts between the fixed reference zone instants kept in
// storage and caller-chosen display zones. All stored instants are UTC so they
// stay directly comparable no matter which zone produced them; display zones
// exist only at the presentation boundary.
package timezone

import (
	"time"

	dErrors "eventtrail/pkg/domain-errors"
)

// DisplayLayout is the wire format for zone-local timestamps, matching what
// clients send and receive (ISO 8601 with numeric offset).
const DisplayLayout = time.RFC3339

// wallClockLayout accepts a local timestamp without an offset; the source zone
// parameter supplies the offset.
const wallClockLayout = "2006-01-02T15:04:05"

// Reference is the zone every instant is stored in.
var Reference = time.UTC

// Resolve validates a zone identifier against the IANA database.
func Resolve(zone string) (*time.Location, error) {
	if zone == "" {
		return nil, dErrors.New(dErrors.CodeInvalidZone, "timezone identifier is required")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidZone, "unknown timezone "+zone)
	}
	return loc, nil
}

// ToDisplay converts a stored reference-zone instant into a zone-local
// representation. Pure; the input instant is never modified.
func ToDisplay(instant time.Time, zone string) (string, error) {
	loc, err := Resolve(zone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(DisplayLayout), nil
}

// ToStorage parses a zone-local timestamp into a reference-zone instant.
// Accepts ISO 8601 with an explicit offset, or a bare wall-clock value which
// is interpreted in the given source zone.
func ToStorage(local string, zone string) (time.Time, error) {
	loc, err := Resolve(zone)
	if err != nil {
		return time.Time{}, err
	}
	if t, perr := time.Parse(DisplayLayout, local); perr == nil {
		return t.In(Reference), nil
	}
	t, perr := time.ParseInLocation(wallClockLayout, local, loc)
	if perr != nil {
		return time.Time{}, dErrors.Wrap(perr, dErrors.CodeInvalidTimestamp, "unparsable timestamp "+local)
	}
	return t.In(Reference), nil
}
