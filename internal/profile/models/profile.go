package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/timezone"
)

// Profile is a person that events can reference. The timezone is the
// profile's preferred display zone; it never affects how instants are stored.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile validates and constructs a profile. An empty timezone defaults
// to the reference zone.
func NewProfile(profileID uuid.UUID, name, zone string, now time.Time) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "profile name is required")
	}
	if zone == "" {
		zone = "UTC"
	}
	if _, err := timezone.Resolve(zone); err != nil {
		return nil, err
	}
	return &Profile{
		ID:        profileID,
		Name:      name,
		Timezone:  zone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
