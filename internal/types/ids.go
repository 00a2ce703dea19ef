package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRecordID generates a UUIDv7 record identifier.
// Panics on clock regression (uuid.Must).
func NewRecordID() RecordID {
	return RecordID(uuid.Must(uuid.NewV7()).String())
}

// NewAlertID generates a UUIDv7 alert history identifier.
// Time-ordered IDs keep history inserts clustered in B-tree pages.
func NewAlertID() AlertID {
	return AlertID(uuid.Must(uuid.NewV7()).String())
}

// ParseRecordID validates and converts a string to RecordID.
func ParseRecordID(s string) (RecordID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RecordID(s), nil
}

// AlertIDTime extracts the timestamp embedded in a UUIDv7 alert ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func AlertIDTime(id AlertID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
