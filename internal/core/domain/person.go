package domain

import (
	"fmt"
	"strings"
)

// PersonID references either a registered user or an unclaimed participant,
// never both. The display name is resolved from whichever side is populated.
type PersonID struct {
	UserID        string `json:"userID,omitempty"`
	ParticipantID string `json:"participantID,omitempty"`
}

// UserPerson builds a PersonID for a registered user.
func UserPerson(userID string) PersonID {
	return PersonID{UserID: userID}
}

// ParticipantPerson builds a PersonID for an unclaimed participant.
func ParticipantPerson(participantID string) PersonID {
	return PersonID{ParticipantID: participantID}
}

// Valid reports whether exactly one side of the union is populated.
func (p PersonID) Valid() bool {
	return (p.UserID != "") != (p.ParticipantID != "")
}

// Equal reports whether two identifiers reference the same person.
func (p PersonID) Equal(other PersonID) bool {
	return p.UserID == other.UserID && p.ParticipantID == other.ParticipantID
}

// Key returns a stable string form usable as a map key or storage column.
func (p PersonID) Key() string {
	if p.UserID != "" {
		return "u:" + p.UserID
	}
	return "p:" + p.ParticipantID
}

// PersonFromKey parses the string form produced by Key.
func PersonFromKey(key string) (PersonID, error) {
	switch {
	case strings.HasPrefix(key, "u:"):
		return UserPerson(strings.TrimPrefix(key, "u:")), nil
	case strings.HasPrefix(key, "p:"):
		return ParticipantPerson(strings.TrimPrefix(key, "p:")), nil
	default:
		return PersonID{}, fmt.Errorf("malformed person key %q", key)
	}
}
