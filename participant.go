package spinwheel

import (
	"strings"
	"time"
)

// ContactDetails carries the lead fields that are stored but never used for identity
type ContactDetails struct {
	Phone            string `json:"phone,omitempty"`
	PhoneCountry     string `json:"phone_country,omitempty"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// Participant is a registered visitor, identified by a normalized contact key.
// It is never mutated after creation.
type Participant struct {
	ID           string         `json:"id"`
	ContactKey   string         `json:"contact_key"`
	DisplayName  string         `json:"display_name"`
	Contact      ContactDetails `json:"contact"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Validate validates the participant record
func (p *Participant) Validate() error {
	if p.ID == "" {
		return ErrParticipantNotFound.WithDetails("participant ID cannot be empty")
	}
	if p.ContactKey == "" {
		return ErrInvalidContactKey
	}
	return nil
}

// SpinOutcome is the single, immutable reward record of a participant.
type SpinOutcome struct {
	ParticipantID string    `json:"participant_id"`
	RewardName    string    `json:"reward_name"`
	RewardWeight  float64   `json:"reward_weight"` // weight in effect at award time
	AwardedAt     time.Time `json:"awarded_at"`
}

// Validate validates the outcome record
func (o *SpinOutcome) Validate() error {
	if o.ParticipantID == "" {
		return ErrParticipantNotFound.WithDetails("participant ID cannot be empty")
	}
	if strings.TrimSpace(o.RewardName) == "" {
		return ErrInvalidRewardName
	}
	return nil
}

// Registration is the result of Ledger.RegisterOrResume.
type Registration struct {
	IsNewParticipant bool
	Participant      *Participant
	ExistingOutcome  *SpinOutcome // set when the participant has already played
}

// ParticipantID returns the registered participant's ID.
func (r *Registration) ParticipantID() string {
	if r == nil || r.Participant == nil {
		return ""
	}
	return r.Participant.ID
}

// AlreadyPlayed reports whether an outcome exists for the participant.
func (r *Registration) AlreadyPlayed() bool { return r != nil && r.ExistingOutcome != nil }

// NormalizeContactKey trims and lower-cases a work email into a contact key.
func NormalizeContactKey(email string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return "", ErrInvalidContactKey
	}
	return key, nil
}
