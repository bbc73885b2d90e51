package twofactor

import "time"

// Record is the persisted second-factor state of one account. Secret and
// backup codes are vault envelopes.
type Record struct {
	AccountID            string
	EncryptedSecret      string
	EncryptedBackupCodes string
	Enabled              bool
	LastUsedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
}

// Clone returns a copy that shares no pointers with r.
func (r Record) Clone() Record {
	if r.LastUsedAt != nil {
		t := *r.LastUsedAt
		r.LastUsedAt = &t
	}
	return r
}

// State is the lifecycle position of an account's second factor.
type State string

const (
	StateUnset   State = "unset"
	StatePending State = "pending"
	StateEnabled State = "enabled"
)

// State derives the lifecycle state of an existing record.
func (r Record) State() State {
	if r.Enabled {
		return StateEnabled
	}
	return StatePending
}
