package entity

import "time"

type Account struct {
	ID              int64
	PhoneNumber     string
	Email           string
	FullName        string
	Role            string
	IsActive        bool
	PhoneVerifiedAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
}

// PhoneVerification is the account state right after its phone was marked
// verified. FirstTime is false when the phone had been verified before.
type PhoneVerification struct {
	AccountID int64
	Email     string
	FullName  string
	FirstTime bool
}
