package entity

import (
	"time"

	"github.com/shandysiswandi/bgvotp/internal/pkg/valueobject"
)

// Token is one issued code. CodeHash is never the plain code.
type Token struct {
	ID           int64
	PhoneNumber  string
	CodeHash     string
	Purpose      Purpose
	UserID       int64
	Email        string
	Status       TokenStatus
	AttemptCount int32
	MaxAttempts  int32
	ExpiresAt    time.Time
	VerifiedAt   *time.Time
	SupersededAt *time.Time
	Metadata     valueobject.JSONMap
	CreatedAt    time.Time
}

// IsExpired treats the instant expires_at itself as expired.
func (t Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t Token) IsExhausted() bool {
	return t.AttemptCount >= t.MaxAttempts
}

// IssueLimit caps how many codes a phone may be issued in a sliding window. The
// zero value means no limit.
type IssueLimit struct {
	Max    int
	Window time.Duration
}

func (l IssueLimit) Enabled() bool {
	return l.Max > 0 && l.Window > 0
}

// AttemptResult is the counter state after a failed attempt was recorded.
type AttemptResult struct {
	AttemptCount int32
	MaxAttempts  int32
}

func (a AttemptResult) Exhausted() bool {
	return a.AttemptCount >= a.MaxAttempts
}

type Account struct {
	ID              int64
	PhoneNumber     string
	Email           string
	FullName        string
	Role            string
	IsActive        bool
	PhoneVerifiedAt *time.Time
	LastLoginAt     *time.Time
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string // hashed
	ExpiresAt time.Time
}

// ---- //

type AccountRefreshToken struct {
	AccountID                int64
	AccountEmail             string
	AccountRole              string
	AccountIsActive          bool
	RefreshID                int64
	RefreshRevoked           bool
	RefreshReplacedByTokenID *int64
	RefreshExpiresAt         time.Time
}

type RotateRefreshToken struct {
	NewID        int64
	OldID        int64
	UserID       int64
	NewToken     string
	NewExpiresAt time.Time
}

type TokenListFilterData struct {
	IsFilterByPhone   bool
	IsFilterByPurpose bool
	IsFilterByStatus  bool
	PhoneNumber       string
	Purpose           Purpose
	Status            TokenStatusFilter
	Now               time.Time // splits active from expired
	DateFrom          time.Time
	DateTo            time.Time
	Size              int32
	Offset            int64
}
