package entity

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

var (
	ErrIssueRateLimited   = errors.New("otp: issue rate limit reached")
	ErrUnknownTokenStatus = errors.New("otp: unknown token status")
)

// Purpose selects the message template, the required fields and the shape of a
// successful verification.
type Purpose int16

const (
	PurposeUnknown      Purpose = 0
	PurposeLogin        Purpose = 1
	PurposeAccountSetup Purpose = 2
)

func PurposeFromString(str string) Purpose {
	switch str {
	case "login":
		return PurposeLogin
	case "account_setup":
		return PurposeAccountSetup
	default:
		return PurposeUnknown
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeLogin:
		return "login"
	case PurposeAccountSetup:
		return "account_setup"
	default:
		return "unknown"
	}
}

func (p Purpose) IsUnknown() bool {
	return p != PurposeLogin && p != PurposeAccountSetup
}

type TokenStatus int16

const (
	// TokenStatusUnknown is mean status is not known / not set.
	TokenStatusUnknown TokenStatus = 0

	// TokenStatusActive mean the code can still be verified.
	TokenStatusActive TokenStatus = 1

	// TokenStatusConsumed mean the code was verified once. Terminal.
	TokenStatusConsumed TokenStatus = 2

	// TokenStatusSuperseded mean a newer code replaced it before it was used.
	TokenStatusSuperseded TokenStatus = 3
)

func (ts TokenStatus) String() string {
	switch ts {
	case TokenStatusActive:
		return "active"
	case TokenStatusConsumed:
		return "consumed"
	case TokenStatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

func (ts TokenStatus) IsUnknown() bool {
	switch ts {
	case TokenStatusActive, TokenStatusConsumed, TokenStatusSuperseded:
		return false
	default:
		return true
	}
}

// TokenStatusFilter selects tokens by state. Expired is derived from
// expires_at, so active and expired both match stored active rows and are told
// apart by the clock.
type TokenStatusFilter struct {
	Active   bool
	Expired  bool
	Terminal []TokenStatus // consumed and superseded
}

func (f TokenStatusFilter) IsEmpty() bool {
	return !f.Active && !f.Expired && len(f.Terminal) == 0
}

// Matches reports whether a token in stored status ts expiring at expiresAt
// passes the filter at now.
func (f TokenStatusFilter) Matches(ts TokenStatus, expiresAt, now time.Time) bool {
	if ts == TokenStatusActive {
		if expiresAt.After(now) {
			return f.Active
		}
		return f.Expired
	}
	return slices.Contains(f.Terminal, ts)
}

// ParseTokenStatusFilter accepts numeric or named statuses plus "expired".
// Duplicates are ignored and anything else is rejected.
func ParseTokenStatusFilter(raws []string) (TokenStatusFilter, error) {
	var f TokenStatusFilter

	for _, v := range raws {
		if v == "expired" {
			f.Expired = true
			continue
		}

		s := tokenStatusFromString(v)
		switch {
		case s.IsUnknown():
			return TokenStatusFilter{}, fmt.Errorf("%w: %q", ErrUnknownTokenStatus, v)
		case s == TokenStatusActive:
			f.Active = true
		case !slices.Contains(f.Terminal, s):
			f.Terminal = append(f.Terminal, s)
		}
	}

	return f, nil
}

func tokenStatusFromString(v string) TokenStatus {
	switch v {
	case "active":
		return TokenStatusActive
	case "consumed":
		return TokenStatusConsumed
	case "superseded":
		return TokenStatusSuperseded
	}

	n, err := strconv.ParseInt(v, 10, 16)
	if err != nil {
		return TokenStatusUnknown
	}

	return TokenStatus(n)
}

func ToInt16Slice(sts []TokenStatus) []int16 {
	out := make([]int16, len(sts))
	for i, s := range sts {
		out[i] = int16(s)
	}
	return out
}
