package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_IsExpired(t *testing.T) {
	expiresAt := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	tok := Token{ExpiresAt: expiresAt}

	assert.False(t, tok.IsExpired(expiresAt.Add(-time.Nanosecond)))
	assert.True(t, tok.IsExpired(expiresAt))
	assert.True(t, tok.IsExpired(expiresAt.Add(time.Second)))
}

func TestToken_IsExhausted(t *testing.T) {
	assert.False(t, Token{AttemptCount: 2, MaxAttempts: 3}.IsExhausted())
	assert.True(t, Token{AttemptCount: 3, MaxAttempts: 3}.IsExhausted())
	assert.True(t, AttemptResult{AttemptCount: 3, MaxAttempts: 3}.Exhausted())
	assert.False(t, AttemptResult{AttemptCount: 1, MaxAttempts: 3}.Exhausted())
}

func TestIssueLimit_Enabled(t *testing.T) {
	assert.False(t, IssueLimit{}.Enabled())
	assert.False(t, IssueLimit{Max: 3}.Enabled())
	assert.True(t, IssueLimit{Max: 3, Window: 5 * time.Minute}.Enabled())
}

func TestPurpose(t *testing.T) {
	tests := []struct {
		in      string
		want    Purpose
		name    string
		unknown bool
	}{
		{in: "login", want: PurposeLogin, name: "login"},
		{in: "account_setup", want: PurposeAccountSetup, name: "account_setup"},
		{in: "LOGIN", want: PurposeUnknown, name: "unknown", unknown: true},
		{in: "", want: PurposeUnknown, name: "unknown", unknown: true},
	}

	for _, tt := range tests {
		got := PurposeFromString(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.name, got.String())
		assert.Equal(t, tt.unknown, got.IsUnknown())
	}
}

func TestParseTokenStatusFilter(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    TokenStatusFilter
		wantErr bool
	}{
		{name: "nil", in: nil, want: TokenStatusFilter{}},
		{name: "names", in: []string{"active", "superseded"}, want: TokenStatusFilter{Active: true, Terminal: []TokenStatus{TokenStatusSuperseded}}},
		{name: "numbers", in: []string{"2", "1"}, want: TokenStatusFilter{Active: true, Terminal: []TokenStatus{TokenStatusConsumed}}},
		{name: "duplicates", in: []string{"consumed", "2", "consumed"}, want: TokenStatusFilter{Terminal: []TokenStatus{TokenStatusConsumed}}},
		{name: "expired", in: []string{"expired", "expired"}, want: TokenStatusFilter{Expired: true}},
		{name: "unknown name", in: []string{"active", "used"}, wantErr: true},
		{name: "unknown number", in: []string{"9"}, wantErr: true},
		{name: "zero", in: []string{"0"}, wantErr: true},
		{name: "out of range", in: []string{"99999"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTokenStatusFilter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownTokenStatus)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenStatusFilter_Matches(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	live, gone := now.Add(time.Second), now

	assert.True(t, TokenStatusFilter{Active: true}.Matches(TokenStatusActive, live, now))
	assert.False(t, TokenStatusFilter{Active: true}.Matches(TokenStatusActive, gone, now))
	assert.True(t, TokenStatusFilter{Expired: true}.Matches(TokenStatusActive, gone, now))
	assert.False(t, TokenStatusFilter{Expired: true}.Matches(TokenStatusConsumed, gone, now))
	assert.True(t, TokenStatusFilter{Terminal: []TokenStatus{TokenStatusSuperseded}}.Matches(TokenStatusSuperseded, live, now))
	assert.True(t, TokenStatusFilter{}.IsEmpty())
}
