package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asRole(role string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: 900, Email: role + "@example.com", Role: role})
}

// seedTokens issues codes for two phones: ops gets a consumed login code and an
// active account setup code, vendor gets a superseded and an active login code.
func seedTokens(t *testing.T, h *harness) {
	t.Helper()

	h.send(t, accountOps.PhoneNumber, "login")
	_, err := h.verify(accountOps.PhoneNumber, "login", "111111")
	require.NoError(t, err)
	h.send(t, accountOps.PhoneNumber, "account_setup")

	h.send(t, accountVendor.PhoneNumber, "login")
	h.send(t, accountVendor.PhoneNumber, "login")
}

func TestUsecase_TokenList(t *testing.T) {
	h := newHarness(t)
	seedTokens(t, h)

	tests := []struct {
		name      string
		in        TokenListInput
		wantTotal int64
		wantLen   int
	}{
		{name: "all", in: TokenListInput{}, wantTotal: 4, wantLen: 4},
		{name: "by phone", in: TokenListInput{PhoneNumber: "+91 98765 43210"}, wantTotal: 2, wantLen: 2},
		{name: "by purpose", in: TokenListInput{Purpose: "login"}, wantTotal: 3, wantLen: 3},
		{name: "by status name", in: TokenListInput{Statuses: []string{"superseded", "consumed"}}, wantTotal: 2, wantLen: 2},
		{name: "by status number", in: TokenListInput{Statuses: []string{"1"}}, wantTotal: 2, wantLen: 2},
		{name: "second page", in: TokenListInput{Size: 3, Page: 2}, wantTotal: 4, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.uc.TokenList(asRole("qc"), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.Len(t, out.Tokens, tt.wantLen)
		})
	}
}

func TestUsecase_TokenList_Defaults(t *testing.T) {
	h := newHarness(t)

	out, err := h.uc.TokenList(asRole("ops"), TokenListInput{Size: 500, Page: -2})
	require.NoError(t, err)
	assert.Equal(t, int32(10), out.Size)
	assert.Equal(t, int32(1), out.Page)
	assert.Zero(t, out.Total)
}

func TestUsecase_TokenList_Expired(t *testing.T) {
	h := newHarness(t)
	seedTokens(t, h)
	h.clock.Advance(time.Hour)

	out, err := h.uc.TokenList(asRole("qc"), TokenListInput{Statuses: []string{"expired"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	for _, tok := range out.Tokens {
		assert.Equal(t, entity.TokenStatusActive, tok.Status)
	}

	out, err = h.uc.TokenList(asRole("qc"), TokenListInput{Statuses: []string{"active"}})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestUsecase_TokenList_UnknownStatus(t *testing.T) {
	h := newHarness(t)
	seedTokens(t, h)

	_, err := h.uc.TokenList(asRole("qc"), TokenListInput{Statuses: []string{"active", "used"}})
	requireGoError(t, err, http.StatusBadRequest, "Invalid query status")

	_, err = h.uc.TokenExport(asRole("ops"), TokenExportInput{Statuses: []string{"7"}})
	requireGoError(t, err, http.StatusBadRequest, "Invalid query status")
	assert.Empty(t, h.storage.objects)
}

func TestUsecase_TokenList_PageBeyondRange(t *testing.T) {
	h := newHarness(t)
	seedTokens(t, h)

	out, err := h.uc.TokenList(asRole("qc"), TokenListInput{Size: 100, Page: math.MaxInt32})
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Total)
	assert.Empty(t, out.Tokens)
	assert.Equal(t, int32(math.MaxInt32), out.Page)
}

func TestUsecase_TokenList_Access(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.TokenList(context.Background(), TokenListInput{})
	requireGoError(t, err, http.StatusUnauthorized, "Authentication required")

	_, err = h.uc.TokenList(asRole("vendor"), TokenListInput{})
	requireGoError(t, err, http.StatusForbidden, "Account not allowed")
}

func TestUsecase_TokenExport(t *testing.T) {
	h := newHarness(t)
	seedTokens(t, h)
	h.clock.Set(time.Date(2026, 3, 11, 8, 30, 0, 0, time.UTC))

	out, err := h.uc.TokenExport(asRole("ops"), TokenExportInput{PhoneNumber: accountOps.PhoneNumber})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, 15*time.Minute, out.ExpiresIn)
	assert.True(t, strings.HasPrefix(out.URL, "https://storage.example.com/bgv-exports/otp-tokens/20260311T083000Z-"), out.URL)

	key, body := h.storage.only(t)
	assert.True(t, strings.HasPrefix(key, "bgv-exports/otp-tokens/20260311T083000Z-oid-"), key)
	assert.True(t, strings.HasSuffix(key, ".csv"), key)

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tokenExportHeader, records[0])
	for _, rec := range records[1:] {
		assert.Equal(t, accountOps.PhoneNumber, rec[1])
		assert.Equal(t, "send", rec[11])
		assert.NotContains(t, strings.Join(rec, ","), "111111")
	}

	statuses := []string{records[1][4], records[2][4]}
	assert.ElementsMatch(t, []string{entity.TokenStatusActive.String(), entity.TokenStatusConsumed.String()}, statuses)
}

func TestUsecase_TokenExport_Empty(t *testing.T) {
	h := newHarness(t)

	out, err := h.uc.TokenExport(asRole("ops"), TokenExportInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Rows)

	_, body := h.storage.only(t)
	assert.Equal(t, strings.Join(tokenExportHeader, ",")+"\n", string(body))
}

func TestUsecase_TokenExport_Access(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.TokenExport(asRole("qc"), TokenExportInput{})
	requireGoError(t, err, http.StatusForbidden, "Account not allowed")
	assert.Empty(t, h.storage.objects)
}
