package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/hash"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
modules:
  otp:
    account_setup_link: "https://portal.example.com/setup"
    export:
      bucket: "bgv-exports"
`

var errBoom = errors.New("boom")

// memStore keeps the same rules as the Postgres store: one active token per
// (phone, purpose), conditional attempt and consume updates, rotation of
// refresh tokens.
type memStore struct {
	mu       sync.Mutex
	tokens   []*entity.Token
	accounts map[int64]*entity.Account
	refresh  map[string]*memRefresh
	fail     map[string]error
}

type memRefresh struct {
	id         int64
	userID     int64
	expiresAt  time.Time
	revoked    bool
	replacedBy *int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]*entity.Account{},
		refresh:  map[string]*memRefresh{},
		fail:     map[string]error{},
	}
}

func (m *memStore) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

func (m *memStore) addAccount(acc entity.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID] = &acc
}

func (m *memStore) setActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].IsActive = active
}

func (m *memStore) deleteAccount(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
}

func (m *memStore) snapshot() []entity.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *t)
	}
	return out
}

func (m *memStore) liveRefreshTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rt := range m.refresh {
		if !rt.revoked {
			n++
		}
	}
	return n
}

func (m *memStore) GetAccountByPhone(_ context.Context, phone string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["GetAccountByPhone"]; err != nil {
		return nil, err
	}
	for _, acc := range m.accounts {
		if acc.PhoneNumber == phone {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memStore) GetAccountByID(_ context.Context, id int64) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["GetAccountByID"]; err != nil {
		return nil, err
	}
	acc, ok := m.accounts[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memStore) GetActiveToken(_ context.Context, phone string, purpose entity.Purpose) (*entity.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["GetActiveToken"]; err != nil {
		return nil, err
	}
	for _, t := range m.tokens {
		if t.PhoneNumber == phone && t.Purpose == purpose && t.Status == entity.TokenStatusActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memStore) GetTokenList(_ context.Context, f entity.TokenListFilterData) ([]entity.Token, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []entity.Token
	for i := len(m.tokens) - 1; i >= 0; i-- {
		t := m.tokens[i]
		if f.IsFilterByPhone && t.PhoneNumber != f.PhoneNumber {
			continue
		}
		if f.IsFilterByPurpose && t.Purpose != f.Purpose {
			continue
		}
		if f.IsFilterByStatus && !f.Status.Matches(t.Status, t.ExpiresAt, f.Now) {
			continue
		}
		matched = append(matched, *t)
	}

	total := int64(len(matched))
	start := int(min(f.Offset, total))
	end := min(start+int(f.Size), len(matched))
	return matched[start:end], total, nil
}

func (m *memStore) GetAccountRefreshToken(_ context.Context, tokenHash string) (*entity.AccountRefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, ok := m.refresh[tokenHash]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	acc, ok := m.accounts[rt.userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	return &entity.AccountRefreshToken{
		AccountID:                acc.ID,
		AccountEmail:             acc.Email,
		AccountRole:              acc.Role,
		AccountIsActive:          acc.IsActive,
		RefreshID:                rt.id,
		RefreshRevoked:           rt.revoked,
		RefreshReplacedByTokenID: rt.replacedBy,
		RefreshExpiresAt:         rt.expiresAt,
	}, nil
}

func (m *memStore) IssueToken(_ context.Context, tok entity.Token, limit entity.IssueLimit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["IssueToken"]; err != nil {
		return err
	}

	if limit.Enabled() {
		since := tok.CreatedAt.Add(-limit.Window)
		issued := 0
		for _, t := range m.tokens {
			if t.PhoneNumber != tok.PhoneNumber || t.Status == entity.TokenStatusConsumed {
				continue
			}
			if t.CreatedAt.After(since) {
				issued++
			}
		}
		if issued >= limit.Max {
			return entity.ErrIssueRateLimited
		}
	}

	for _, t := range m.tokens {
		if t.PhoneNumber == tok.PhoneNumber && t.Purpose == tok.Purpose && t.Status == entity.TokenStatusActive {
			at := tok.CreatedAt
			t.Status = entity.TokenStatusSuperseded
			t.SupersededAt = &at
		}
	}

	tok.Status = entity.TokenStatusActive
	tok.AttemptCount = 0
	m.tokens = append(m.tokens, &tok)
	return nil
}

func (m *memStore) RecordFailedAttempt(_ context.Context, id int64) (*entity.AttemptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.ID == id && t.Status == entity.TokenStatusActive && t.AttemptCount < t.MaxAttempts {
			t.AttemptCount++
			return &entity.AttemptResult{AttemptCount: t.AttemptCount, MaxAttempts: t.MaxAttempts}, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memStore) ConsumeToken(_ context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["ConsumeToken"]; err != nil {
		return err
	}
	for _, t := range m.tokens {
		if t.ID == id && t.Status == entity.TokenStatusActive && t.AttemptCount < t.MaxAttempts && t.ExpiresAt.After(now) {
			at := now
			t.Status = entity.TokenStatusConsumed
			t.VerifiedAt = &at
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (m *memStore) CreateRefreshToken(_ context.Context, rt entity.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["CreateRefreshToken"]; err != nil {
		return err
	}
	m.refresh[rt.Token] = &memRefresh{id: rt.ID, userID: rt.UserID, expiresAt: rt.ExpiresAt}
	return nil
}

func (m *memStore) RotateRefreshToken(_ context.Context, in entity.RotateRefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rt := range m.refresh {
		if rt.id == in.OldID && !rt.revoked {
			newID := in.NewID
			rt.revoked = true
			rt.replacedBy = &newID
			m.refresh[in.NewToken] = &memRefresh{id: in.NewID, userID: in.UserID, expiresAt: in.NewExpiresAt}
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (m *memStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, ok := m.refresh[tokenHash]
	if !ok || rt.revoked {
		return goerror.ErrNotFound
	}
	rt.revoked = true
	return nil
}

func (m *memStore) RevokeAllRefreshToken(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rt := range m.refresh {
		if rt.userID == userID {
			rt.revoked = true
		}
	}
	return nil
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (g *fakeGateway) SendSMS(_ context.Context, phone, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, phone+"|"+body)
	return nil
}

func (g *fakeGateway) messages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.sent)
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []OTPVerifiedEvent
	err    error
}

func (f *fakeMessaging) PublishOTPVerified(_ context.Context, msg OTPVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg)
	return nil
}

func (f *fakeMessaging) published() []OTPVerifiedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.events)
}

// seqCode hands out codes in order and repeats the last one.
type seqCode struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (s *seqCode) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.codes[min(s.next, len(s.codes)-1)]
	s.next++
	return c, nil
}

type counterID struct{ n atomic.Int64 }

func (c *counterID) Generate() int64 { return c.n.Add(1) + 1000 }

type counterOID struct{ n atomic.Int64 }

func (c *counterOID) Generate() string { return fmt.Sprintf("oid-%06d", c.n.Add(1)) }

type roleAuthorizer map[string][]string

func (a roleAuthorizer) Enforce(rvals ...any) (bool, error) {
	role, _ := rvals[0].(string)
	obj, _ := rvals[1].(string)
	act, _ := rvals[2].(string)
	return slices.Contains(a[role], obj+":"+act), nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) EnsureBucket(context.Context, string) error { return nil }

func (s *memStorage) Put(_ context.Context, obj storage.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[obj.Bucket+"/"+obj.Key] = obj.Body
	return nil
}

func (s *memStorage) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.example.com/" + bucket + "/" + key + "?sig=test", nil
}

func (s *memStorage) Close() error { return nil }

func (s *memStorage) only(t *testing.T) (string, []byte) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.Len(t, s.objects, 1)
	for k, v := range s.objects {
		return k, v
	}
	return "", nil
}

type harness struct {
	uc      *Usecase
	store   *memStore
	gateway *fakeGateway
	msg     *fakeMessaging
	storage *memStorage
	clock   *clock.Frozen
	codes   *seqCode
	jwt     jwt.JWT
	mgr     *goroutine.Manager
}

var (
	accountOps = entity.Account{
		ID:          501,
		PhoneNumber: "+919876543210",
		Email:       "ops@example.com",
		FullName:    "Ops Person",
		Role:        "ops",
		IsActive:    true,
	}
	accountVendor = entity.Account{
		ID:          502,
		PhoneNumber: "+919800000002",
		Email:       "vendor@example.com",
		FullName:    "Vendor Person",
		Role:        "vendor",
		IsActive:    true,
	}
)

func newHarness(t *testing.T, codes ...string) *harness {
	t.Helper()

	if len(codes) == 0 {
		codes = []string{"111111"}
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	clk := clock.NewFrozen(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "bgvotp",
		Audiences: []string{"portal"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	h := &harness{
		store:   newMemStore(),
		gateway: &fakeGateway{},
		msg:     &fakeMessaging{},
		storage: &memStorage{},
		clock:   clk,
		codes:   &seqCode{codes: codes},
		jwt:     signer,
		mgr:     goroutine.NewManager(10),
	}
	h.store.addAccount(accountOps)
	h.store.addAccount(accountVendor)

	h.uc = New(Dependency{
		RepoDB:        h.store,
		RepoMessaging: h.msg,
		RepoGateway:   h.gateway,
		Validator:     v,
		Config:        cfg,
		Storage:       h.storage,
		CodeHash:      hash.NewHMACSHA256("code-secret"),
		HMAC:          hash.NewHMACSHA256("refresh-secret"),
		Code:          h.codes,
		UID:           &counterID{},
		OID:           &counterOID{},
		Clock:         clk,
		JWT:           signer,
		Instrument:    instrument.NewNoop(),
		Enforcer: roleAuthorizer{
			"ops": {"otp.tokens:read", "otp.tokens:export"},
			"qc":  {"otp.tokens:read"},
		},
		Goroutine: h.mgr,
	})

	return h
}

func (h *harness) send(t *testing.T, phone, purpose string) {
	t.Helper()

	_, err := h.uc.SendOTP(context.Background(), SendOTPInput{PhoneNumber: phone, Purpose: purpose})
	require.NoError(t, err)
}

func (h *harness) verify(phone, purpose, code string) (VerifyOTPOutput, error) {
	return h.uc.VerifyOTP(context.Background(), VerifyOTPInput{PhoneNumber: phone, Purpose: purpose, OTPCode: code})
}

// events waits for async publishing to finish. The manager cannot be used after.
func (h *harness) events(t *testing.T) []OTPVerifiedEvent {
	t.Helper()
	require.NoError(t, h.mgr.Wait())
	return h.msg.published()
}

func requireGoError(t *testing.T, err error, status int, msg string) *goerror.Error {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, status, gerr.StatusCode())
	if msg != "" {
		assert.Equal(t, msg, gerr.Msg())
	}
	return gerr
}
