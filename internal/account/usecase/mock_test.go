package usecase

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/account/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testConfig = `
modules:
  account:
    portal_url: "https://portal.example.com"
    support_email: "support@example.com"
    company_name: "Acme Verify"
`

type mockRepoDB struct{ mock.Mock }

func (m *mockRepoDB) GetAccountByID(ctx context.Context, id int64) (*entity.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*entity.Account)
	return acc, args.Error(1)
}

func (m *mockRepoDB) MarkPhoneVerified(ctx context.Context, phone string, at time.Time) (*entity.PhoneVerification, error) {
	args := m.Called(ctx, phone, at)
	pv, _ := args.Get(0).(*entity.PhoneVerification)
	return pv, args.Error(1)
}

func (m *mockRepoDB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockRepoMail struct{ mock.Mock }

func (m *mockRepoMail) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type roleAuthorizer map[string][]string

func (a roleAuthorizer) Enforce(rvals ...any) (bool, error) {
	role, _ := rvals[0].(string)
	obj, _ := rvals[1].(string)
	act, _ := rvals[2].(string)
	return slices.Contains(a[role], obj+":"+act), nil
}

type suite struct {
	uc   *Usecase
	db   *mockRepoDB
	mail *mockRepoMail
}

func newSuite(t *testing.T) *suite {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	s := &suite{db: &mockRepoDB{}, mail: &mockRepoMail{}}
	s.uc = New(Dependency{
		RepoDB:     s.db,
		RepoMail:   s.mail,
		Validator:  v,
		Config:     cfg,
		Clock:      clock.NewFrozen(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		Instrument: instrument.NewNoop(),
		Enforcer: roleAuthorizer{
			"ops":    {"account.profile:read"},
			"vendor": {"account.profile:read"},
		},
	})

	t.Cleanup(func() {
		s.db.AssertExpectations(t)
		s.mail.AssertExpectations(t)
	})

	return s
}

func asUser(id int64, role string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: id, Email: "user@example.com", Role: role})
}
