package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/account/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
	"github.com/shandysiswandi/bgvotp/internal/pkg/rbac"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)
	MarkPhoneVerified(ctx context.Context, phone string, at time.Time) (*entity.PhoneVerification, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	repoDB    repoDB
	repoMail  repoMail
	validator validator.Validator
	cfg       config.Config
	clock     clock.Clocker
	ins       instrument.Instrumentation
	enforcer  rbac.Authorizer
}

type Dependency struct {
	RepoDB     repoDB
	RepoMail   repoMail
	Validator  validator.Validator
	Config     config.Config
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
	Enforcer   rbac.Authorizer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		repoMail:  dep.RepoMail,
		validator: dep.Validator,
		cfg:       dep.Config,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		enforcer:  dep.Enforcer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("account.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "role", clm.Role, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
