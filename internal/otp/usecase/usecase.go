package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goerror"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/hash"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/rbac"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type OTPVerifiedEvent struct {
	TokenID    int64
	UserID     int64
	Phone      string
	Purpose    entity.Purpose
	Email      string
	VerifiedAt time.Time
}

type repoMessaging interface {
	PublishOTPVerified(ctx context.Context, msg OTPVerifiedEvent) error
}

type repoGateway interface {
	SendSMS(ctx context.Context, phone, body string) error
}

type repoDB interface {
	GetAccountByPhone(ctx context.Context, phone string) (*entity.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)
	GetActiveToken(ctx context.Context, phone string, purpose entity.Purpose) (*entity.Token, error)
	GetTokenList(ctx context.Context, filter entity.TokenListFilterData) ([]entity.Token, int64, error)
	GetAccountRefreshToken(ctx context.Context, tokenHash string) (*entity.AccountRefreshToken, error)

	IssueToken(ctx context.Context, tok entity.Token, limit entity.IssueLimit) error
	RecordFailedAttempt(ctx context.Context, id int64) (*entity.AttemptResult, error)
	ConsumeToken(ctx context.Context, id int64, now time.Time) error

	CreateRefreshToken(ctx context.Context, rt entity.RefreshToken) error
	RotateRefreshToken(ctx context.Context, in entity.RotateRefreshToken) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshToken(ctx context.Context, userID int64) error
}

// codeGenerator produces the plain one-time code that is texted to the user.
type codeGenerator interface {
	Generate() (string, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoGateway   repoGateway
	validator     validator.Validator
	cfg           config.Config
	storage       storage.Storage
	codeHash      hash.Hash
	hmac          hash.Hash
	code          codeGenerator
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	enforcer      rbac.Authorizer
	goroutine     *goroutine.Manager

	issuedCounter   metric.Int64Counter
	verifiedCounter metric.Int64Counter
	rejectedCounter metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoGateway   repoGateway
	Validator     validator.Validator
	Config        config.Config
	Storage       storage.Storage
	CodeHash      hash.Hash
	HMAC          hash.Hash
	Code          codeGenerator
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Enforcer      rbac.Authorizer
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	code := dep.Code
	if code == nil {
		code = NewRandomCode()
	}

	uc := &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoGateway:   dep.RepoGateway,
		validator:     dep.Validator,
		cfg:           dep.Config,
		storage:       dep.Storage,
		codeHash:      dep.CodeHash,
		hmac:          dep.HMAC,
		code:          code,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
		goroutine:     dep.Goroutine,
	}

	meter := dep.Instrument.Meter("otp.usecase")

	var err error
	if uc.issuedCounter, err = meter.Int64Counter("otp.issued", metric.WithDescription("Number of OTP codes issued")); err != nil {
		slog.Error("failed to create otp issued counter", "error", err)
	}
	if uc.verifiedCounter, err = meter.Int64Counter("otp.verified", metric.WithDescription("Number of OTP codes verified")); err != nil {
		slog.Error("failed to create otp verified counter", "error", err)
	}
	if uc.rejectedCounter, err = meter.Int64Counter("otp.rejected", metric.WithDescription("Number of rejected OTP requests")); err != nil {
		slog.Error("failed to create otp rejected counter", "error", err)
	}

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, purpose entity.Purpose, reason string) {
	if c == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("purpose", purpose.String())}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
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
