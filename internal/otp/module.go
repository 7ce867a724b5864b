package otp

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/bgvotp/internal/otp/inbound"
	"github.com/shandysiswandi/bgvotp/internal/otp/outbound/db"
	"github.com/shandysiswandi/bgvotp/internal/otp/outbound/gateway"
	"github.com/shandysiswandi/bgvotp/internal/otp/outbound/mq"
	"github.com/shandysiswandi/bgvotp/internal/otp/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/hash"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/jwt"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/pkg/rbac"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/sms"
	"github.com/shandysiswandi/bgvotp/internal/pkg/storage"
	"github.com/shandysiswandi/bgvotp/internal/pkg/throttle"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
)

// PublicEndpoints are the POST routes of this module reachable without a bearer token.
var PublicEndpoints = inbound.PublicEndpoints

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Enforcer   rbac.Authorizer            `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Throttle   throttle.Throttle          `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	SMS        sms.SMS                    `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Argon2ID   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbOTP := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)
	repoGateway := gateway.New(dep.SMS, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        dbOTP,
		RepoMessaging: repoMsg,
		RepoGateway:   repoGateway,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Storage:       dep.Storage,
		CodeHash:      dep.Argon2ID,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Throttle, dep.Config.GetSecond("modules.otp.resend_cooldown_seconds"))

	return nil
}
