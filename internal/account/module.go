package account

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/bgvotp/internal/account/inbound"
	"github.com/shandysiswandi/bgvotp/internal/account/outbound/db"
	"github.com/shandysiswandi/bgvotp/internal/account/outbound/email"
	"github.com/shandysiswandi/bgvotp/internal/account/usecase"
	"github.com/shandysiswandi/bgvotp/internal/pkg/clock"
	"github.com/shandysiswandi/bgvotp/internal/pkg/config"
	"github.com/shandysiswandi/bgvotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/bgvotp/internal/pkg/instrument"
	"github.com/shandysiswandi/bgvotp/internal/pkg/mail"
	"github.com/shandysiswandi/bgvotp/internal/pkg/messaging"
	"github.com/shandysiswandi/bgvotp/internal/pkg/rbac"
	"github.com/shandysiswandi/bgvotp/internal/pkg/router"
	"github.com/shandysiswandi/bgvotp/internal/pkg/uid"
	"github.com/shandysiswandi/bgvotp/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     *pgxpool.Pool              `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Enforcer   rbac.Authorizer            `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbAccount := db.NewDB(dep.DBConn, dep.Instrument)
	repoMail := email.New(dep.Mail, dep.Config.GetString("modules.account.mail.from"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     dbAccount,
		RepoMail:   repoMail,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
		Enforcer:   dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)

	return nil
}
