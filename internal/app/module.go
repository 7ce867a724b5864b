package app

import (
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/bgvotp/internal/account"
	"github.com/shandysiswandi/bgvotp/internal/otp"
)

// initModules registers every module switched on by modules.<name>.enabled.
func (a *App) initModules() error {
	modules := []struct {
		name string
		init func() error
	}{
		{"otp", func() error {
			return otp.New(otp.Dependency{
				DBConn:     a.db,
				Goroutine:  a.goroutine,
				Enforcer:   a.enforcer,
				Router:     a.router,
				Throttle:   a.throttle,
				Messaging:  a.messaging,
				SMS:        a.sms,
				Storage:    a.storage,
				Config:     a.config,
				Instrument: a.ins,
				UID:        a.snowflake,
				OID:        a.ulid,
				HMAC:       a.hmac,
				Argon2ID:   a.argon2id,
				Clock:      a.clock,
				Validator:  a.validator,
				JWT:        a.jwt,
			})
		}},
		{"account", func() error {
			return account.New(account.Dependency{
				Ctx:        a.ctx,
				DBConn:     a.db,
				Messaging:  a.messaging,
				Config:     a.config,
				Instrument: a.ins,
				UUID:       a.uuid,
				Clock:      a.clock,
				Goroutine:  a.goroutine,
				Validator:  a.validator,
				Router:     a.router,
				Mail:       a.mail,
				Enforcer:   a.enforcer,
			})
		}},
	}

	for _, m := range modules {
		if !a.config.GetBool("modules." + m.name + ".enabled") {
			slog.Info("module disabled", "module", m.name)
			continue
		}
		if err := m.init(); err != nil {
			return fmt.Errorf("module %s: %w", m.name, err)
		}
	}
	return nil
}
