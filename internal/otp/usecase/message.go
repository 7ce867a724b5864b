package usecase

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shandysiswandi/bgvotp/internal/otp/entity"
)

const (
	loginTemplate        = "Your BGV portal login code is %s. It expires in %d minutes. Do not share this code with anyone."
	accountSetupTemplate = "Your BGV portal verification code is %s. It expires in %d minutes."
)

// buildMessage renders the SMS body for purpose. Account setup messages carry a
// deep link back to the setup page when one is configured.
func (s *Usecase) buildMessage(purpose entity.Purpose, phone, code string, ttl time.Duration) string {
	minutes := max(int(ttl/time.Minute), 1)

	if purpose != entity.PurposeAccountSetup {
		return fmt.Sprintf(loginTemplate, code, minutes)
	}

	msg := fmt.Sprintf(accountSetupTemplate, code, minutes)
	if link := s.cfg.GetString("modules.otp.account_setup_link"); link != "" {
		msg += " Complete your account setup: " + link + "?phone=" + url.QueryEscape(phone)
	}

	return msg
}
