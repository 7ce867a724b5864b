package sms

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverHTTP selects the form-post gateway.
	DriverHTTP = "http"
	// DriverLog selects the log-only driver.
	DriverLog = "log"
)

// ErrUnknownDriver indicates an unsupported sms driver.
var ErrUnknownDriver = errors.New("sms: unknown driver")

// FactoryOptions groups configuration for sms drivers.
type FactoryOptions struct {
	HTTP HTTPConfig
}

// NewFromDriver constructs an SMS implementation by driver name.
func NewFromDriver(driver string, opts FactoryOptions) (SMS, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverHTTP:
		return NewHTTP(opts.HTTP)
	case DriverLog:
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
