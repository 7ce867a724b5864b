// Package validator checks request structs. Failures come back as a map of
// snake_case field name to an English message, plus the custom phone and
// otp tags used by the OTP endpoints.
package validator
