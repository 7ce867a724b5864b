// Package mail sends transactional email such as the phone verification
// notice. Callers depend on the Mail interface; SMTP is the only transport.
package mail
