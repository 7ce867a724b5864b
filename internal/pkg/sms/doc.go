// Package sms sends text messages through an external gateway.
//
// Use cases depend on the SMS interface. The http driver posts a form to a
// gateway endpoint; the log driver only writes the message to the logger and
// is meant for local development.
package sms
