// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Modules publish domain events (for example otp_verified) through Publisher
// and subscribe with Consumer, so the broker (Kafka, NATS or the in-process
// memory bus) is picked by configuration alone.
package messaging
