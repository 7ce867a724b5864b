// Package hash provides helpers for hashing and verifying secrets.
//
// OTP codes are stored as Argon2id digests so a leaked table does not reveal
// live codes. Refresh tokens are high entropy already and use HMAC-SHA256 so
// they can be looked up by digest.
package hash
