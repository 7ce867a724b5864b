package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedDigest = errors.New("hash: malformed argon2id digest")

// argon2Params are encoded into every digest so older codes still verify
// after the cost is tuned.
type argon2Params struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	keyLen  uint32
}

// Argon2id hashes OTP codes. A pepper is appended to the input and never
// stored alongside the digest.
type Argon2id struct {
	params  argon2Params
	saltLen int
	pepper  []byte
	slots   chan struct{}
}

// NewArgon2id limits concurrent key derivations to maxConcurrent; zero or
// less means unlimited.
func NewArgon2id(pepper string, maxConcurrent int) *Argon2id {
	a := &Argon2id{
		params:  argon2Params{memory: 32 << 10, time: 3, threads: 2, keyLen: 32},
		saltLen: 16,
		pepper:  []byte(pepper),
	}
	if maxConcurrent > 0 {
		a.slots = make(chan struct{}, maxConcurrent)
	}
	return a
}

func (a *Argon2id) derive(secret string, salt []byte, p argon2Params) []byte {
	if a.slots != nil {
		a.slots <- struct{}{}
		defer func() { <-a.slots }()
	}

	input := append([]byte(secret), a.pepper...)
	return argon2.IDKey(input, salt, p.time, p.memory, p.threads, p.keyLen)
}

// Hash returns a PHC formatted digest: $argon2id$v=19$m=..,t=..,p=..$salt$key
func (a *Argon2id) Hash(str string) ([]byte, error) {
	salt := make([]byte, a.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hash: read salt: %w", err)
	}

	key := a.derive(str, salt, a.params)

	b64 := base64.RawStdEncoding
	out := fmt.Appendf(nil, "$argon2id$v=%d$m=%d,t=%d,p=%d$",
		argon2.Version, a.params.memory, a.params.time, a.params.threads)
	out = b64.AppendEncode(out, salt)
	out = append(out, '$')
	return b64.AppendEncode(out, key), nil
}

func (a *Argon2id) Verify(hashed, str string) bool {
	if str == "" {
		return false
	}

	p, salt, want, err := parseArgon2id(hashed)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(want, a.derive(str, salt, p)) == 1
}

func parseArgon2id(s string) (argon2Params, []byte, []byte, error) {
	var p argon2Params

	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedDigest
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, errMalformedDigest
	}

	for kv := range strings.SplitSeq(parts[3], ",") {
		k, v, _ := strings.Cut(kv, "=")
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return p, nil, nil, errMalformedDigest
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, errMalformedDigest
			}
			p.threads = uint8(n)
		default:
			return p, nil, nil, errMalformedDigest
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, errMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedDigest
	}
	p.keyLen = uint32(len(key))

	return p, salt, key, nil
}
