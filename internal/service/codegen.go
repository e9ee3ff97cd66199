package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// codeAlphabet deliberately excludes 0/O and 1/I so codes survive being read
// aloud or handwritten.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// maxCodeAttempts bounds collision retries during room creation. With a
// 32^6 code space against a handful of concurrently active rooms this is
// effectively unreachable, but it is handled rather than assumed away.
const maxCodeAttempts = 5

var viewerHashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// GenerateRoomCode returns a 6-character shareable room code drawn from the
// unambiguous uppercase alphabet. Uniqueness among active rooms is the
// caller's responsibility.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	code := make([]byte, roomCodeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}

// GenerateViewerHash derives the bearer credential for an anonymous viewer.
// The digest mixes the room, the nickname, the current instant and 128 bits
// of fresh randomness, so identical inputs still yield distinct hashes and
// the output cannot be enumerated.
func GenerateViewerHash(roomID uuid.UUID, nickname string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(roomID.String()))
	h.Write([]byte(nickname))
	h.Write([]byte(time.Now().UTC().Format(time.RFC3339Nano)))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsValidHashFormat reports whether s looks like a viewer hash: exactly 64
// lowercase hex characters. Run at every trust boundary before any lookup.
func IsValidHashFormat(s string) bool {
	return viewerHashPattern.MatchString(s)
}

// GenerateOpaqueToken returns byteLength random bytes hex-encoded, for
// magic-link and temp second-factor tokens. Always crypto/rand, never a
// seeded PRNG.
func GenerateOpaqueToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken is the storage form of an opaque token: only the SHA-256 of the
// value handed to the user is persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
