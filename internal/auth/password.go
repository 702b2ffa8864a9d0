package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and verifies stored password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// LegacyHasher reproduces the historical digest format: hex SHA-256 of the
// password concatenated with a single deployment-wide salt.
//
// SECURITY: the fixed salt means identical passwords map to identical
// digests across users. It stays the default because every stored digest
// depends on it; new deployments should select BcryptHasher.
type LegacyHasher struct {
	salt string
}

// NewLegacyHasher builds the deterministic hasher for the deployment salt.
func NewLegacyHasher(salt string) *LegacyHasher {
	return &LegacyHasher{salt: salt}
}

func (h *LegacyHasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password + h.salt))
	return hex.EncodeToString(sum[:]), nil
}

func (h *LegacyHasher) Verify(password, digest string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	computed, err := h.Hash(password)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// BcryptHasher writes per-record salted digests. Verification still accepts
// legacy digests so a deployment can switch schemes without invalidating
// existing accounts; only newly written digests change format.
type BcryptHasher struct {
	cost   int
	legacy *LegacyHasher
}

// NewBcryptHasher builds the bcrypt hasher with a legacy fallback.
func NewBcryptHasher(cost int, legacy *LegacyHasher) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, legacy: legacy}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	return h.legacy.Verify(password, digest)
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2")
}
