package purchase

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// AccountHasher hashes payment accounts with argon2id. Each hash carries its
// own random salt and parameters in the PHC string format. Accounts are never
// read back, so there is no verify path.
type AccountHasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

// DefaultAccountHasher returns a hasher with interactive-login parameters.
func DefaultAccountHasher() *AccountHasher {
	return NewAccountHasher(1, 64*1024, 2)
}

// NewAccountHasher creates a hasher. memory is in KiB.
func NewAccountHasher(time, memory uint32, threads uint8) *AccountHasher {
	return &AccountHasher{
		time:    time,
		memory:  memory,
		threads: threads,
		keyLen:  32,
		saltLen: 16,
	}
}

// Hash returns the encoded argon2id hash of account.
func (h *AccountHasher) Hash(account string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(account), salt, h.time, h.memory, h.threads, h.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}
