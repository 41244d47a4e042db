package services

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"golang.org/x/crypto/blake2b"
)

// Sealer derives the serial stamp and digital seal of a certificate with a
// keyed BLAKE2b MAC over its issuance inputs and nonce.
type Sealer struct {
	key []byte
}

// NewSealer builds a Sealer. Keys longer than the BLAKE2b maximum are hashed down.
func NewSealer(key string) (*Sealer, error) {
	if key == "" {
		return nil, errors.New("certificate seal key is empty")
	}
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return &Sealer{key: k}, nil
}

// Seal returns the serial stamp and digital seal of c. c.Nonce must be set.
func (s *Sealer) Seal(c *domain.Certificate) (string, string, error) {
	if c.Nonce == "" {
		return "", "", errors.New("certificate nonce is empty")
	}
	mac, err := blake2b.New256(s.key)
	if err != nil {
		return "", "", fmt.Errorf("failed to init seal MAC: %w", err)
	}
	mac.Write(sealPayload(c))
	sum := mac.Sum(nil)

	seal := hex.EncodeToString(sum)
	stamp := fmt.Sprintf("EC-%d-%06d-%s", c.Year, c.ActNumber, strings.ToUpper(seal[:10]))
	return stamp, seal, nil
}

// Verify reports whether the stamp and seal stored on c match its content.
func (s *Sealer) Verify(c *domain.Certificate) bool {
	stamp, seal, err := s.Seal(c)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(seal), []byte(c.DigitalSeal)) == 1 &&
		subtle.ConstantTimeCompare([]byte(stamp), []byte(c.SerialStamp)) == 1
}

func sealPayload(c *domain.Certificate) []byte {
	fields := []string{
		c.ID,
		c.DeclarationID,
		c.RegistryNumber,
		strconv.Itoa(c.Year),
		strconv.FormatInt(c.ActNumber, 10),
		c.Subject.Child.FirstName,
		c.Subject.Child.LastName,
		string(c.Subject.Child.Sex),
		c.Subject.Child.BirthDate.UTC().Format(time.DateOnly),
		c.Subject.Child.BirthPlace,
		c.Subject.Father.FirstName,
		c.Subject.Father.LastName,
		c.Subject.Mother.FirstName,
		c.Subject.Mother.LastName,
		c.IssuedAt.UTC().Format(time.RFC3339Nano),
		c.Nonce,
	}
	// Unit separator keeps field boundaries unambiguous.
	return []byte(strings.Join(fields, "\x1f"))
}
