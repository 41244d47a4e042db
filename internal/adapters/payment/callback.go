package payment

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// CallbackSigner signs and verifies payment rail callbacks with a keyed
// BLAKE2b-256 MAC over "reference|amount". The amount is in canonical
// decimal form, so "1500" and "1500.00" sign the same.
type CallbackSigner struct {
	key []byte
}

func NewCallbackSigner(secret string) (*CallbackSigner, error) {
	if secret == "" {
		return nil, errors.New("payment callback secret is empty")
	}
	k := []byte(secret)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return &CallbackSigner{key: k}, nil
}

var _ portssvc.PaymentCallbackVerifier = (*CallbackSigner)(nil)

// Sign returns the hex signature the rail sends for reference and paidAmount.
func (s *CallbackSigner) Sign(paymentReference string, paidAmount decimal.Decimal) string {
	mac, err := blake2b.New256(s.key)
	if err != nil {
		// Only reachable with a key over 64 bytes, which NewCallbackSigner rules out.
		panic(err)
	}
	mac.Write([]byte(paymentReference + "|" + paidAmount.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *CallbackSigner) VerifyCallback(paymentReference string, paidAmount decimal.Decimal, signature string) bool {
	if signature == "" {
		return false
	}
	want := s.Sign(paymentReference, paidAmount)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) == 1
}
