// Package walletauth verifies that a request claiming a wallet identity was
// signed by that wallet's key. The signed message is a JSON payload carrying a
// single-use nonce, a timestamp, and optional method/path request binding.
package walletauth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/nonce"
)

// MaxAge bounds the allowed clock distance between the signed timestamp and
// verification time, in either direction.
const MaxAge = 5 * time.Minute

// Payload is the structured message the client signs.
type Payload struct {
	Nonce     string `json:"nonce"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
}

// Request carries the authentication material extracted from one HTTP request.
// URI is the path with its query string; clients may bind their signature to
// either form.
type Request struct {
	ClaimedWallet string
	Signature     string
	Message       string
	Method        string
	Path          string
	URI           string
}

type Verifier struct {
	nonces nonce.Store
	now    func() time.Time
}

func NewVerifier(nonces nonce.Store, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{nonces: nonces, now: now}
}

// Verify runs the ordered authentication checks and returns the lower-cased
// recovered wallet address. No state is committed on failure: the nonce is
// only admitted to the replay cache once every check has passed, so a doomed
// request cannot lock its own nonce.
func (v *Verifier) Verify(ctx context.Context, req Request) (string, error) {
	if req.Signature == "" || req.Message == "" {
		return "", evidence.ErrMissingCredentials
	}

	var payload Payload
	if err := json.Unmarshal([]byte(req.Message), &payload); err != nil {
		return "", fmt.Errorf("%w: %v", evidence.ErrBadPayload, err)
	}
	if payload.Nonce == "" || payload.Timestamp == "" {
		return "", fmt.Errorf("%w: nonce and timestamp are required", evidence.ErrBadPayload)
	}

	signedAt, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		return "", fmt.Errorf("%w: unparsable timestamp", evidence.ErrExpired)
	}
	age := v.now().Sub(signedAt)
	if age > MaxAge || age < -MaxAge {
		return "", evidence.ErrExpired
	}

	used, err := v.nonces.Has(ctx, payload.Nonce)
	if err != nil {
		return "", fmt.Errorf("nonce lookup: %w", err)
	}
	if used {
		return "", evidence.ErrReplay
	}

	if payload.Method != "" && !strings.EqualFold(payload.Method, req.Method) {
		return "", evidence.ErrMethodMismatch
	}
	if payload.Path != "" && payload.Path != req.Path && (req.URI == "" || payload.Path != req.URI) {
		return "", evidence.ErrPathMismatch
	}

	recovered, err := RecoverAddress(req.Message, req.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", evidence.ErrInvalidSignature, err)
	}
	if !strings.EqualFold(recovered, req.ClaimedWallet) {
		return "", evidence.ErrSignatureMismatch
	}

	// Full success: mark the nonce used. Admit is atomic, so a concurrent
	// request that raced past the Has check above still loses here.
	admitted, err := v.nonces.Admit(ctx, payload.Nonce, signedAt.Add(MaxAge))
	if err != nil {
		return "", fmt.Errorf("nonce admit: %w", err)
	}
	if !admitted {
		return "", evidence.ErrReplay
	}

	return strings.ToLower(recovered), nil
}

// RecoverAddress recovers the signer of an EIP-191 personal message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	// Wallets produce V as 27/28; secp256k1 recovery expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// ValidAddress reports whether s looks like a well-formed hex wallet address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}
