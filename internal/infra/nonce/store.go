// Package nonce implements the replay cache for signature authentication.
// A nonce is admitted at most once within its validity window; admission of a
// nonce that is already present must fail even under concurrent requests.
package nonce

import (
	"context"
	"time"
)

type Store interface {
	// Has reports whether the nonce is present and not yet expired.
	Has(ctx context.Context, nonce string) (bool, error)

	// Admit records the nonce as used until expiry. It returns false when the
	// nonce is already present and not yet expired. The check and the write
	// are a single atomic step, so two concurrent requests carrying an
	// identical nonce cannot both be admitted.
	Admit(ctx context.Context, nonce string, expiry time.Time) (bool, error)
}
