package evidence

import "errors"

var (
	// validation
	ErrInvalidWallet   = errors.New("invalid wallet address")
	ErrMissingFields   = errors.New("required fields missing")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyItems    = errors.New("too many items requested")
	ErrNoItems         = errors.New("no items requested")

	// authentication
	ErrMissingCredentials = errors.New("missing signature credentials")
	ErrBadPayload         = errors.New("invalid message payload")
	ErrExpired            = errors.New("signature timestamp expired")
	ErrReplay             = errors.New("nonce already used")
	ErrMethodMismatch     = errors.New("signed method does not match request")
	ErrPathMismatch       = errors.New("signed path does not match request")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignatureMismatch  = errors.New("signature does not match claimed wallet")

	// authorization
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// lookup
	ErrNotFound = errors.New("not found")

	// the one fatal backend failure: the durable record write
	ErrRecordStore = errors.New("record store failure")
)
