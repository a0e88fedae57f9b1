package watermark

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stamp carries the provenance fields burned into a download copy: who
// downloaded which evidence of which case, and when.
type Stamp struct {
	EvidenceID string
	CaseID     string
	Wallet     string
	At         time.Time
}

// Renderer marks a payload with download provenance. The applied flag
// reports whether the payload type supports marking; unmarked payloads pass
// through untouched.
type Renderer interface {
	Apply(ctx context.Context, data []byte, mimeType string, stamp Stamp) ([]byte, bool, error)
}

// stampable types get a custody trailer. Image decoders stop at the end of
// the image stream and PDF readers stop at %%EOF, so the trailer never
// alters how the payload renders.
var stampable = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

type trailerRenderer struct{}

// NewTrailerRenderer appends a chain-of-custody trailer to types that
// tolerate trailing bytes.
func NewTrailerRenderer() Renderer {
	return trailerRenderer{}
}

func (trailerRenderer) Apply(_ context.Context, data []byte, mimeType string, stamp Stamp) ([]byte, bool, error) {
	if !stampable[strings.ToLower(mimeType)] {
		return data, false, nil
	}
	trailer := fmt.Sprintf("\n%%CUSTODY evidence=%s case=%s wallet=%s at=%s\n",
		stamp.EvidenceID, stamp.CaseID, stamp.Wallet, stamp.At.UTC().Format(time.RFC3339))
	out := make([]byte, 0, len(data)+len(trailer))
	out = append(out, data...)
	out = append(out, trailer...)
	return out, true, nil
}

type nopRenderer struct{}

// NewNopRenderer passes every payload through unmarked.
func NewNopRenderer() Renderer {
	return nopRenderer{}
}

func (nopRenderer) Apply(_ context.Context, data []byte, _ string, _ Stamp) ([]byte, bool, error) {
	return data, false, nil
}
