package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

// Client talks to the ledger gateway that anchors content hashes on chain.
// Anchoring is best effort from the caller's point of view: a failed call
// leaves the evidence record intact and is retried by the re-anchor job.
type Client struct {
	addr       string
	apiKey     string
	httpClient *http.Client
}

func New(addr, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		addr:       strings.TrimRight(addr, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type anchorRequest struct {
	ContentHash string          `json:"content_hash"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type anchorResponse struct {
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
	Cost        string `json:"cost"`
}

// Anchor records a content hash on the ledger and returns the transaction
// receipt.
func (c *Client) Anchor(ctx context.Context, contentHash string, metadata json.RawMessage) (evidence.LedgerReceipt, error) {
	if c == nil || c.addr == "" {
		return evidence.LedgerReceipt{}, errors.New("ledger addr missing")
	}
	if contentHash == "" {
		return evidence.LedgerReceipt{}, errors.New("content hash is required")
	}
	body, err := json.Marshal(anchorRequest{ContentHash: contentHash, Metadata: metadata})
	if err != nil {
		return evidence.LedgerReceipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/v1/anchors", bytes.NewReader(body))
	if err != nil {
		return evidence.LedgerReceipt{}, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return evidence.LedgerReceipt{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return evidence.LedgerReceipt{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return evidence.LedgerReceipt{}, fmt.Errorf("ledger anchor failed: status %d", resp.StatusCode)
	}

	var out anchorResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return evidence.LedgerReceipt{}, err
	}
	if out.TxID == "" {
		return evidence.LedgerReceipt{}, errors.New("ledger response missing tx_id")
	}
	return evidence.LedgerReceipt{
		TxID:        out.TxID,
		BlockNumber: out.BlockNumber,
		Cost:        out.Cost,
	}, nil
}

// Verify asks the ledger whether a content hash has been anchored.
func (c *Client) Verify(ctx context.Context, contentHash string) (evidence.AnchorProof, error) {
	if c == nil || c.addr == "" {
		return evidence.AnchorProof{}, errors.New("ledger addr missing")
	}
	if contentHash == "" {
		return evidence.AnchorProof{}, errors.New("content hash is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/v1/anchors/"+contentHash, nil)
	if err != nil {
		return evidence.AnchorProof{}, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return evidence.AnchorProof{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return evidence.AnchorProof{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return evidence.AnchorProof{}, fmt.Errorf("ledger verify failed: status %d", resp.StatusCode)
	}

	var out evidence.AnchorProof
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return evidence.AnchorProof{}, err
	}
	out.Exists = true
	return out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
