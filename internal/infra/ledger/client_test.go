package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Anchor(t *testing.T) {
	t.Parallel()
	var gotKey, gotHash string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/anchors" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		var req anchorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		gotHash = req.ContentHash
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(anchorResponse{
			TxID:        "0xfeed",
			BlockNumber: 1234,
			Cost:        "21000",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "secret", 5*time.Second)
	receipt, err := client.Anchor(context.Background(), "deadbeef", json.RawMessage(`{"case_id":"c1"}`))
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
	if gotHash != "deadbeef" {
		t.Fatalf("content hash not sent, got %q", gotHash)
	}
	if receipt.TxID != "0xfeed" || receipt.BlockNumber != 1234 || receipt.Cost != "21000" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestClient_AnchorServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5*time.Second)
	if _, err := client.Anchor(context.Background(), "deadbeef", nil); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestClient_AnchorMissingTxID(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5*time.Second)
	if _, err := client.Anchor(context.Background(), "deadbeef", nil); err == nil {
		t.Fatal("expected error on empty tx_id")
	}
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/anchors/deadbeef":
			w.Write([]byte(`{"tx_id":"0xfeed","block_number":1234}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5*time.Second)

	got, err := client.Verify(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.Exists || got.TxID != "0xfeed" {
		t.Fatalf("unexpected verification: %+v", got)
	}

	missing, err := client.Verify(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("verify missing: %v", err)
	}
	if missing.Exists {
		t.Fatal("expected exists=false for unknown hash")
	}
}

func TestClient_RequiresAddr(t *testing.T) {
	t.Parallel()
	client := New("", "", 0)
	if _, err := client.Anchor(context.Background(), "deadbeef", nil); err == nil {
		t.Fatal("expected error with no addr")
	}
	if _, err := client.Verify(context.Background(), "deadbeef"); err == nil {
		t.Fatal("expected error with no addr")
	}
}
