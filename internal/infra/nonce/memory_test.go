package nonce

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryAdmitOnce(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{})
	expiry := time.Now().Add(5 * time.Minute)

	ok, err := store.Admit(context.Background(), "abc123", expiry)
	if err != nil || !ok {
		t.Fatalf("first admit: ok=%v err=%v", ok, err)
	}
	ok, err = store.Admit(context.Background(), "abc123", expiry)
	if err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if ok {
		t.Fatalf("expected replayed nonce to be rejected")
	}
}

func TestMemoryAdmitAfterExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	store := NewMemoryStore(MemoryStoreConfig{Now: func() time.Time { return current }})

	if ok, _ := store.Admit(context.Background(), "n1", current.Add(time.Minute)); !ok {
		t.Fatalf("first admit rejected")
	}
	current = current.Add(2 * time.Minute)
	if ok, _ := store.Admit(context.Background(), "n1", current.Add(time.Minute)); !ok {
		t.Fatalf("expected expired nonce to be admittable again")
	}
}

func TestMemoryAdmitConcurrent(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{})
	expiry := time.Now().Add(5 * time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	admitted := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := store.Admit(context.Background(), "same-nonce", expiry)
			admitted <- ok
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one admission, got %d", count)
	}
}

func TestMemorySweep(t *testing.T) {
	current := time.Unix(1000, 0)
	store := NewMemoryStore(MemoryStoreConfig{Now: func() time.Time { return current }})

	store.Admit(context.Background(), "old", current.Add(time.Minute))
	store.Admit(context.Background(), "fresh", current.Add(time.Hour))

	current = current.Add(30 * time.Minute)
	store.sweep()

	if got := store.size(); got != 1 {
		t.Fatalf("expected one surviving entry, got %d", got)
	}
}
