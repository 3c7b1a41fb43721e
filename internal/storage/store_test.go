package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "ticket:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "ticket:A1", []byte(`{"x":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "ticket:A1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"x":1}` {
		t.Fatalf("unexpected value %s", got)
	}
}

func TestMemoryStorePrefixScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "bus:B1", []byte("1"))
	_ = s.Set(ctx, "bus:B2", []byte("2"))
	_ = s.Set(ctx, "ticket:T1", []byte("3"))

	vals, err := s.GetByPrefix(ctx, "bus:")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 bus records, got %d", len(vals))
	}
}

func TestMemoryStoreSetMulti(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	err := s.SetMulti(ctx, map[string][]byte{
		"bus:B1": []byte("1"),
		"bus:B2": []byte("2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"bus:B1", "bus:B2"} {
		if _, err := s.Get(ctx, k); err != nil {
			t.Fatalf("missing %s after SetMulti: %v", k, err)
		}
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "complaint:missing", func(b []byte) ([]byte, error) { return b, nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte(`[]`))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "k", func(cur []byte) ([]byte, error) {
				var arr []int
				if err := json.Unmarshal(cur, &arr); err != nil {
					return nil, err
				}
				arr = append(arr, 1)
				return json.Marshal(arr)
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	raw, _ := s.Get(ctx, "k")
	var arr []int
	if err := json.Unmarshal(raw, &arr); err != nil {
		t.Fatal(err)
	}
	if len(arr) != n {
		t.Fatalf("expected %d entries, got %d (lost updates)", n, len(arr))
	}
}
