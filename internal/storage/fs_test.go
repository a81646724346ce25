package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	key := "guest|abc/lesson-xp-intro"
	if v, err := s.Get(key); err != nil || v != "" {
		t.Fatalf("missing key: got %q, %v", v, err)
	}
	if err := s.Set(key, `{"total":10}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(key, `{"total":15}`); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	v, err := s.Get(key)
	if err != nil || v != `{"total":15}` {
		t.Fatalf("Get = %q, %v", v, err)
	}
	entries, _ := os.ReadDir(s.base)
	if len(entries) != 1 {
		t.Fatalf("want one file, got %d", len(entries))
	}
}

func TestFSStoreEmptyKey(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	if err := s.Set("", "x"); err == nil {
		t.Fatal("want error for empty key")
	}
}
