package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("NewSQLite() = %v, want nil", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	payload := []byte(`{"version":1,"tasks":[{"id":"a"}]}`)
	if err := s.Save(ctx, "queue:main", payload); err != nil {
		t.Fatalf("Save() = %v, want nil", err)
	}

	data, ok, err := s.Load(ctx, "queue:main")
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Load() = %q, want %q", data, payload)
	}
}

func TestSQLite_SaveReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_ = s.Save(ctx, "k", []byte("first"))
	if err := s.Save(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Save() = %v, want nil", err)
	}

	data, _, _ := s.Load(ctx, "k")
	if string(data) != "second" {
		t.Errorf("Load() = %q, want %q", data, "second")
	}
}

func TestSQLite_LoadMiss(t *testing.T) {
	s := newTestSQLite(t)

	data, ok, err := s.Load(context.Background(), "absent")
	if err != nil {
		t.Errorf("Load() = %v, want nil", err)
	}
	if ok || data != nil {
		t.Errorf("Load() = (%v, %v), want (nil, false)", data, ok)
	}
}

func TestSQLite_RemoveIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_ = s.Save(ctx, "k", []byte("v"))
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove() = %v, want nil", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("second Remove() = %v, want nil (idempotent)", err)
	}

	if _, ok, _ := s.Load(ctx, "k"); ok {
		t.Error("Load() after Remove ok = true, want false")
	}
}

func TestSQLite_InvalidKey(t *testing.T) {
	s := newTestSQLite(t)

	if err := s.Save(context.Background(), "", []byte("v")); err != ErrInvalidKey {
		t.Errorf("Save(\"\") = %v, want ErrInvalidKey", err)
	}
}
