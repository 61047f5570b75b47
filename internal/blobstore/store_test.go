package blobstore

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "blobstore-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := NewLocalStore(tmpDir, "clean/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()

	if _, err := store.Get(ctx, "registry/locations.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	exists, err := store.Exists(ctx, "registry/locations.csv")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("missing key should not exist")
	}

	data := []byte("id,town\n1,Springfield\n")
	if err := store.Put(ctx, "registry/locations.csv", data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "registry/locations.csv")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}

	exists, err = store.Exists(ctx, "registry/locations.csv")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("written key should exist")
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	store, err := NewMemStore("")
	if err != nil {
		t.Fatalf("NewMemStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, "counters.json", []byte(`{"transaction":5}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "counters.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"transaction":5}` {
		t.Errorf("unexpected content: %s", got)
	}
}

func TestGetVersionedMissingBlob(t *testing.T) {
	store, err := NewMemStore("")
	if err != nil {
		t.Fatalf("NewMemStore failed: %v", err)
	}
	defer store.Close()

	data, ver, err := GetVersioned(context.Background(), store, "registry/products.csv")
	if err != nil {
		t.Fatalf("GetVersioned failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data for missing blob, got %q", data)
	}
	if ver != NoVersion {
		t.Errorf("expected NoVersion for missing blob, got %q", ver)
	}
}

func TestPutVersionedDetectsConflict(t *testing.T) {
	store, err := NewMemStore("")
	if err != nil {
		t.Fatalf("NewMemStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := "registry/locations.csv"

	if err := store.Put(ctx, key, []byte("id,town\n1,Springfield\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, ver, err := GetVersioned(ctx, store, key)
	if err != nil {
		t.Fatalf("GetVersioned failed: %v", err)
	}

	// Concurrent writer overwrites the catalog between load and flush.
	if err := store.Put(ctx, key, []byte("id,town\n1,Springfield\n2,Shelbyville\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	err = PutVersioned(ctx, store, key, []byte("stale write"), ver)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	// The stale write must not have landed.
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "id,town\n1,Springfield\n2,Shelbyville\n" {
		t.Errorf("conflicting write overwrote the blob: %q", got)
	}
}

func TestPutVersionedFirstWrite(t *testing.T) {
	store, err := NewMemStore("")
	if err != nil {
		t.Fatalf("NewMemStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := PutVersioned(ctx, store, "counters.json", []byte(`{}`), NoVersion); err != nil {
		t.Fatalf("first PutVersioned should succeed, got %v", err)
	}

	// A second first-write against an existing blob must conflict.
	err = PutVersioned(ctx, store, "counters.json", []byte(`{"basket":1}`), NoVersion)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}
