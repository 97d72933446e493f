package block

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vectors.bin"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	payload := []byte("hello, block store")
	id, err := s.Store(payload, 0)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestStoreMultiPageRecord(t *testing.T) {
	s := openTestStore(t)

	payload := bytes.Repeat([]byte{0xAB}, pagePayloadSize*3+17)
	id, err := s.Store(payload, 0)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("multi-page record mismatch")
	}
}

func TestStoreRewriteShorter(t *testing.T) {
	s := openTestStore(t)

	long := bytes.Repeat([]byte{1}, pagePayloadSize*2+10)
	id, err := s.Store(long, 0)
	if err != nil {
		t.Fatal(err)
	}

	short := []byte("short")
	id2, err := s.Store(short, id)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if id2 != id {
		t.Fatalf("rewrite changed primary id: %d -> %d", id, id2)
	}

	got, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, short) {
		t.Fatalf("got %q, want %q", got, short)
	}
}

func TestStoreRewriteLonger(t *testing.T) {
	s := openTestStore(t)

	short := []byte("short")
	id, err := s.Store(short, 0)
	if err != nil {
		t.Fatal(err)
	}

	long := bytes.Repeat([]byte{2}, pagePayloadSize*2+10)
	id2, err := s.Store(long, id)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if id2 != id {
		t.Fatalf("rewrite changed primary id: %d -> %d", id, id2)
	}

	got, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, long) {
		t.Fatal("longer rewrite mismatch")
	}
}

func TestStoreDistinctIDsInterleaved(t *testing.T) {
	s := openTestStore(t)

	a, err := s.Store([]byte("record-a"), 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Store([]byte("record-b-longer-payload"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Store([]byte("record-a-updated"), a); err != nil {
		t.Fatal(err)
	}

	gotA, err := s.Load(a)
	if err != nil {
		t.Fatal(err)
	}
	gotB, err := s.Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotA) != "record-a-updated" {
		t.Fatalf("got %q", gotA)
	}
	if string(gotB) != "record-b-longer-payload" {
		t.Fatalf("got %q", gotB)
	}
}

func TestRootHeader(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Store([]byte("root node"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetRoot(id); err != nil {
		t.Fatal(err)
	}
	if got := s.Root(); got != id {
		t.Fatalf("Root() = %d, want %d", got, id)
	}
}

func TestLoadCorruptChainOnBadLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Store([]byte("some bytes"), 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Corrupt the on-disk record_length field directly.
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatal(err)
	}
	off := pageOffset(id) + 33 // record_length field offset within header
	if _, err := f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, off); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.Load(id); err == nil {
		t.Fatal("expected CorruptChain error")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Store([]byte("persisted"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetRoot(id); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if got := s2.Root(); got != id {
		t.Fatalf("Root() after reopen = %d, want %d", got, id)
	}
	got, err := s2.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "persisted" {
		t.Fatalf("got %q", got)
	}
}
