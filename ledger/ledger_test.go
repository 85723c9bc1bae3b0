package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestClaimDirSequence(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mods")
	var a Allocator

	first, err := a.ClaimDir(base)
	if err != nil {
		t.Fatalf("ClaimDir: %v", err)
	}
	second, err := a.ClaimDir(base)
	if err != nil {
		t.Fatalf("ClaimDir: %v", err)
	}
	if first != base || second != base+"_1" {
		t.Fatalf("claims = %q, %q; want %q, %q", first, second, base, base+"_1")
	}
	if st, err := os.Stat(second); err != nil || !st.IsDir() {
		t.Fatalf("claimed path not a directory: %v", err)
	}
}

func TestAllocateHasNoSideEffects(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mods")
	var a Allocator

	p1, err := a.Allocate(base)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	p2, _ := a.Allocate(base)
	if p1 != p2 || p1 != base {
		t.Fatalf("unclaimed Allocate calls = %q, %q; want %q twice", p1, p2, base)
	}
	if _, err := os.Stat(base); !os.IsNotExist(err) {
		t.Fatalf("Allocate created %s", base)
	}

	if err := os.Mkdir(p1, 0o755); err != nil {
		t.Fatal(err)
	}
	if p3, _ := a.Allocate(base); p3 != base+"_1" {
		t.Fatalf("Allocate after claim = %q, want %q", p3, base+"_1")
	}
}

func TestClaimFileInsertsCounterBeforeExtension(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "mods_list.txt")
	if err := os.WriteFile(base, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mods_list_1.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var a Allocator
	p, err := a.ClaimFile(base)
	if err != nil {
		t.Fatalf("ClaimFile: %v", err)
	}
	if want := filepath.Join(dir, "mods_list_2.txt"); p != want {
		t.Fatalf("ClaimFile = %q, want %q", p, want)
	}
	if data, _ := os.ReadFile(base); string(data) != "old\n" {
		t.Fatalf("existing file touched: %q", data)
	}
}

func TestConcurrentClaimsAreDistinct(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "mods")
	var (
		a   Allocator
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[string]bool)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := a.ClaimDir(base)
			if err != nil {
				t.Errorf("ClaimDir: %v", err)
				return
			}
			mu.Lock()
			got[p] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(got) != 8 {
		t.Fatalf("got %d distinct paths, want 8: %v", len(got), got)
	}
}

func TestWriteManifest(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mods_list.txt")
	if err := WriteManifest(p, []string{"a.jar", "b.jar"}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "a.jar\nb.jar\n" {
		t.Fatalf("manifest = %q", data)
	}
}

func TestLedgerAppendOnly(t *testing.T) {
	p := filepath.Join(t.TempDir(), "translated_mods_list.txt")
	if err := os.WriteFile(p, []byte("earlier.jar\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := Open(p)
	for _, n := range []string{"one.jar", "two.jar"} {
		if err := l.AppendProcessed(n); err != nil {
			t.Fatalf("AppendProcessed(%s): %v", n, err)
		}
	}

	data, _ := os.ReadFile(p)
	if string(data) != "earlier.jar\none.jar\ntwo.jar\n" {
		t.Fatalf("ledger = %q", data)
	}
	names, err := l.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"earlier.jar", "one.jar", "two.jar"}) {
		t.Fatalf("Names = %v", names)
	}
}

func TestLedgerWriteError(t *testing.T) {
	dir := t.TempDir()
	l := Open(dir) // a directory cannot be opened for append

	err := l.AppendProcessed("x.jar")
	var lwe *LedgerWriteError
	if !errors.As(err, &lwe) || lwe.Name != "x.jar" {
		t.Fatalf("error = %v, want *LedgerWriteError for x.jar", err)
	}

	if err := Open(filepath.Join(dir, "l.txt")).AppendProcessed("bad\nname"); !errors.As(err, &lwe) {
		t.Fatalf("multi-line name error = %v", err)
	}

	names, err := Open(filepath.Join(dir, "missing.txt")).Names()
	if err != nil || names != nil {
		t.Fatalf("Names on missing ledger = (%v, %v)", names, err)
	}
}
