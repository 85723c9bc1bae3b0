// Package ledger keeps the bookkeeping that makes repeated runs
// non-destructive: collision-free output paths and the append-only list of
// archives that were already translated.
//
// Output paths are <base>, then <base>_1, <base>_2 and so on, with the
// counter inserted before the extension ("mods_list.txt" ->
// "mods_list_1.txt"). The ledger file is only ever appended to.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Default file and folder names, relative to the working directory.
const (
	DefaultQuarantineDir = "mods"
	DefaultManifestFile  = "mods_list.txt"
	DefaultTranslatedDir = "translated_mods"
	DefaultLedgerFile    = "translated_mods_list.txt"
)

// ---------------------------------------------------------------------------
// Unique paths
// ---------------------------------------------------------------------------

// Allocator hands out output paths that do not exist yet. Claim methods
// create the path while holding the allocator lock, so no two callers of
// the same Allocator can receive the same path.
type Allocator struct {
	mu sync.Mutex
}

// candidate returns the n-th candidate for base (n == 0 is base itself).
func candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Allocate returns the first free candidate for base without creating it.
// Two calls with nothing claimed in between return the same path.
func (a *Allocator) Allocate(base string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, _, err := firstFree(base, 0)
	return p, err
}

// firstFree returns the first free candidate from counter from on, and its
// counter.
func firstFree(base string, from int) (string, int, error) {
	for n := from; ; n++ {
		p := candidate(base, n)
		ok, err := exists(p)
		if err != nil {
			return "", 0, fmt.Errorf("checking %s: %w", p, err)
		}
		if !ok {
			return p, n, nil
		}
	}
}

// ClaimDir allocates a free directory path for base and creates it.
func (a *Allocator) ClaimDir(base string) (string, error) {
	return a.claim(base, func(p string) error {
		return os.Mkdir(p, 0o755)
	})
}

// ClaimFile allocates a free file path for base and creates it empty.
func (a *Allocator) ClaimFile(base string) (string, error) {
	return a.claim(base, func(p string) error {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		return f.Close()
	})
}

// claim creates the first free candidate with create, which must fail with
// fs.ErrExist when the path appeared since it was checked. Another process
// winning that race moves the search to the next candidate.
func (a *Allocator) claim(base string, create func(string) error) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	for from := 0; ; {
		p, n, err := firstFree(base, from)
		if err != nil {
			return "", err
		}
		err = create(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("creating %s: %w", p, err)
		}
		from = n + 1
	}
}

// ---------------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------------

// WriteManifest writes names to path, one per line, newline-terminated,
// without a header.
func WriteManifest(path string, names []string) error {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Processed ledger
// ---------------------------------------------------------------------------

// LedgerWriteError reports a failed append. The archive-side work it was
// recording has already happened and stays in place.
type LedgerWriteError struct {
	Path string
	Name string
	Err  error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("recording %s in %s: %v", e.Name, e.Path, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// Ledger is the append-only list of processed archive names.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// Open returns the ledger stored at path. The file is created on the first
// append.
func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// AppendProcessed appends name as one line. Earlier content is never read
// or rewritten.
func (l *Ledger) AppendProcessed(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fail := func(err error) error {
		return &LedgerWriteError{Path: l.path, Name: name, Err: err}
	}
	if strings.ContainsAny(name, "\r\n") {
		return fail(errors.New("name contains a line break"))
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fail(err)
	}
	if _, err := f.WriteString(name + "\n"); err != nil {
		f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}
	return nil
}

// Names returns the recorded names in append order. A missing ledger file
// is an empty ledger.
func (l *Ledger) Names() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	return names, nil
}
