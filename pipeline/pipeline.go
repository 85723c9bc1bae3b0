// Package pipeline sequences the localization workflows over a folder of
// mod archives.
//
// Bulk quarantine scans a folder and copies every archive that lacks the
// target locale into a fresh output folder, with a manifest listing them.
// It runs on one background goroutine and reports through a channel of
// Events; only one quarantine runs per Pipeline at a time.
//
// Single-item translation reads one archive's base locale file, drafts the
// target locale, hands the draft to the caller for review, and commits it.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/minios-linux/modloc/draft"
	"github.com/minios-linux/modloc/ledger"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/translate"
)

// ErrBusy is reported when a quarantine is started while another runs.
var ErrBusy = errors.New("a quarantine run is already in progress")

// ErrArchiveLocked is reported when an archive already has an open session.
var ErrArchiveLocked = errors.New("archive is already being translated")

// ErrSessionClosed is returned by Session methods after commit or discard.
var ErrSessionClosed = errors.New("translation session is closed")

// ---------------------------------------------------------------------------
// States
// ---------------------------------------------------------------------------

// State is a workflow state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateCopying
	StateListing
	StateDrafting
	StateReviewing
	StateCommitting
	StateDone
)

var stateNames = [...]string{"idle", "scanning", "copying", "listing", "drafting", "reviewing", "committing", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StageError reports the stage a workflow failed in and the archive involved.
type StageError struct {
	Stage   State
	Archive string
	Err     error
}

func (e *StageError) Error() string {
	if e.Archive == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Archive, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds locales and output locations. Relative output paths are
// resolved against OutputRoot.
type Config struct {
	BaseLocale   string
	TargetLocale string
	ArchiveExt   string
	// PassThrough lists key prefixes copied untranslated.
	PassThrough []string

	OutputRoot    string
	QuarantineDir string
	ManifestFile  string
	TranslatedDir string
	LedgerFile    string
}

// DefaultConfig returns the stock locales and output names.
func DefaultConfig() Config {
	return Config{
		BaseLocale:    "en_us",
		TargetLocale:  "ru_ru",
		ArchiveExt:    modarchive.DefaultExt,
		PassThrough:   []string{draft.DefaultPassThroughPrefix},
		QuarantineDir: ledger.DefaultQuarantineDir,
		ManifestFile:  ledger.DefaultManifestFile,
		TranslatedDir: ledger.DefaultTranslatedDir,
		LedgerFile:    ledger.DefaultLedgerFile,
	}
}

func (c Config) out(name string) string {
	if filepath.IsAbs(name) || c.OutputRoot == "" {
		return name
	}
	return filepath.Join(c.OutputRoot, name)
}

func (c Config) scanOptions() modarchive.Options {
	return modarchive.Options{Ext: c.ArchiveExt, TargetLocale: c.TargetLocale}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Pipeline runs the workflows. Create it with New.
type Pipeline struct {
	Config     Config
	Translator translate.Translator
	Allocator  *ledger.Allocator
	Ledger     *ledger.Ledger
	// Sink receives the events of single-item workflows. May be nil.
	Sink func(Event)

	busy atomic.Bool

	mu     sync.Mutex
	locked map[string]bool
}

// New returns a pipeline for cfg that translates with tr.
func New(cfg Config, tr translate.Translator) *Pipeline {
	if tr == nil {
		tr = translate.Identity
	}
	return &Pipeline{
		Config:     cfg,
		Translator: tr,
		Allocator:  &ledger.Allocator{},
		Ledger:     ledger.Open(cfg.out(cfg.LedgerFile)),
		locked:     make(map[string]bool),
	}
}

func (p *Pipeline) emit(ev Event) {
	if p.Sink != nil {
		p.Sink(ev)
	}
}

// lock takes exclusive ownership of an archive path for one session.
func (p *Pipeline) lock(path string) bool {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locked[key] {
		return false
	}
	p.locked[key] = true
	return true
}

func (p *Pipeline) unlock(path string) {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	p.mu.Lock()
	delete(p.locked, key)
	p.mu.Unlock()
}

// progressText formats "<i>/<total> (<pct>%)".
func progressText(i, total int) string {
	pct := 100.0
	if total > 0 {
		pct = float64(i) / float64(total) * 100
	}
	return fmt.Sprintf("%d/%d (%.2f%%)", i, total, pct)
}
