// Package config implements .modloc.yaml configuration file support.
//
// The file lives in the working root (--root) and is optional: every field
// has a default matching the stock layout (mods/, mods_list.txt,
// translated_mods/, translated_mods_list.txt, en_us -> ru_ru).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/modloc/draft"
	"github.com/minios-linux/modloc/langmeta"
	"github.com/minios-linux/modloc/ledger"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/pipeline"
	"github.com/minios-linux/modloc/translate"
)

// FileName is the default config file name.
const FileName = ".modloc.yaml"

// EnvFileName is the dotenv file loaded from the root, if present.
const EnvFileName = ".env"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .modloc.yaml structure.
type File struct {
	// BaseLocale is the locale translated from (default "en_us").
	BaseLocale string `yaml:"base_locale,omitempty"`
	// TargetLocale is the locale looked for and synthesized (default "ru_ru").
	TargetLocale string `yaml:"target_locale,omitempty"`
	// ArchiveExt is the mod archive extension (default ".jar").
	ArchiveExt string `yaml:"archive_ext,omitempty"`
	// PassThrough lists key prefixes copied untranslated (default ["a.lang."]).
	PassThrough []string `yaml:"pass_through,omitempty"`

	// Output locations, relative to the root.
	QuarantineDir string `yaml:"quarantine_dir,omitempty"`
	ManifestFile  string `yaml:"manifest_file,omitempty"`
	TranslatedDir string `yaml:"translated_dir,omitempty"`
	LedgerFile    string `yaml:"ledger_file,omitempty"`

	Provider Provider `yaml:"provider,omitempty"`
	Cache    Cache    `yaml:"cache,omitempty"`
}

// Provider selects the translation service.
type Provider struct {
	// ID is one of translate.ProviderIDs() (default "google").
	ID      string `yaml:"id,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Proxy   string `yaml:"proxy,omitempty"`
	// Timeout is a Go duration ("90s").
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// Cache configures the translation memory.
type Cache struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Path defaults to cache.db in the settings data directory.
	Path string `yaml:"path,omitempty"`
	// MemoryEntries is the size of the in-process tier.
	MemoryEntries int `yaml:"memory_entries,omitempty"`
}

// On reports whether the cache is enabled.
func (c Cache) On() bool { return c.Enabled == nil || *c.Enabled }

// Default returns the configuration used when no file exists.
func Default() *File {
	f := &File{}
	f.applyDefaults()
	return f
}

func (f *File) applyDefaults() {
	if f.BaseLocale == "" {
		f.BaseLocale = "en_us"
	}
	if f.TargetLocale == "" {
		f.TargetLocale = "ru_ru"
	}
	if f.ArchiveExt == "" {
		f.ArchiveExt = modarchive.DefaultExt
	}
	if len(f.PassThrough) == 0 {
		f.PassThrough = []string{draft.DefaultPassThroughPrefix}
	}
	if f.QuarantineDir == "" {
		f.QuarantineDir = ledger.DefaultQuarantineDir
	}
	if f.ManifestFile == "" {
		f.ManifestFile = ledger.DefaultManifestFile
	}
	if f.TranslatedDir == "" {
		f.TranslatedDir = ledger.DefaultTranslatedDir
	}
	if f.LedgerFile == "" {
		f.LedgerFile = ledger.DefaultLedgerFile
	}
	if f.Provider.ID == "" {
		f.Provider.ID = translate.ProviderGoogle
	}
	f.BaseLocale = langmeta.Canonicalize(f.BaseLocale)
	f.TargetLocale = langmeta.Canonicalize(f.TargetLocale)
	if !strings.HasPrefix(f.ArchiveExt, ".") {
		f.ArchiveExt = "." + f.ArchiveExt
	}
}

func (f *File) validate() error {
	if f.BaseLocale == f.TargetLocale {
		return fmt.Errorf("base_locale and target_locale are both %q", f.BaseLocale)
	}
	if !slices.Contains(translate.ProviderIDs(), f.Provider.ID) {
		return fmt.Errorf("provider.id %q is unknown (valid: %s)",
			f.Provider.ID, strings.Join(translate.ProviderIDs(), ", "))
	}
	if f.Provider.Timeout < 0 {
		return errors.New("provider.timeout must not be negative")
	}
	if f.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries must not be negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads path, or <rootDir>/.modloc.yaml when path is empty, applies
// defaults and validates. A missing default file yields Default(); a
// missing explicit path is an error. Unknown keys are rejected.
func Load(rootDir, path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(rootDir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// LoadEnv loads <rootDir>/.env into the process environment. Variables
// already set are kept. A missing file is not an error.
func LoadEnv(rootDir string) error {
	path := filepath.Join(rootDir, EnvFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Pipeline converts the file into a pipeline configuration rooted at
// rootDir.
func (f *File) Pipeline(rootDir string) pipeline.Config {
	return pipeline.Config{
		BaseLocale:    f.BaseLocale,
		TargetLocale:  f.TargetLocale,
		ArchiveExt:    f.ArchiveExt,
		PassThrough:   slices.Clone(f.PassThrough),
		OutputRoot:    rootDir,
		QuarantineDir: f.QuarantineDir,
		ManifestFile:  f.ManifestFile,
		TranslatedDir: f.TranslatedDir,
		LedgerFile:    f.LedgerFile,
	}
}

// TranslateProvider merges the file's provider section over the built-in
// definition of its ID. apiKey is resolved by the caller.
func (f *File) TranslateProvider(apiKey string) translate.Provider {
	p := translate.DefaultProviders()[f.Provider.ID]
	p.ID = f.Provider.ID
	p.APIKey = apiKey
	if f.Provider.Model != "" {
		p.Model = f.Provider.Model
	}
	if f.Provider.BaseURL != "" {
		p.BaseURL = f.Provider.BaseURL
	}
	if f.Provider.Proxy != "" {
		p.Proxy = f.Provider.Proxy
	}
	if f.Provider.Timeout > 0 {
		p.Timeout = f.Provider.Timeout
	}
	if f.Provider.MaxRetries > 0 {
		p.MaxRetries = f.Provider.MaxRetries
	}
	return p
}
