// Package modarchive inspects mod archives (ZIP containers such as .jar
// files) for language resources and reads or replaces single entries in
// them.
//
// Language files live at assets/<namespace>/lang/<locale>.json. An archive
// without any entry under such a lang folder is not localizable and is never
// reported as missing a locale.
package modarchive

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// DefaultExt is the archive extension scanned when Options.Ext is empty.
const DefaultExt = ".jar"

// Archive describes one scanned mod archive.
type Archive struct {
	// Name is the file name (no directory).
	Name string
	// Path is the full path to the archive.
	Path string
	// Size is the archive size in bytes.
	Size int64
	// HasLocaleFolder is true when any entry lives under assets/*/lang/.
	HasLocaleFolder bool
	// HasTargetLocale is true when assets/*/lang/<target>.json exists.
	HasTargetLocale bool
	// Locales lists the locale codes found under lang folders, sorted.
	Locales []string
}

// MissingTarget reports whether the archive is localizable but lacks the
// target locale.
func (a *Archive) MissingTarget() bool {
	return a.HasLocaleFolder && !a.HasTargetLocale
}

// Options controls a scan.
type Options struct {
	// Ext is the archive file extension, matched case-insensitively.
	Ext string
	// TargetLocale is the locale whose file is looked for (e.g. "ru_ru").
	TargetLocale string
}

func (o Options) ext() string {
	if o.Ext == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(o.Ext, ".") {
		return "." + o.Ext
	}
	return o.Ext
}

// Scan lists the archives in dir in file name order and classifies each.
// The sequence is lazy: the directory is re-read on every range, and each
// archive is opened only when reached. An archive that cannot be read yields
// an *ArchiveReadError and the scan continues with the next one.
func Scan(dir string, opts Options) iter.Seq2[*Archive, error] {
	return func(yield func(*Archive, error) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			yield(nil, fmt.Errorf("reading %s: %w", dir, err))
			return
		}

		ext := strings.ToLower(opts.ext())
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ext) {
				continue
			}
			a, err := Inspect(filepath.Join(dir, entry.Name()), opts.TargetLocale)
			if !yield(a, err) {
				return
			}
		}
	}
}

// MissingTarget filters a scan down to archives that have a lang folder but
// no target locale file. Unreadable archives are dropped.
func MissingTarget(archives iter.Seq2[*Archive, error]) iter.Seq[*Archive] {
	return func(yield func(*Archive) bool) {
		for a, err := range archives {
			if err != nil || a == nil {
				continue
			}
			if a.MissingTarget() && !yield(a) {
				return
			}
		}
	}
}

// Collect drains a scan into archives and per-archive errors.
func Collect(archives iter.Seq2[*Archive, error]) ([]*Archive, []error) {
	var (
		out  []*Archive
		errs []error
	)
	for a, err := range archives {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, a)
	}
	return out, errs
}

// Inspect opens a single archive and classifies it against targetLocale.
func Inspect(path, targetLocale string) (*Archive, error) {
	name := filepath.Base(path)

	st, err := os.Stat(path)
	if err != nil {
		return nil, &ArchiveReadError{Name: name, Err: err}
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ArchiveReadError{Name: name, Err: err}
	}
	defer r.Close()

	a := &Archive{Name: name, Path: path, Size: st.Size()}
	seen := make(map[string]bool)
	for _, f := range r.File {
		locale, inLang := langEntry(f.Name)
		if !inLang {
			continue
		}
		a.HasLocaleFolder = true
		if locale == "" {
			continue
		}
		if targetLocale != "" && strings.EqualFold(locale, targetLocale) {
			a.HasTargetLocale = true
		}
		if !seen[locale] {
			seen[locale] = true
			a.Locales = append(a.Locales, locale)
		}
	}
	sort.Strings(a.Locales)
	return a, nil
}

// langEntry reports whether name lives under assets/<ns>/lang/ and, for a
// direct child ending in .json, returns its lower-cased locale code.
func langEntry(name string) (locale string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(name, "/"), "/")
	if len(parts) < 4 || parts[0] != "assets" || parts[2] != "lang" {
		return "", false
	}
	if len(parts) == 4 && strings.HasSuffix(strings.ToLower(parts[3]), ".json") {
		return strings.ToLower(parts[3][:len(parts[3])-len(".json")]), true
	}
	return "", true
}
