package modarchive

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/minios-linux/modloc/langfile"
)

// Resource is a language file read out of an archive.
type Resource struct {
	// Entry is the archive entry path the file was read from.
	Entry string
	// File is the parsed key/value map.
	File *langfile.File
	// Candidates is the number of entries that matched the locale. When it
	// is greater than one, the first in archive listing order was used.
	Candidates int
}

// isLocaleFile reports whether name is a lang/<locale>.json file entry.
func isLocaleFile(name, locale string) bool {
	if strings.HasSuffix(name, "/") {
		return false
	}
	return strings.EqualFold(path.Base(name), locale+".json") &&
		path.Base(path.Dir(name)) == "lang"
}

// ReadBaseResource reads the base locale file from the archive at
// archivePath. The first matching entry in listing order wins.
func ReadBaseResource(archivePath, baseLocale string) (*Resource, error) {
	name := filepath.Base(archivePath)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &ArchiveReadError{Name: name, Err: err}
	}
	defer r.Close()

	var (
		found      *zip.File
		candidates int
	)
	for _, f := range r.File {
		if !isLocaleFile(f.Name, baseLocale) {
			continue
		}
		candidates++
		if found == nil {
			found = f
		}
	}
	if found == nil {
		return nil, &MissingBaseResourceError{Name: name, Locale: baseLocale}
	}

	rc, err := found.Open()
	if err != nil {
		return nil, &ArchiveReadError{Name: name, Err: fmt.Errorf("opening %s: %w", found.Name, err)}
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, &ArchiveReadError{Name: name, Err: fmt.Errorf("reading %s: %w", found.Name, err)}
	}

	file, err := langfile.Parse(data)
	if err != nil {
		return nil, &MalformedResourceError{Name: name, Entry: found.Name, Err: err}
	}

	return &Resource{Entry: found.Name, File: file, Candidates: candidates}, nil
}

// TargetEntryPath returns the sibling entry of baseEntry for locale, e.g.
// assets/mod/lang/en_us.json -> assets/mod/lang/ru_ru.json.
func TargetEntryPath(baseEntry, locale string) string {
	return path.Join(path.Dir(baseEntry), locale+".json")
}

// rename is replaced in tests to simulate a failed final swap.
var rename = os.Rename

// WriteEntry stores data as entryPath inside the archive, replacing an entry
// of the same name. Every other entry is copied raw, without recompression.
//
// The new archive is built in a temporary file next to the original and
// renamed over it only after it is complete, so on any error the original
// is left untouched and an *ArchiveWriteError is returned.
func WriteEntry(archivePath, entryPath string, data []byte) (err error) {
	name := filepath.Base(archivePath)
	fail := func(e error) error {
		return &ArchiveWriteError{Name: name, Entry: entryPath, Err: e}
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fail(err)
	}
	defer r.Close()

	st, err := os.Stat(archivePath)
	if err != nil {
		return fail(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "."+name+".*.tmp")
	if err != nil {
		return fail(fmt.Errorf("creating temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := zip.NewWriter(tmp)
	if r.Comment != "" {
		if err := w.SetComment(r.Comment); err != nil {
			return fail(err)
		}
	}
	for _, f := range r.File {
		if f.Name == entryPath {
			continue
		}
		if err := w.Copy(f); err != nil {
			return fail(fmt.Errorf("copying %s: %w", f.Name, err))
		}
	}

	hdr := &zip.FileHeader{
		Name:     entryPath,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	ew, err := w.CreateHeader(hdr)
	if err != nil {
		return fail(err)
	}
	if _, err := ew.Write(data); err != nil {
		return fail(err)
	}
	if err := w.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmpPath, st.Mode().Perm()); err != nil {
		return fail(err)
	}

	// Release the reader before swapping files.
	r.Close()
	if err := rename(tmpPath, archivePath); err != nil {
		return fail(fmt.Errorf("replacing archive: %w", err))
	}
	return nil
}
