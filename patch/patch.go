// Package patch commits a reviewed draft into its mod archive and copies
// the patched archive to an output folder.
package patch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minios-linux/modloc/draft"
	"github.com/minios-linux/modloc/modarchive"
)

// CopyError reports that the archive was patched but the copy to the output
// folder failed. The patch is kept; Committed.Retry runs the copy again.
type CopyError struct {
	Name string
	Dest string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copying patched %s to %s: %v", e.Name, e.Dest, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Committed describes an archive that now contains the new locale entry.
type Committed struct {
	// Archive is the patched archive.
	Archive string
	// Entry is the entry path written inside it.
	Entry string
	// Dest is the path of the copy in the output folder.
	Dest string
	// Copied is false when the copy step failed.
	Copied bool
}

// Name returns the archive file name.
func (c *Committed) Name() string { return filepath.Base(c.Archive) }

// Commit writes d as entryPath inside archive, then copies the archive to
// destDir under its own file name.
//
// When writing fails the archive is unchanged and the error is a
// *modarchive.ArchiveWriteError. When only the copy fails, Commit returns
// the Committed result together with a *CopyError.
func Commit(archive, entryPath string, d *draft.Draft, destDir string) (*Committed, error) {
	data, err := d.File().Marshal()
	if err != nil {
		return nil, &modarchive.ArchiveWriteError{Name: filepath.Base(archive), Entry: entryPath, Err: err}
	}
	if err := modarchive.WriteEntry(archive, entryPath, data); err != nil {
		return nil, err
	}

	c := &Committed{
		Archive: archive,
		Entry:   entryPath,
		Dest:    filepath.Join(destDir, filepath.Base(archive)),
	}
	if err := c.Retry(); err != nil {
		return c, err
	}
	return c, nil
}

// Retry copies the patched archive to Dest. It is a no-op once the copy has
// succeeded.
func (c *Committed) Retry() error {
	if c.Copied {
		return nil
	}
	if err := CopyFile(c.Archive, c.Dest); err != nil {
		return &CopyError{Name: c.Name(), Dest: c.Dest, Err: err}
	}
	c.Copied = true
	return nil
}

// CopyFile copies src to dst through a temporary file in dst's directory,
// so dst is either the complete copy or absent (or its previous version).
// Missing parent directories of dst are created.
func CopyFile(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), st.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
