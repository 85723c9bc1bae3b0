package modarchive

import "fmt"

// ArchiveReadError reports an archive that could not be opened or listed.
// Scans skip such archives and keep going.
type ArchiveReadError struct {
	Name string
	Err  error
}

func (e *ArchiveReadError) Error() string {
	return fmt.Sprintf("reading archive %s: %v", e.Name, e.Err)
}

func (e *ArchiveReadError) Unwrap() error { return e.Err }

// MissingBaseResourceError reports an archive without a base locale file.
type MissingBaseResourceError struct {
	Name   string
	Locale string
}

func (e *MissingBaseResourceError) Error() string {
	return fmt.Sprintf("archive %s has no lang/%s.json entry", e.Name, e.Locale)
}

// MalformedResourceError reports a base locale file that is not a flat
// key/value text document.
type MalformedResourceError struct {
	Name  string
	Entry string
	Err   error
}

func (e *MalformedResourceError) Error() string {
	return fmt.Sprintf("archive %s: %s: %v", e.Name, e.Entry, e.Err)
}

func (e *MalformedResourceError) Unwrap() error { return e.Err }

// ArchiveWriteError reports a failed entry write. The archive on disk is
// left exactly as it was before the write started.
type ArchiveWriteError struct {
	Name  string
	Entry string
	Err   error
}

func (e *ArchiveWriteError) Error() string {
	return fmt.Sprintf("writing %s into archive %s: %v", e.Entry, e.Name, e.Err)
}

func (e *ArchiveWriteError) Unwrap() error { return e.Err }
