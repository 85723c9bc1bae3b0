package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/minios-linux/modloc/draft"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/patch"
)

// ListArchives returns every archive in dir with its locale status, plus the
// errors of archives that could not be read.
func (p *Pipeline) ListArchives(dir string) ([]*modarchive.Archive, []error) {
	p.emit(Event{Kind: EventState, State: StateListing})
	return modarchive.Collect(modarchive.Scan(dir, p.Config.scanOptions()))
}

// Session is one archive's translation, from draft to commit. The draft is
// owned by the session; edit it through Draft().Set before Commit.
type Session struct {
	p         *Pipeline
	archive   string
	baseEntry string
	entry     string
	draft     *draft.Draft
	state     State
}

// BeginTranslation drafts the target locale for the archive at path and
// returns a session in the reviewing state. The archive stays locked
// against other sessions of p until Commit or Discard.
func (p *Pipeline) BeginTranslation(ctx context.Context, path string) (*Session, error) {
	name := filepath.Base(path)
	fail := func(err error) error {
		return &StageError{Stage: StateDrafting, Archive: name, Err: err}
	}
	if !p.lock(path) {
		return nil, fail(ErrArchiveLocked)
	}

	p.emit(Event{Kind: EventState, State: StateDrafting, Archive: name})
	res, err := modarchive.ReadBaseResource(path, p.Config.BaseLocale)
	if err != nil {
		p.unlock(path)
		return nil, fail(err)
	}
	if res.Candidates > 1 {
		p.emit(Event{
			Kind:    EventWarning,
			Archive: name,
			Err:     fmt.Errorf("%d %s.json entries found, using %s", res.Candidates, p.Config.BaseLocale, res.Entry),
		})
	}

	d, err := draft.Build(ctx, res.File, draft.Options{
		PassThrough: draft.PrefixPassThrough(p.Config.PassThrough...),
		Translator:  p.Translator,
		Source:      p.Config.BaseLocale,
		Target:      p.Config.TargetLocale,
		OnWarn: func(w *draft.TransformFailure) {
			p.emit(Event{Kind: EventWarning, State: StateDrafting, Archive: name, Err: w})
		},
		OnProgress: func(done, total int) {
			p.emit(Event{
				Kind:    EventProgress,
				State:   StateDrafting,
				Archive: name,
				Done:    done,
				Total:   total,
				Message: progressText(done, total),
			})
		},
	})
	if err != nil {
		p.unlock(path)
		return nil, fail(err)
	}

	p.emit(Event{Kind: EventState, State: StateReviewing, Archive: name})
	return &Session{
		p:         p,
		archive:   path,
		baseEntry: res.Entry,
		entry:     modarchive.TargetEntryPath(res.Entry, p.Config.TargetLocale),
		draft:     d,
		state:     StateReviewing,
	}, nil
}

// Archive returns the archive path.
func (s *Session) Archive() string { return s.archive }

// BaseEntry returns the entry the draft was built from.
func (s *Session) BaseEntry() string { return s.baseEntry }

// Entry returns the entry the draft will be written to.
func (s *Session) Entry() string { return s.entry }

// Draft returns the draft under review.
func (s *Session) Draft() *draft.Draft { return s.draft }

// State returns the session state.
func (s *Session) State() State { return s.state }

// Commit writes the draft into the archive, copies the archive to the
// translated folder, and records it in the ledger.
//
// A failed write returns to StateIdle with the archive unchanged. A failed
// copy still reaches StateDone: the result is returned with an error
// wrapping *patch.CopyError, and Committed.Retry can repeat the copy. A
// failed ledger append is only reported as an EventWarning.
func (s *Session) Commit() (*patch.Committed, error) {
	if s.state != StateReviewing {
		return nil, ErrSessionClosed
	}
	p, name := s.p, filepath.Base(s.archive)
	defer p.unlock(s.archive)

	s.state = StateCommitting
	p.emit(Event{Kind: EventState, State: StateCommitting, Archive: name})

	c, err := patch.Commit(s.archive, s.entry, s.draft, p.Config.out(p.Config.TranslatedDir))
	if c == nil {
		s.state = StateIdle
		p.emit(Event{Kind: EventState, State: StateIdle, Archive: name})
		return nil, &StageError{Stage: StateCommitting, Archive: name, Err: err}
	}

	if lerr := p.Ledger.AppendProcessed(name); lerr != nil {
		p.emit(Event{Kind: EventWarning, State: StateCommitting, Archive: name, Err: lerr})
	}

	s.state = StateDone
	p.emit(Event{Kind: EventState, State: StateDone, Archive: name})
	var ce *patch.CopyError
	if errors.As(err, &ce) {
		return c, &StageError{Stage: StateCommitting, Archive: name, Err: err}
	}
	return c, nil
}

// Discard drops the draft and releases the archive. Nothing is written.
func (s *Session) Discard() {
	if s.state != StateReviewing {
		return
	}
	s.state = StateIdle
	s.p.unlock(s.archive)
	s.p.emit(Event{Kind: EventState, State: StateIdle, Archive: filepath.Base(s.archive)})
}
