package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/minios-linux/modloc/ledger"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/patch"
)

// Quarantine scans dir and copies every archive missing the target locale
// into a newly claimed quarantine folder, then writes the manifest.
//
// The work runs on one background goroutine. The returned channel carries
// its events and is closed after the EventDone event. If another quarantine
// is running, the only event is an EventDone whose Err is ErrBusy.
//
// An item that has started is always finished; cancelling ctx only stops
// the run before the next item, and the Report then carries ctx.Err().
// A caller that cancels may stop reading: events that would block are then
// dropped, and EventDone waits at most abandonWait for a reader. The
// channel is closed and the pipeline freed either way.
func (p *Pipeline) Quarantine(ctx context.Context, dir string) <-chan Event {
	ch := make(chan Event, 16)
	if !p.busy.CompareAndSwap(false, true) {
		ch <- Event{Kind: EventDone, Err: ErrBusy}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		defer p.busy.Store(false)

		send := func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
				select {
				case ch <- ev:
				default:
				}
			}
		}
		rep := p.quarantine(ctx, dir, send)

		done := Event{Kind: EventDone, State: StateDone, Report: rep, Err: rep.Err}
		select {
		case ch <- done:
		case <-ctx.Done():
			t := time.NewTimer(abandonWait)
			defer t.Stop()
			select {
			case ch <- done:
			case <-t.C:
			}
		}
	}()
	return ch
}

// abandonWait bounds how long a cancelled run waits to hand over EventDone.
var abandonWait = 2 * time.Second

func (p *Pipeline) quarantine(ctx context.Context, dir string, send func(Event)) *Report {
	rep := &Report{}
	state := func(s State) { send(Event{Kind: EventState, State: s}) }

	send(Event{Kind: EventLog, Message: "Selected folder: %s", Path: dir})
	state(StateScanning)

	var missing []*modarchive.Archive
	for a, err := range modarchive.Scan(dir, p.Config.scanOptions()) {
		if err != nil {
			var re *modarchive.ArchiveReadError
			if errors.As(err, &re) {
				rep.Unreadable++
				send(Event{Kind: EventItemFailed, State: StateScanning, Archive: re.Name, Err: err})
				rep.Err = multierr.Append(rep.Err, err)
				continue
			}
			// The folder itself could not be listed.
			rep.Err = multierr.Append(rep.Err, &StageError{Stage: StateScanning, Archive: dir, Err: err})
			return rep
		}
		rep.Scanned++
		if a.MissingTarget() {
			missing = append(missing, a)
		}
		if err := ctx.Err(); err != nil {
			rep.Err = multierr.Append(rep.Err, err)
			return rep
		}
	}
	rep.Missing = len(missing)
	if len(missing) == 0 {
		send(Event{Kind: EventLog, Message: "No archives are missing the target locale"})
		return rep
	}

	state(StateCopying)
	destDir, err := p.Allocator.ClaimDir(p.Config.out(p.Config.QuarantineDir))
	if err != nil {
		rep.Err = multierr.Append(rep.Err, &StageError{Stage: StateCopying, Err: err})
		return rep
	}
	rep.DestDir = destDir
	send(Event{Kind: EventLog, Message: "Quarantine folder: %s", Path: destDir})
	send(Event{Kind: EventLog, Message: "Copying mods..."})

	for i, a := range missing {
		if err := ctx.Err(); err != nil {
			rep.Err = multierr.Append(rep.Err, err)
			break
		}
		if err := patch.CopyFile(a.Path, filepath.Join(destDir, a.Name)); err != nil {
			rep.Failed++
			err = &StageError{Stage: StateCopying, Archive: a.Name, Err: err}
			rep.Err = multierr.Append(rep.Err, err)
			send(Event{Kind: EventItemFailed, State: StateCopying, Archive: a.Name, Err: err})
		} else {
			rep.Copied++
		}
		send(Event{
			Kind:    EventProgress,
			State:   StateCopying,
			Archive: a.Name,
			Done:    i + 1,
			Total:   len(missing),
			Message: progressText(i+1, len(missing)),
		})
	}

	send(Event{Kind: EventLog, Message: "Writing mod list..."})
	for _, a := range missing {
		rep.Names = append(rep.Names, a.Name)
	}
	manifest, err := p.Allocator.ClaimFile(p.Config.out(p.Config.ManifestFile))
	if err == nil {
		err = ledger.WriteManifest(manifest, rep.Names)
	}
	if err != nil {
		rep.Err = multierr.Append(rep.Err, &StageError{Stage: StateCopying, Err: err})
		return rep
	}
	rep.Manifest = manifest
	send(Event{Kind: EventLog, Message: "Mod list written to %s", Path: manifest})
	return rep
}
