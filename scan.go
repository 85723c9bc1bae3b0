package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/minios-linux/modloc/i18n"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/pipeline"
)

// ---------------------------------------------------------------------------
// scan (read-only: archive list with locale status)
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "scan [DIR]",
		Short: "List mod archives and their locale status",
		Long: `List every mod archive in DIR (default: --root) with its size, the
locales it ships and whether the target locale is present. Does not modify
any files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p := newPipeline(cfg)
			archives, errs := p.ListArchives(dirArg(args))
			for _, err := range errs {
				var re *modarchive.ArchiveReadError
				if !errors.As(err, &re) {
					return err
				}
				logWarning("%v", err)
			}
			printArchives(cmd.OutOrStdout(), archives, cfg.TargetLocale, missingOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing", false, "Only list archives missing the target locale")
	return cmd
}

// archiveStatus returns the colored status cell of an archive.
func archiveStatus(a *modarchive.Archive, target string) string {
	switch {
	case !a.HasLocaleFolder:
		return color.New(color.Faint).Sprint(i18n.T("no lang folder"))
	case a.HasTargetLocale:
		return color.GreenString(i18n.T("has %s"), target)
	default:
		return color.RedString(i18n.T("missing %s"), target)
	}
}

func printArchives(w io.Writer, archives []*modarchive.Archive, target string, missingOnly bool) {
	width := 0
	for _, a := range archives {
		width = max(width, len(a.Name))
	}

	missing := 0
	for _, a := range archives {
		if a.MissingTarget() {
			missing++
		} else if missingOnly {
			continue
		}
		fmt.Fprintf(w, "  %-*s  %9s  %s", width, a.Name, humanize.Bytes(uint64(a.Size)), archiveStatus(a, target))
		if len(a.Locales) > 0 {
			fmt.Fprintf(w, "  (%s)", strings.Join(a.Locales, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, i18n.N("%d archive scanned", "%d archives scanned", len(archives)), len(archives))
	fmt.Fprint(w, ", ")
	fmt.Fprintf(w, i18n.N("%d missing %s", "%d missing %s", missing), missing, target)
	fmt.Fprintln(w)
}

// ---------------------------------------------------------------------------
// quarantine (bulk copy of archives missing the target locale)
// ---------------------------------------------------------------------------

func newQuarantineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quarantine [DIR]",
		Short: "Copy archives missing the target locale into a new folder",
		Long: `Scan DIR (default: --root) and copy every archive that has a lang folder
but no target locale file into a new quarantine folder (mods/, or mods_1/,
mods_2/ ... when taken), then write their names to mods_list.txt (or the
next free mods_list_N.txt). Unreadable archives are reported and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			rep, err := followQuarantine(newPipeline(cfg).Quarantine(ctx, dirArg(args)), os.Stderr)
			if err != nil {
				return err
			}
			printQuarantineReport(rep)
			return nil
		},
	}
}

// followQuarantine renders the events of a quarantine run and returns its
// report. Only ErrBusy and folder-level failures are returned as errors.
func followQuarantine(events <-chan pipeline.Event, barOut io.Writer) (*pipeline.Report, error) {
	var bar *progressbar.ProgressBar
	for ev := range events {
		switch ev.Kind {
		case pipeline.EventLog:
			if ev.Path != "" {
				logInfo(i18n.T(ev.Message), relPath(ev.Path))
			} else {
				logInfo("%s", i18n.T(ev.Message))
			}
		case pipeline.EventProgress:
			if bar == nil {
				bar = progressbar.NewOptions(ev.Total,
					progressbar.OptionSetWriter(barOut),
					progressbar.OptionEnableColorCodes(!color.NoColor),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription(i18n.T("Copying")),
				)
			}
			_ = bar.Set(ev.Done)
		case pipeline.EventItemFailed:
			logWarning(i18n.T("Skipped %s: %v"), ev.Archive, ev.Err)
		case pipeline.EventDone:
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(barOut)
			}
			if errors.Is(ev.Err, pipeline.ErrBusy) {
				return nil, ev.Err
			}
			for _, err := range multierr.Errors(ev.Err) {
				var se *pipeline.StageError
				if errors.As(err, &se) && (se.Archive == "" || se.Stage == pipeline.StateScanning) {
					return ev.Report, err
				}
				if errors.Is(err, context.Canceled) {
					return ev.Report, err
				}
			}
			return ev.Report, nil
		}
	}
	return nil, errors.New("quarantine ended without a report")
}

func printQuarantineReport(rep *pipeline.Report) {
	if rep.Missing == 0 {
		return
	}
	logSuccess(i18n.N("Copied %d of %d archive", "Copied %d of %d archives", rep.Missing), rep.Copied, rep.Missing)
	if rep.Failed > 0 {
		logWarning(i18n.N("%d archive could not be copied", "%d archives could not be copied", rep.Failed), rep.Failed)
	}
	if rep.Unreadable > 0 {
		logWarning(i18n.N("%d archive could not be read", "%d archives could not be read", rep.Unreadable), rep.Unreadable)
	}
	logSuccess(i18n.T("Processing finished. Check the created folders and files."))
}

// ---------------------------------------------------------------------------
// ledger (translated archives)
// ---------------------------------------------------------------------------

func newLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "List archives already translated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			l := newPipeline(cfg).Ledger
			names, err := l.Names()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				logInfo(i18n.T("No archives translated yet (%s)"), relPath(l.Path()))
				return nil
			}
			out := cmd.OutOrStdout()
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			logInfo(i18n.N("%d archive translated", "%d archives translated", len(names)), len(names))
			return nil
		},
	}
}
