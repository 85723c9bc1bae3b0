// modloc: Minecraft mod localization kit. Finds mod archives without a
// target locale, quarantines them, drafts translations and patches them back.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modloc/config"
	"github.com/minios-linux/modloc/i18n"
	"github.com/minios-linux/modloc/pipeline"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoTag    = color.New(color.FgBlue)
	successTag = color.New(color.FgGreen)
	warningTag = color.New(color.FgYellow, color.Bold)
	errorTag   = color.New(color.FgRed)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoTag.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successTag.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warningTag.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorTag.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	noColor    bool
	uiLang     string
)

// loadConfig reads the configuration for the current --root / --config.
func loadConfig() (*config.File, error) {
	return config.Load(rootDir, configPath)
}

// newPipeline builds a pipeline rooted at --root.
func newPipeline(cfg *config.File) *pipeline.Pipeline {
	return pipeline.New(cfg.Pipeline(rootDir), nil)
}

// dirArg returns the folder argument, defaulting to --root.
func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return rootDir
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modloc",
		Short: "Find, quarantine and translate mods missing a locale",
		Long: `modloc: Minecraft mod localization kit.

Scans a folder of mod archives (.jar) for assets/<mod>/lang/ files, copies
the archives that lack the target locale (ru_ru by default) into a fresh
quarantine folder, drafts the missing locale from en_us with a machine
translator, lets you review it and writes it back into the archive.

Commands:
  scan        List archives and their locale status
  quarantine  Copy archives missing the target locale into mods/
  translate   Draft, review and commit the target locale of one archive
  ledger      Show archives already translated
  auth        Manage provider API keys

Outputs are never overwritten: when mods/ exists, mods_1/ is used, and so on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			i18n.Setup(uiLang)
			return config.LoadEnv(rootDir)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Working directory for outputs and .modloc.yaml")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.FileName+")")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringVar(&uiLang, "lang", "", "Message language (default: from LANGUAGE, LC_ALL, LC_MESSAGES or LANG)")
	_ = root.RegisterFlagCompletionFunc("lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return append([]string{"en"}, i18n.Languages()...), cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newScanCmd(),
		newQuarantineCmd(),
		newTranslateCmd(),
		newLedgerCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "modloc version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// relPath shortens path relative to --root for display.
func relPath(path string) string {
	if rel, err := filepath.Rel(rootDir, path); err == nil && !filepath.IsAbs(rel) && rel != "" && rel[0] != '.' {
		return rel
	}
	return path
}
