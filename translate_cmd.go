package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modloc/config"
	"github.com/minios-linux/modloc/draft"
	"github.com/minios-linux/modloc/i18n"
	"github.com/minios-linux/modloc/modarchive"
	"github.com/minios-linux/modloc/patch"
	"github.com/minios-linux/modloc/pipeline"
	"github.com/minios-linux/modloc/settings"
	"github.com/minios-linux/modloc/tmcache"
	"github.com/minios-linux/modloc/translate"
)

// ---------------------------------------------------------------------------
// translate (draft, review, commit one archive)
// ---------------------------------------------------------------------------

type providerFlags struct {
	id, model, apiKey, baseURL, proxy string
	timeout                           time.Duration
	maxRetries                        int
}

func newTranslateCmd() *cobra.Command {
	var (
		pf      providerFlags
		yes     bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "translate [ARCHIVE|DIR]",
		Short: "Draft, review and commit the target locale of one archive",
		Long: `Translate the base locale file (en_us.json) of one mod archive into the
target locale and write it back into the archive.

With a folder argument (default: --root) the archive is picked from a menu.
The draft is shown for review: pick a key to edit its value, then save or
cancel. Saving writes assets/<mod>/lang/<target>.json into the archive,
copies the archive to translated_mods/ and appends its name to
translated_mods_list.txt. Keys starting with "a.lang." are never translated.

Examples:
  # Free Google Translate (default)
  modloc translate mods/examplemod.jar

  # OpenAI-compatible provider
  modloc translate --provider groq --model llama-3.3-70b-versatile mods/

  # Local Ollama server, no review
  modloc translate --provider ollama --model qwen2.5 --yes mods/examplemod.jar`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(dirArg(args), pf, yes, noCache)
		},
	}

	cmd.Flags().StringVar(&pf.id, "provider", "", "Translation provider: "+strings.Join(translate.ProviderIDs(), ", "))
	cmd.Flags().StringVar(&pf.model, "model", "", "Model name (AI providers)")
	cmd.Flags().StringVar(&pf.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	cmd.Flags().StringVar(&pf.baseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().StringVar(&pf.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().DurationVar(&pf.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	cmd.Flags().IntVar(&pf.maxRetries, "max-retries", 0, "Maximum retries on rate limits and server errors (0 = provider default)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Commit the draft without review")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not use the translation memory")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defs := translate.DefaultProviders()
		var out []string
		for _, id := range translate.ProviderIDs() {
			out = append(out, id+"\t"+defs[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(target string, pf providerFlags, yes, noCache bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prov := resolveProvider(cfg, pf)
	if err := validateProvider(prov); err != nil {
		return err
	}
	tr, closeTr, err := openTranslator(cfg, prov, noCache)
	if err != nil {
		return err
	}
	defer closeTr()

	p := pipeline.New(cfg.Pipeline(rootDir), tr)
	ui := promptUI{}

	path := target
	if fi, err := os.Stat(target); err != nil {
		return err
	} else if fi.IsDir() {
		archives, errs := p.ListArchives(target)
		for _, err := range errs {
			logWarning("%v", err)
		}
		path, err = pickArchive(ui, archives, cfg.TargetLocale)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bar *progressbar.ProgressBar
	p.Sink = func(ev pipeline.Event) {
		switch ev.Kind {
		case pipeline.EventProgress:
			if bar == nil {
				bar = progressbar.NewOptions(ev.Total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionEnableColorCodes(!color.NoColor),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription(i18n.T("Translating")),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(ev.Done)
		case pipeline.EventWarning:
			var tf *draft.TransformFailure
			if errors.As(ev.Err, &tf) {
				// Summarized after the draft is built.
				return
			}
			logWarning("%v", ev.Err)
		}
	}

	logInfo(i18n.T("Translating %s with %s..."), filepath.Base(path), prov.Name)
	sess, err := p.BeginTranslation(ctx, path)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	d := sess.Draft()
	if w := d.Warnings(); len(w) > 0 {
		logWarning(i18n.N("%d value kept its source text", "%d values kept their source text", len(w)), len(w))
		for _, tf := range w {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", tf.Key, tf.Err)
		}
	}
	logInfo(i18n.T("Draft for %s: %d keys"), sess.Entry(), d.Len())

	save := yes
	if !yes {
		save, err = review(ui, d)
		if err != nil {
			sess.Discard()
			return err
		}
	}
	if !save {
		sess.Discard()
		logInfo(i18n.T("Translation discarded; the archive was not changed"))
		return nil
	}

	c, err := sess.Commit()
	var ce *patch.CopyError
	if errors.As(err, &ce) {
		logError("%v", err)
		if !yes && ui.Confirm(i18n.T("Retry copying")) {
			err = c.Retry()
		}
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	logSuccess(i18n.T("Saved %s into %s"), c.Entry, c.Name())
	logSuccess(i18n.T("Copied to %s"), relPath(c.Dest))
	return nil
}

// resolveProvider merges command-line flags over the config file's provider
// section. An ID that is not a known provider is taken as the base URL of
// a custom OpenAI-compatible endpoint.
func resolveProvider(cfg *config.File, pf providerFlags) translate.Provider {
	prov := cfg.TranslateProvider("")
	if pf.id != "" && !strings.EqualFold(pf.id, prov.ID) {
		if p, ok := translate.DefaultProviders()[strings.ToLower(pf.id)]; ok {
			prov = p
		} else {
			prov = translate.Provider{
				ID:      translate.ProviderCustomOpenAI,
				Name:    pf.id,
				BaseURL: pf.id,
				Timeout: 60 * time.Second,
			}
		}
	}

	if pf.baseURL != "" {
		prov.BaseURL = pf.baseURL
	} else if prov.ID == translate.ProviderCustomOpenAI && prov.BaseURL == "" {
		prov.BaseURL = settings.GetBaseURL(prov.ID)
	}
	if pf.model != "" {
		prov.Model = pf.model
	}
	if pf.proxy != "" {
		prov.Proxy = pf.proxy
	}
	if pf.timeout > 0 {
		prov.Timeout = pf.timeout
	}
	if pf.maxRetries > 0 {
		prov.MaxRetries = pf.maxRetries
	}
	prov.APIKey = settings.ResolveAPIKey(prov.ID, pf.apiKey)
	return prov
}

func validateProvider(prov translate.Provider) error {
	if prov.NeedsModel() && prov.Model == "" {
		modelExamples := map[string]string{
			translate.ProviderOpenAI:       "gpt-4o-mini, gpt-4o",
			translate.ProviderGroq:         "llama-3.3-70b-versatile, mixtral-8x7b-32768",
			translate.ProviderOpenRouter:   "openai/gpt-4o-mini, meta-llama/llama-3.3-70b-instruct",
			translate.ProviderOllama:       "llama3.2, qwen2.5, mistral",
			translate.ProviderCustomOpenAI: "gpt-4o, gpt-4o-mini (depends on your endpoint)",
		}
		examples := modelExamples[prov.ID]
		if examples == "" {
			examples = "check provider documentation"
		}
		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	switch prov.ID {
	case translate.ProviderOpenAI, translate.ProviderGroq, translate.ProviderOpenRouter:
		if prov.APIKey == "" {
			return fmt.Errorf("provider '%s' requires an API key\n\n"+
				"Store one with:\n  modloc auth login --provider %s\n\n"+
				"or pass --api-key, or export %s or %s",
				prov.ID, prov.ID, settings.EnvAPIKey, settings.EnvVarForProvider(prov.ID))
		}
	case translate.ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return fmt.Errorf("provider 'custom-openai' requires an endpoint\n\n" +
				"Store one with:\n  modloc auth login --provider custom-openai\n\n" +
				"or pass --base-url https://api.example.com/v1")
		}
	}
	return nil
}

// openTranslator builds the provider's translator, wrapped with the
// translation memory unless it is disabled. The returned func releases the
// memory and reports its statistics.
func openTranslator(cfg *config.File, prov translate.Provider, noCache bool) (translate.Translator, func(), error) {
	tr, err := translate.New(prov)
	if err != nil {
		return nil, nil, err
	}
	if noCache || !cfg.Cache.On() || prov.ID == translate.ProviderNone {
		return tr, func() {}, nil
	}

	path, err := cachePath(cfg)
	if err != nil {
		logWarning(i18n.T("Translation memory disabled: %v"), err)
		return tr, func() {}, nil
	}
	mem, err := tmcache.Open(path, cfg.Cache.MemoryEntries)
	if err != nil {
		logWarning(i18n.T("Translation memory disabled: %v"), err)
		return tr, func() {}, nil
	}

	cached := translate.Cached(tr, mem, prov, func(err error) {
		logWarning(i18n.T("Translation memory: %v"), err)
	})
	return cached, func() {
		st := mem.Stats()
		if hits := st.MemoryHits + st.DiskHits; hits > 0 {
			logInfo(i18n.T("Translation memory: %s reused, %s new"), humanize.Comma(hits), humanize.Comma(st.Stores))
		}
		if err := mem.Close(); err != nil {
			logWarning(i18n.T("Translation memory: %v"), err)
		}
	}, nil
}

func cachePath(cfg *config.File) (string, error) {
	if cfg.Cache.Path != "" {
		if filepath.IsAbs(cfg.Cache.Path) {
			return cfg.Cache.Path, nil
		}
		return filepath.Join(rootDir, cfg.Cache.Path), nil
	}
	dir, err := settings.DataDir()
	if err != nil {
		return "", err
	}
	return tmcache.DefaultPath(dir), nil
}

// ---------------------------------------------------------------------------
// Interactive review
// ---------------------------------------------------------------------------

// reviewUI is the terminal interaction used by translate.
type reviewUI interface {
	Choose(label string, items []string) (int, error)
	Edit(label, value string) (string, error)
	Confirm(label string) bool
}

type promptUI struct{}

func (promptUI) Choose(label string, items []string) (int, error) {
	i, _, err := (&promptui.Select{
		Label: label,
		Items: items,
		Size:  15,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}).Run()
	return i, err
}

func (promptUI) Edit(label, value string) (string, error) {
	return (&promptui.Prompt{
		Label:     label,
		Default:   value,
		AllowEdit: true,
	}).Run()
}

func (promptUI) Confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

// pickArchive lets the user choose one localizable archive.
func pickArchive(ui reviewUI, archives []*modarchive.Archive, target string) (string, error) {
	var (
		paths  []string
		labels []string
	)
	for _, a := range archives {
		if !a.HasLocaleFolder {
			continue
		}
		paths = append(paths, a.Path)
		labels = append(labels, a.Name+"  "+archiveStatus(a, target))
	}
	if len(paths) == 0 {
		return "", errors.New(i18n.T("no archives with a lang folder found"))
	}
	i, err := ui.Choose(i18n.T("Select an archive to translate"), labels)
	if err != nil {
		return "", err
	}
	return paths[i], nil
}

const reviewValueWidth = 60

// reviewItems returns the menu of the review loop: save, cancel, then one
// entry per key. Edited keys are marked "*", keys that kept their source
// text "!".
func reviewItems(d *draft.Draft) []string {
	failed := make(map[string]bool)
	for _, w := range d.Warnings() {
		failed[w.Key] = true
	}

	items := []string{i18n.T("Save translation"), i18n.T("Cancel")}
	for _, k := range d.Keys() {
		mark := " "
		switch {
		case d.Edited(k):
			mark = "*"
		case failed[k]:
			mark = "!"
		}
		v, _ := d.Value(k)
		items = append(items, fmt.Sprintf("%s %s = %s", mark, k, shorten(v, reviewValueWidth)))
	}
	return items
}

// review runs the edit loop until the user saves (true) or cancels (false).
func review(ui reviewUI, d *draft.Draft) (bool, error) {
	keys := d.Keys()
	for {
		i, err := ui.Choose(i18n.T("Review the translation"), reviewItems(d))
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return false, nil
			}
			return false, err
		}
		switch i {
		case 0:
			return true, nil
		case 1:
			return false, nil
		}

		key := keys[i-2]
		cur, _ := d.Value(key)
		if src, _ := d.Base(key); src != cur {
			fmt.Fprintf(os.Stderr, "  %s\n", color.New(color.Faint).Sprint(src))
		}
		v, err := ui.Edit(key, cur)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				continue
			}
			return false, err
		}
		if v != cur {
			if err := d.Set(key, v); err != nil {
				return false, err
			}
		}
	}
}

// shorten cuts s to n runes and puts it on one line.
func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
