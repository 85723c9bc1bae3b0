package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/minios-linux/modloc/settings"
	"github.com/minios-linux/modloc/translate"
)

// ---------------------------------------------------------------------------
// auth (API keys of translation providers)
// ---------------------------------------------------------------------------

// keyProviders are the providers with stored credentials, in menu order.
var keyProviders = []struct {
	id      string
	helpURL string
}{
	{translate.ProviderOpenAI, "https://platform.openai.com/api-keys"},
	{translate.ProviderGroq, "https://console.groq.com/keys"},
	{translate.ProviderOpenRouter, "https://openrouter.ai/keys"},
	{translate.ProviderCustomOpenAI, ""},
}

func isKeyProvider(id string) bool {
	for _, p := range keyProviders {
		if p.id == id {
			return true
		}
	}
	return false
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys of the AI translation providers.

API key providers:
  openai        OpenAI
  groq          Groq Cloud (free tier available)
  openrouter    OpenRouter
  custom-openai Custom OpenAI-compatible endpoint

No auth required:
  google        Google Translate (free web endpoint)
  ollama        Local Ollama server

Keys are stored in ` + settings.FilePath() + ` with 0600 permissions.

Examples:
  modloc auth login                      Interactive provider selection
  modloc auth login --provider groq      Store a Groq API key
  modloc auth logout --provider groq     Remove the Groq API key
  modloc auth logout                     Remove all credentials
  modloc auth list                       Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				defs := translate.DefaultProviders()
				items := make([]string, len(keyProviders))
				for i, p := range keyProviders {
					items[i] = fmt.Sprintf("%-14s %s", p.id, defs[p.id].Name)
				}
				i, _, err := (&promptui.Select{Label: "Provider", Items: items}).Run()
				if err != nil {
					return err
				}
				provider = keyProviders[i].id
			}
			if !isKeyProvider(provider) {
				return fmt.Errorf("provider '%s' does not use stored credentials", provider)
			}
			if provider == translate.ProviderCustomOpenAI {
				return authLoginCustomOpenAI()
			}
			return authLoginAPIKey(provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to configure")
	return cmd
}

func authLoginAPIKey(providerID string) error {
	name := translate.DefaultProviders()[providerID].Name
	fmt.Fprintf(os.Stderr, "\n%s\n", color.BlueString("%s API Key Setup", name))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, p := range keyProviders {
		if p.id == providerID && p.helpURL != "" {
			fmt.Fprintf(os.Stderr, "  Get your API key from: %s\n\n", color.GreenString(p.helpURL))
		}
	}

	existing := settings.GetAPIKey(providerID)
	label := "API key"
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s\n", color.YellowString(settings.MaskKey(existing)))
		label = "New API key (empty keeps the current one)"
	}

	key, err := (&promptui.Prompt{Label: label, Mask: '*'}).Run()
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		if existing != "" {
			logInfo("Keeping existing key")
			return nil
		}
		return errors.New("no API key provided")
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess("%s API key saved", name)
	return nil
}

func authLoginCustomOpenAI() error {
	fmt.Fprintf(os.Stderr, "\n%s\n", color.BlueString("Custom OpenAI-Compatible Endpoint"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	existing := settings.Get(translate.ProviderCustomOpenAI)
	if existing == nil {
		existing = &settings.Info{}
	}

	baseURL, err := (&promptui.Prompt{
		Label:     "Endpoint URL",
		Default:   existing.BaseURL,
		AllowEdit: true,
		Validate: func(s string) error {
			if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
				return errors.New("must start with http:// or https://")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	label := "API key (empty if not required)"
	if existing.Key != "" {
		label = "API key (empty keeps " + settings.MaskKey(existing.Key) + ")"
	}
	key, err := (&promptui.Prompt{Label: label, Mask: '*'}).Run()
	if err != nil {
		return err
	}
	if key = strings.TrimSpace(key); key == "" {
		key = existing.Key
	}

	if err := settings.SetAPIKeyWithBaseURL(translate.ProviderCustomOpenAI, key, strings.TrimSpace(baseURL)); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	logSuccess("Custom OpenAI endpoint saved")
	fmt.Fprintf(os.Stderr, "\n  You can now use: modloc translate --provider custom-openai --model MODEL_NAME\n\n")
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("All stored credentials removed")
				return nil
			}
			if !isKeyProvider(provider) {
				return fmt.Errorf("unknown provider '%s'. Run 'modloc auth list' to see providers", provider)
			}
			if err := settings.Remove(provider); err != nil {
				return fmt.Errorf("removing %s credentials: %w", provider, err)
			}
			logSuccess("%s credentials removed", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		out := make([]string, 0, len(keyProviders))
		for _, p := range keyProviders {
			out = append(out, p.id)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "\n%s\n", color.BlueString("Stored Credentials"))
			fmt.Fprintln(w, strings.Repeat("─", 60))

			for _, p := range keyProviders {
				entry := settings.Get(p.id)
				switch {
				case entry != nil && entry.Key != "":
					status := color.GreenString("configured") + " (key: " + settings.MaskKey(entry.Key) + ")"
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
					}
					fmt.Fprintf(w, "  %-14s %s\n", p.id, status)
				case entry != nil && entry.BaseURL != "":
					fmt.Fprintf(w, "  %-14s %s (no key)\n  %14s endpoint: %s\n", p.id, color.GreenString("configured"), "", entry.BaseURL)
				default:
					fmt.Fprintf(w, "  %-14s %s\n", p.id, color.RedString("not configured"))
				}
			}

			fmt.Fprintf(w, "\n  %s\n", color.YellowString("Environment Variables"))
			for _, env := range []string{settings.EnvAPIKey, "OPENAI_API_KEY", "GROQ_API_KEY", "OPENROUTER_API_KEY"} {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(w, "  %-20s %s\n", env, color.GreenString(settings.MaskKey(v)))
				} else {
					fmt.Fprintf(w, "  %-20s %s\n", env, color.RedString("not set"))
				}
			}
			fmt.Fprintln(w)
		},
	}
}
