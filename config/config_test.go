package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		f, err := Load(t.TempDir(), "")
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if !reflect.DeepEqual(f, Default()) {
			t.Fatalf("Load = %#v, want defaults", f)
		}
		if f.BaseLocale != "en_us" || f.TargetLocale != "ru_ru" || f.ArchiveExt != ".jar" {
			t.Fatalf("locales/ext = %q %q %q", f.BaseLocale, f.TargetLocale, f.ArchiveExt)
		}
		if f.QuarantineDir != "mods" || f.LedgerFile != "translated_mods_list.txt" {
			t.Fatalf("outputs = %q %q", f.QuarantineDir, f.LedgerFile)
		}
		if !f.Cache.On() {
			t.Fatal("cache should default to enabled")
		}
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		if _, err := Load(t.TempDir(), "/nonexistent/modloc.yaml"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("applies values and normalizes", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "target_locale: uk-UA\n"+
			"archive_ext: zip\n"+
			"pass_through: [\"a.lang.\", \"modmenu.\"]\n"+
			"provider:\n"+
			"  id: ollama\n"+
			"  model: qwen2.5\n"+
			"  timeout: 90s\n"+
			"cache:\n"+
			"  enabled: false\n")

		f, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f.TargetLocale != "uk_ua" || f.ArchiveExt != ".zip" {
			t.Fatalf("TargetLocale/ArchiveExt = %q %q", f.TargetLocale, f.ArchiveExt)
		}
		if !reflect.DeepEqual(f.PassThrough, []string{"a.lang.", "modmenu."}) {
			t.Fatalf("PassThrough = %v", f.PassThrough)
		}
		if f.Provider.Timeout != 90*time.Second {
			t.Fatalf("Timeout = %v", f.Provider.Timeout)
		}
		if f.Cache.On() {
			t.Fatal("cache should be disabled")
		}

		p := f.TranslateProvider("")
		if p.ID != "ollama" || p.Model != "qwen2.5" || p.BaseURL != "http://localhost:11434" || p.Timeout != 90*time.Second {
			t.Fatalf("TranslateProvider = %+v", p)
		}

		pc := f.Pipeline(dir)
		if pc.OutputRoot != dir || pc.TargetLocale != "uk_ua" || pc.TranslatedDir != "translated_mods" {
			t.Fatalf("Pipeline = %+v", pc)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [ru]\n")
		if _, err := Load(dir, ""); err == nil || !strings.Contains(err.Error(), "languages") {
			t.Fatalf("error = %v, want unknown key error", err)
		}
	})

	t.Run("rejects same locales and unknown provider", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "base_locale: ru_ru\n")
		if _, err := Load(dir, ""); err == nil {
			t.Fatal("expected error for equal locales")
		}
		writeConfig(t, dir, "provider:\n  id: babelfish\n")
		if _, err := Load(dir, ""); err == nil || !strings.Contains(err.Error(), "babelfish") {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnv(dir); err != nil {
		t.Fatalf("LoadEnv without file: %v", err)
	}

	t.Setenv("MODLOC_TEST_KEPT", "from-shell")
	t.Setenv("MODLOC_TEST_NEW", "")
	os.Unsetenv("MODLOC_TEST_NEW")
	env := "MODLOC_TEST_KEPT=from-file\nMODLOC_TEST_NEW=loaded\n"
	if err := os.WriteFile(filepath.Join(dir, EnvFileName), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(dir); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("MODLOC_TEST_NEW") })

	if got := os.Getenv("MODLOC_TEST_NEW"); got != "loaded" {
		t.Fatalf("MODLOC_TEST_NEW = %q", got)
	}
	if got := os.Getenv("MODLOC_TEST_KEPT"); got != "from-shell" {
		t.Fatalf("existing variable overwritten: %q", got)
	}
}
