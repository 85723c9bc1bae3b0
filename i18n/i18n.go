// Package i18n translates modloc's own terminal messages.
//
// Catalogs are gettext .po files embedded from locales/<lang>/LC_MESSAGES.
// Until Setup is called, and for any message a catalog lacks, T and N
// return the English text they were given.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var catalogs embed.FS

const (
	domain = "modloc"
	root   = "locales"
)

// catalog is one loaded message language.
type catalog struct {
	lang string
	loc  *gotext.Locale
	// msgs indexes the singular messages so T never runs a message through
	// a formatting call.
	msgs map[string]*gotext.Translation
}

var active atomic.Pointer[catalog]

func load(lang string) *catalog {
	loc := gotext.NewLocaleFSWithPath(lang, catalogs, root)
	loc.AddDomain(domain)
	return &catalog{lang: lang, loc: loc, msgs: loc.GetTranslations()}
}

// Setup loads the catalog for lang, or for Language("") when lang is
// empty, and returns the language in use.
func Setup(lang string) string {
	lang = Language(lang)
	active.Store(load(lang))
	return lang
}

// Current returns the language selected by Setup, or "en" before it.
func Current() string {
	if c := active.Load(); c != nil {
		return c.lang
	}
	return "en"
}

// T returns the translation of msgid. Format verbs are left for the caller.
func T(msgid string) string {
	c := active.Load()
	if c == nil {
		return msgid
	}
	if tr, ok := c.msgs[msgid]; ok && tr.IsTranslated() {
		return tr.Get()
	}
	return msgid
}

// N returns the plural form of a message for count n, using the plural
// rule of the catalog.
func N(singular, plural string, n int) string {
	c := active.Load()
	if c == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return c.loc.GetN(singular, plural, n)
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := fs.ReadDir(catalogs, root)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && hasCatalog(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

func hasCatalog(lang string) bool {
	for _, l := range []string{lang, base(lang)} {
		if _, err := fs.Stat(catalogs, path.Join(root, l, "LC_MESSAGES", domain+".po")); err == nil {
			return true
		}
	}
	return false
}

// Language picks the message language. A non-empty explicit value wins.
// Otherwise the entries of LANGUAGE are tried in order and the first one
// with a catalog (or English) is taken; failing that, the first of LC_ALL,
// LC_MESSAGES and LANG that names a real locale decides. "en" is the
// default, and C or POSIX locales mean English.
func Language(explicit string) string {
	if l := clean(explicit); l != "" {
		return l
	}
	for _, l := range strings.Split(os.Getenv("LANGUAGE"), ":") {
		if l = clean(l); l != "" && (base(l) == "en" || hasCatalog(l)) {
			return l
		}
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if l := clean(os.Getenv(env)); l != "" {
			return l
		}
	}
	return "en"
}

// clean strips the codeset and modifier of a locale name
// ("ru_RU.UTF-8@euro" -> "ru_RU"). C and POSIX clean to "".
func clean(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, ".@"); i >= 0 {
		name = name[:i]
	}
	if name == "C" || name == "POSIX" {
		return ""
	}
	return name
}

func base(lang string) string {
	l, _, _ := strings.Cut(lang, "_")
	return strings.ToLower(l)
}
