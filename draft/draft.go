// Package draft builds translated locale maps from a base locale map.
//
// A Draft always has exactly the keys of its base, in the same order. Keys
// matched by the pass-through predicate are copied verbatim; every other
// value goes through a translate.Translator. When translation of a value
// fails, or the answer is unusable, the source value is kept and a
// *TransformFailure is recorded. One bad value never fails the draft.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/minios-linux/modloc/langfile"
	"github.com/minios-linux/modloc/translate"
)

// DefaultPassThroughPrefix marks language metadata keys ("a.lang.code").
const DefaultPassThroughPrefix = "a.lang."

// ErrUnknownKey is returned by Set for a key that is not in the draft.
var ErrUnknownKey = errors.New("key not in draft")

// ErrEmptyResult means the translator answered with blank text.
var ErrEmptyResult = translate.ErrEmptyResult

// TransformFailure records a value that kept its source text.
type TransformFailure struct {
	Key    string
	Source string
	Err    error
}

func (e *TransformFailure) Error() string {
	return fmt.Sprintf("translating %q: %v", e.Key, e.Err)
}

func (e *TransformFailure) Unwrap() error { return e.Err }

// PrefixPassThrough returns a predicate matching keys with any of prefixes.
func PrefixPassThrough(prefixes ...string) func(string) bool {
	return func(key string) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(key, p) {
				return true
			}
		}
		return false
	}
}

// Options configures Build.
type Options struct {
	// PassThrough selects keys copied unchanged. Nil means
	// PrefixPassThrough(DefaultPassThroughPrefix).
	PassThrough func(key string) bool
	// Translator transforms values. Nil means translate.Identity.
	Translator translate.Translator
	// Source and Target are locale codes such as "en_us" and "ru_ru".
	Source string
	Target string
	// OnWarn is called for every value that fell back to its source text.
	OnWarn func(*TransformFailure)
	// OnProgress is called after each key.
	OnProgress func(done, total int)
}

// Draft is an editable translated map. It is not safe for concurrent use.
type Draft struct {
	base     *langfile.File
	values   *langfile.File
	warnings []*TransformFailure
	edited   map[string]bool
}

// Build translates base into a new Draft. It returns an error only when ctx
// is cancelled before every key has been processed.
func Build(ctx context.Context, base *langfile.File, opts Options) (*Draft, error) {
	pass := opts.PassThrough
	if pass == nil {
		pass = PrefixPassThrough(DefaultPassThroughPrefix)
	}
	tr := opts.Translator
	if tr == nil {
		tr = translate.Identity
	}

	d := &Draft{
		base:   base.Clone(),
		values: langfile.New(),
		edited: make(map[string]bool),
	}

	keys := base.Keys()
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, _ := base.Get(key)

		value := src
		if !pass(key) && strings.TrimSpace(src) != "" {
			out, err := transform(ctx, tr, src, opts.Source, opts.Target)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				w := &TransformFailure{Key: key, Source: src, Err: err}
				d.warnings = append(d.warnings, w)
				if opts.OnWarn != nil {
					opts.OnWarn(w)
				}
			} else {
				value = out
			}
		}
		d.values.Set(key, value)

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(keys))
		}
	}
	return d, nil
}

// transform translates one value and validates the answer.
func transform(ctx context.Context, tr translate.Translator, src, source, target string) (string, error) {
	out, err := tr.Translate(ctx, src, source, target)
	if err != nil {
		return "", err
	}
	if err := translate.Validate(src, out); err != nil {
		return "", err
	}
	return keepPadding(src, out), nil
}

// keepPadding re-applies the leading and trailing whitespace of src to out.
func keepPadding(src, out string) string {
	trimmed := strings.TrimFunc(src, unicode.IsSpace)
	if trimmed == src {
		return out
	}
	start := strings.Index(src, trimmed)
	lead, trail := src[:start], src[start+len(trimmed):]
	return lead + strings.TrimFunc(out, unicode.IsSpace) + trail
}

// Keys returns the draft keys in base order.
func (d *Draft) Keys() []string { return d.values.Keys() }

// Len returns the number of keys.
func (d *Draft) Len() int { return d.values.Len() }

// Value returns the current value for key.
func (d *Draft) Value(key string) (string, bool) { return d.values.Get(key) }

// Base returns the base locale value for key.
func (d *Draft) Base(key string) (string, bool) { return d.base.Get(key) }

// Set overwrites the value of an existing key. Key set and order never change.
func (d *Draft) Set(key, value string) error {
	if _, ok := d.values.Get(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	d.values.Set(key, value)
	d.edited[key] = true
	return nil
}

// Edited reports whether key was changed with Set.
func (d *Draft) Edited(key string) bool { return d.edited[key] }

// Warnings returns the values that kept their source text during Build.
func (d *Draft) Warnings() []*TransformFailure {
	return append([]*TransformFailure(nil), d.warnings...)
}

// File returns a copy of the draft as a locale file.
func (d *Draft) File() *langfile.File { return d.values.Clone() }
