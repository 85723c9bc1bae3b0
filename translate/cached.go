package translate

import (
	"context"
)

// Memory stores earlier translations. Implementations must be safe for
// concurrent use; lookups and stores are best effort.
type Memory interface {
	Lookup(ctx context.Context, key MemoryKey) (string, bool, error)
	Store(ctx context.Context, key MemoryKey, translation string) error
}

// MemoryKey identifies one translated text.
type MemoryKey struct {
	Source   string
	SrcLang  string
	TgtLang  string
	Provider string
	Model    string
}

// Cached wraps next with a translation memory. Only answers accepted by
// Validate are stored, and stored entries Validate rejects are ignored.
// Memory errors are passed to onErr (when set) and never fail the
// translation.
func Cached(next Translator, mem Memory, prov Provider, onErr func(error)) Translator {
	report := func(err error) {
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
	return Func(func(ctx context.Context, text, source, target string) (string, error) {
		key := MemoryKey{Source: text, SrcLang: source, TgtLang: target, Provider: prov.ID, Model: prov.Model}

		hit, ok, err := mem.Lookup(ctx, key)
		report(err)
		if ok && Validate(text, hit) == nil {
			return hit, nil
		}

		out, err := next.Translate(ctx, text, source, target)
		if err != nil {
			return "", err
		}
		if Validate(text, out) == nil {
			report(mem.Store(ctx, key, out))
		}
		return out, nil
	})
}
