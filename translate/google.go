package translate

import (
	"context"
	"fmt"

	"github.com/bregydoc/gtranslate"
	"github.com/minios-linux/modloc/langmeta"
)

// Google translates through the free Google Translate web endpoint.
type Google struct {
	prov Provider
	call func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewGoogle returns the free Google Translate client.
func NewGoogle(p Provider) *Google {
	return &Google{prov: p, call: gtranslate.TranslateWithParams}
}

// Translate implements Translator. The underlying client has no context
// support, so a cancelled or timed out ctx abandons the pending call.
func (g *Google) Translate(ctx context.Context, text, source, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.prov.timeout())
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		out, err := g.call(text, gtranslate.TranslationParams{
			From: langmeta.ISO(source),
			To:   langmeta.ISO(target),
		})
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("google translate: %w", r.err)
		}
		return r.text, nil
	}
}
