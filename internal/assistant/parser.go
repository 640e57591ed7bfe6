// Package assistant turns free-form text such as "received cheque 45,000
// from Ahmed Traders on HBL due 30 March" into a draft ledger entry.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"parchi/internal/core"
)

// ErrExternalParse means the assistant failed or returned something that is
// not a valid entry. Nothing is applied to the ledger in that case.
var ErrExternalParse = errors.New("assistant could not parse the text")

// Parser turns free text into a draft entry.
type Parser interface {
	Parse(ctx context.Context, text string) (core.Draft, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, text string) (core.Draft, error)

func (f ParserFunc) Parse(ctx context.Context, text string) (core.Draft, error) {
	return f(ctx, text)
}

// DecodeDraft strictly decodes an assistant reply. Unknown fields, trailing
// data and invalid values are all rejected.
func DecodeDraft(reply string) (core.Draft, error) {
	body := stripFence(reply)
	if body == "" {
		return core.Draft{}, fmt.Errorf("%w: empty reply", ErrExternalParse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var d core.Draft
	if err := dec.Decode(&d); err != nil {
		return core.Draft{}, fmt.Errorf("%w: %v", ErrExternalParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.Draft{}, fmt.Errorf("%w: unexpected data after entry", ErrExternalParse)
	}
	if err := d.Validate(); err != nil {
		return core.Draft{}, fmt.Errorf("%w: %w", ErrExternalParse, err)
	}
	return d, nil
}

// stripFence removes a ```json ... ``` wrapper some models add.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
