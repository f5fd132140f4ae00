// Package parser loads a PDF file into the raw object model: header
// version, cross-reference resolution, then every in-use indirect
// object.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/observability"
	"github.com/MayankSingamreddy/PrettyPapers/scanner"
	"github.com/MayankSingamreddy/PrettyPapers/xref"
)

type DocumentParser struct {
	log  observability.Logger
	scfg scanner.Config
}

type Option func(*DocumentParser)

func WithLogger(log observability.Logger) Option {
	return func(p *DocumentParser) { p.log = log }
}

func WithScannerConfig(cfg scanner.Config) Option {
	return func(p *DocumentParser) { p.scfg = cfg }
}

func New(opts ...Option) *DocumentParser {
	p := &DocumentParser{log: observability.NopLogger{}, scfg: scanner.DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse loads the whole document. Free xref entries are skipped;
// in-use entries that fail to parse are an error, not a warning,
// because later stages depend on every referenced object.
func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	version, err := headerVersion(data)
	if err != nil {
		return nil, err
	}

	table, err := xref.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cross-reference: %w", err)
	}

	doc := &raw.Document{
		Objects: make(map[raw.Ref]raw.Object, len(table.Entries)),
		Trailer: table.Trailer,
		Version: version,
	}
	for num, entry := range table.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.InUse || num == 0 {
			continue
		}
		if entry.Offset < 0 || entry.Offset >= int64(len(data)) {
			return nil, fmt.Errorf("object %d: offset %d out of range", num, entry.Offset)
		}
		sc := scanner.NewWithConfig(data, p.scfg)
		sc.Seek(int(entry.Offset))
		ref, obj, err := raw.NewParser(sc).ParseIndirect()
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", num, err)
		}
		if ref.Num != num {
			return nil, fmt.Errorf("object %d: xref points at object %d", num, ref.Num)
		}
		doc.Objects[ref] = obj
	}

	p.log.Debug("document parsed",
		observability.String("version", version),
		observability.Int("objects", len(doc.Objects)))
	return doc, nil
}

// ParseReader buffers r fully and parses it. PDF needs random access
// for xref offsets, so streaming is not an option.
func (p *DocumentParser) ParseReader(ctx context.Context, r io.Reader) (*raw.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, data)
}

func headerVersion(data []byte) (string, error) {
	// The header must sit in the first KB; some producers prepend
	// junk bytes before it.
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return "", fmt.Errorf("missing %%PDF header")
	}
	rest := window[idx+len("%PDF-"):]
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return "", fmt.Errorf("malformed %%PDF header")
	}
	return string(rest[:end]), nil
}
