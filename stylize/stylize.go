// Package stylize runs the whole restyling pipeline: parse the source
// document, build a styled backdrop per page, recolor near-black text
// to white, recompose and write the result atomically.
package stylize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/MayankSingamreddy/PrettyPapers/background"
	"github.com/MayankSingamreddy/PrettyPapers/compose"
	"github.com/MayankSingamreddy/PrettyPapers/content"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
	"github.com/MayankSingamreddy/PrettyPapers/observability"
	"github.com/MayankSingamreddy/PrettyPapers/parser"
	"github.com/MayankSingamreddy/PrettyPapers/scripting"
	"github.com/MayankSingamreddy/PrettyPapers/writer"
)

type Options struct {
	SourcePath     string
	BackgroundPath string
	OutputPath     string

	// Epsilon is the near-black threshold for text recoloring.
	Epsilon float64
	// BlurRadius and GrainStrength tune the backdrop styling.
	BlurRadius    float64
	GrainStrength float64
	// GrainSeed fixes the noise; each page offsets it by its index.
	GrainSeed int64
	// RecolorScript optionally replaces the near-black rule with a
	// JavaScript mapping.
	RecolorScript string
	// Deterministic makes repeated runs byte-identical.
	Deterministic bool

	Logger observability.Logger
}

func DefaultOptions() Options {
	defaults := background.DefaultOptions()
	return Options{
		Epsilon:       content.DefaultEpsilon,
		BlurRadius:    defaults.BlurRadius,
		GrainStrength: defaults.GrainStrength,
	}
}

// Run executes the pipeline. Every failure is fatal and leaves the
// output path untouched.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	if opts.SourcePath == "" || opts.BackgroundPath == "" || opts.OutputPath == "" {
		return fmt.Errorf("source, background and output paths are all required")
	}

	srcData, err := readInput(opts.SourcePath)
	if err != nil {
		return err
	}
	bgData, err := readInput(opts.BackgroundPath)
	if err != nil {
		return err
	}
	bgImage, _, err := image.Decode(bytes.NewReader(bgData))
	if err != nil {
		return &DecodeError{Path: opts.BackgroundPath, Err: err}
	}

	rawDoc, err := parser.New(parser.WithLogger(log)).Parse(ctx, srcData)
	if err != nil {
		return &DecodeError{Path: opts.SourcePath, Err: err}
	}
	doc, err := semantic.NewBuilder(nil).Build(ctx, rawDoc)
	if err != nil {
		return &DecodeError{Path: opts.SourcePath, Err: err}
	}

	rule := content.NearBlackRule(opts.Epsilon)
	if opts.RecolorScript != "" {
		rule, err = scripting.NewEngine().RecolorRule(ctx, opts.RecolorScript)
		if err != nil {
			return err
		}
	}

	out := &semantic.Document{Info: doc.Info}
	extractor := content.New(content.WithLogger(log))
	for i, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		styled, err := stylePage(page, bgImage, opts, int64(i))
		if err != nil {
			return err
		}
		elems, err := extractor.Page(page)
		if err != nil {
			return &DecodeError{Path: opts.SourcePath, Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		elems = content.RecolorText(elems, rule)
		newPage, err := compose.Page(page.MediaBox, styled, elems)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		newPage.Rotate = page.Rotate
		newPage.CropBox = page.CropBox
		out.Pages = append(out.Pages, newPage)
		log.Info("page restyled",
			observability.Int("page", i+1),
			observability.Int("elements", len(elems)),
			observability.Duration("elapsed", time.Since(start)))
	}

	return writeOutput(ctx, out, opts, log)
}

func stylePage(page *semantic.Page, bg image.Image, opts Options, pageIndex int64) (*semantic.Image, error) {
	w := int(page.MediaBox.Width() + 0.5)
	h := int(page.MediaBox.Height() + 0.5)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("page %d has a degenerate media box", pageIndex+1)
	}
	styled := background.Style(bg, w, h, background.Options{
		BlurRadius:    opts.BlurRadius,
		GrainStrength: opts.GrainStrength,
		GrainSeed:     opts.GrainSeed + pageIndex,
	})
	return compose.FromImage(styled), nil
}

// writeOutput serializes to memory first and publishes with a rename,
// so a failed run never leaves a truncated file behind.
func writeOutput(ctx context.Context, doc *semantic.Document, opts Options, log observability.Logger) error {
	var buf bytes.Buffer
	cfg := writer.Config{Deterministic: opts.Deterministic}
	if err := writer.New(writer.WithLogger(log)).Write(ctx, doc, &buf, cfg); err != nil {
		return &WriteError{Path: opts.OutputPath, Err: err}
	}

	dir := filepath.Dir(opts.OutputPath)
	tmp, err := os.CreateTemp(dir, ".prettypapers-*")
	if err != nil {
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		cleanup()
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	if err := os.Rename(tmpName, opts.OutputPath); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: opts.OutputPath, Err: err}
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &InputError{Path: path, Err: ErrInputNotFound}
		}
		return nil, &InputError{Path: path, Err: err}
	}
	return data, nil
}
