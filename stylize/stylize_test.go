package stylize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MayankSingamreddy/PrettyPapers/content"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
	"github.com/MayankSingamreddy/PrettyPapers/parser"
)

// writeFixturePDF puts a one-page document with black text on disk.
// The page is small so backdrop styling stays fast.
func writeFixturePDF(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	offsets := make(map[int]int)
	buf.WriteString("%PDF-1.4\n")
	add := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj %s endobj\n", num, body)
	}
	add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	add(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 48 64] /Contents 4 0 R >>")
	offsets[4] = buf.Len()
	stream := "0 0 0 rg BT /F1 9 Tf 8 20 Td (Hi) Tj ET 1 0 0 RG 4 4 m 40 4 l S"
	fmt.Fprintf(&buf, "4 0 obj << /Length %d >> stream\n%s\nendstream endobj\n", len(stream), stream)
	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 5\n%010d 65535 f \n", 0)
	for num := 1; num <= 4; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOff)

	path := filepath.Join(dir, "src.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func writeFixturePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func runFixture(t *testing.T, mutate func(*Options)) []byte {
	t.Helper()
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.SourcePath = writeFixturePDF(t, dir)
	opts.BackgroundPath = writeFixturePNG(t, dir)
	opts.OutputPath = filepath.Join(dir, "out.pdf")
	opts.BlurRadius = 2 // keep the kernel small for the tiny page
	if mutate != nil {
		mutate(&opts)
	}
	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return data
}

func extractOutput(t *testing.T, data []byte) []content.Element {
	t.Helper()
	rawDoc, err := parser.New().Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	doc, err := semantic.NewBuilder(nil).Build(context.Background(), rawDoc)
	if err != nil {
		t.Fatalf("build output: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	elems, err := content.New().Page(doc.Pages[0])
	if err != nil {
		t.Fatalf("extract output: %v", err)
	}
	return elems
}

func TestRunRecolorsTextOverBackdrop(t *testing.T) {
	elems := extractOutput(t, runFixture(t, nil))

	bg, ok := elems[0].(content.RasterImage)
	if !ok {
		t.Fatalf("first element is %T, want the backdrop image", elems[0])
	}
	if bg.Image.Width != 48 || bg.Image.Height != 64 {
		t.Fatalf("backdrop is %dx%d", bg.Image.Width, bg.Image.Height)
	}

	var span *content.TextSpan
	var path *content.VectorPath
	for _, el := range elems[1:] {
		switch v := el.(type) {
		case content.TextSpan:
			span = &v
		case content.VectorPath:
			path = &v
		}
	}
	if span == nil {
		t.Fatal("no text span in output")
	}
	if span.Text != "Hi" {
		t.Fatalf("text: %q", span.Text)
	}
	if span.Fill != content.White {
		t.Fatalf("text fill: %+v, want white", span.Fill)
	}
	if path == nil {
		t.Fatal("red stroke path dropped")
	}
	if path.Stroke != (content.Color{R: 1}) {
		t.Fatalf("stroke color changed: %+v", path.Stroke)
	}
}

func TestRunScriptRule(t *testing.T) {
	script := `(function(r, g, b) { return [0, 1, 0]; })`
	elems := extractOutput(t, runFixture(t, func(o *Options) {
		o.RecolorScript = script
	}))
	for _, el := range elems {
		if span, ok := el.(content.TextSpan); ok {
			if span.Fill != (content.Color{G: 1}) {
				t.Fatalf("script fill: %+v", span.Fill)
			}
			return
		}
	}
	t.Fatal("no text span in output")
}

func TestRunDeterministic(t *testing.T) {
	mutate := func(o *Options) {
		o.Deterministic = true
		o.GrainSeed = 7
	}
	first := runFixture(t, mutate)
	second := runFixture(t, mutate)
	if !bytes.Equal(first, second) {
		t.Fatal("deterministic runs differ")
	}
}

func TestRunMissingSource(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.SourcePath = filepath.Join(dir, "absent.pdf")
	opts.BackgroundPath = writeFixturePNG(t, dir)
	opts.OutputPath = filepath.Join(dir, "out.pdf")

	err := Run(context.Background(), opts)
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	var ie *InputError
	if !errors.As(err, &ie) || ie.Path != opts.SourcePath {
		t.Fatalf("input error path: %v", err)
	}
	if _, statErr := os.Stat(opts.OutputPath); !os.IsNotExist(statErr) {
		t.Fatal("output created despite failure")
	}
}

func TestRunBadBackground(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.SourcePath = writeFixturePDF(t, dir)
	opts.BackgroundPath = filepath.Join(dir, "bg.png")
	if err := os.WriteFile(opts.BackgroundPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write bad background: %v", err)
	}
	opts.OutputPath = filepath.Join(dir, "out.pdf")

	err := Run(context.Background(), opts)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestRunBadSourceLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4 garbage"), 0o644); err != nil {
		t.Fatalf("write bad source: %v", err)
	}
	opts := DefaultOptions()
	opts.SourcePath = src
	opts.BackgroundPath = writeFixturePNG(t, dir)
	opts.OutputPath = filepath.Join(dir, "out.pdf")

	err := Run(context.Background(), opts)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	for _, e := range entries {
		if e.Name() == "out.pdf" {
			t.Fatal("output created despite failure")
		}
	}
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.SourcePath = writeFixturePDF(t, dir)
	opts.BackgroundPath = writeFixturePNG(t, dir)
	opts.OutputPath = filepath.Join(dir, "out.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
