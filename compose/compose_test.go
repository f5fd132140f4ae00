package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/MayankSingamreddy/PrettyPapers/content"
	"github.com/MayankSingamreddy/PrettyPapers/coords"
	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
)

func bgImage() *semantic.Image {
	return &semantic.Image{Width: 2, Height: 2, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Data: make([]byte, 12)}
}

func operators(page *semantic.Page) []string {
	var out []string
	for _, op := range page.Contents[0].Operations {
		out = append(out, op.Operator)
	}
	return out
}

func TestPagePaintsBackgroundFirst(t *testing.T) {
	elems := []content.Element{
		content.TextSpan{Text: "hi", Font: "Times-Roman", Size: 12, Matrix: coords.Identity(), Fill: content.White},
	}
	page, err := Page(semantic.Letter, bgImage(), elems)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	ops := operators(page)
	want := []string{"q", "cm", "Do", "Q", "BT", "Tf", "rg", "Tm", "Tj", "ET"}
	if len(ops) != len(want) {
		t.Fatalf("ops: %v", ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("op %d: got %q, want %q (all: %v)", i, ops[i], want[i], ops)
		}
	}
	// background scale matches the page
	cm := page.Contents[0].Operations[1]
	if w, _ := raw.Num(cm.Operands[0]); w != semantic.Letter.Width() {
		t.Fatalf("background width: %+v", cm.Operands)
	}
}

func TestPagePreservesElementOrder(t *testing.T) {
	img := bgImage()
	elems := []content.Element{
		content.RasterImage{Name: "orig", Image: img, Matrix: coords.Scale(100, 50)},
		content.VectorPath{
			Subpaths: []content.Subpath{{Points: []content.PathPoint{
				{Op: content.MoveTo, X: 0, Y: 0},
				{Op: content.LineTo, X: 9, Y: 9},
			}}},
			Matrix:   coords.Identity(),
			DoStroke: true,
			Stroke:   content.Color{R: 1},
		},
		content.TextSpan{Text: "last", Font: "Times-Bold", Size: 10, Matrix: coords.Identity()},
	}
	page, err := Page(semantic.Letter, img, elems)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	ops := operators(page)
	// background Do, then image Do, then path, then text
	doCount := 0
	var firstTj, lastDo int
	for i, op := range ops {
		if op == "Do" {
			doCount++
			lastDo = i
		}
		if op == "Tj" {
			firstTj = i
		}
	}
	if doCount != 2 {
		t.Fatalf("expected 2 image placements, got %d: %v", doCount, ops)
	}
	if lastDo > firstTj {
		t.Fatalf("text must come after images: %v", ops)
	}
	if len(page.Resources.XObjects) != 2 {
		t.Fatalf("xobjects: %+v", page.Resources.XObjects)
	}
}

func TestPathEmission(t *testing.T) {
	b := NewPage(semantic.Letter)
	b.DrawElement(content.VectorPath{
		Subpaths: []content.Subpath{{Points: []content.PathPoint{
			{Op: content.MoveTo, X: 1, Y: 2},
			{Op: content.CurveTo, C1X: 3, C1Y: 4, C2X: 5, C2Y: 6, X: 7, Y: 8},
			{Op: content.ClosePath},
		}}},
		Matrix:    coords.Translate(10, 10),
		DoStroke:  true,
		DoFill:    true,
		LineWidth: 2,
	})
	page := b.Finish()
	ops := operators(page)
	want := []string{"q", "cm", "w", "RG", "rg", "m", "c", "h", "B", "Q"}
	if len(ops) != len(want) {
		t.Fatalf("ops: %v", ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("op %d: got %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestFontRegistrationDedupes(t *testing.T) {
	b := NewPage(semantic.Letter)
	span := content.TextSpan{Text: "a", Font: "Times-Roman", Size: 10, Matrix: coords.Identity()}
	b.DrawElement(span)
	b.DrawElement(span)
	span.Font = "Times-Italic"
	b.DrawElement(span)
	page := b.Finish()
	if len(page.Resources.Fonts) != 2 {
		t.Fatalf("fonts: %+v", page.Resources.Fonts)
	}
	seen := map[string]bool{}
	for key, f := range page.Resources.Fonts {
		if key != f.Name {
			t.Fatalf("resource key mismatch: %q vs %q", key, f.Name)
		}
		if f.Subtype != "Type1" {
			t.Fatalf("subtype: %+v", f)
		}
		seen[f.BaseFont] = true
	}
	if !seen["Times-Roman"] || !seen["Times-Italic"] {
		t.Fatalf("base fonts: %+v", seen)
	}
}

func TestFromImageOpaque(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	src.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img := FromImage(src)
	if img.Width != 2 || img.Height != 1 || img.ColorSpace != "DeviceRGB" {
		t.Fatalf("image: %+v", img)
	}
	if img.SMask != nil {
		t.Fatal("opaque image should not get an smask")
	}
	want := []byte{255, 0, 0, 0, 255, 0}
	for i, b := range want {
		if img.Data[i] != b {
			t.Fatalf("data: %v", img.Data)
		}
	}
}

func TestFromImageAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 128})
	img := FromImage(src)
	if img.SMask == nil {
		t.Fatal("translucent image needs an smask")
	}
	if img.SMask.ColorSpace != "DeviceGray" || img.SMask.Data[0] != 128 {
		t.Fatalf("smask: %+v", img.SMask)
	}
	if img.Data[0] != 10 || img.Data[1] != 20 || img.Data[2] != 30 {
		t.Fatalf("rgb must stay unpremultiplied: %v", img.Data)
	}
}
