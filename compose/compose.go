// Package compose assembles output pages: a styled backdrop painted
// across the full page, then the extracted elements replayed in their
// original order with their original geometry.
package compose

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MayankSingamreddy/PrettyPapers/content"
	"github.com/MayankSingamreddy/PrettyPapers/coords"
	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
)

// PageBuilder accumulates operations and the resources they name.
type PageBuilder struct {
	mediaBox semantic.Rectangle
	ops      []semantic.Operation
	fonts    map[string]*semantic.Font // base font name -> resource
	xobjects map[string]*semantic.XObject
	nextImg  int
	nextFont int
}

func NewPage(mediaBox semantic.Rectangle) *PageBuilder {
	return &PageBuilder{
		mediaBox: mediaBox,
		fonts:    make(map[string]*semantic.Font),
		xobjects: make(map[string]*semantic.XObject),
	}
}

// Page builds a complete output page: background first, elements on
// top, in slice order.
func Page(mediaBox semantic.Rectangle, bg *semantic.Image, elems []content.Element) (*semantic.Page, error) {
	b := NewPage(mediaBox)
	if bg != nil {
		b.DrawBackground(bg)
	}
	for i, el := range elems {
		if err := b.DrawElement(el); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return b.Finish(), nil
}

func (b *PageBuilder) Finish() *semantic.Page {
	res := semantic.Resources{}
	if len(b.fonts) > 0 {
		res.Fonts = make(map[string]*semantic.Font, len(b.fonts))
		for _, f := range b.fonts {
			res.Fonts[f.Name] = f
		}
	}
	if len(b.xobjects) > 0 {
		res.XObjects = b.xobjects
	}
	return &semantic.Page{
		MediaBox:  b.mediaBox,
		Resources: res,
		Contents:  []*semantic.ContentStream{{Operations: b.ops}},
	}
}

// DrawBackground stretches img across the whole MediaBox.
func (b *PageBuilder) DrawBackground(img *semantic.Image) {
	name := b.registerImage(img)
	b.op("q")
	b.op("cm",
		raw.Real(b.mediaBox.Width()), raw.Integer(0),
		raw.Integer(0), raw.Real(b.mediaBox.Height()),
		raw.Real(b.mediaBox.LLX), raw.Real(b.mediaBox.LLY))
	b.op("Do", raw.Name(name))
	b.op("Q")
}

func (b *PageBuilder) DrawElement(el content.Element) error {
	switch v := el.(type) {
	case content.TextSpan:
		b.drawText(v)
	case content.VectorPath:
		b.drawPath(v)
	case content.RasterImage:
		b.drawImage(v)
	default:
		return fmt.Errorf("unknown element type %T", el)
	}
	return nil
}

func (b *PageBuilder) drawText(span content.TextSpan) {
	font := b.registerFont(span.Font)
	b.op("BT")
	b.op("Tf", raw.Name(font), raw.Real(span.Size))
	b.op("rg", raw.Real(span.Fill.R), raw.Real(span.Fill.G), raw.Real(span.Fill.B))
	b.op("Tm", matrixOperands(span.Matrix)...)
	b.op("Tj", raw.String{Data: []byte(span.Text)})
	b.op("ET")
}

func (b *PageBuilder) drawPath(path content.VectorPath) {
	b.op("q")
	if path.Matrix != coords.Identity() {
		b.op("cm", matrixOperands(path.Matrix)...)
	}
	if path.DoStroke {
		b.op("w", raw.Real(path.LineWidth))
		b.op("RG", raw.Real(path.Stroke.R), raw.Real(path.Stroke.G), raw.Real(path.Stroke.B))
	}
	if path.DoFill {
		b.op("rg", raw.Real(path.Fill.R), raw.Real(path.Fill.G), raw.Real(path.Fill.B))
	}
	for _, sp := range path.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Op {
			case content.MoveTo:
				b.op("m", raw.Real(pt.X), raw.Real(pt.Y))
			case content.LineTo:
				b.op("l", raw.Real(pt.X), raw.Real(pt.Y))
			case content.CurveTo:
				b.op("c",
					raw.Real(pt.C1X), raw.Real(pt.C1Y),
					raw.Real(pt.C2X), raw.Real(pt.C2Y),
					raw.Real(pt.X), raw.Real(pt.Y))
			case content.ClosePath:
				b.op("h")
			}
		}
	}
	b.op(paintOperator(path.DoStroke, path.DoFill))
	b.op("Q")
}

func (b *PageBuilder) drawImage(ri content.RasterImage) {
	name := b.registerImage(ri.Image)
	b.op("q")
	b.op("cm", matrixOperands(ri.Matrix)...)
	b.op("Do", raw.Name(name))
	b.op("Q")
}

func paintOperator(stroke, fill bool) string {
	switch {
	case stroke && fill:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}

func (b *PageBuilder) op(operator string, operands ...raw.Object) {
	b.ops = append(b.ops, semantic.Op(operator, operands...))
}

func (b *PageBuilder) registerImage(img *semantic.Image) string {
	name := fmt.Sprintf("Im%d", b.nextImg)
	b.nextImg++
	b.xobjects[name] = &semantic.XObject{Name: name, Subtype: "Image", Image: img}
	return name
}

func (b *PageBuilder) registerFont(baseFont string) string {
	if f, ok := b.fonts[baseFont]; ok {
		return f.Name
	}
	b.nextFont++
	f := &semantic.Font{
		Name:     fmt.Sprintf("F%d", b.nextFont),
		Subtype:  "Type1",
		BaseFont: baseFont,
	}
	b.fonts[baseFont] = f
	return f.Name
}

func matrixOperands(m coords.Matrix) []raw.Object {
	out := make([]raw.Object, 6)
	for i, v := range m {
		out[i] = raw.Real(v)
	}
	return out
}

// FromImage converts decoded pixels into the image record the writer
// embeds: DeviceRGB samples plus a DeviceGray SMask when any pixel is
// not fully opaque.
func FromImage(src image.Image) *semantic.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}
	img := &semantic.Image{
		Width:            w,
		Height:           h,
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Data:             rgb,
	}
	if !opaque {
		img.SMask = &semantic.Image{
			Width:            w,
			Height:           h,
			ColorSpace:       "DeviceGray",
			BitsPerComponent: 8,
			Data:             alpha,
		}
	}
	return img
}
