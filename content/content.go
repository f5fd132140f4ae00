// Package content extracts a page's paintable elements. The three
// variants cover what the restyling pipeline carries over: text runs,
// vector paths and placed raster images. Extraction order is operator
// order, which is the page's paint order.
package content

import (
	"github.com/MayankSingamreddy/PrettyPapers/coords"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
)

// Color is a DeviceRGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

func Gray(v float64) Color { return Color{v, v, v} }

// CMYK converts the subtractive components to DeviceRGB.
func CMYK(c, m, y, k float64) Color {
	return Color{
		R: (1 - c) * (1 - k),
		G: (1 - m) * (1 - k),
		B: (1 - y) * (1 - k),
	}
}

type Element interface{ element() }

// TextSpan is one text-showing operation. Matrix is the text matrix
// composed with the CTM at show time; Origin is its translation.
type TextSpan struct {
	Text       string
	SourceFont string // BaseFont of the resource the page selected
	Font       string // base-14 substitute, Times family
	Size       float64
	Matrix     coords.Matrix
	Origin     coords.Point
	Fill       Color
	Rotation   int // quadrant degrees, counter-clockwise
}

type PathOp int

const (
	MoveTo PathOp = iota
	LineTo
	CurveTo
	ClosePath
)

// PathPoint is one construction step. CurveTo carries its two control
// points; the other ops use only X and Y.
type PathPoint struct {
	Op                 PathOp
	X, Y               float64
	C1X, C1Y, C2X, C2Y float64
}

type Subpath struct {
	Points []PathPoint
}

// VectorPath is a painted path: construction steps plus the paint
// decision captured at the painting operator.
type VectorPath struct {
	Subpaths  []Subpath
	Matrix    coords.Matrix
	Stroke    Color
	Fill      Color
	LineWidth float64
	DoStroke  bool
	DoFill    bool
}

// RasterImage is an image XObject placement. The unit square maps
// through Matrix to the painted area.
type RasterImage struct {
	Name   string
	Image  *semantic.Image
	Matrix coords.Matrix
}

func (TextSpan) element()    {}
func (VectorPath) element()  {}
func (RasterImage) element() {}
