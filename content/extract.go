package content

import (
	"fmt"

	"github.com/MayankSingamreddy/PrettyPapers/coords"
	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
	"github.com/MayankSingamreddy/PrettyPapers/observability"
)

// avgGlyphWidth approximates the advance of a shown glyph in text
// space, in ems. Spans are re-emitted with their own matrix, so the
// estimate only positions consecutive shows inside one text object.
const avgGlyphWidth = 0.5

type Extractor struct {
	log observability.Logger
}

type Option func(*Extractor)

func WithLogger(log observability.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// graphicsState is the subset of the PDF graphics state the element
// model depends on.
type graphicsState struct {
	ctm       coords.Matrix
	fill      Color
	stroke    Color
	lineWidth float64
}

type textState struct {
	tm      coords.Matrix // text matrix
	tlm     coords.Matrix // text line matrix
	font    string
	size    float64
	leading float64
}

// Page walks a page's operations and returns its elements in paint
// order.
func (e *Extractor) Page(page *semantic.Page) ([]Element, error) {
	w := &walker{page: page, log: e.log}
	w.gs = graphicsState{ctm: coords.Identity(), lineWidth: 1}
	for _, cs := range page.Contents {
		for _, op := range cs.Operations {
			if err := w.apply(op); err != nil {
				return nil, err
			}
		}
	}
	e.log.Debug("page extracted", observability.Int("elements", len(w.elems)))
	return w.elems, nil
}

type walker struct {
	page   *semantic.Page
	gs     graphicsState
	stack  []graphicsState
	ts     textState
	inText bool

	// current path under construction
	subpaths []Subpath
	current  []PathPoint
	startX   float64
	startY   float64
	curX     float64
	curY     float64

	elems []Element
	log   observability.Logger
}

func (w *walker) apply(op semantic.Operation) error {
	switch op.Operator {
	case "q":
		w.stack = append(w.stack, w.gs)
	case "Q":
		if n := len(w.stack); n > 0 {
			w.gs = w.stack[n-1]
			w.stack = w.stack[:n-1]
		}
	case "cm":
		m, ok := matrixOperands(op.Operands)
		if !ok {
			return fmt.Errorf("cm with %d operands", len(op.Operands))
		}
		w.gs.ctm = m.Multiply(w.gs.ctm)
	case "w":
		if v, ok := numOperand(op.Operands, 0); ok {
			w.gs.lineWidth = v
		}

	// Color operators. sc/scn with 1, 3 or 4 numeric components are
	// treated as gray, RGB and CMYK; pattern names are ignored.
	case "rg":
		if c, ok := rgbOperands(op.Operands); ok {
			w.gs.fill = c
		}
	case "RG":
		if c, ok := rgbOperands(op.Operands); ok {
			w.gs.stroke = c
		}
	case "g":
		if v, ok := numOperand(op.Operands, 0); ok {
			w.gs.fill = Gray(v)
		}
	case "G":
		if v, ok := numOperand(op.Operands, 0); ok {
			w.gs.stroke = Gray(v)
		}
	case "k":
		if c, ok := cmykOperands(op.Operands); ok {
			w.gs.fill = c
		}
	case "K":
		if c, ok := cmykOperands(op.Operands); ok {
			w.gs.stroke = c
		}
	case "sc", "scn":
		if c, ok := componentColor(op.Operands); ok {
			w.gs.fill = c
		}
	case "SC", "SCN":
		if c, ok := componentColor(op.Operands); ok {
			w.gs.stroke = c
		}

	// Text object machinery.
	case "BT":
		w.inText = true
		w.ts.tm = coords.Identity()
		w.ts.tlm = coords.Identity()
	case "ET":
		w.inText = false
	case "Tf":
		if len(op.Operands) == 2 {
			if n, ok := op.Operands[0].(raw.Name); ok {
				w.ts.font = string(n)
			}
			if v, ok := raw.Num(op.Operands[1]); ok {
				w.ts.size = v
			}
		}
	case "TL":
		if v, ok := numOperand(op.Operands, 0); ok {
			w.ts.leading = v
		}
	case "Td":
		tx, ok1 := numOperand(op.Operands, 0)
		ty, ok2 := numOperand(op.Operands, 1)
		if ok1 && ok2 {
			w.ts.tlm = coords.Translate(tx, ty).Multiply(w.ts.tlm)
			w.ts.tm = w.ts.tlm
		}
	case "TD":
		tx, ok1 := numOperand(op.Operands, 0)
		ty, ok2 := numOperand(op.Operands, 1)
		if ok1 && ok2 {
			w.ts.leading = -ty
			w.ts.tlm = coords.Translate(tx, ty).Multiply(w.ts.tlm)
			w.ts.tm = w.ts.tlm
		}
	case "Tm":
		if m, ok := matrixOperands(op.Operands); ok {
			w.ts.tm = m
			w.ts.tlm = m
		}
	case "T*":
		w.nextLine()
	case "Tj":
		if s, ok := stringOperand(op.Operands, 0); ok {
			w.showText(s)
		}
	case "'":
		w.nextLine()
		if s, ok := stringOperand(op.Operands, 0); ok {
			w.showText(s)
		}
	case "\"":
		// word and char spacing operands are not modeled
		w.nextLine()
		if s, ok := stringOperand(op.Operands, 2); ok {
			w.showText(s)
		}
	case "TJ":
		if len(op.Operands) == 1 {
			if arr, ok := op.Operands[0].(raw.Array); ok {
				w.showTextArray(arr)
			}
		}

	// Path construction.
	case "m":
		x, ok1 := numOperand(op.Operands, 0)
		y, ok2 := numOperand(op.Operands, 1)
		if ok1 && ok2 {
			w.moveTo(x, y)
		}
	case "l":
		x, ok1 := numOperand(op.Operands, 0)
		y, ok2 := numOperand(op.Operands, 1)
		if ok1 && ok2 {
			w.lineTo(x, y)
		}
	case "c":
		w.curveTo(op.Operands, 0, 1, 2, 3, 4, 5)
	case "v":
		// first control point coincides with the current point
		if len(op.Operands) >= 4 {
			ops := append([]raw.Object{raw.Real(w.curX), raw.Real(w.curY)}, op.Operands...)
			w.curveTo(ops, 0, 1, 2, 3, 4, 5)
		}
	case "y":
		// second control point coincides with the endpoint
		if len(op.Operands) >= 4 {
			ops := append(append([]raw.Object{}, op.Operands...), op.Operands[2], op.Operands[3])
			w.curveTo(ops, 0, 1, 2, 3, 4, 5)
		}
	case "re":
		w.rect(op.Operands)
	case "h":
		w.closeSubpath()

	// Path painting.
	case "S":
		w.paintPath(true, false)
	case "s":
		w.closeSubpath()
		w.paintPath(true, false)
	case "f", "F", "f*":
		w.paintPath(false, true)
	case "B", "B*":
		w.paintPath(true, true)
	case "b", "b*":
		w.closeSubpath()
		w.paintPath(true, true)
	case "n":
		w.clearPath()

	case "Do":
		if len(op.Operands) == 1 {
			if n, ok := op.Operands[0].(raw.Name); ok {
				w.placeXObject(string(n))
			}
		}
	}
	return nil
}

func (w *walker) nextLine() {
	w.ts.tlm = coords.Translate(0, -w.ts.leading).Multiply(w.ts.tlm)
	w.ts.tm = w.ts.tlm
}

func (w *walker) showText(text string) {
	if !w.inText || text == "" {
		return
	}
	trm := w.ts.tm.Multiply(w.gs.ctm)
	span := TextSpan{
		Text:       text,
		SourceFont: w.resolveFont(),
		Size:       w.ts.size,
		Matrix:     trm,
		Origin:     trm.Translation(),
		Fill:       w.gs.fill,
		Rotation:   trm.Rotation(),
	}
	span.Font = MapFont(span.SourceFont)
	w.elems = append(w.elems, span)

	advance := float64(len(text)) * avgGlyphWidth * w.ts.size
	w.ts.tm = coords.Translate(advance, 0).Multiply(w.ts.tm)
}

func (w *walker) showTextArray(arr raw.Array) {
	for _, item := range arr {
		switch v := item.(type) {
		case raw.String:
			w.showText(string(v.Data))
		default:
			if adj, ok := raw.Num(v); ok {
				// negative values move the pen forward
				w.ts.tm = coords.Translate(-adj/1000*w.ts.size, 0).Multiply(w.ts.tm)
			}
		}
	}
}

func (w *walker) resolveFont() string {
	if f, ok := w.page.Resources.Fonts[w.ts.font]; ok && f.BaseFont != "" {
		return f.BaseFont
	}
	return w.ts.font
}

func (w *walker) moveTo(x, y float64) {
	w.flushSubpath()
	w.current = append(w.current, PathPoint{Op: MoveTo, X: x, Y: y})
	w.startX, w.startY = x, y
	w.curX, w.curY = x, y
}

func (w *walker) lineTo(x, y float64) {
	w.current = append(w.current, PathPoint{Op: LineTo, X: x, Y: y})
	w.curX, w.curY = x, y
}

func (w *walker) curveTo(ops []raw.Object, i1, i2, i3, i4, i5, i6 int) {
	vals := make([]float64, 6)
	for i, idx := range []int{i1, i2, i3, i4, i5, i6} {
		v, ok := numOperand(ops, idx)
		if !ok {
			return
		}
		vals[i] = v
	}
	w.current = append(w.current, PathPoint{
		Op: CurveTo,
		C1X: vals[0], C1Y: vals[1],
		C2X: vals[2], C2Y: vals[3],
		X: vals[4], Y: vals[5],
	})
	w.curX, w.curY = vals[4], vals[5]
}

func (w *walker) rect(ops []raw.Object) {
	x, ok1 := numOperand(ops, 0)
	y, ok2 := numOperand(ops, 1)
	rw, ok3 := numOperand(ops, 2)
	rh, ok4 := numOperand(ops, 3)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	w.moveTo(x, y)
	w.lineTo(x+rw, y)
	w.lineTo(x+rw, y+rh)
	w.lineTo(x, y+rh)
	w.closeSubpath()
}

func (w *walker) closeSubpath() {
	if len(w.current) == 0 {
		return
	}
	w.current = append(w.current, PathPoint{Op: ClosePath, X: w.startX, Y: w.startY})
	w.curX, w.curY = w.startX, w.startY
}

func (w *walker) flushSubpath() {
	if len(w.current) > 0 {
		w.subpaths = append(w.subpaths, Subpath{Points: w.current})
		w.current = nil
	}
}

func (w *walker) clearPath() {
	w.subpaths = nil
	w.current = nil
}

func (w *walker) paintPath(stroke, fill bool) {
	w.flushSubpath()
	if len(w.subpaths) == 0 {
		return
	}
	w.elems = append(w.elems, VectorPath{
		Subpaths:  w.subpaths,
		Matrix:    w.gs.ctm,
		Stroke:    w.gs.stroke,
		Fill:      w.gs.fill,
		LineWidth: w.gs.lineWidth,
		DoStroke:  stroke,
		DoFill:    fill,
	})
	w.subpaths = nil
}

func (w *walker) placeXObject(name string) {
	xo, ok := w.page.Resources.XObjects[name]
	if !ok {
		w.log.Warn("xobject not in resources", observability.String("name", name))
		return
	}
	if xo.Image == nil {
		// form XObjects are out of scope
		w.log.Debug("skipping non-image xobject",
			observability.String("name", name),
			observability.String("subtype", xo.Subtype))
		return
	}
	w.elems = append(w.elems, RasterImage{
		Name:   name,
		Image:  xo.Image,
		Matrix: w.gs.ctm,
	})
}

func matrixOperands(ops []raw.Object) (coords.Matrix, bool) {
	if len(ops) != 6 {
		return coords.Matrix{}, false
	}
	var m coords.Matrix
	for i, o := range ops {
		v, ok := raw.Num(o)
		if !ok {
			return coords.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func numOperand(ops []raw.Object, idx int) (float64, bool) {
	if idx >= len(ops) {
		return 0, false
	}
	return raw.Num(ops[idx])
}

func stringOperand(ops []raw.Object, idx int) (string, bool) {
	if idx >= len(ops) {
		return "", false
	}
	s, ok := ops[idx].(raw.String)
	return string(s.Data), ok
}

func rgbOperands(ops []raw.Object) (Color, bool) {
	if len(ops) != 3 {
		return Color{}, false
	}
	r, ok1 := raw.Num(ops[0])
	g, ok2 := raw.Num(ops[1])
	b, ok3 := raw.Num(ops[2])
	return Color{r, g, b}, ok1 && ok2 && ok3
}

func cmykOperands(ops []raw.Object) (Color, bool) {
	if len(ops) != 4 {
		return Color{}, false
	}
	c, ok1 := raw.Num(ops[0])
	m, ok2 := raw.Num(ops[1])
	y, ok3 := raw.Num(ops[2])
	k, ok4 := raw.Num(ops[3])
	return CMYK(c, m, y, k), ok1 && ok2 && ok3 && ok4
}

func componentColor(ops []raw.Object) (Color, bool) {
	switch len(ops) {
	case 1:
		if v, ok := raw.Num(ops[0]); ok {
			return Gray(v), true
		}
	case 3:
		return rgbOperands(ops)
	case 4:
		return cmykOperands(ops)
	}
	return Color{}, false
}
