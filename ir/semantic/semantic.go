// Package semantic models a PDF document at the level the pipeline
// works with: pages, resources and tokenized content operations.
package semantic

import (
	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
)

type Document struct {
	Pages []*Page
	Info  Metadata
}

type Metadata struct {
	Title    string
	Author   string
	Creator  string
	Producer string
}

type Rectangle struct {
	LLX, LLY, URX, URY float64
}

func (r Rectangle) Width() float64  { return r.URX - r.LLX }
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Letter is the default page size when no MediaBox is inherited.
var Letter = Rectangle{0, 0, 612, 792}

type Page struct {
	MediaBox  Rectangle
	CropBox   *Rectangle
	Rotate    int
	Resources Resources
	Contents  []*ContentStream
}

type Resources struct {
	Fonts    map[string]*Font
	XObjects map[string]*XObject
}

type Font struct {
	Name     string // resource key, e.g. F1
	Subtype  string
	BaseFont string
}

// XObject is an external object referenced by a Do operator. Only
// image XObjects carry an Image; forms keep their subtype so callers
// can tell why they were skipped.
type XObject struct {
	Name    string
	Subtype string
	Image   *Image
}

// Image holds image samples plus enough metadata to interpret them.
// Data is filter-decoded except when Filter names an image codec
// (DCTDecode), in which case Data is the still-encoded codec stream.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string
	BitsPerComponent int
	Filter           string
	Data             []byte
	SMask            *Image
}

type ContentStream struct {
	Operations []Operation
}

// Operation is one content-stream operator with its operands in
// source order. Operands reuse the raw object variants; references
// cannot occur inside content streams.
type Operation struct {
	Operator string
	Operands []raw.Object
}

// Op builds an operation; the writer and the composer use it to emit
// content programmatically.
func Op(operator string, operands ...raw.Object) Operation {
	return Operation{Operator: operator, Operands: operands}
}
