package semantic

import (
	"bytes"
	"compress/zlib"
	"context"
	"testing"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
)

func ref(n int) raw.Ref { return raw.Ref{Num: n, Gen: 0} }

// twoPageDoc builds a raw document with a Pages node that passes its
// MediaBox and Resources down to both kids; the second kid overrides
// the box.
func twoPageDoc(t *testing.T) *raw.Document {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write([]byte("BT /F1 12 Tf (Second) Tj ET"))
	zw.Close()

	return &raw.Document{
		Trailer: raw.Dict{"Root": ref(1), "Info": ref(9)},
		Objects: map[raw.Ref]raw.Object{
			ref(1): raw.Dict{"Type": raw.Name("Catalog"), "Pages": ref(2)},
			ref(2): raw.Dict{
				"Type":      raw.Name("Pages"),
				"Kids":      raw.Array{ref(3), ref(4)},
				"Count":     raw.Integer(2),
				"MediaBox":  raw.Array{raw.Integer(0), raw.Integer(0), raw.Integer(595), raw.Integer(842)},
				"Resources": raw.Dict{"Font": raw.Dict{"F1": ref(6)}},
			},
			ref(3): raw.Dict{"Type": raw.Name("Page"), "Parent": ref(2), "Contents": ref(5)},
			ref(4): raw.Dict{
				"Type":     raw.Name("Page"),
				"Parent":   ref(2),
				"MediaBox": raw.Array{raw.Integer(0), raw.Integer(0), raw.Integer(200), raw.Integer(100)},
				"Contents": ref(7),
				"Rotate":   raw.Integer(450),
			},
			ref(5): &raw.Stream{Dict: raw.Dict{"Length": raw.Integer(25)}, Raw: []byte("1 0 0 RG 0 0 100 50 re S")},
			ref(6): raw.Dict{"Type": raw.Name("Font"), "Subtype": raw.Name("Type1"), "BaseFont": raw.Name("Helvetica-Bold")},
			ref(7): &raw.Stream{
				Dict: raw.Dict{"Length": raw.Integer(int64(compressed.Len())), "Filter": raw.Name("FlateDecode")},
				Raw:  append([]byte(nil), compressed.Bytes()...),
			},
			ref(9): raw.Dict{"Title": raw.String{Data: []byte("Fixture")}},
		},
	}
}

func TestBuildInheritsPageAttributes(t *testing.T) {
	doc, err := NewBuilder(nil).Build(context.Background(), twoPageDoc(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	p1, p2 := doc.Pages[0], doc.Pages[1]
	if p1.MediaBox.Width() != 595 || p1.MediaBox.Height() != 842 {
		t.Fatalf("page 1 box: %+v", p1.MediaBox)
	}
	if p2.MediaBox.Width() != 200 {
		t.Fatalf("page 2 box override lost: %+v", p2.MediaBox)
	}
	if p2.Rotate != 90 {
		t.Fatalf("rotate not normalized: %d", p2.Rotate)
	}
	f, ok := p1.Resources.Fonts["F1"]
	if !ok || f.BaseFont != "Helvetica-Bold" {
		t.Fatalf("inherited font lost: %+v", f)
	}
	if doc.Info.Title != "Fixture" {
		t.Fatalf("metadata: %+v", doc.Info)
	}
}

func TestBuildDecodesAndTokenizesContent(t *testing.T) {
	doc, err := NewBuilder(nil).Build(context.Background(), twoPageDoc(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ops1 := doc.Pages[0].Contents[0].Operations
	if len(ops1) != 3 {
		t.Fatalf("page 1 ops: %+v", ops1)
	}
	if ops1[0].Operator != "RG" || len(ops1[0].Operands) != 3 {
		t.Fatalf("first op: %+v", ops1[0])
	}
	if ops1[1].Operator != "re" || ops1[2].Operator != "S" {
		t.Fatalf("path ops: %+v", ops1)
	}

	ops2 := doc.Pages[1].Contents[0].Operations
	var shown string
	for _, op := range ops2 {
		if op.Operator == "Tj" && len(op.Operands) == 1 {
			if s, ok := op.Operands[0].(raw.String); ok {
				shown = string(s.Data)
			}
		}
	}
	if shown != "Second" {
		t.Fatalf("flate content lost: %+v", ops2)
	}
}

func TestBuildImageXObject(t *testing.T) {
	rawDoc := twoPageDoc(t)
	rawDoc.Objects[ref(2)].(raw.Dict)["Resources"] = raw.Dict{
		"XObject": raw.Dict{"Im0": ref(8)},
	}
	rawDoc.Objects[ref(8)] = &raw.Stream{
		Dict: raw.Dict{
			"Type":             raw.Name("XObject"),
			"Subtype":          raw.Name("Image"),
			"Width":            raw.Integer(2),
			"Height":           raw.Integer(1),
			"ColorSpace":       raw.Name("DeviceRGB"),
			"BitsPerComponent": raw.Integer(8),
		},
		Raw: []byte{255, 0, 0, 0, 255, 0},
	}
	doc, err := NewBuilder(nil).Build(context.Background(), rawDoc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	xo, ok := doc.Pages[0].Resources.XObjects["Im0"]
	if !ok || xo.Image == nil {
		t.Fatalf("image xobject missing: %+v", xo)
	}
	img := xo.Image
	if img.Width != 2 || img.Height != 1 || img.ColorSpace != "DeviceRGB" || len(img.Data) != 6 {
		t.Fatalf("image: %+v", img)
	}
}

func TestBuildJPEGKeepsCodecStream(t *testing.T) {
	rawDoc := twoPageDoc(t)
	rawDoc.Objects[ref(2)].(raw.Dict)["Resources"] = raw.Dict{
		"XObject": raw.Dict{"Im0": ref(8)},
	}
	rawDoc.Objects[ref(8)] = &raw.Stream{
		Dict: raw.Dict{
			"Subtype": raw.Name("Image"),
			"Width":   raw.Integer(4),
			"Height":  raw.Integer(4),
			"Filter":  raw.Name("DCTDecode"),
		},
		Raw: []byte{0xff, 0xd8, 0xff, 0xd9},
	}
	doc, err := NewBuilder(nil).Build(context.Background(), rawDoc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	img := doc.Pages[0].Resources.XObjects["Im0"].Image
	if img.Filter != "DCTDecode" || len(img.Data) != 4 {
		t.Fatalf("codec stream mangled: %+v", img)
	}
}

func TestBuildRejectsPageTreeLoop(t *testing.T) {
	rawDoc := &raw.Document{
		Trailer: raw.Dict{"Root": ref(1)},
		Objects: map[raw.Ref]raw.Object{
			ref(1): raw.Dict{"Pages": ref(2)},
			ref(2): raw.Dict{"Type": raw.Name("Pages"), "Kids": raw.Array{ref(2)}},
		},
	}
	if _, err := NewBuilder(nil).Build(context.Background(), rawDoc); err == nil {
		t.Fatal("expected loop error")
	}
}

func TestTokenizeSkipsInlineImages(t *testing.T) {
	body := []byte("q BI /W 1 /H 1 /BPC 8 /CS /G ID \x00 EI Q 1 0 0 1 5 5 cm")
	ops, err := TokenizeContent(body)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(ops) != 3 || ops[0].Operator != "q" || ops[1].Operator != "Q" || ops[2].Operator != "cm" {
		t.Fatalf("ops: %+v", ops)
	}
}
