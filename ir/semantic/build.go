package semantic

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MayankSingamreddy/PrettyPapers/filters"
	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/scanner"
)

// Builder lifts a raw document into the semantic model.
type Builder struct {
	pipeline *filters.Pipeline
}

func NewBuilder(pipeline *filters.Pipeline) *Builder {
	if pipeline == nil {
		pipeline = filters.NewPipeline(filters.DefaultLimits())
	}
	return &Builder{pipeline: pipeline}
}

// inherited carries the page attributes a Pages node passes down.
type inherited struct {
	mediaBox  *Rectangle
	cropBox   *Rectangle
	rotate    int
	resources raw.Dict
}

func (b *Builder) Build(ctx context.Context, doc *raw.Document) (*Document, error) {
	root, ok := doc.ResolveDict(doc.Trailer["Root"])
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root catalog")
	}
	pagesObj, ok := root.Get("Pages")
	if !ok {
		return nil, fmt.Errorf("catalog has no /Pages")
	}
	out := &Document{Info: metadata(doc)}
	seen := make(map[raw.Ref]bool)
	if err := b.walkPages(ctx, doc, pagesObj, inherited{}, seen, out); err != nil {
		return nil, err
	}
	if len(out.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return out, nil
}

func (b *Builder) walkPages(ctx context.Context, doc *raw.Document, node raw.Object, inh inherited, seen map[raw.Ref]bool, out *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ref, ok := node.(raw.Ref); ok {
		if seen[ref] {
			return fmt.Errorf("page tree loops at %s", ref)
		}
		seen[ref] = true
	}
	dict, ok := doc.ResolveDict(node)
	if !ok {
		return fmt.Errorf("page tree node is not a dictionary")
	}

	if box, ok := rectFromDict(doc, dict, "MediaBox"); ok {
		inh.mediaBox = &box
	}
	if box, ok := rectFromDict(doc, dict, "CropBox"); ok {
		inh.cropBox = &box
	}
	if rot, ok := dict.GetInt("Rotate"); ok {
		inh.rotate = normalizeRotate(int(rot))
	}
	if res, ok := doc.ResolveDict(dict["Resources"]); ok {
		inh.resources = res
	}

	typeName, _ := dict.GetName("Type")
	if typeName == "Page" {
		page, err := b.buildPage(ctx, doc, dict, inh)
		if err != nil {
			return fmt.Errorf("page %d: %w", len(out.Pages)+1, err)
		}
		out.Pages = append(out.Pages, page)
		return nil
	}

	kids, ok := doc.ResolveArray(dict["Kids"])
	if !ok {
		return fmt.Errorf("pages node has no /Kids")
	}
	for _, kid := range kids {
		if err := b.walkPages(ctx, doc, kid, inh, seen, out); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildPage(ctx context.Context, doc *raw.Document, dict raw.Dict, inh inherited) (*Page, error) {
	page := &Page{MediaBox: Letter, Rotate: inh.rotate}
	if inh.mediaBox != nil {
		page.MediaBox = *inh.mediaBox
	}
	page.CropBox = inh.cropBox

	if inh.resources != nil {
		res, err := b.buildResources(ctx, doc, inh.resources)
		if err != nil {
			return nil, err
		}
		page.Resources = res
	}

	contents, ok := dict.Get("Contents")
	if !ok {
		return page, nil
	}
	var streams raw.Array
	switch v := doc.Resolve(contents).(type) {
	case *raw.Stream:
		streams = raw.Array{contents}
	case raw.Array:
		streams = v
	default:
		return nil, fmt.Errorf("contents is %T", v)
	}
	// Split content streams form one logical stream; concatenate
	// before tokenizing so operations may straddle boundaries.
	var body []byte
	for _, item := range streams {
		st, ok := doc.Resolve(item).(*raw.Stream)
		if !ok {
			return nil, fmt.Errorf("content entry is not a stream")
		}
		decoded, err := b.decodeStream(ctx, doc, st)
		if err != nil {
			return nil, err
		}
		body = append(body, decoded...)
		body = append(body, '\n')
	}
	ops, err := TokenizeContent(body)
	if err != nil {
		return nil, err
	}
	page.Contents = []*ContentStream{{Operations: ops}}
	return page, nil
}

func (b *Builder) buildResources(ctx context.Context, doc *raw.Document, res raw.Dict) (Resources, error) {
	out := Resources{}
	if fonts, ok := doc.ResolveDict(res["Font"]); ok {
		out.Fonts = make(map[string]*Font, len(fonts))
		for key, val := range fonts {
			fd, ok := doc.ResolveDict(val)
			if !ok {
				continue
			}
			f := &Font{Name: string(key)}
			if n, ok := fd.GetName("Subtype"); ok {
				f.Subtype = string(n)
			}
			if n, ok := fd.GetName("BaseFont"); ok {
				f.BaseFont = string(n)
			}
			out.Fonts[string(key)] = f
		}
	}
	if xobjs, ok := doc.ResolveDict(res["XObject"]); ok {
		out.XObjects = make(map[string]*XObject, len(xobjs))
		for key, val := range xobjs {
			st, ok := doc.Resolve(val).(*raw.Stream)
			if !ok {
				continue
			}
			xo, err := b.buildXObject(ctx, doc, string(key), st)
			if err != nil {
				return Resources{}, fmt.Errorf("xobject %s: %w", key, err)
			}
			out.XObjects[string(key)] = xo
		}
	}
	return out, nil
}

func (b *Builder) buildXObject(ctx context.Context, doc *raw.Document, name string, st *raw.Stream) (*XObject, error) {
	subtype, _ := st.Dict.GetName("Subtype")
	xo := &XObject{Name: name, Subtype: string(subtype)}
	if subtype != "Image" {
		return xo, nil
	}
	img, err := b.buildImage(ctx, doc, st)
	if err != nil {
		return nil, err
	}
	if smaskObj, ok := st.Dict.Get("SMask"); ok {
		if smaskStream, ok := doc.Resolve(smaskObj).(*raw.Stream); ok {
			smask, err := b.buildImage(ctx, doc, smaskStream)
			if err != nil {
				return nil, fmt.Errorf("smask: %w", err)
			}
			img.SMask = smask
		}
	}
	xo.Image = img
	return xo, nil
}

// isImageCodec reports filters the pipeline does not expand; such
// streams stay encoded and the codec name is recorded on the image.
func isImageCodec(name string) bool {
	switch name {
	case "DCTDecode", "JPXDecode", "JBIG2Decode", "CCITTFaxDecode":
		return true
	}
	return false
}

func (b *Builder) buildImage(ctx context.Context, doc *raw.Document, st *raw.Stream) (*Image, error) {
	img := &Image{BitsPerComponent: 8}
	if w, ok := st.Dict.GetInt("Width"); ok {
		img.Width = int(w)
	}
	if h, ok := st.Dict.GetInt("Height"); ok {
		img.Height = int(h)
	}
	if bpc, ok := st.Dict.GetInt("BitsPerComponent"); ok {
		img.BitsPerComponent = int(bpc)
	}
	switch cs := doc.Resolve(st.Dict["ColorSpace"]).(type) {
	case raw.Name:
		img.ColorSpace = string(cs)
	case raw.Array:
		if len(cs) > 0 {
			if n, ok := cs[0].(raw.Name); ok {
				img.ColorSpace = string(n)
			}
		}
	}

	names, params := filterChain(doc, st.Dict)
	if len(names) > 0 && isImageCodec(names[len(names)-1]) {
		img.Filter = names[len(names)-1]
		// Expand any transport filters in front of the codec.
		data, err := b.pipeline.Decode(ctx, st.Raw, names[:len(names)-1], params)
		if err != nil {
			return nil, err
		}
		img.Data = data
		return img, nil
	}
	data, err := b.pipeline.Decode(ctx, st.Raw, names, params)
	if err != nil {
		return nil, err
	}
	img.Data = data
	return img, nil
}

func (b *Builder) decodeStream(ctx context.Context, doc *raw.Document, st *raw.Stream) ([]byte, error) {
	names, params := filterChain(doc, st.Dict)
	return b.pipeline.Decode(ctx, st.Raw, names, params)
}

// filterChain normalizes /Filter and /DecodeParms, which may each be
// a single entry or an array.
func filterChain(doc *raw.Document, dict raw.Dict) ([]string, []raw.Dict) {
	var names []string
	switch f := doc.Resolve(dict["Filter"]).(type) {
	case raw.Name:
		names = []string{string(f)}
	case raw.Array:
		for _, item := range f {
			if n, ok := doc.Resolve(item).(raw.Name); ok {
				names = append(names, string(n))
			}
		}
	}
	var params []raw.Dict
	switch p := doc.Resolve(dict["DecodeParms"]).(type) {
	case raw.Dict:
		params = []raw.Dict{p}
	case raw.Array:
		for _, item := range p {
			d, _ := doc.ResolveDict(item)
			params = append(params, d)
		}
	}
	return names, params
}

// TokenizeContent splits a decoded content stream into operations.
// Inline images (BI..EI) are consumed and dropped.
func TokenizeContent(body []byte) ([]Operation, error) {
	p := raw.NewParser(scanner.New(body))
	var ops []Operation
	var operands []raw.Object
	for {
		obj, op, err := p.ParseOperand()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ops, nil
			}
			return nil, err
		}
		if op == "" {
			operands = append(operands, obj)
			continue
		}
		if op == "BI" {
			if err := skipInlineImage(p); err != nil {
				return nil, err
			}
			operands = operands[:0]
			continue
		}
		ops = append(ops, Operation{Operator: op, Operands: append([]raw.Object(nil), operands...)})
		operands = operands[:0]
	}
}

func skipInlineImage(p *raw.Parser) error {
	for {
		_, op, err := p.ParseOperand()
		if err != nil {
			return fmt.Errorf("inline image: %w", err)
		}
		if op == "ID" {
			return p.Scanner().SkipInlineImage()
		}
	}
}

func rectFromDict(doc *raw.Document, dict raw.Dict, key raw.Name) (Rectangle, bool) {
	arr, ok := doc.ResolveArray(dict[key])
	if !ok || len(arr) != 4 {
		return Rectangle{}, false
	}
	vals := make([]float64, 4)
	for i, item := range arr {
		v, ok := raw.Num(doc.Resolve(item))
		if !ok {
			return Rectangle{}, false
		}
		vals[i] = v
	}
	r := Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, true
}

func normalizeRotate(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	return rot - rot%90
}

func metadata(doc *raw.Document) Metadata {
	info, ok := doc.ResolveDict(doc.Trailer["Info"])
	if !ok {
		return Metadata{}
	}
	get := func(key raw.Name) string {
		if s, ok := doc.Resolve(info[key]).(raw.String); ok {
			return string(s.Data)
		}
		return ""
	}
	return Metadata{
		Title:    get("Title"),
		Author:   get("Author"),
		Creator:  get("Creator"),
		Producer: get("Producer"),
	}
}
