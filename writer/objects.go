package writer

import (
	"context"
	"fmt"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
)

type objectBuilder struct {
	cfg     Config
	objects map[int]raw.Object
	next    int
	root    raw.Ref
	info    raw.Ref
}

func newObjectBuilder(cfg Config) *objectBuilder {
	return &objectBuilder{cfg: cfg, objects: make(map[int]raw.Object), next: 1}
}

func (b *objectBuilder) alloc() raw.Ref {
	ref := raw.Ref{Num: b.next}
	b.next++
	return ref
}

func (b *objectBuilder) set(ref raw.Ref, obj raw.Object) {
	b.objects[ref.Num] = obj
}

func (b *objectBuilder) build(ctx context.Context, doc *semantic.Document) error {
	catalogRef := b.alloc()
	pagesRef := b.alloc()
	b.root = catalogRef

	kids := make(raw.Array, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pageRef, err := b.buildPage(page, pagesRef)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		kids = append(kids, pageRef)
	}

	b.set(pagesRef, raw.Dict{
		"Type":  raw.Name("Pages"),
		"Kids":  kids,
		"Count": raw.Integer(len(kids)),
	})
	b.set(catalogRef, raw.Dict{
		"Type":  raw.Name("Catalog"),
		"Pages": pagesRef,
	})
	b.buildInfo(doc.Info)
	return nil
}

func (b *objectBuilder) buildInfo(meta semantic.Metadata) {
	producer := b.cfg.Producer
	if producer == "" {
		producer = "PrettyPapers"
	}
	info := raw.Dict{"Producer": raw.String{Data: []byte(producer)}}
	if meta.Title != "" {
		info["Title"] = raw.String{Data: []byte(meta.Title)}
	}
	if meta.Author != "" {
		info["Author"] = raw.String{Data: []byte(meta.Author)}
	}
	if meta.Creator != "" {
		info["Creator"] = raw.String{Data: []byte(meta.Creator)}
	}
	ref := b.alloc()
	b.set(ref, info)
	b.info = ref
}

func (b *objectBuilder) buildPage(page *semantic.Page, parent raw.Ref) (raw.Ref, error) {
	pageRef := b.alloc()

	var ops []semantic.Operation
	for _, cs := range page.Contents {
		ops = append(ops, cs.Operations...)
	}
	contentRef, err := b.buildContent(ops)
	if err != nil {
		return raw.Ref{}, err
	}

	dict := raw.Dict{
		"Type":     raw.Name("Page"),
		"Parent":   parent,
		"MediaBox": rectArray(page.MediaBox),
		"Contents": contentRef,
	}
	if page.CropBox != nil {
		dict["CropBox"] = rectArray(*page.CropBox)
	}
	if page.Rotate != 0 {
		dict["Rotate"] = raw.Integer(page.Rotate)
	}

	resources, err := b.buildResources(page.Resources)
	if err != nil {
		return raw.Ref{}, err
	}
	dict["Resources"] = resources

	b.set(pageRef, dict)
	return pageRef, nil
}

func (b *objectBuilder) buildContent(ops []semantic.Operation) (raw.Ref, error) {
	body := serializeContent(ops)
	dict := raw.Dict{}
	switch b.cfg.ContentFilter {
	case FilterFlate:
		encoded, err := flateEncode(body)
		if err != nil {
			return raw.Ref{}, fmt.Errorf("compress content: %w", err)
		}
		body = encoded
		dict["Filter"] = raw.Name("FlateDecode")
	case FilterASCIIHex:
		body = asciiHexEncode(body)
		dict["Filter"] = raw.Name("ASCIIHexDecode")
	}
	dict["Length"] = raw.Integer(len(body))
	ref := b.alloc()
	b.set(ref, &raw.Stream{Dict: dict, Raw: body})
	return ref, nil
}

func (b *objectBuilder) buildResources(res semantic.Resources) (raw.Dict, error) {
	out := raw.Dict{
		"ProcSet": raw.Array{raw.Name("PDF"), raw.Name("Text"), raw.Name("ImageC")},
	}
	if len(res.Fonts) > 0 {
		fonts := raw.Dict{}
		for key, f := range res.Fonts {
			ref := b.alloc()
			b.set(ref, raw.Dict{
				"Type":     raw.Name("Font"),
				"Subtype":  raw.Name(f.Subtype),
				"BaseFont": raw.Name(f.BaseFont),
			})
			fonts[raw.Name(key)] = ref
		}
		out["Font"] = fonts
	}
	if len(res.XObjects) > 0 {
		xobjects := raw.Dict{}
		for key, xo := range res.XObjects {
			if xo.Image == nil {
				continue
			}
			ref, err := b.buildImage(xo.Image)
			if err != nil {
				return nil, fmt.Errorf("xobject %s: %w", key, err)
			}
			xobjects[raw.Name(key)] = ref
		}
		out["XObject"] = xobjects
	}
	return out, nil
}

func (b *objectBuilder) buildImage(img *semantic.Image) (raw.Ref, error) {
	dict := raw.Dict{
		"Type":             raw.Name("XObject"),
		"Subtype":          raw.Name("Image"),
		"Width":            raw.Integer(img.Width),
		"Height":           raw.Integer(img.Height),
		"BitsPerComponent": raw.Integer(img.BitsPerComponent),
	}
	if img.ColorSpace != "" {
		dict["ColorSpace"] = raw.Name(img.ColorSpace)
	}

	data := img.Data
	if img.Filter != "" {
		// codec streams (e.g. DCTDecode) are embedded as-is
		dict["Filter"] = raw.Name(img.Filter)
	} else {
		encoded, err := flateEncode(data)
		if err != nil {
			return raw.Ref{}, fmt.Errorf("compress image: %w", err)
		}
		data = encoded
		dict["Filter"] = raw.Name("FlateDecode")
	}
	dict["Length"] = raw.Integer(len(data))

	if img.SMask != nil {
		smaskRef, err := b.buildImage(img.SMask)
		if err != nil {
			return raw.Ref{}, fmt.Errorf("smask: %w", err)
		}
		dict["SMask"] = smaskRef
	}

	ref := b.alloc()
	b.set(ref, &raw.Stream{Dict: dict, Raw: data})
	return ref, nil
}

func rectArray(r semantic.Rectangle) raw.Array {
	return raw.Array{raw.Real(r.LLX), raw.Real(r.LLY), raw.Real(r.URX), raw.Real(r.URY)}
}
