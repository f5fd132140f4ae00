// Package filters decodes PDF stream filters. A Pipeline chains the
// decoders named by a stream's /Filter entry, applying each decoder's
// /DecodeParms along the way.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
)

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params raw.Dict) ([]byte, error)
}

type Limits struct {
	MaxDecodedSize int64
}

func DefaultLimits() Limits {
	return Limits{MaxDecodedSize: 256 << 20}
}

type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

// NewPipeline builds a pipeline with the standard decoders:
// FlateDecode, ASCIIHexDecode and ASCII85Decode.
func NewPipeline(limits Limits) *Pipeline {
	if limits.MaxDecodedSize <= 0 {
		limits = DefaultLimits()
	}
	p := &Pipeline{decoders: make(map[string]Decoder), limits: limits}
	p.Register(flateDecoder{limits})
	p.Register(asciiHexDecoder{})
	p.Register(ascii85Decoder{})
	return p
}

func (p *Pipeline) Register(d Decoder) { p.decoders[d.Name()] = d }

// Decode runs the named filters in order. params may be shorter than
// names; missing entries mean no parameters for that stage.
func (p *Pipeline) Decode(ctx context.Context, input []byte, names []string, params []raw.Dict) ([]byte, error) {
	data := input
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec, ok := p.decoders[name]
		if !ok {
			return nil, fmt.Errorf("unsupported filter %q", name)
		}
		var pr raw.Dict
		if i < len(params) {
			pr = params[i]
		}
		out, err := dec.Decode(ctx, data, pr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecodedSize > 0 && int64(len(out)) > p.limits.MaxDecodedSize {
			return nil, fmt.Errorf("%s: decoded size %d exceeds limit", name, len(out))
		}
		data = out
	}
	return data, nil
}

type flateDecoder struct{ limits Limits }

func (flateDecoder) Name() string { return "FlateDecode" }

func (d flateDecoder) Decode(ctx context.Context, in []byte, params raw.Dict) ([]byte, error) {
	var r io.ReadCloser
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		// Some producers emit a bare deflate body without the zlib
		// header. Retry raw before giving up.
		r = flate.NewReader(bytes.NewReader(in))
	}
	defer r.Close()

	var out bytes.Buffer
	limit := d.limits.MaxDecodedSize
	if limit <= 0 {
		limit = DefaultLimits().MaxDecodedSize
	}
	n, err := io.Copy(&out, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("decoded size exceeds %d bytes", limit)
	}
	return applyPredictor(out.Bytes(), params)
}

// applyPredictor reverses PNG row predictors (Predictor >= 10). The
// TIFF predictor 2 is not produced by the encoders this pipeline
// reads and is rejected.
func applyPredictor(data []byte, params raw.Dict) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	pred, ok := params.GetInt("Predictor")
	if !ok || pred <= 1 {
		return data, nil
	}
	if pred < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", pred)
	}
	colors := int64(1)
	if v, ok := params.GetInt("Colors"); ok {
		colors = v
	}
	bpc := int64(8)
	if v, ok := params.GetInt("BitsPerComponent"); ok {
		bpc = v
	}
	columns := int64(1)
	if v, ok := params.GetInt("Columns"); ok {
		columns = v
	}
	bytesPerPixel := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)
	if bytesPerPixel <= 0 || rowLen <= 0 || len(data)%(rowLen+1) != 0 {
		return nil, fmt.Errorf("predictor geometry mismatch: %d bytes, row %d", len(data), rowLen)
	}

	rows := len(data) / (rowLen + 1)
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	row := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		tag := data[r*(rowLen+1)]
		copy(row, data[r*(rowLen+1)+1:(r+1)*(rowLen+1)])
		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bytesPerPixel; i < rowLen; i++ {
				row[i] += row[i-bytesPerPixel]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bytesPerPixel {
					left = int(row[i-bytesPerPixel])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				left, upLeft := 0, 0
				if i >= bytesPerPixel {
					left = int(row[i-bytesPerPixel])
					upLeft = int(prev[i-bytesPerPixel])
				}
				row[i] += paeth(left, int(prev[i]), upLeft)
			}
		default:
			return nil, fmt.Errorf("bad PNG filter tag %d in row %d", tag, r)
		}
		out = append(out, row...)
		copy(prev, row)
	}
	return out, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return byte(a)
	}
	if pb <= pc {
		return byte(b)
	}
	return byte(c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params raw.Dict) ([]byte, error) {
	var compact []byte
	for _, b := range in {
		switch {
		case b == '>':
			goto done
		case b == 0x00, b == 0x09, b == 0x0a, b == 0x0c, b == 0x0d, b == 0x20:
		default:
			compact = append(compact, b)
		}
	}
done:
	if len(compact)%2 == 1 {
		compact = append(compact, '0')
	}
	out := make([]byte, hex.DecodedLen(len(compact)))
	n, err := hex.Decode(out, compact)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(ctx context.Context, in []byte, params raw.Dict) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	// A 'z' shorthand expands one input byte to four output bytes.
	out := make([]byte, len(trimmed)*4+4)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
