// Package writer serializes a semantic document as a classic
// single-section PDF: header, body objects, xref table, trailer.
package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/ir/semantic"
	"github.com/MayankSingamreddy/PrettyPapers/observability"
)

type ContentFilter int

const (
	// FilterFlate compresses content streams; the default.
	FilterFlate ContentFilter = iota
	// FilterASCIIHex keeps content readable; used by tests and debugging.
	FilterASCIIHex
	// FilterNone stores content verbatim.
	FilterNone
)

type Config struct {
	// Version is the header version; empty means 1.4.
	Version string
	// ContentFilter selects the page content encoding.
	ContentFilter ContentFilter
	// Deterministic derives the file ID from the document bytes so
	// identical input produces identical output.
	Deterministic bool
	// Producer overrides the Info dictionary producer string.
	Producer string
}

type Writer struct {
	log observability.Logger
}

type Option func(*Writer)

func WithLogger(log observability.Logger) Option {
	return func(w *Writer) { w.log = log }
}

func New(opts ...Option) *Writer {
	w := &Writer{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if doc == nil || len(doc.Pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	start := time.Now()
	b := newObjectBuilder(cfg)
	if err := b.build(ctx, doc); err != nil {
		return err
	}
	n, err := b.emit(out)
	if err != nil {
		return err
	}
	w.log.Info("document written",
		observability.Int("pages", len(doc.Pages)),
		observability.Int("objects", len(b.objects)),
		observability.Int("bytes", n),
		observability.Duration("elapsed", time.Since(start)))
	return nil
}

// emit renders all objects in number order, then the xref and trailer.
func (b *objectBuilder) emit(out io.Writer) (int, error) {
	var buf bytes.Buffer
	version := b.cfg.Version
	if version == "" {
		version = "1.4"
	}
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	// binary detection comment
	buf.Write([]byte{'%', 0xe2, 0xe3, 0xcf, 0xd3, '\n'})

	nums := make([]int, 0, len(b.objects))
	for num := range b.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	offsets := make(map[int]int, len(nums))
	for _, num := range nums {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		serializeObject(&buf, b.objects[num])
		buf.WriteString("\nendobj\n")
	}

	xrefOff := buf.Len()
	maxNum := 0
	if len(nums) > 0 {
		maxNum = nums[len(nums)-1]
	}
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	fmt.Fprintf(&buf, "%010d %05d f \n", 0, 65535)
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, 0)
		} else {
			fmt.Fprintf(&buf, "%010d %05d f \n", 0, 65535)
		}
	}

	trailer := raw.Dict{
		"Size": raw.Integer(maxNum + 1),
		"Root": b.root,
	}
	if b.info != (raw.Ref{}) {
		trailer["Info"] = b.info
	}
	id := fileID(b.cfg, buf.Bytes())
	trailer["ID"] = raw.Array{id, id}
	buf.WriteString("trailer\n")
	serializeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	n, err := out.Write(buf.Bytes())
	if err != nil {
		return n, fmt.Errorf("write output: %w", err)
	}
	return n, nil
}

// fileID hashes the body bytes in deterministic mode, and the clock
// otherwise.
func fileID(cfg Config, body []byte) raw.String {
	h := sha256.New()
	if cfg.Deterministic {
		h.Write(body)
	} else {
		fmt.Fprintf(h, "%d", time.Now().UnixNano())
		h.Write(body[:min(len(body), 1024)]) // salt with a little content
	}
	sum := h.Sum(nil)
	return raw.String{Data: []byte(hex.EncodeToString(sum[:8])), Hex: true}
}

func serializeObject(buf *bytes.Buffer, obj raw.Object) {
	switch v := obj.(type) {
	case raw.Null, nil:
		buf.WriteString("null")
	case raw.Boolean:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case raw.Integer:
		fmt.Fprintf(buf, "%d", int64(v))
	case raw.Real:
		buf.WriteString(formatNumber(float64(v)))
	case raw.Name:
		buf.WriteByte('/')
		writeNameBytes(buf, string(v))
	case raw.String:
		if v.Hex {
			buf.WriteByte('<')
			for _, b := range v.Data {
				fmt.Fprintf(buf, "%02X", b)
			}
			buf.WriteByte('>')
		} else {
			writeLiteralString(buf, v.Data)
		}
	case raw.Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case raw.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			serializeObject(buf, item)
		}
		buf.WriteByte(']')
	case raw.Dict:
		serializeDict(buf, v)
	case *raw.Stream:
		serializeDict(buf, v.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")
	default:
		// unreachable for well-formed builders
		fmt.Fprintf(buf, "null %% unsupported %T", obj)
	}
}

func serializeDict(buf *bytes.Buffer, d raw.Dict) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	buf.WriteString("<< ")
	for _, k := range keys {
		buf.WriteByte('/')
		writeNameBytes(buf, k)
		buf.WriteByte(' ')
		serializeObject(buf, d[raw.Name(k)])
		buf.WriteByte(' ')
	}
	buf.WriteString(">>")
}

func writeNameBytes(buf *bytes.Buffer, name string) {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || c == '#' || c == '/' || c == '(' || c == ')' ||
			c == '<' || c == '>' || c == '[' || c == ']' || c == '{' || c == '}' || c == '%' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeLiteralString(buf *bytes.Buffer, data []byte) {
	buf.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x80 {
				fmt.Fprintf(buf, `\%03o`, c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}

// formatNumber avoids exponent notation, which PDF does not allow.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	// trim trailing zeros but keep at least one fraction digit
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func serializeContent(ops []semantic.Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		for _, operand := range op.Operands {
			serializeObject(&buf, operand)
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func flateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func asciiHexEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)*2+1)
	const digits = "0123456789ABCDEF"
	for i, b := range data {
		out = append(out, digits[b>>4], digits[b&0xf])
		if i%32 == 31 {
			out = append(out, '\n')
		}
	}
	return append(out, '>')
}
