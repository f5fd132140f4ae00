package raw

import (
	"testing"

	"github.com/MayankSingamreddy/PrettyPapers/scanner"
)

func parseOne(t *testing.T, src string) Object {
	t.Helper()
	p := NewParser(scanner.New([]byte(src)))
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return obj
}

func TestParseScalars(t *testing.T) {
	if v := parseOne(t, "42"); v != Integer(42) {
		t.Fatalf("got %#v", v)
	}
	if v := parseOne(t, "-1.5"); v != Real(-1.5) {
		t.Fatalf("got %#v", v)
	}
	if v := parseOne(t, "/DeviceRGB"); v != Name("DeviceRGB") {
		t.Fatalf("got %#v", v)
	}
	if v := parseOne(t, "true"); v != Boolean(true) {
		t.Fatalf("got %#v", v)
	}
	if _, ok := parseOne(t, "null").(Null); !ok {
		t.Fatal("expected null")
	}
}

func TestParseReferenceLookahead(t *testing.T) {
	obj := parseOne(t, "[3 0 R 3 0 4]")
	arr, ok := obj.(Array)
	if !ok || len(arr) != 3 {
		t.Fatalf("got %#v", obj)
	}
	if ref, ok := arr[0].(Ref); !ok || ref.Num != 3 {
		t.Fatalf("first element should be a reference: %#v", arr[0])
	}
	if arr[1] != Integer(3) || arr[2] != Integer(0) {
		t.Fatalf("plain numbers mangled: %#v", arr)
	}
}

func TestParseNestedDict(t *testing.T) {
	obj := parseOne(t, "<< /Type /Page /MediaBox [0 0 612 792] /Parent 2 0 R >>")
	d, ok := obj.(Dict)
	if !ok {
		t.Fatalf("got %#v", obj)
	}
	if n, _ := d.GetName("Type"); n != "Page" {
		t.Fatalf("Type: %v", n)
	}
	box, ok := d.GetArray("MediaBox")
	if !ok || len(box) != 4 {
		t.Fatalf("MediaBox: %#v", box)
	}
	if ref, ok := d["Parent"].(Ref); !ok || ref.Num != 2 {
		t.Fatalf("Parent: %#v", d["Parent"])
	}
}

func TestParseIndirectStream(t *testing.T) {
	src := "7 0 obj << /Length 11 >> stream\nhello world\nendstream endobj"
	p := NewParser(scanner.New([]byte(src)))
	ref, obj, err := p.ParseIndirect()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref != (Ref{Num: 7, Gen: 0}) {
		t.Fatalf("ref: %v", ref)
	}
	st, ok := obj.(*Stream)
	if !ok || string(st.Raw) != "hello world" {
		t.Fatalf("got %#v", obj)
	}
}

func TestParseIndirectStreamIndirectLength(t *testing.T) {
	src := "7 0 obj << /Length 8 0 R >> stream\npayload\nendstream endobj"
	p := NewParser(scanner.New([]byte(src)))
	_, obj, err := p.ParseIndirect()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	st, ok := obj.(*Stream)
	if !ok || string(st.Raw) != "payload" {
		t.Fatalf("got %#v", obj)
	}
}

func TestParseIndirectPlain(t *testing.T) {
	src := "1 0 obj << /Kids [3 0 R] /Count 1 >> endobj"
	p := NewParser(scanner.New([]byte(src)))
	ref, obj, err := p.ParseIndirect()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Num != 1 {
		t.Fatalf("ref: %v", ref)
	}
	if _, ok := obj.(Dict); !ok {
		t.Fatalf("got %#v", obj)
	}
}

func TestParseMissingEndobj(t *testing.T) {
	p := NewParser(scanner.New([]byte("1 0 obj 5")))
	if _, _, err := p.ParseIndirect(); err == nil {
		t.Fatal("expected missing endobj error")
	}
}
