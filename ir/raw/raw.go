// Package raw defines the low-level PDF object model: the tagged
// variants a file decomposes into before any document semantics are
// applied. Objects are plain values; indirect references stay
// unresolved until a Resolver walks them.
package raw

import "fmt"

// Object is implemented by every PDF object variant.
type Object interface{ pdfObject() }

type Name string

type Integer int64

type Real float64

type Boolean bool

type Null struct{}

// String holds literal or hex string bytes. Hex records the source
// notation so a writer can round-trip it.
type String struct {
	Data []byte
	Hex  bool
}

type Array []Object

type Dict map[Name]Object

// Stream pairs a dictionary with its raw, still-encoded bytes.
type Stream struct {
	Dict Dict
	Raw  []byte
}

// Ref is an indirect object reference.
type Ref struct {
	Num int
	Gen int
}

func (Name) pdfObject()    {}
func (Integer) pdfObject() {}
func (Real) pdfObject()    {}
func (Boolean) pdfObject() {}
func (Null) pdfObject()    {}
func (String) pdfObject()  {}
func (Array) pdfObject()   {}
func (Dict) pdfObject()    {}
func (*Stream) pdfObject() {}
func (Ref) pdfObject()     {}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Num converts either numeric variant to float64.
func Num(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Int converts an Integer, or a Real with integral value.
func Int(o Object) (int64, bool) {
	switch v := o.(type) {
	case Integer:
		return int64(v), true
	case Real:
		if v == Real(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func (d Dict) Get(key Name) (Object, bool) {
	o, ok := d[key]
	return o, ok
}

func (d Dict) GetName(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

func (d Dict) GetInt(key Name) (int64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	return Int(o)
}

func (d Dict) GetNum(key Name) (float64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	return Num(o)
}

func (d Dict) GetArray(key Name) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

func (d Dict) GetDict(key Name) (Dict, bool) {
	sub, ok := d[key].(Dict)
	return sub, ok
}

func (d Dict) GetBool(key Name) (bool, bool) {
	b, ok := d[key].(Boolean)
	return bool(b), ok
}

// Document is the root container for parsed raw objects.
type Document struct {
	Objects map[Ref]Object
	Trailer Dict
	Version string
}

// Resolve follows reference chains until a direct object is reached.
// Chains longer than the object count are treated as cycles and
// resolve to nil.
func (d *Document) Resolve(o Object) Object {
	for hops := 0; hops <= len(d.Objects); hops++ {
		ref, ok := o.(Ref)
		if !ok {
			return o
		}
		o, ok = d.Objects[ref]
		if !ok {
			return nil
		}
	}
	return nil
}

// ResolveDict resolves o and asserts it is a dictionary, accepting a
// stream's dictionary too.
func (d *Document) ResolveDict(o Object) (Dict, bool) {
	switch v := d.Resolve(o).(type) {
	case Dict:
		return v, true
	case *Stream:
		return v.Dict, true
	}
	return nil, false
}

// ResolveArray resolves o and asserts it is an array.
func (d *Document) ResolveArray(o Object) (Array, bool) {
	a, ok := d.Resolve(o).(Array)
	return a, ok
}
