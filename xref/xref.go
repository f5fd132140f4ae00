// Package xref locates and parses classic cross-reference tables,
// following /Prev chains of incrementally updated files. Earlier
// sections never override later ones, so the newest definition of an
// object wins.
package xref

import (
	"bytes"
	"fmt"

	"github.com/MayankSingamreddy/PrettyPapers/ir/raw"
	"github.com/MayankSingamreddy/PrettyPapers/scanner"
)

type Entry struct {
	Offset int64
	Gen    int
	InUse  bool
}

type Table struct {
	Entries map[int]Entry
	Trailer raw.Dict
}

// startxref is expected in the file tail; viewers scan the last KB or
// so and so do we.
const tailWindow = 2048

// maxSections caps the /Prev chain so a loop cannot spin forever.
const maxSections = 64

func Parse(data []byte) (*Table, error) {
	offset, err := findStartxref(data)
	if err != nil {
		return nil, err
	}
	table := &Table{Entries: make(map[int]Entry), Trailer: raw.Dict{}}
	seen := make(map[int64]bool)
	for n := 0; n < maxSections; n++ {
		if offset < 0 || offset >= int64(len(data)) {
			return nil, fmt.Errorf("xref offset %d out of range", offset)
		}
		if seen[offset] {
			return nil, fmt.Errorf("xref chain loops at offset %d", offset)
		}
		seen[offset] = true
		trailer, err := parseSection(data, offset, table)
		if err != nil {
			return nil, err
		}
		// Merge trailer keys, newest section first.
		for k, v := range trailer {
			if _, ok := table.Trailer[k]; !ok {
				table.Trailer[k] = v
			}
		}
		prev, ok := trailer.GetInt("Prev")
		if !ok {
			return table, nil
		}
		offset = prev
	}
	return nil, fmt.Errorf("xref chain longer than %d sections", maxSections)
}

func findStartxref(data []byte) (int64, error) {
	tail := data
	if len(tail) > tailWindow {
		tail = tail[len(tail)-tailWindow:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("no startxref in file tail")
	}
	base := len(data) - len(tail)
	sc := scanner.New(data)
	sc.Seek(base + idx + len("startxref"))
	tok, err := sc.Next()
	if err != nil {
		return 0, err
	}
	if tok.Type != scanner.TokenNumber || !tok.IsInt {
		return 0, fmt.Errorf("startxref not followed by an offset")
	}
	return tok.Int, nil
}

func parseSection(data []byte, offset int64, table *Table) (raw.Dict, error) {
	sc := scanner.New(data)
	sc.Seek(int(offset))
	tok, err := sc.Next()
	if err != nil {
		return nil, err
	}
	if tok.Type != scanner.TokenKeyword || tok.Keyword != "xref" {
		if tok.Type == scanner.TokenNumber {
			return nil, fmt.Errorf("xref streams are not supported (offset %d)", offset)
		}
		return nil, fmt.Errorf("no xref table at offset %d", offset)
	}

	for {
		tok, err = sc.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Keyword == "trailer" {
			break
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, fmt.Errorf("malformed xref subsection header at offset %d", tok.Pos)
		}
		first := tok.Int
		tok, err = sc.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt || tok.Int < 0 {
			return nil, fmt.Errorf("malformed xref subsection count at offset %d", tok.Pos)
		}
		count := tok.Int
		for i := int64(0); i < count; i++ {
			off, gen, kind, err := readEntry(sc)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			num := int(first + i)
			if _, ok := table.Entries[num]; ok {
				continue // newer section already defined it
			}
			table.Entries[num] = Entry{Offset: off, Gen: gen, InUse: kind == 'n'}
		}
	}

	p := raw.NewParser(sc)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer at offset %d: %w", offset, err)
	}
	trailer, ok := obj.(raw.Dict)
	if !ok {
		return nil, fmt.Errorf("trailer at offset %d is not a dictionary", offset)
	}
	return trailer, nil
}

func readEntry(sc *scanner.Scanner) (int64, int, byte, error) {
	off, err := sc.Next()
	if err != nil {
		return 0, 0, 0, err
	}
	gen, err := sc.Next()
	if err != nil {
		return 0, 0, 0, err
	}
	kind, err := sc.Next()
	if err != nil {
		return 0, 0, 0, err
	}
	if off.Type != scanner.TokenNumber || !off.IsInt ||
		gen.Type != scanner.TokenNumber || !gen.IsInt ||
		kind.Type != scanner.TokenKeyword || (kind.Keyword != "n" && kind.Keyword != "f") {
		return 0, 0, 0, fmt.Errorf("malformed entry near offset %d", off.Pos)
	}
	return off.Int, int(gen.Int), kind.Keyword[0], nil
}
