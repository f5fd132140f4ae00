package raw

import (
	"fmt"
	"io"

	"github.com/MayankSingamreddy/PrettyPapers/scanner"
)

// Parser turns scanner tokens into raw objects. It keeps a small
// pushback buffer for the lookahead that distinguishes "3 0 R" from
// two plain numbers.
type Parser struct {
	sc     *scanner.Scanner
	peeked []scanner.Token
}

func NewParser(sc *scanner.Scanner) *Parser { return &Parser{sc: sc} }

func (p *Parser) next() (scanner.Token, error) {
	if n := len(p.peeked); n > 0 {
		tok := p.peeked[n-1]
		p.peeked = p.peeked[:n-1]
		return tok, nil
	}
	return p.sc.Next()
}

func (p *Parser) unread(tok scanner.Token) { p.peeked = append(p.peeked, tok) }

// Scanner exposes the underlying scanner. Callers that use it for
// positional reads must not do so while lookahead is buffered.
func (p *Parser) Scanner() *scanner.Scanner { return p.sc }

// ParseOperand reads the next content-stream item. It returns either
// an operand object or, for operator keywords, the operator name. At
// end of input it returns io.EOF.
func (p *Parser) ParseOperand() (Object, string, error) {
	tok, err := p.next()
	if err != nil {
		return nil, "", err
	}
	switch tok.Type {
	case scanner.TokenEOF:
		return nil, "", io.EOF
	case scanner.TokenKeyword:
		switch tok.Keyword {
		case "true":
			return Boolean(true), "", nil
		case "false":
			return Boolean(false), "", nil
		case "null":
			return Null{}, "", nil
		}
		return nil, tok.Keyword, nil
	}
	obj, err := p.parseFrom(tok)
	return obj, "", err
}

// ParseObject reads one object: any direct object, or an indirect
// reference when the next tokens form "num gen R".
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok scanner.Token) (Object, error) {
	switch tok.Type {
	case scanner.TokenNumber:
		if tok.IsInt {
			if ref, ok, err := p.tryReference(tok); err != nil {
				return nil, err
			} else if ok {
				return ref, nil
			}
			return Integer(tok.Int), nil
		}
		return Real(tok.Real), nil
	case scanner.TokenName:
		return Name(tok.Name), nil
	case scanner.TokenString:
		return String{Data: tok.Str, Hex: tok.Hex}, nil
	case scanner.TokenArrayOpen:
		return p.parseArray()
	case scanner.TokenDictOpen:
		return p.parseDict()
	case scanner.TokenKeyword:
		switch tok.Keyword {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Keyword, tok.Pos)
	case scanner.TokenEOF:
		return nil, fmt.Errorf("unexpected end of input at offset %d", tok.Pos)
	}
	return nil, fmt.Errorf("unexpected token at offset %d", tok.Pos)
}

func (p *Parser) tryReference(numTok scanner.Token) (Object, bool, error) {
	genTok, err := p.next()
	if err != nil {
		return nil, false, err
	}
	if genTok.Type != scanner.TokenNumber || !genTok.IsInt || genTok.Int < 0 {
		p.unread(genTok)
		return nil, false, nil
	}
	kwTok, err := p.next()
	if err != nil {
		return nil, false, err
	}
	if kwTok.Type == scanner.TokenKeyword && kwTok.Keyword == "R" {
		return Ref{Num: int(numTok.Int), Gen: int(genTok.Int)}, true, nil
	}
	p.unread(kwTok)
	p.unread(genTok)
	return nil, false, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenArrayClose {
			return arr, nil
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenDictClose {
			return dict, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("dictionary key at offset %d is not a name", tok.Pos)
		}
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		dict[Name(tok.Name)] = val
	}
}

// ParseIndirect reads "num gen obj <object> endobj" at the current
// position. Stream objects consume their body; an indirect /Length is
// resolved by scanning for endstream instead.
func (p *Parser) ParseIndirect() (Ref, Object, error) {
	numTok, err := p.next()
	if err != nil {
		return Ref{}, nil, err
	}
	genTok, err := p.next()
	if err != nil {
		return Ref{}, nil, err
	}
	objTok, err := p.next()
	if err != nil {
		return Ref{}, nil, err
	}
	if numTok.Type != scanner.TokenNumber || !numTok.IsInt ||
		genTok.Type != scanner.TokenNumber || !genTok.IsInt ||
		objTok.Type != scanner.TokenKeyword || objTok.Keyword != "obj" {
		return Ref{}, nil, fmt.Errorf("malformed indirect object header at offset %d", numTok.Pos)
	}
	ref := Ref{Num: int(numTok.Int), Gen: int(genTok.Int)}

	obj, err := p.ParseObject()
	if err != nil {
		return Ref{}, nil, fmt.Errorf("object %s: %w", ref, err)
	}

	tok, err := p.next()
	if err != nil {
		return Ref{}, nil, err
	}
	switch {
	case tok.Type == scanner.TokenKeyword && tok.Keyword == "endobj":
		return ref, obj, nil
	case tok.Type == scanner.TokenKeyword && tok.Keyword == "stream":
		dict, ok := obj.(Dict)
		if !ok {
			return Ref{}, nil, fmt.Errorf("object %s: stream without dictionary", ref)
		}
		if len(p.peeked) != 0 {
			return Ref{}, nil, fmt.Errorf("object %s: lookahead crossed stream boundary", ref)
		}
		length := int64(-1)
		if v, ok := dict.GetInt("Length"); ok {
			length = v
		}
		data, err := p.sc.StreamData(length)
		if err != nil {
			return Ref{}, nil, fmt.Errorf("object %s: %w", ref, err)
		}
		end, err := p.next()
		if err != nil {
			return Ref{}, nil, err
		}
		if end.Type != scanner.TokenKeyword || end.Keyword != "endobj" {
			return Ref{}, nil, fmt.Errorf("object %s: missing endobj after stream", ref)
		}
		return ref, &Stream{Dict: dict, Raw: data}, nil
	}
	return Ref{}, nil, fmt.Errorf("object %s: missing endobj", ref)
}
