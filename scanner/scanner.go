// Package scanner tokenizes PDF syntax: file bodies, object streams
// and content streams all share the same lexical layer.
package scanner

import (
	"bytes"
	"fmt"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenName
	TokenString
	TokenKeyword
	TokenArrayOpen
	TokenArrayClose
	TokenDictOpen
	TokenDictClose
)

// Token is a single lexical unit. Number tokens carry both integer
// and real representations; IsInt tells which one the source used.
type Token struct {
	Type    TokenType
	Pos     int
	Keyword string
	Name    string
	Str     []byte
	Hex     bool
	Int     int64
	Real    float64
	IsInt   bool
}

// Config bounds token sizes so malformed input fails instead of
// exhausting memory.
type Config struct {
	MaxStringLen int
	MaxNameLen   int
}

func DefaultConfig() Config {
	return Config{
		MaxStringLen: 32 << 20,
		MaxNameLen:   4 << 10,
	}
}

type Scanner struct {
	data []byte
	pos  int
	cfg  Config
}

func New(data []byte) *Scanner { return NewWithConfig(data, DefaultConfig()) }

func NewWithConfig(data []byte, cfg Config) *Scanner {
	if cfg.MaxStringLen <= 0 {
		cfg.MaxStringLen = DefaultConfig().MaxStringLen
	}
	if cfg.MaxNameLen <= 0 {
		cfg.MaxNameLen = DefaultConfig().MaxNameLen
	}
	return &Scanner{data: data, cfg: cfg}
}

func (s *Scanner) Pos() int      { return s.pos }
func (s *Scanner) Seek(off int)  { s.pos = off }
func (s *Scanner) Len() int      { return len(s.data) }
func (s *Scanner) Bytes() []byte { return s.data }

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isWhitespace(b) && !isDelimiter(b) }

func (s *Scanner) skipSpace() {
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if isWhitespace(b) {
			s.pos++
			continue
		}
		if b == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

// Next returns the next token. At end of input it returns a TokenEOF
// token with a nil error.
func (s *Scanner) Next() (Token, error) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return Token{Type: TokenEOF, Pos: s.pos}, nil
	}
	start := s.pos
	b := s.data[s.pos]
	switch {
	case b == '[':
		s.pos++
		return Token{Type: TokenArrayOpen, Pos: start}, nil
	case b == ']':
		s.pos++
		return Token{Type: TokenArrayClose, Pos: start}, nil
	case b == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return Token{Type: TokenDictOpen, Pos: start}, nil
		}
		return s.scanHexString()
	case b == '>':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
			s.pos += 2
			return Token{Type: TokenDictClose, Pos: start}, nil
		}
		return Token{}, fmt.Errorf("stray '>' at offset %d", start)
	case b == '(':
		return s.scanLiteralString()
	case b == '/':
		return s.scanName()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return s.scanNumber()
	case isRegular(b):
		return s.scanKeyword()
	}
	return Token{}, fmt.Errorf("unexpected byte 0x%02x at offset %d", b, start)
}

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // consume '/'
	var buf []byte
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		b := s.data[s.pos]
		if b == '#' && s.pos+2 < len(s.data) {
			hi := hexVal(s.data[s.pos+1])
			lo := hexVal(s.data[s.pos+2])
			if hi >= 0 && lo >= 0 {
				buf = append(buf, byte(hi<<4|lo))
				s.pos += 3
				continue
			}
		}
		buf = append(buf, b)
		s.pos++
		if len(buf) > s.cfg.MaxNameLen {
			return Token{}, fmt.Errorf("name at offset %d exceeds %d bytes", start, s.cfg.MaxNameLen)
		}
	}
	return Token{Type: TokenName, Pos: start, Name: string(buf)}, nil
}

func (s *Scanner) scanNumber() (Token, error) {
	start := s.pos
	if s.data[s.pos] == '+' || s.data[s.pos] == '-' {
		s.pos++
	}
	isInt := true
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if b >= '0' && b <= '9' {
			s.pos++
			continue
		}
		if b == '.' && isInt {
			isInt = false
			s.pos++
			continue
		}
		break
	}
	text := s.data[start:s.pos]
	if len(text) == 0 || (len(text) == 1 && (text[0] == '+' || text[0] == '-')) {
		return Token{}, fmt.Errorf("malformed number at offset %d", start)
	}
	tok := Token{Type: TokenNumber, Pos: start, IsInt: isInt}
	if isInt {
		var v int64
		neg := false
		for _, c := range text {
			switch c {
			case '+':
			case '-':
				neg = true
			default:
				v = v*10 + int64(c-'0')
			}
		}
		if neg {
			v = -v
		}
		tok.Int = v
		tok.Real = float64(v)
	} else {
		tok.Real = parseReal(text)
	}
	return tok, nil
}

// parseReal avoids strconv so ".5", "4." and "-." variants found in
// the wild all parse the way viewers treat them.
func parseReal(text []byte) float64 {
	var v float64
	neg := false
	frac := false
	scale := 1.0
	for _, c := range text {
		switch {
		case c == '+':
		case c == '-':
			neg = true
		case c == '.':
			frac = true
		case c >= '0' && c <= '9':
			if frac {
				scale /= 10
				v += float64(c-'0') * scale
			} else {
				v = v*10 + float64(c-'0')
			}
		}
	}
	if neg {
		v = -v
	}
	return v
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	return Token{Type: TokenKeyword, Pos: start, Keyword: string(s.data[start:s.pos])}, nil
}

func (s *Scanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // consume '('
	depth := 1
	var buf []byte
	for s.pos < len(s.data) {
		if len(buf) > s.cfg.MaxStringLen {
			return Token{}, fmt.Errorf("string at offset %d exceeds %d bytes", start, s.cfg.MaxStringLen)
		}
		b := s.data[s.pos]
		s.pos++
		switch b {
		case '(':
			depth++
			buf = append(buf, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Pos: start, Str: buf}, nil
			}
			buf = append(buf, b)
		case '\\':
			if s.pos >= len(s.data) {
				return Token{}, fmt.Errorf("unterminated escape in string at offset %d", start)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '(', ')', '\\':
				buf = append(buf, e)
			case '\r':
				// line continuation, swallow optional \n
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for n := 0; n < 2 && s.pos < len(s.data); n++ {
						c := s.data[s.pos]
						if c < '0' || c > '7' {
							break
						}
						v = v<<3 | int(c-'0')
						s.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		default:
			buf = append(buf, b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // consume '<'
	var buf []byte
	hi := -1
	for s.pos < len(s.data) {
		if len(buf) > s.cfg.MaxStringLen {
			return Token{}, fmt.Errorf("hex string at offset %d exceeds %d bytes", start, s.cfg.MaxStringLen)
		}
		b := s.data[s.pos]
		s.pos++
		if b == '>' {
			if hi >= 0 {
				buf = append(buf, byte(hi<<4))
			}
			return Token{Type: TokenString, Pos: start, Str: buf, Hex: true}, nil
		}
		if isWhitespace(b) {
			continue
		}
		v := hexVal(b)
		if v < 0 {
			return Token{}, fmt.Errorf("bad hex digit 0x%02x at offset %d", b, s.pos-1)
		}
		if hi < 0 {
			hi = v
		} else {
			buf = append(buf, byte(hi<<4|v))
			hi = -1
		}
	}
	return Token{}, fmt.Errorf("unterminated hex string at offset %d", start)
}

// StreamData slices the stream body that follows a "stream" keyword.
// The scanner must be positioned right after that keyword. When
// length is negative the body extent is found by searching for the
// closing "endstream". The position is left after "endstream".
func (s *Scanner) StreamData(length int64) ([]byte, error) {
	// EOL after "stream": CRLF or LF
	if s.pos < len(s.data) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < len(s.data) && s.data[s.pos] == '\n' {
		s.pos++
	}
	start := s.pos
	if length >= 0 && start+int(length) <= len(s.data) {
		end := start + int(length)
		rest := s.data[end:]
		// tolerate EOL padding before endstream
		skip := 0
		for skip < len(rest) && isWhitespace(rest[skip]) && skip < 4 {
			skip++
		}
		if bytes.HasPrefix(rest[skip:], []byte("endstream")) {
			s.pos = end + skip + len("endstream")
			return s.data[start:end], nil
		}
	}
	// Length missing, indirect, or wrong: scan for the terminator.
	idx := bytes.Index(s.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at offset %d has no endstream", start)
	}
	end := start + idx
	for end > start && (s.data[end-1] == '\n' || s.data[end-1] == '\r') {
		end--
	}
	s.pos = start + idx + len("endstream")
	return s.data[start:end], nil
}

// SkipInlineImage consumes the binary payload of a BI..ID..EI inline
// image. The scanner must be positioned after the ID keyword. EI must
// be preceded by whitespace and followed by a delimiter or whitespace
// to count as the terminator.
func (s *Scanner) SkipInlineImage() error {
	if s.pos < len(s.data) && isWhitespace(s.data[s.pos]) {
		s.pos++
	}
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > s.pos && !isWhitespace(s.data[i-1]) {
			continue
		}
		if i+2 < len(s.data) && isRegular(s.data[i+2]) {
			continue
		}
		s.pos = i + 2
		return nil
	}
	return fmt.Errorf("inline image at offset %d has no EI", s.pos)
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
