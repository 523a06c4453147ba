package dictschema

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type item struct {
	typ itemType
	pos pos
	val string
}

type pos int

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case len(i.val) > 10:
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

type itemType int

const (
	itemError itemType = iota
	itemEOF

	itemLeftParen
	itemRightParen
	itemLess
	itemGreater
	itemColon
	itemComma
	itemNumber
	itemIdentifier
	itemKeyword
	itemStruct
	itemString
	itemChar
	itemVarchar
)

func (i itemType) String() string {
	typeNames := map[itemType]string{
		itemError:      "error",
		itemEOF:        "EOF",
		itemLeftParen:  "(",
		itemRightParen: ")",
		itemLess:       "<",
		itemGreater:    ">",
		itemColon:      ":",
		itemComma:      ",",
		itemNumber:     "number",
		itemIdentifier: "identifier",
		itemKeyword:    "<keyword>",
		itemStruct:     "struct",
		itemString:     "string",
		itemChar:       "char",
		itemVarchar:    "varchar",
	}

	n, ok := typeNames[i]
	if !ok {
		return fmt.Sprintf("<type:%d>", int(i))
	}
	return n
}

var key = map[string]itemType{
	"struct":  itemStruct,
	"string":  itemString,
	"char":    itemChar,
	"varchar": itemVarchar,
}

const eof = -1

type stateFn func(*typeLexer) stateFn

type typeLexer struct {
	input string
	pos   pos
	start pos
	width pos
	items chan item
}

func (l *typeLexer) next() rune {
	if int(l.pos) >= len(l.input) {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = pos(w)
	l.pos += l.width
	return r
}

func (l *typeLexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *typeLexer) backup() {
	l.pos -= l.width
}

func (l *typeLexer) ignore() {
	l.start = l.pos
}

func (l *typeLexer) emit(t itemType) {
	l.items <- item{t, l.start, l.input[l.start:l.pos]}
	l.start = l.pos
}

func (l *typeLexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

func (l *typeLexer) errorf(format string, args ...interface{}) stateFn {
	l.items <- item{itemError, l.start, fmt.Sprintf(format, args...)}
	return nil
}

func (l *typeLexer) nextItem() item {
	return <-l.items
}

func (l *typeLexer) drain() {
	for range l.items {
	}
}

func lex(input string) *typeLexer {
	l := &typeLexer{
		input: input,
		items: make(chan item),
	}

	go l.run()
	return l
}

func (l *typeLexer) run() {
	for state := lexText; state != nil; {
		state = state(l)
	}
	close(l.items)
}

func lexText(l *typeLexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		l.emit(itemEOF)
		return nil
	case isSpace(r):
		return lexSpace
	case r == '(':
		l.emit(itemLeftParen)
	case r == ')':
		l.emit(itemRightParen)
	case r == '<':
		l.emit(itemLess)
	case r == '>':
		l.emit(itemGreater)
	case r == ':':
		l.emit(itemColon)
	case r == ',':
		l.emit(itemComma)
	case isDigit(r):
		return lexNumber
	case isAlpha(r):
		return lexIdentifier
	default:
		return l.errorf("unknown start of token '%v'", r)
	}
	return lexText
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return unicode.IsDigit(r)
}

func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isAlphaNum(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

func lexSpace(l *typeLexer) stateFn {
	for isSpace(l.peek()) {
		l.next()
	}
	l.ignore()
	return lexText
}

func lexNumber(l *typeLexer) stateFn {
	l.acceptRun("0123456789")
	l.emit(itemNumber)
	return lexText
}

func lexIdentifier(l *typeLexer) stateFn {
	for isAlphaNum(l.next()) {
	}
	l.backup()

	word := l.input[l.start:l.pos]
	if key[strings.ToLower(word)] > itemKeyword {
		l.emit(key[strings.ToLower(word)])
	} else {
		l.emit(itemIdentifier)
	}
	return lexText
}

type typeParser struct {
	l      *typeLexer
	token  item
	schema *Schema
}

func newTypeParser(text string) *typeParser {
	return &typeParser{
		l:      lex(text),
		schema: &Schema{},
	}
}

func (p *typeParser) parse() (err error) {
	defer p.recover(&err)

	p.next()
	if p.token.typ == itemStruct {
		p.parseStruct()
	} else {
		col := p.parseCharType()
		col.Name = "_col0"
		p.schema.Columns = append(p.schema.Columns, col)
	}

	p.next()
	p.expect(itemEOF)

	return nil
}

func (p *typeParser) recover(errp *error) {
	if e := recover(); e != nil {
		if _, ok := e.(runtime.Error); ok {
			panic(e)
		}
		p.l.drain()
		*errp = e.(error)
	}
}

func (p *typeParser) errorf(msg string, args ...interface{}) {
	msg = fmt.Sprintf("offset %d: %s", p.token.pos, msg)
	panic(fmt.Errorf(msg, args...))
}

func (p *typeParser) expect(typ itemType) {
	if typ == itemIdentifier && p.token.typ > itemKeyword {
		return
	}

	if p.token.typ != typ {
		p.errorf("expected %s, got %s instead", typ, p.token)
	}
}

func (p *typeParser) next() {
	p.token = p.l.nextItem()
	if p.token.typ == itemError {
		p.errorf("%s", p.token.val)
	}
}

func (p *typeParser) parseStruct() {
	p.next()
	p.expect(itemLess)

	seen := make(map[string]bool)
	for {
		p.next()
		if p.token.typ == itemGreater && len(p.schema.Columns) == 0 {
			return
		}

		p.expect(itemIdentifier)
		name := p.token.val
		if seen[name] {
			p.errorf("duplicate column name %q", name)
		}
		seen[name] = true

		p.next()
		p.expect(itemColon)

		p.next()
		col := p.parseCharType()
		col.Name = name
		p.schema.Columns = append(p.schema.Columns, col)

		p.next()
		switch p.token.typ {
		case itemComma:
		case itemGreater:
			return
		default:
			p.errorf("expected , or >, got %s instead", p.token)
		}
	}
}

func (p *typeParser) parseCharType() *Column {
	switch p.token.typ {
	case itemString:
		return &Column{Kind: String}
	case itemChar, itemVarchar:
		col := &Column{Kind: Char}
		if p.token.typ == itemVarchar {
			col.Kind = Varchar
		}

		p.next()
		p.expect(itemLeftParen)
		p.next()
		p.expect(itemNumber)

		n, err := strconv.ParseInt(p.token.val, 10, 32)
		if err != nil || n <= 0 {
			p.errorf("invalid %s length %q", col.Kind, p.token.val)
		}
		col.MaxLength = int(n)

		p.next()
		p.expect(itemRightParen)
		return col
	default:
		p.errorf("unsupported column type %s", p.token)
	}
	return nil
}
