// Package dictschema describes the character columns of a stringdict file
// and parses their textual type definitions.
//
// The supported type strings are
//
//	string
//	char(n)
//	varchar(n)
//	struct<name:type,...>
//
// where every struct field must be one of the three character types. A bare
// character type describes a file with a single column named "_col0".
package dictschema

import (
	"fmt"
	"strings"
)

// Kind is the kind of character data stored in a column.
type Kind int

const (
	// String is an unbounded variable length column.
	String Kind = iota
	// Char is a fixed width column. Values are truncated and padded with
	// spaces to MaxLength characters.
	Char
	// Varchar is a bounded variable length column. Values are truncated to
	// MaxLength characters.
	Varchar
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Char:
		return "char"
	case Varchar:
		return "varchar"
	default:
		return fmt.Sprintf("<kind:%d>", int(k))
	}
}

// Column is a single character column.
type Column struct {
	Name      string
	Kind      Kind
	MaxLength int
}

// Type returns the type string of the column without its name.
func (c *Column) Type() string {
	switch c.Kind {
	case Char, Varchar:
		return fmt.Sprintf("%s(%d)", c.Kind, c.MaxLength)
	default:
		return c.Kind.String()
	}
}

func (c *Column) String() string {
	return c.Name + ":" + c.Type()
}

// Schema is the ordered list of columns of a file.
type Schema struct {
	Columns []*Column
}

// Column returns the column with the given name, or nil.
func (s *Schema) Column(name string) *Column {
	for _, c := range s.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) String() string {
	parts := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		parts = append(parts, c.String())
	}
	return "struct<" + strings.Join(parts, ",") + ">"
}

// ParseSchema parses a type string into a schema.
func ParseSchema(text string) (*Schema, error) {
	p := newTypeParser(text)
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.schema, nil
}

// ParseColumnType parses the type string of a single character column and
// returns it with the given name.
func ParseColumnType(name, text string) (*Column, error) {
	s, err := ParseSchema(text)
	if err != nil {
		return nil, err
	}
	if len(s.Columns) != 1 || strings.HasPrefix(strings.TrimSpace(text), "struct") {
		return nil, fmt.Errorf("%q is not a character column type", text)
	}
	c := s.Columns[0]
	c.Name = name
	return c, nil
}
