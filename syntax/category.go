package syntax

import (
	"strings"

	"github.com/pkg/errors"
)

// Slash is the direction of a combinator joining two categories.
type Slash int

const (
	Fwd Slash = iota
	Bwd
	Either

	NumSlashes int = iota
)

var slashNames = [...]string{"FWD", "BWD", "EITHER"}

// Name returns the enumeration name of the slash.
func (s Slash) Name() string {
	if s < 0 || int(s) >= NumSlashes {
		return "UNKNOWN"
	}
	return slashNames[s]
}

// String returns the symbol the slash is rendered with.
func (s Slash) String() string {
	switch s {
	case Fwd:
		return "/"
	case Bwd:
		return `\`
	}
	return "|"
}

// Category is a CCG category. An atomic category only has Atom set. A composite
// category has both Left and Right set, joined by Slash.
type Category struct {
	Atom  string
	Slash Slash
	Left  *Category
	Right *Category
}

// Atomic returns an atomic category.
func Atomic(atom string) *Category { return &Category{Atom: atom} }

// Compose joins two categories with a slash.
func Compose(left *Category, s Slash, right *Category) *Category {
	return &Category{Slash: s, Left: left, Right: right}
}

// IsAtomic returns true if the category has no children.
func (c *Category) IsAtomic() bool { return c.Left == nil }

// String returns the canonical rendering of the category. Composite
// categories are always bracketed: (S\NP)/NP renders as ((S\NP)/NP).
func (c *Category) String() string {
	var buf strings.Builder
	c.render(&buf)
	return buf.String()
}

func (c *Category) render(buf *strings.Builder) {
	if c.IsAtomic() {
		buf.WriteString(c.Atom)
		return
	}
	buf.WriteByte('(')
	c.Left.render(buf)
	buf.WriteString(c.Slash.String())
	c.Right.render(buf)
	buf.WriteByte(')')
}

// Depth returns the number of slashes on the longest path to an atom.
func (c *Category) Depth() int {
	if c.IsAtomic() {
		return 0
	}
	l, r := c.Left.Depth(), c.Right.Depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// ParseCategory parses a category. Slashes associate to the left, so
// S\NP/NP is ((S\NP)/NP). Brackets may be omitted at the top level.
func ParseCategory(s string) (*Category, error) {
	p := catParser{in: s}
	c, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.in) {
		return nil, errors.Errorf("unexpected %q at %d in category %q", p.in[p.pos], p.pos, s)
	}
	return c, nil
}

// MustParseCategory is like ParseCategory but panics on error.
func MustParseCategory(s string) *Category {
	c, err := ParseCategory(s)
	if err != nil {
		panic(err)
	}
	return c
}

type catParser struct {
	in  string
	pos int
}

func (p *catParser) expr() (*Category, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.in) {
		var s Slash
		switch p.in[p.pos] {
		case '/':
			s = Fwd
		case '\\':
			s = Bwd
		case '|':
			s = Either
		default:
			return left, nil
		}
		p.pos++
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		left = Compose(left, s, right)
	}
	return left, nil
}

func (p *catParser) primary() (*Category, error) {
	if p.pos >= len(p.in) {
		return nil, errors.Errorf("unexpected end of category %q", p.in)
	}
	if p.in[p.pos] == '(' {
		p.pos++
		c, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.in) || p.in[p.pos] != ')' {
			return nil, errors.Errorf("unbalanced brackets in category %q", p.in)
		}
		p.pos++
		return c, nil
	}
	start := p.pos
	for p.pos < len(p.in) && !strings.ContainsRune(`()/\|`, rune(p.in[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return nil, errors.Errorf("expected an atom at %d in category %q", start, p.in)
	}
	return Atomic(p.in[start:p.pos]), nil
}
