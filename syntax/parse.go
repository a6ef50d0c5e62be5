package syntax

import "fmt"

// Parse is one candidate node of a derivation, as handed over by the parser.
// Children are indices of nodes scored earlier in the same sentence.
type Parse struct {
	Category *Category
	Rule     RuleType
	Children []int
	Start    int // index of the first word covered
	End      int // index of the last word covered, inclusive
}

// Leaf returns a lexical node over word i.
func Leaf(c *Category, i int) Parse {
	return Parse{Category: c, Rule: LEXICON, Start: i, End: i}
}

// IsLeaf returns true if the node has no children.
func (p Parse) IsLeaf() bool { return len(p.Children) == 0 }

func (p Parse) String() string {
	return fmt.Sprintf("%v[%d,%d] %v %v", p.Category, p.Start, p.End, p.Rule, p.Children)
}

// Sentence is a tokenized sentence. Eval sentences are scored without dropout.
type Sentence struct {
	Words []string
	Eval  bool
}

// Len returns the number of words.
func (s Sentence) Len() int { return len(s.Words) }
