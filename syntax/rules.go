package syntax

// RuleType identifies the combinatory rule that produced a node.
type RuleType int

const (
	FA  RuleType = iota // forward application
	BA                  // backward application
	FC                  // forward composition
	BX                  // backward crossed composition
	GFC                 // generalised forward composition
	GBX                 // generalised backward crossed composition
	CONJ
	RP // right punctuation
	LP // left punctuation
	NOISE
	UNARY
	LEXICON

	NumRules int = iota
)

var ruleNames = [...]string{"FA", "BA", "FC", "BX", "GFC", "GBX", "CONJ", "RP", "LP", "NOISE", "UNARY", "LEXICON"}

func (r RuleType) String() string {
	if r < 0 || int(r) >= NumRules {
		return "UNKNOWN"
	}
	return ruleNames[r]
}

// IsValid returns true if r is one of the known rule types.
func (r RuleType) IsValid() bool { return r >= 0 && int(r) < NumRules }

// RuleTypeOf looks up a rule type by its name.
func RuleTypeOf(name string) (RuleType, bool) {
	for i, n := range ruleNames {
		if n == name {
			return RuleType(i), true
		}
	}
	return -1, false
}
