package autocrud

// Expression is a computed column that back ends can annotate a
// collection with. The same tree is evaluated in Go by Env.Evaluate
// and compiled to SQL by relational back ends.
type Expression interface {
	expression()
}

// F references a field path, e.g. F("author__name").
type F string

// Literal is a constant value.
type Literal struct {
	Value any
}

// V wraps a constant.
func V(value any) Literal {
	return Literal{Value: value}
}

// Concat joins the string form of its parts. Null parts render empty.
type Concat []Expression

// When pairs a condition with the expression used when it matches.
type When struct {
	Condition Predicate
	Then      Expression
}

// Case returns the first matching When, or Default. A nil Default yields null.
type Case struct {
	Whens   []When
	Default Expression
}

func (F) expression()       {}
func (Literal) expression() {}
func (Concat) expression()  {}
func (Case) expression()    {}
func (Period) expression()  {}
