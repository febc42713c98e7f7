// Package expr defines the typed dice expression tree consumed by the
// distribution engines, plus a recursive-descent parser from tabletop dice
// notation (e.g. "4d6kh3+2*(1d4-1)") to that tree.
package expr

// Opcode identifies a dice-pool modifier.
type Opcode string

// Modifier opcodes. RerollAlways and RerollAdd are recognized by the parser
// but rejected by both engines with an unsupported-operator error.
const (
	OpMin          Opcode = "mi"
	OpMax          Opcode = "ma"
	OpRerollOnce   Opcode = "ro"
	OpRerollAlways Opcode = "rr"
	OpRerollAdd    Opcode = "ra"
	OpExplode      Opcode = "e"
	OpKeep         Opcode = "k"
	OpDrop         Opcode = "p"
)

// Category is a selector matching rule.
type Category string

// Selector categories. CatNone matches an exact value; CatHighest and
// CatLowest are order-dependent and select positionally within a pool.
const (
	CatNone    Category = ""
	CatLess    Category = "<"
	CatGreater Category = ">"
	CatHighest Category = "h"
	CatLowest  Category = "l"
)

// Selector describes which dice or values a modifier affects.
type Selector struct {
	Cat Category
	Num int
}

// Operation is one modifier application in a dice pool's modifier chain.
type Operation struct {
	Op        Opcode
	Selectors []Selector
}

// Node is a node of the expression tree.
type Node interface {
	node()
}

// Literal is a constant integer operand.
type Literal struct {
	Value int
}

// UnaryOp is a unary arithmetic operator.
type UnaryOp string

// Unary operators.
const (
	UnaryPlus  UnaryOp = "+"
	UnaryMinus UnaryOp = "-"
)

// Unary applies a unary operator to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

// BinaryOp is a binary arithmetic operator.
type BinaryOp string

// Binary operators. Div is floor division over distributions.
const (
	BinAdd BinaryOp = "+"
	BinSub BinaryOp = "-"
	BinMul BinaryOp = "*"
	BinDiv BinaryOp = "/"
)

// Binary applies a binary operator to two subtrees.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

// Paren wraps a parenthesized subtree.
type Paren struct {
	Inner Node
}

// Pool is a dice pool of Count dice with Sides faces each, with an ordered
// modifier chain applied in expression order.
//
// Precondition after a successful Parse: Count >= 1, Sides >= 1.
type Pool struct {
	Count int
	Sides int
	Ops   []Operation
}

func (*Literal) node() {}
func (*Unary) node()   {}
func (*Binary) node()  {}
func (*Paren) node()   {}
func (*Pool) node()    {}
