package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op identifies one node kind of a quantity formula.
type Op string

const (
	OpQuantity Op = "quantity"
	OpConst    Op = "const"
	OpAdd      Op = "add"
	OpSub      Op = "sub"
	OpMul      Op = "mul"
	OpDiv      Op = "div"
	OpCeil     Op = "ceil"
	OpSqrt     Op = "sqrt"
)

// Expr is a closed expression tree over the single variable quantity.
// Evaluation is total: division by zero and the square root of a negative
// number evaluate to 0, and a NaN result collapses to 0.
type Expr struct {
	Op    Op      `yaml:"op" json:"op"`
	Value float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Args  []Expr  `yaml:"args,omitempty" json:"args,omitempty"`
}

// Q is the action quantity.
func Q() Expr { return Expr{Op: OpQuantity} }

// C is a constant.
func C(v float64) Expr { return Expr{Op: OpConst, Value: v} }

func Add(args ...Expr) Expr { return Expr{Op: OpAdd, Args: args} }
func Sub(a, b Expr) Expr    { return Expr{Op: OpSub, Args: []Expr{a, b}} }
func Mul(args ...Expr) Expr { return Expr{Op: OpMul, Args: args} }
func Div(a, b Expr) Expr    { return Expr{Op: OpDiv, Args: []Expr{a, b}} }
func Ceil(a Expr) Expr      { return Expr{Op: OpCeil, Args: []Expr{a}} }
func Sqrt(a Expr) Expr      { return Expr{Op: OpSqrt, Args: []Expr{a}} }

// Eval evaluates the expression for quantity q.
func (e Expr) Eval(q float64) float64 {
	v := e.eval(q)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (e Expr) eval(q float64) float64 {
	switch e.Op {
	case OpQuantity:
		return q
	case OpConst:
		return e.Value
	case OpAdd:
		sum := 0.0
		for _, a := range e.Args {
			sum += a.eval(q)
		}
		return sum
	case OpMul:
		if len(e.Args) == 0 {
			return 0
		}
		product := 1.0
		for _, a := range e.Args {
			product *= a.eval(q)
		}
		return product
	case OpSub:
		if len(e.Args) != 2 {
			return 0
		}
		return e.Args[0].eval(q) - e.Args[1].eval(q)
	case OpDiv:
		if len(e.Args) != 2 {
			return 0
		}
		d := e.Args[1].eval(q)
		if d == 0 {
			return 0
		}
		return e.Args[0].eval(q) / d
	case OpCeil:
		if len(e.Args) != 1 {
			return 0
		}
		return math.Ceil(e.Args[0].eval(q))
	case OpSqrt:
		if len(e.Args) != 1 {
			return 0
		}
		x := e.Args[0].eval(q)
		if x < 0 {
			return 0
		}
		return math.Sqrt(x)
	default:
		return 0
	}
}

// Validate checks node kinds and arities.
func (e Expr) Validate() error {
	switch e.Op {
	case OpQuantity, OpConst:
		if len(e.Args) != 0 {
			return fmt.Errorf("%s takes no arguments", e.Op)
		}
	case OpAdd, OpMul:
		if len(e.Args) == 0 {
			return fmt.Errorf("%s needs at least one argument", e.Op)
		}
	case OpSub, OpDiv:
		if len(e.Args) != 2 {
			return fmt.Errorf("%s needs exactly two arguments, got %d", e.Op, len(e.Args))
		}
	case OpCeil, OpSqrt:
		if len(e.Args) != 1 {
			return fmt.Errorf("%s needs exactly one argument, got %d", e.Op, len(e.Args))
		}
	case "":
		return fmt.Errorf("missing op")
	default:
		return fmt.Errorf("unknown op %q", e.Op)
	}
	for i, a := range e.Args {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s arg %d: %w", e.Op, i, err)
		}
	}
	return nil
}

// String renders the expression in infix form, e.g. "ceil(quantity / 32)".
func (e Expr) String() string {
	switch e.Op {
	case OpQuantity:
		return "quantity"
	case OpConst:
		return strconv.FormatFloat(e.Value, 'f', -1, 64)
	case OpAdd:
		return "(" + joinArgs(e.Args, " + ") + ")"
	case OpMul:
		return "(" + joinArgs(e.Args, " * ") + ")"
	case OpSub:
		return "(" + joinArgs(e.Args, " - ") + ")"
	case OpDiv:
		return "(" + joinArgs(e.Args, " / ") + ")"
	case OpCeil:
		return "ceil" + wrapArgs(e.Args)
	case OpSqrt:
		return "sqrt" + wrapArgs(e.Args)
	default:
		return "?"
	}
}

func joinArgs(args []Expr, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}

func wrapArgs(args []Expr) string {
	if len(args) == 1 {
		switch args[0].Op {
		case OpAdd, OpSub, OpMul, OpDiv:
			// Already parenthesised.
			return args[0].String()
		}
	}
	return "(" + joinArgs(args, ", ") + ")"
}
