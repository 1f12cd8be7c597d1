package trace

import "github.com/delegatescan/delegatescan/core/disasm"

// maxStack approximates the EVM's 1024-slot stack limit; the abstract
// domain itself has no fixed bound, but implementations MAY truncate here
// per spec.md's wording, which keeps pathological pushes from growing the
// abstract stack unboundedly on adversarial input.
const maxStack = 1024

// State is the (stack, memory) abstract state the transfer function
// operates on. Memory is deliberately approximated: writes discard their
// arguments and reads always yield Unknown.
type State struct {
	Stack []Expr
}

// Clone returns a deep-enough copy of s (the stack slice is copied; Exprs
// are immutable so sharing them across clones is safe).
func (s State) Clone() State {
	out := make([]Expr, len(s.Stack))
	copy(out, s.Stack)
	return State{Stack: out}
}

func (s *State) push(e Expr) {
	if len(s.Stack) >= maxStack {
		return
	}
	s.Stack = append(s.Stack, e)
}

func (s *State) pop() Expr {
	if len(s.Stack) == 0 {
		return Unknown{}
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top
}

// peek returns the n-th element from the top (0-indexed) without popping,
// or (Unknown{}, false) if the stack is too shallow.
func (s State) peek(n int) (Expr, bool) {
	idx := len(s.Stack) - 1 - n
	if idx < 0 {
		return Unknown{}, false
	}
	return s.Stack[idx], true
}

var binaryOps = map[disasm.OpCode]string{
	disasm.ADD: "ADD", disasm.SUB: "SUB", disasm.MUL: "MUL", disasm.DIV: "DIV",
	disasm.MOD: "MOD", disasm.AND: "AND", disasm.OR: "OR", disasm.XOR: "XOR",
	disasm.EQ: "EQ", disasm.LT: "LT", disasm.GT: "GT",
}

// Step applies the transfer function for a single instruction to s,
// mutating it in place, per spec.md §4.3's per-opcode effect table.
func Step(s *State, ins disasm.Instruction) {
	op := ins.Op

	switch {
	case op.IsPush():
		s.push(Literal{Value: ins.Immediate})
		return
	case op.IsDup():
		v, ok := s.peek(op.DupDepth() - 1)
		if !ok {
			s.push(Unknown{})
			return
		}
		s.push(v)
		return
	case op.IsSwap():
		n := op.SwapDepth()
		top := len(s.Stack) - 1
		other := top - n
		if top < 0 || other < 0 {
			return // shallow: no-op per spec.md
		}
		s.Stack[top], s.Stack[other] = s.Stack[other], s.Stack[top]
		return
	}

	if name, ok := binaryOps[op]; ok {
		a, b := s.pop(), s.pop()
		s.push(Op{Name: name, Args: []Expr{a, b}})
		return
	}

	switch op {
	case disasm.CALLDATALOAD:
		off := s.pop()
		s.push(Calldata{Offset: off})
	case disasm.SLOAD:
		slot := s.pop()
		s.push(Storage{Slot: slot})
	case disasm.CALLER:
		s.push(Environment{Source: EnvCaller})
	case disasm.ADDRESS:
		s.push(Environment{Source: EnvAddr})
	case disasm.ORIGIN:
		s.push(Environment{Source: EnvOrigin})
	case disasm.ISZERO:
		a := s.pop()
		s.push(Op{Name: "ISZERO", Args: []Expr{a}})
	case disasm.MLOAD:
		s.pop()
		s.push(Unknown{})
	case disasm.MSTORE, disasm.MSTORE8:
		s.pop()
		s.pop()
	case disasm.POP:
		s.pop()
	default:
		in, out, known := disasm.StackEffect(op)
		if !known {
			// Unmodeled byte: approximate by popping one slot, per
			// spec.md's "unknown byte opcode" row.
			s.pop()
			return
		}
		for i := 0; i < in; i++ {
			s.pop()
		}
		for i := 0; i < out; i++ {
			s.push(Unknown{})
		}
	}
}

// StepAll applies Step across every instruction in block in order,
// returning the resulting state.
func StepAll(s State, block []disasm.Instruction) State {
	for _, ins := range block {
		Step(&s, ins)
	}
	return s
}

// StackEqual reports whether two states have structurally equal stacks.
func StackEqual(a, b State) bool {
	if len(a.Stack) != len(b.Stack) {
		return false
	}
	for i := range a.Stack {
		if !Equal(a.Stack[i], b.Stack[i]) {
			return false
		}
	}
	return true
}

// Join computes the least upper bound of two states for the fixed-point
// iteration: stacks of differing depth join to the common depth of Unknown;
// where depths match, identical slots are kept and differing slots become
// Unknown. Joined memory (there is none to track) is always empty.
func Join(a, b State) State {
	if len(a.Stack) != len(b.Stack) {
		depth := len(a.Stack)
		if len(b.Stack) < depth {
			depth = len(b.Stack)
		}
		out := make([]Expr, depth)
		for i := range out {
			out[i] = Unknown{}
		}
		return State{Stack: out}
	}
	out := make([]Expr, len(a.Stack))
	for i := range out {
		if Equal(a.Stack[i], b.Stack[i]) {
			out[i] = a.Stack[i]
		} else {
			out[i] = Unknown{}
		}
	}
	return State{Stack: out}
}
