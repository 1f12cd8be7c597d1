// Package disasm turns a hex-encoded bytecode string into a linear sequence
// of instructions with their program counters and, for PUSH instructions,
// their immediate operand.
package disasm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/delegatescan/delegatescan/errs"
)

// Instruction is a single decoded opcode at a given program counter. PC is
// the byte offset of the opcode byte itself (the corrected convention from
// the design notes; see DESIGN.md for the rejected post-advance alternative).
type Instruction struct {
	PC        int
	Op        OpCode
	Immediate string // "0x<hex>" for PUSH instructions, "" otherwise
	StackIn   int
	StackOut  int
}

// IsUnknown reports whether this instruction is a raw, unrecognized byte
// (rendered with mnemonic "0xNN" per §4.1's contract).
func (ins Instruction) IsUnknown() bool {
	_, _, known := StackEffect(ins.Op)
	return !known && !ins.Op.IsPush()
}

// Mnemonic returns the instruction's display name: "PUSHn" for pushes, the
// opcode's name for known opcodes, or "0xNN" for unrecognized bytes.
func (ins Instruction) Mnemonic() string {
	return ins.Op.String()
}

// Disassemble parses hex (with or without a leading "0x") into an ordered
// instruction sequence. Malformed hex (odd length or non-hex characters)
// returns errs.ErrMalformedHex.
func Disassemble(bytecode string) ([]Instruction, error) {
	code, err := decodeHex(bytecode)
	if err != nil {
		return nil, err
	}

	var out []Instruction
	pc := 0
	for pc < len(code) {
		op := OpCode(code[pc])
		ins := Instruction{PC: pc, Op: op}

		if op.IsPush() {
			n := op.PushSize()
			payload := make([]byte, n)
			end := pc + 1 + n
			if end > len(code) {
				// Truncated past end-of-code: zero-pad the missing tail.
				copy(payload, code[pc+1:])
			} else {
				copy(payload, code[pc+1:end])
			}
			ins.Immediate = "0x" + hex.EncodeToString(payload)
			ins.StackIn, ins.StackOut = 0, 1
			out = append(out, ins)
			pc += 1 + n
			continue
		}

		in, sOut, known := StackEffect(op)
		if known {
			ins.StackIn, ins.StackOut = in, sOut
		}
		out = append(out, ins)
		pc++
	}
	return out, nil
}

// decodeHex strips an optional leading "0x"/"0X" and parses fixed 2-char
// hex chunks into bytes.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length", errs.ErrMalformedHex)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedHex, err)
	}
	return b, nil
}
