package bytecode

import (
	"fmt"
	"strings"

	"github.com/BasixKOR/boa/internal/helpers"
)

// jumpTargets collects every pc some instruction can jump to, so the
// disassembly can prefix them with a label marker. Backed by
// helpers.BitSet since a program counter set over a dense 0..n range is
// exactly what a bitset is for.
func (c *CodeBlock) jumpTargets() helpers.BitSet {
	targets := helpers.NewBitSet(uint(len(c.Code)) + 1)
	mark := func(pc int32) {
		if pc >= 0 && int(pc) <= len(c.Code) {
			targets.SetBit(uint(pc))
		}
	}
	for _, in := range c.Code {
		switch in.Op {
		case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfNullish, OpJumpIfNotNullish,
			OpJumpIfUndefined, OpIterNextOrJump:
			mark(in.A)
		case OpEnterTry:
			mark(in.A)
			mark(in.B)
		}
	}
	return targets
}

// Disassemble renders the instruction stream for VM tracing and compiler
// tests: one line per instruction, jump targets marked, operands shown only
// where the opcode uses them.
func (c *CodeBlock) Disassemble() string {
	targets := c.jumpTargets()
	var sb strings.Builder
	for pc, in := range c.Code {
		marker := "  "
		if targets.HasBit(uint(pc)) {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%04d %s", marker, pc, in.Op)
		if in.A != 0 || in.B != 0 {
			fmt.Fprintf(&sb, " %d", in.A)
		}
		if in.B != 0 {
			fmt.Fprintf(&sb, " %d", in.B)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
