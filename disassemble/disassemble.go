// Package disassemble renders a fetched Nios II instruction word as a
// one-line mnemonic string, the way the teacher's disassemble package turns
// a 6502 opcode byte into a mnemonic plus operand text (jmchacon-6502
// disassemble/disassemble.go). Generalized from a fixed one-byte opcode with
// addressing modes to the three Nios II word formats, and from an
// interpreted memory.Ram to this module's memory.Memory.
package disassemble

import (
	"fmt"

	"github.com/dgrunwald/nios2sim/decode"
	"github.com/dgrunwald/nios2sim/memory"
)

// Step disassembles the instruction at pc, returning its text form and the
// number of bytes (always 4; Nios II has no variable-length instructions)
// the caller should advance pc by to reach the next instruction. This does
// not interpret the instruction, so a jmp/br/call in memory disassembles as
// that mnemonic without following the target.
func Step(pc uint32, m *memory.Memory) (string, int) {
	word, err := m.LoadWord(pc)
	if err != nil {
		return fmt.Sprintf("%08x: <%v>", pc, err), 4
	}

	in, err := decode.Decode(word, pc)
	if err != nil {
		return fmt.Sprintf("%08x: %08x       .word 0x%08x (%v)", pc, word, word, err), 4
	}

	return fmt.Sprintf("%08x: %08x       %s", pc, word, format(in)), 4
}

func format(in decode.Instruction) string {
	switch in.Mnemonic {
	case "nop", "ret", "break":
		return in.Mnemonic
	case "jmp", "callr":
		return fmt.Sprintf("%s\tr%d", in.Mnemonic, in.A)
	case "call", "jmpi":
		return fmt.Sprintf("%s\t0x%08x", in.Mnemonic, jumpTarget(in))
	}

	switch in.Format {
	case decode.RType:
		if isShiftImm(in.Mnemonic) {
			return fmt.Sprintf("%s\tr%d, r%d, %d", in.Mnemonic, in.C, in.A, in.Shift)
		}
		return fmt.Sprintf("%s\tr%d, r%d, r%d", in.Mnemonic, in.C, in.A, in.B)
	case decode.IType:
		if isBranch(in.Mnemonic) {
			return fmt.Sprintf("%s\tr%d, r%d, %d", in.Mnemonic, in.A, in.B, decode.SignExtend16(in.Imm16))
		}
		if isLoadStore(in.Mnemonic) {
			return fmt.Sprintf("%s\tr%d, %d(r%d)", in.Mnemonic, in.B, decode.SignExtend16(in.Imm16), in.A)
		}
		return fmt.Sprintf("%s\tr%d, r%d, %d", in.Mnemonic, in.B, in.A, in.Imm16)
	default:
		return fmt.Sprintf("%s\t0x%08x", in.Mnemonic, in.Imm26)
	}
}

func jumpTarget(in decode.Instruction) uint32 {
	return (in.PC+4)&0xF0000000 | (in.Imm26 << 2)
}

func isShiftImm(m string) bool {
	return m == "slli" || m == "srli" || m == "srai"
}

func isBranch(m string) bool {
	switch m {
	case "br", "beq", "bne", "blt", "bge", "bltu", "bgeu", "ble", "bgt", "bleu", "bgtu":
		return true
	}
	return false
}

func isLoadStore(m string) bool {
	switch m {
	case "ldw", "ldh", "ldhu", "ldb", "ldbu", "stw", "sth", "stb",
		"ldwio", "ldhio", "ldhuio", "ldbio", "ldbuio", "stwio", "sthio", "stbio":
		return true
	}
	return false
}
