// Package decode turns a 32-bit Nios II instruction word into a tagged
// Instruction value. It mirrors the teacher's "decode to a tagged value,
// dispatch on it" shape (jmchacon-6502 cpu.go's processOpcode), generalized
// from a fixed 6502 opcode byte to the Nios II R/I/J-type field layout
// named in spec 4.D, and from 8-bit to 32-bit words.
//
// The opx/OP values assigned to each mnemonic (rTypeOps/ijTypeOps below) are
// this module's own, not the real Nios II encoding (real addi is OP 0x04,
// real add is opx 0x31, etc). An object image produced by an actual
// nios2-elf-as/ld cannot be decoded here; only images built by this
// module's own asm/hand_asm can. One consequence worth knowing: the
// all-zero word decodes as a valid "call 0" rather than a fault, so code
// that runs off the end of a program into zeroed memory keeps executing
// instead of faulting.
package decode

import "github.com/dgrunwald/nios2sim/fault"

// Format identifies which of the three Nios II instruction encodings a word
// uses.
type Format int

const (
	RType Format = iota
	IType
	JType
)

// rOpcode is the fixed OP field value (bits 5:0) shared by every register-
// register instruction; the actual operation is selected by the opx field
// (bits 16:11).
const rOpcode = 0x3A

// Instruction is the decoded, tagged form of a fetched word. Which fields
// are meaningful depends on Format: R-type instructions use A, B, C and
// Shift; I-type instructions use A, B and Imm16; J-type instructions use
// Imm26 only.
type Instruction struct {
	Mnemonic string
	Format   Format
	A, B, C  uint8
	Imm16    uint16
	Imm26    uint32
	Shift    uint8 // 5-bit shift amount (R-type IMM5 field)
	Raw      uint32
	PC       uint32
}

// rTypeOps lists every register-register mnemonic in opx assignment order;
// its index in this slice is the sub-opcode (opx field) used on the wire.
// Ordering is otherwise arbitrary since no external toolchain's object code
// is consumed by this module (the assembler/linker are external
// collaborators per spec 1) — what matters is that Decode and the asm
// encoder agree, which they do by both deriving from this table.
var rTypeOps = []string{
	"add", "sub", "mul", "and", "or", "xor", "nor",
	"cmpeq", "cmpne", "cmplt", "cmplts", "cmpge", "cmpges", "cmpgeu", "cmpgtu", "cmpleu",
	"sll", "srl", "sra", "rol", "ror", "slli", "srli", "srai",
	"jmp", "callr", "ret",
	"nop", "break",
}

// ijTypeOps lists every I-type and J-type mnemonic in OP assignment order;
// its index (skipping rOpcode, which is reserved for R-type) is the OP
// field used on the wire. call and jmpi are J-type; everything else here is
// I-type.
var ijTypeOps = []string{
	"call", "jmpi",
	"addi", "andi", "ori", "xori", "muli", "orhi",
	"cmpeqi", "cmpnei", "cmplti", "cmpltsi", "cmpgei", "cmpgesi", "cmpgeui", "cmpgtui", "cmpleui",
	"ldw", "ldh", "ldhu", "ldb", "ldbu",
	"stw", "sth", "stb",
	"ldwio", "ldhio", "ldhuio", "ldbio", "ldbuio",
	"stwio", "sthio", "stbio",
	"br", "beq", "bne", "blt", "bge", "bltu", "bgeu", "ble", "bgt", "bleu", "bgtu",
}

var (
	jTypeSet = map[string]bool{"call": true, "jmpi": true}

	opxByMnemonic = map[string]uint8{}
	mnemonicByOpx = map[uint8]string{}
	opByMnemonic  = map[string]uint8{}
	mnemonicByOp  = map[uint8]string{}
)

func init() {
	for i, m := range rTypeOps {
		opxByMnemonic[m] = uint8(i)
		mnemonicByOpx[uint8(i)] = m
	}
	op := uint8(0)
	for _, m := range ijTypeOps {
		if op == rOpcode {
			op++
		}
		opByMnemonic[m] = op
		mnemonicByOp[op] = m
		op++
	}
}

// OpcodeFor returns the wire OP (and, for R-type, opx) value for a known
// mnemonic. Used by the instruction encoder in package asm.
func OpcodeFor(mnemonic string) (op uint8, opx uint8, format Format, ok bool) {
	if opx, ok := opxByMnemonic[mnemonic]; ok {
		return rOpcode, opx, RType, true
	}
	if op, ok := opByMnemonic[mnemonic]; ok {
		format := IType
		if jTypeSet[mnemonic] {
			format = JType
		}
		return op, 0, format, true
	}
	return 0, 0, 0, false
}

// Decode extracts the opcode and operand fields of word, which was fetched
// from address pc, per the Nios II R/I/J-type layouts in spec 4.D. It
// returns fault.UnknownOpcode if word encodes no recognized instruction;
// decode never panics on any 32-bit input (spec 8: "Decode is total").
func Decode(word uint32, pc uint32) (Instruction, error) {
	op := uint8(word & 0x3F)

	if op == rOpcode {
		opx := uint8((word >> 11) & 0x3F)
		mnemonic, ok := mnemonicByOpx[opx]
		if !ok {
			return Instruction{}, fault.UnknownOpcode{PC: pc, Word: word}
		}
		return Instruction{
			Mnemonic: mnemonic,
			Format:   RType,
			A:        uint8((word >> 27) & 0x1F),
			B:        uint8((word >> 22) & 0x1F),
			C:        uint8((word >> 17) & 0x1F),
			Shift:    uint8((word >> 6) & 0x1F),
			Raw:      word,
			PC:       pc,
		}, nil
	}

	mnemonic, ok := mnemonicByOp[op]
	if !ok {
		return Instruction{}, fault.UnknownOpcode{PC: pc, Word: word}
	}

	if jTypeSet[mnemonic] {
		return Instruction{
			Mnemonic: mnemonic,
			Format:   JType,
			Imm26:    (word >> 6) & 0x3FFFFFF,
			Raw:      word,
			PC:       pc,
		}, nil
	}

	return Instruction{
		Mnemonic: mnemonic,
		Format:   IType,
		A:        uint8((word >> 27) & 0x1F),
		B:        uint8((word >> 22) & 0x1F),
		Imm16:    uint16((word >> 6) & 0xFFFF),
		Raw:      word,
		PC:       pc,
	}, nil
}

// SignExtend16 sign-extends a 16-bit immediate to 32 bits, as used by
// arithmetic and branch/offset immediates.
func SignExtend16(v uint16) int32 {
	return int32(int16(v))
}
