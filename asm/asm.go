// Package asm hand-encodes Nios II instructions into object images, since
// assembly-to-object conversion is an external toolchain collaborator this
// module doesn't have (spec 1). It plays the role the teacher's hand_asm
// tool plays (jmchacon-6502 hand_asm/hand_asm.go: "take a hand-written
// description and produce a binary without a real assembler") but as an
// importable library with a small two-pass builder instead of a line-
// oriented text format, since this module's fixtures are built directly by
// Go test and grader code rather than read from a file.
package asm

import (
	"fmt"

	"github.com/dgrunwald/nios2sim/decode"
	"github.com/dgrunwald/nios2sim/object"
)

// EncodeR encodes a register-register instruction: mnemonic rC, rA, rB (or
// rC, rA, shift for the immediate-shift forms, which ignore b and use
// shift instead).
func EncodeR(mnemonic string, a, b, c, shift uint8) (uint32, error) {
	op, opx, format, ok := decode.OpcodeFor(mnemonic)
	if !ok || format != decode.RType {
		return 0, fmt.Errorf("asm: %q is not a known R-type mnemonic", mnemonic)
	}
	return uint32(op) |
		uint32(opx)<<11 |
		uint32(a&0x1F)<<27 |
		uint32(b&0x1F)<<22 |
		uint32(c&0x1F)<<17 |
		uint32(shift&0x1F)<<6, nil
}

// EncodeI encodes an immediate instruction: mnemonic rB, rA, imm16 (the
// load/store forms read this as base register A and data/dest register B;
// the branch forms compare A with B, per spec 4.D/4.E).
func EncodeI(mnemonic string, a, b uint8, imm16 uint16) (uint32, error) {
	op, _, format, ok := decode.OpcodeFor(mnemonic)
	if !ok || format != decode.IType {
		return 0, fmt.Errorf("asm: %q is not a known I-type mnemonic", mnemonic)
	}
	return uint32(op) |
		uint32(a&0x1F)<<27 |
		uint32(b&0x1F)<<22 |
		uint32(imm16)<<6, nil
}

// EncodeJ encodes call/jmpi: mnemonic imm26.
func EncodeJ(mnemonic string, imm26 uint32) (uint32, error) {
	op, _, format, ok := decode.OpcodeFor(mnemonic)
	if !ok || format != decode.JType {
		return 0, fmt.Errorf("asm: %q is not a known J-type mnemonic", mnemonic)
	}
	return uint32(op) | (imm26&0x3FFFFFF)<<6, nil
}

type fixupKind int

const (
	fixupBranch fixupKind = iota
	fixupJump
	fixupMovia
)

type fixup struct {
	kind     fixupKind
	wordIdx  int
	extra    int // second word index, for fixupMovia's ori instruction
	mnemonic string
	a, b     uint8
	label    string
}

// Builder assembles a single contiguous program (instructions and data
// words share one address space, as in the exercise skeletons in
// original_source/app.py where .text falls through into .data) starting at
// base, resolving label references in branches/calls in a second pass once
// every label's address is known.
type Builder struct {
	base    uint32
	words   []uint32
	labels  map[string]int
	symbols map[string]uint32
	fixups  []fixup
	err     error
}

// NewBuilder starts a new program at the given base address.
func NewBuilder(base uint32) *Builder {
	return &Builder{
		base:    base,
		labels:  map[string]int{},
		symbols: map[string]uint32{},
	}
}

func (b *Builder) addr(wordIdx int) uint32 {
	return b.base + uint32(wordIdx)*4
}

// Mark records the current position under name, both as a label usable by
// Branch/Call/Jmpi and as a symbol in the resulting object image - the same
// thing a real assembler's label is.
func (b *Builder) Mark(name string) *Builder {
	b.labels[name] = len(b.words)
	b.symbols[name] = b.addr(len(b.words))
	return b
}

// R emits a register-register instruction.
func (b *Builder) R(mnemonic string, a, bReg, c, shift uint8) *Builder {
	w, err := EncodeR(mnemonic, a, bReg, c, shift)
	b.emit(w, err)
	return b
}

// I emits an immediate instruction other than a branch (addi, ldw, stw, ...).
func (b *Builder) I(mnemonic string, a, bReg uint8, imm16 uint16) *Builder {
	w, err := EncodeI(mnemonic, a, bReg, imm16)
	b.emit(w, err)
	return b
}

// Branch emits a conditional or unconditional branch to a label defined
// elsewhere in the program (forward or backward).
func (b *Builder) Branch(mnemonic string, a, bReg uint8, label string) *Builder {
	if _, _, format, ok := decode.OpcodeFor(mnemonic); !ok || format != decode.IType {
		b.err = fmt.Errorf("asm: %q is not a known branch mnemonic", mnemonic)
		return b
	}
	b.fixups = append(b.fixups, fixup{kind: fixupBranch, wordIdx: len(b.words), mnemonic: mnemonic, a: a, b: bReg, label: label})
	b.words = append(b.words, 0)
	return b
}

// Call emits a call to label, setting ra = PC+4.
func (b *Builder) Call(label string) *Builder {
	b.fixups = append(b.fixups, fixup{kind: fixupJump, wordIdx: len(b.words), mnemonic: "call", label: label})
	b.words = append(b.words, 0)
	return b
}

// Jmpi emits an unconditional jump to label without touching ra.
func (b *Builder) Jmpi(label string) *Builder {
	b.fixups = append(b.fixups, fixup{kind: fixupJump, wordIdx: len(b.words), mnemonic: "jmpi", label: label})
	b.words = append(b.words, 0)
	return b
}

// Movia emits a two-instruction orhi+ori sequence loading a full 32-bit
// constant into reg. Real assemblers expand movia into orhi+addi with an
// adjusted high half; ori zero-extends its immediate, so no adjustment is
// needed here.
func (b *Builder) Movia(reg uint8, value uint32) *Builder {
	b.I("orhi", 0, reg, uint16(value>>16))
	b.I("ori", reg, reg, uint16(value))
	return b
}

// MoviaLabel is Movia with the 32-bit constant being a label's resolved
// address instead of a literal, for loading the address of a data symbol
// into a register (e.g. "movia r4, ARR").
func (b *Builder) MoviaLabel(reg uint8, label string) *Builder {
	hiIdx := len(b.words)
	b.words = append(b.words, 0)
	loIdx := len(b.words)
	b.words = append(b.words, 0)
	b.fixups = append(b.fixups, fixup{kind: fixupMovia, wordIdx: hiIdx, extra: loIdx, b: reg, label: label})
	return b
}

// Word appends a raw data word (spec's ".word" directive equivalent).
func (b *Builder) Word(v uint32) *Builder {
	b.words = append(b.words, v)
	return b
}

// Words appends several raw data words.
func (b *Builder) Words(vs ...uint32) *Builder {
	for _, v := range vs {
		b.Word(v)
	}
	return b
}

func (b *Builder) emit(w uint32, err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
	b.words = append(b.words, w)
}

// Finish resolves every label reference and returns the assembled object
// image, with entry set to the _start symbol if one was marked.
func (b *Builder) Finish() (*object.Image, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, fx := range b.fixups {
		targetIdx, ok := b.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", fx.label)
		}
		switch fx.kind {
		case fixupBranch:
			offset := int32(targetIdx-fx.wordIdx-1) * 4
			w, err := EncodeI(fx.mnemonic, fx.a, fx.b, uint16(offset))
			if err != nil {
				return nil, err
			}
			b.words[fx.wordIdx] = w
		case fixupJump:
			target := b.addr(targetIdx)
			w, err := EncodeJ(fx.mnemonic, target>>2)
			if err != nil {
				return nil, err
			}
			b.words[fx.wordIdx] = w
		case fixupMovia:
			target := b.addr(targetIdx)
			hi, err := EncodeI("orhi", 0, fx.b, uint16(target>>16))
			if err != nil {
				return nil, err
			}
			lo, err := EncodeI("ori", fx.b, fx.b, uint16(target))
			if err != nil {
				return nil, err
			}
			b.words[fx.wordIdx] = hi
			b.words[fx.extra] = lo
		}
	}

	bytes := make([]byte, len(b.words)*4)
	for i, w := range b.words {
		bytes[i*4] = byte(w)
		bytes[i*4+1] = byte(w >> 8)
		bytes[i*4+2] = byte(w >> 16)
		bytes[i*4+3] = byte(w >> 24)
	}

	img := &object.Image{
		Sections: []object.Section{{Address: b.base, Bytes: bytes}},
		Symbols:  b.symbols,
	}
	if addr, ok := b.symbols["_start"]; ok {
		img.Entry = addr
	} else {
		img.Entry = b.base
	}
	return img, nil
}
