package asm

import (
	"testing"

	"github.com/dgrunwald/nios2sim/decode"
	"github.com/dgrunwald/nios2sim/object"
)

func TestBranchFixupOffsetIsRelativeToNextInstruction(t *testing.T) {
	b := NewBuilder(0x1000)
	b.Mark("_start")
	b.Branch("beq", 1, 2, "target") // word 0
	b.I("addi", 0, 3, 1)            // word 1
	b.Mark("target")                // word 2
	b.R("break", 0, 0, 0, 0)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	word := wordAt(t, img, 0x1000)
	in, err := decode.Decode(word, 0x1000)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := decode.SignExtend16(in.Imm16), int32(4); got != want {
		t.Errorf("branch offset = %d, want %d (one instruction forward of PC+4)", got, want)
	}
}

func TestCallFixupTarget(t *testing.T) {
	b := NewBuilder(0x1000)
	b.Mark("fn")
	b.R("ret", 0, 0, 0, 0)
	b.Mark("_start")
	b.Call("fn")
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	startAddr := img.Symbols["_start"]
	word := wordAt(t, img, startAddr)
	in, err := decode.Decode(word, startAddr)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	target := (startAddr+4)&0xF0000000 | (in.Imm26 << 2)
	if target != img.Symbols["fn"] {
		t.Errorf("call target = 0x%08x, want 0x%08x", target, img.Symbols["fn"])
	}
}

func TestMoviaLabelLoadsAddress(t *testing.T) {
	b := NewBuilder(0x1000)
	b.Mark("_start")
	b.MoviaLabel(4, "DATA")
	b.R("break", 0, 0, 0, 0)
	b.Mark("DATA")
	b.Word(0)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	hi := wordAt(t, img, 0x1000)
	lo := wordAt(t, img, 0x1004)
	hiIn, err := decode.Decode(hi, 0x1000)
	if err != nil {
		t.Fatalf("Decode hi: %v", err)
	}
	loIn, err := decode.Decode(lo, 0x1004)
	if err != nil {
		t.Fatalf("Decode lo: %v", err)
	}
	got := uint32(hiIn.Imm16)<<16 | uint32(loIn.Imm16)
	if got != img.Symbols["DATA"] {
		t.Errorf("movia assembled 0x%08x, want 0x%08x", got, img.Symbols["DATA"])
	}
}

func TestUndefinedLabelFails(t *testing.T) {
	b := NewBuilder(0x1000)
	b.Mark("_start")
	b.Branch("beq", 1, 2, "nowhere")
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected an error for an undefined label")
	}
}

func TestUnknownMnemonicFails(t *testing.T) {
	b := NewBuilder(0x1000)
	b.R("frobnicate", 0, 0, 0, 0)
	if _, err := b.Finish(); err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func wordAt(t *testing.T, img *object.Image, addr uint32) uint32 {
	t.Helper()
	for _, sec := range img.Sections {
		if addr >= sec.Address && addr < sec.Address+uint32(len(sec.Bytes)) {
			off := addr - sec.Address
			return uint32(sec.Bytes[off]) | uint32(sec.Bytes[off+1])<<8 | uint32(sec.Bytes[off+2])<<16 | uint32(sec.Bytes[off+3])<<24
		}
	}
	t.Fatalf("no section covers address 0x%08x", addr)
	return 0
}
