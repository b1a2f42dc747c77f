package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/dgrunwald/nios2sim/asm"
	"github.com/dgrunwald/nios2sim/mmio"
)

// regState is a pre/post register snapshot for the conformance table below.
type regState map[int]uint32

func (s regState) apply(iss *ISS) {
	for r, v := range s {
		iss.SetReg(r, v)
	}
}

func (s regState) check(t *testing.T, iss *ISS) {
	t.Helper()
	for r, want := range s {
		if got := iss.GetReg(r); got != want {
			t.Errorf("r%d = 0x%08x, want 0x%08x: state %s", r, got, want, spew.Sdump(iss))
		}
	}
}

// TestInstructionConformance encodes a single instruction via the asm
// package, runs it against known pre-state, and checks known post-state —
// one handler exercised per table row.
func TestInstructionConformance(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*asm.Builder)
		pre    regState
		post   regState
	}{
		{"add", func(b *asm.Builder) { b.R("add", 1, 2, 3, 0) }, regState{1: 5, 2: 7}, regState{3: 12}},
		{"sub", func(b *asm.Builder) { b.R("sub", 1, 2, 3, 0) }, regState{1: 10, 2: 3}, regState{3: 7}},
		{"mul", func(b *asm.Builder) { b.R("mul", 1, 2, 3, 0) }, regState{1: 6, 2: 7}, regState{3: 42}},
		{"and", func(b *asm.Builder) { b.R("and", 1, 2, 3, 0) }, regState{1: 0xF0, 2: 0x30}, regState{3: 0x30}},
		{"or", func(b *asm.Builder) { b.R("or", 1, 2, 3, 0) }, regState{1: 0xF0, 2: 0x0F}, regState{3: 0xFF}},
		{"xor", func(b *asm.Builder) { b.R("xor", 1, 2, 3, 0) }, regState{1: 0xFF, 2: 0x0F}, regState{3: 0xF0}},
		{"nor", func(b *asm.Builder) { b.R("nor", 1, 2, 3, 0) }, regState{1: 0, 2: 0}, regState{3: 0xFFFFFFFF}},
		{"cmplt true", func(b *asm.Builder) { b.R("cmplt", 1, 2, 3, 0) }, regState{1: 1, 2: 2}, regState{3: 1}},
		{"cmplt false", func(b *asm.Builder) { b.R("cmplt", 1, 2, 3, 0) }, regState{1: 2, 2: 1}, regState{3: 0}},
		{"cmplt signed", func(b *asm.Builder) { b.R("cmplt", 1, 2, 3, 0) }, regState{1: 0xFFFFFFFF /* -1 */, 2: 0}, regState{3: 1}},
		{"cmpgeu unsigned", func(b *asm.Builder) { b.R("cmpgeu", 1, 2, 3, 0) }, regState{1: 0xFFFFFFFF, 2: 0}, regState{3: 1}},
		{"sll", func(b *asm.Builder) { b.R("sll", 1, 2, 3, 0) }, regState{1: 1, 2: 4}, regState{3: 16}},
		{"srl", func(b *asm.Builder) { b.R("srl", 1, 2, 3, 0) }, regState{1: 0x80000000, 2: 4}, regState{3: 0x08000000}},
		{"sra", func(b *asm.Builder) { b.R("sra", 1, 2, 3, 0) }, regState{1: 0x80000000, 2: 4}, regState{3: 0xF8000000}},
		{"rol", func(b *asm.Builder) { b.R("rol", 1, 2, 3, 0) }, regState{1: 0x80000000, 2: 1}, regState{3: 1}},
		{"ror", func(b *asm.Builder) { b.R("ror", 1, 2, 3, 0) }, regState{1: 1, 2: 1}, regState{3: 0x80000000}},
		{"slli", func(b *asm.Builder) { b.R("slli", 1, 0, 3, 2) }, regState{1: 1}, regState{3: 4}},
		{"srli", func(b *asm.Builder) { b.R("srli", 1, 0, 3, 2) }, regState{1: 8}, regState{3: 2}},
		{"srai", func(b *asm.Builder) { b.R("srai", 1, 0, 3, 4) }, regState{1: 0x80000000}, regState{3: 0xF8000000}},
		{"addi", func(b *asm.Builder) { b.I("addi", 1, 2, 5) }, regState{1: 10}, regState{2: 15}},
		{"addi negative imm", func(b *asm.Builder) { b.I("addi", 1, 2, 0xFFFF) }, regState{1: 10}, regState{2: 9}},
		{"andi", func(b *asm.Builder) { b.I("andi", 1, 2, 0x0F) }, regState{1: 0xFF}, regState{2: 0x0F}},
		{"ori", func(b *asm.Builder) { b.I("ori", 1, 2, 0xF0) }, regState{1: 0x0F}, regState{2: 0xFF}},
		{"xori", func(b *asm.Builder) { b.I("xori", 1, 2, 0xFF) }, regState{1: 0x0F}, regState{2: 0xF0}},
		{"orhi", func(b *asm.Builder) { b.I("orhi", 1, 2, 0x1234) }, regState{1: 0x0000FFFF}, regState{2: 0x1234FFFF}},
		{"muli", func(b *asm.Builder) { b.I("muli", 1, 2, 6) }, regState{1: 7}, regState{2: 42}},
		{"cmpeqi true", func(b *asm.Builder) { b.I("cmpeqi", 1, 2, 5) }, regState{1: 5}, regState{2: 1}},
		{"cmpgeui", func(b *asm.Builder) { b.I("cmpgeui", 1, 2, 5) }, regState{1: 4}, regState{2: 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := asm.NewBuilder(0x1000)
			b.Mark("_start")
			tc.encode(b)
			b.R("break", 0, 0, 0, 0)
			img, err := b.Finish()
			if err != nil {
				t.Fatalf("Finish: %v", err)
			}
			iss := New(img)
			tc.pre.apply(iss)
			if _, err := iss.RunUntilHalted(10); err != nil {
				t.Fatalf("RunUntilHalted: %v (state %s)", err, spew.Sdump(iss))
			}
			tc.post.check(t, iss)
		})
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	b := asm.NewBuilder(0x1000)
	b.Mark("_start")
	b.I("addi", 0, 4, 0x7F) // r4 = 0x7F
	b.I("stb", 1, 4, 0)     // mem[r1] = 0x7F (byte)
	b.I("ldbu", 1, 5, 0)    // r5 = mem[r1] (unsigned byte)
	b.I("stw", 1, 4, 4)     // mem[r1+4] = 0x7F (word)
	b.I("ldw", 1, 6, 4)     // r6 = mem[r1+4]
	b.R("break", 0, 0, 0, 0)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	iss := New(img)
	iss.SetReg(1, 0x2000)
	if _, err := iss.RunUntilHalted(10); err != nil {
		t.Fatalf("RunUntilHalted: %v", err)
	}
	if got := iss.GetReg(5); got != 0x7F {
		t.Errorf("ldbu = 0x%x, want 0x7F", got)
	}
	if got := iss.GetReg(6); got != 0x7F {
		t.Errorf("ldw = 0x%x, want 0x7F", got)
	}
}

func TestBranchTakenSkipsInstruction(t *testing.T) {
	b := asm.NewBuilder(0x1000)
	b.Mark("_start")
	b.I("addi", 0, 1, 5)
	b.I("addi", 0, 2, 5)
	b.Branch("beq", 1, 2, "taken")
	b.I("addi", 0, 4, 1) // should be skipped
	b.Mark("taken")
	b.I("addi", 0, 5, 1)
	b.R("break", 0, 0, 0, 0)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	iss := New(img)
	if _, err := iss.RunUntilHalted(10); err != nil {
		t.Fatalf("RunUntilHalted: %v", err)
	}
	if got := iss.GetReg(4); got != 0 {
		t.Errorf("r4 = %d, want 0 (the instruction the taken branch jumps over should not run)", got)
	}
	if got := iss.GetReg(5); got != 1 {
		t.Errorf("r5 = %d, want 1", got)
	}
}

func TestMMIOWriteOnlyFaultsOnRead(t *testing.T) {
	b := asm.NewBuilder(0x1000)
	b.Mark("_start")
	b.I("ldwio", 1, 2, 0)
	b.R("break", 0, 0, 0, 0)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	iss := New(img)
	iss.SetReg(1, 0xFF200000)
	iss.AddMMIO(0xFF200000, mmio.WriteOnly(func(uint32) {}))
	if _, err := iss.RunUntilHalted(10); err == nil {
		t.Fatal("expected an MMIO protocol fault reading a write-only register")
	}
}
