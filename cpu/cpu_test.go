package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/dgrunwald/nios2sim/asm"
	"github.com/dgrunwald/nios2sim/object"
)

func mustBuild(t *testing.T, build func(*asm.Builder)) *object.Image {
	t.Helper()
	b := asm.NewBuilder(0x1000)
	build(b)
	img, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return img
}

func TestResetInstallsSPAndPC(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	if got, want := iss.GetReg(SP), uint32(TopOfStack); got != want {
		t.Errorf("sp = 0x%08x, want 0x%08x: state %s", got, want, spew.Sdump(iss))
	}
	if got, want := iss.GetPC(), img.Entry; got != want {
		t.Errorf("pc = 0x%08x, want entry 0x%08x", got, want)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.I("addi", 0, 4, 7)
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	iss.RunUntilHalted(10)
	iss.Reset()
	first := *iss
	iss.Reset()
	second := *iss
	if first.pc != second.pc || first.regs != second.regs || first.halted != second.halted {
		t.Errorf("reset is not idempotent: first %s second %s", spew.Sdump(first), spew.Sdump(second))
	}
}

func TestR0IsSinkAndAlwaysZero(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.I("addi", 0, 0, 99) // attempt to write r0
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	iss.SetReg(0, 123)
	if got := iss.GetReg(0); got != 0 {
		t.Fatalf("r0 = %d after direct SetReg, want 0", got)
	}
	iss.RunUntilHalted(10)
	if got := iss.GetReg(0); got != 0 {
		t.Fatalf("r0 = %d after addi targeting r0, want 0", got)
	}
}

func TestInstructionCountMatchesRetired(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		for i := 0; i < 5; i++ {
			b.I("addi", 4, 4, 1)
		}
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	n, err := iss.RunUntilHalted(1000)
	if err != nil {
		t.Fatalf("RunUntilHalted: %v", err)
	}
	if got, want := n, uint64(6); got != want { // 5 addi + break
		t.Errorf("retired = %d, want %d", got, want)
	}
	if got, want := iss.InstrCount(), uint64(6); got != want {
		t.Errorf("InstrCount = %d, want %d", got, want)
	}
}

func TestBranchOffsetIsRelativeToNextInstruction(t *testing.T) {
	// A br to its own label is encoded with offset -4, relative to PC+4, so
	// it loops on itself forever; cap it, confirm the cause is Ceiling, not
	// a fault, and that PC never left the branch.
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.Mark("loop")
		b.Branch("br", 0, 0, "loop")
	})
	iss := New(img)
	iss.RunUntilHalted(1000)
	if iss.Cause() != HaltCeiling {
		t.Fatalf("cause = %s, want ceiling (state %s)", iss.Cause(), spew.Sdump(iss))
	}
	if got, want := iss.GetPC(), img.Entry; got != want {
		t.Errorf("pc = 0x%08x, want 0x%08x (the branch itself)", got, want)
	}
}

func TestCallRetRestoresPC(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("fn")
		b.R("ret", 0, 0, 0, 0)

		b.Mark("_start")
		b.Call("fn")
		b.R("break", 0, 0, 0, 0) // should execute right after the call
	})
	iss := New(img)
	n, err := iss.RunUntilHalted(1000)
	if err != nil {
		t.Fatalf("RunUntilHalted: %v", err)
	}
	if got, want := n, uint64(3); got != want { // call, ret, break
		t.Errorf("retired = %d, want %d", got, want)
	}
	if iss.Cause() != HaltBreak {
		t.Fatalf("cause = %s, want break", iss.Cause())
	}
}

func TestLittleEndianRoundTrip(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	if err := iss.StoreWord(0x1100, 0xDEADBEEF); err != nil {
		t.Fatalf("StoreWord: %v", err)
	}
	got, err := iss.LoadWord(0x1100)
	if err != nil {
		t.Fatalf("LoadWord: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Errorf("round trip = 0x%08x, want 0xDEADBEEF", got)
	}
}

func TestUnknownOpcodeFaults(t *testing.T) {
	img := &object.Image{
		Entry:    0x1000,
		Symbols:  map[string]uint32{"_start": 0x1000},
		Sections: []object.Section{{Address: 0x1000, Bytes: []byte{0xFF, 0xFF, 0xFF, 0xFF}}},
	}
	iss := New(img)
	_, err := iss.RunUntilHalted(10)
	if err == nil {
		t.Fatal("expected an unknown-opcode fault, got nil")
	}
	if iss.Cause() != HaltFault {
		t.Errorf("cause = %s, want fault", iss.Cause())
	}
	if msg := iss.GetError(); msg == "" {
		t.Error("GetError() returned empty string after a fault")
	}
}

func TestGetErrorEmptyOnBreak(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.R("break", 0, 0, 0, 0)
	})
	iss := New(img)
	iss.RunUntilHalted(10)
	if got := iss.GetError(); got != "" {
		t.Errorf("GetError() = %q after break, want empty", got)
	}
}

func TestCeilingIsSurfacedByGetError(t *testing.T) {
	img := mustBuild(t, func(b *asm.Builder) {
		b.Mark("_start")
		b.Mark("loop")
		b.Branch("br", 0, 0, "loop")
	})
	iss := New(img)
	iss.RunUntilHalted(5)
	if got := iss.GetError(); got == "" {
		t.Error("GetError() empty after ceiling halt; spec 7 says ceiling is surfaced via get_error()")
	}
}
