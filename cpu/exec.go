package cpu

import (
	"math/bits"

	"github.com/dgrunwald/nios2sim/decode"
	"github.com/dgrunwald/nios2sim/fault"
)

// handler executes one decoded instruction. It returns true if it already
// updated the program counter (a taken branch, jump, call or return) or if
// PC must stay where it is (break); RunUntilHalted only advances PC by 4
// itself when a handler returns false. This is the "dispatch table keyed by decoded variant, with
// one handler per instruction" redesign named in spec 9, replacing the
// teacher's monolithic opcode switch (jmchacon-6502 cpu.go processOpcode).
type handler func(iss *ISS, in decode.Instruction) (pcSet bool, err error)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"add": execAdd, "sub": execSub, "mul": execMul,
		"and": execAnd, "or": execOr, "xor": execXor, "nor": execNor,
		"cmpeq": execCmpReg(func(a, b uint32) bool { return a == b }),
		"cmpne": execCmpReg(func(a, b uint32) bool { return a != b }),
		"cmplt": execCmpRegSigned(func(a, b int32) bool { return a < b }),
		"cmpge": execCmpRegSigned(func(a, b int32) bool { return a >= b }),
		"cmpgeu": execCmpReg(func(a, b uint32) bool { return a >= b }),
		"cmpgtu": execCmpReg(func(a, b uint32) bool { return a > b }),
		"cmpleu": execCmpReg(func(a, b uint32) bool { return a <= b }),

		"sll": execShiftReg(func(v uint32, n uint) uint32 { return v << n }),
		"srl": execShiftReg(func(v uint32, n uint) uint32 { return v >> n }),
		"sra": execShiftReg(func(v uint32, n uint) uint32 { return uint32(int32(v) >> n) }),
		"rol": execShiftReg(func(v uint32, n uint) uint32 { return bits.RotateLeft32(v, int(n)) }),
		"ror": execShiftReg(func(v uint32, n uint) uint32 { return bits.RotateLeft32(v, -int(n)) }),

		"slli": execShiftImm(func(v uint32, n uint) uint32 { return v << n }),
		"srli": execShiftImm(func(v uint32, n uint) uint32 { return v >> n }),
		"srai": execShiftImm(func(v uint32, n uint) uint32 { return uint32(int32(v) >> n) }),

		"jmp":    execJmp,
		"callr":  execCallr,
		"ret":    execRet,
		"nop":    execNop,
		"break":  execBreak,

		"addi": execAddi, "muli": execMuli,
		"andi": execLogicImm(func(a, imm uint32) uint32 { return a & imm }),
		"ori":  execLogicImm(func(a, imm uint32) uint32 { return a | imm }),
		"xori": execLogicImm(func(a, imm uint32) uint32 { return a ^ imm }),
		"orhi": execOrhi,

		"cmpeqi": execCmpImmSigned(func(a, imm int32) bool { return a == imm }),
		"cmpnei": execCmpImmSigned(func(a, imm int32) bool { return a != imm }),
		"cmplti": execCmpImmSigned(func(a, imm int32) bool { return a < imm }),
		"cmpgei": execCmpImmSigned(func(a, imm int32) bool { return a >= imm }),
		"cmpgeui": execCmpImmUnsigned(func(a, imm uint32) bool { return a >= imm }),
		"cmpgtui": execCmpImmUnsigned(func(a, imm uint32) bool { return a > imm }),
		"cmpleui": execCmpImmUnsigned(func(a, imm uint32) bool { return a <= imm }),

		"ldw": execLoadWord, "ldwio": execLoadWord,
		"ldh": execLoadHalf(true), "ldhio": execLoadHalf(true),
		"ldhu": execLoadHalf(false), "ldhuio": execLoadHalf(false),
		"ldb": execLoadByte(true), "ldbio": execLoadByte(true),
		"ldbu": execLoadByte(false), "ldbuio": execLoadByte(false),

		"stw": execStoreWord, "stwio": execStoreWord,
		"sth": execStoreHalf, "sthio": execStoreHalf,
		"stb": execStoreByte, "stbio": execStoreByte,

		"br":  execBranch(func(a, b uint32) bool { return true }),
		"beq": execBranch(func(a, b uint32) bool { return a == b }),
		"bne": execBranch(func(a, b uint32) bool { return a != b }),
		"blt": execBranchSigned(func(a, b int32) bool { return a < b }),
		"bge": execBranchSigned(func(a, b int32) bool { return a >= b }),
		"ble": execBranchSigned(func(a, b int32) bool { return a <= b }),
		"bgt": execBranchSigned(func(a, b int32) bool { return a > b }),
		"bltu": execBranch(func(a, b uint32) bool { return a < b }),
		"bgeu": execBranch(func(a, b uint32) bool { return a >= b }),
		"bleu": execBranch(func(a, b uint32) bool { return a <= b }),
		"bgtu": execBranch(func(a, b uint32) bool { return a > b }),

		"call": execCall,
		"jmpi": execJmpi,
	}

	// cmplts/cmpges are kept as the explicit-signed spellings of cmplt/cmpge
	// (spec 4.D lists both; see DESIGN.md Open Question decisions).
	handlers["cmplts"] = handlers["cmplt"]
	handlers["cmpges"] = handlers["cmpge"]
	handlers["cmpltsi"] = handlers["cmplti"]
	handlers["cmpgesi"] = handlers["cmpgei"]
}

func (iss *ISS) execute(in decode.Instruction) (bool, error) {
	h, ok := handlers[in.Mnemonic]
	if !ok {
		return false, fault.UnknownOpcode{PC: in.PC, Word: in.Raw}
	}
	return h(iss, in)
}

func execAdd(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))+iss.GetReg(int(in.B)))
	return false, nil
}

func execSub(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))-iss.GetReg(int(in.B)))
	return false, nil
}

func execMul(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))*iss.GetReg(int(in.B)))
	return false, nil
}

func execAnd(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))&iss.GetReg(int(in.B)))
	return false, nil
}

func execOr(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))|iss.GetReg(int(in.B)))
	return false, nil
}

func execXor(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), iss.GetReg(int(in.A))^iss.GetReg(int(in.B)))
	return false, nil
}

func execNor(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.C), ^(iss.GetReg(int(in.A)) | iss.GetReg(int(in.B))))
	return false, nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func execCmpReg(cmp func(a, b uint32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		iss.SetReg(int(in.C), boolToWord(cmp(iss.GetReg(int(in.A)), iss.GetReg(int(in.B)))))
		return false, nil
	}
}

func execCmpRegSigned(cmp func(a, b int32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		a := int32(iss.GetReg(int(in.A)))
		b := int32(iss.GetReg(int(in.B)))
		iss.SetReg(int(in.C), boolToWord(cmp(a, b)))
		return false, nil
	}
}

func execShiftReg(shift func(v uint32, n uint) uint32) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		n := uint(iss.GetReg(int(in.B)) & 0x1F)
		iss.SetReg(int(in.C), shift(iss.GetReg(int(in.A)), n))
		return false, nil
	}
}

func execShiftImm(shift func(v uint32, n uint) uint32) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		iss.SetReg(int(in.C), shift(iss.GetReg(int(in.A)), uint(in.Shift)))
		return false, nil
	}
}

func execJmp(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetPC(iss.GetReg(int(in.A)))
	return true, nil
}

func execCallr(iss *ISS, in decode.Instruction) (bool, error) {
	ret := iss.GetPC() + 4
	target := iss.GetReg(int(in.A))
	iss.SetReg(RA, ret)
	iss.SetPC(target)
	return true, nil
}

func execRet(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetPC(iss.GetReg(RA))
	return true, nil
}

func execNop(iss *ISS, in decode.Instruction) (bool, error) {
	return false, nil
}

func execBreak(iss *ISS, in decode.Instruction) (bool, error) {
	iss.halted = true
	// Does not advance PC past break (spec 4.E).
	return true, nil
}

func execAddi(iss *ISS, in decode.Instruction) (bool, error) {
	imm := uint32(decode.SignExtend16(in.Imm16))
	iss.SetReg(int(in.B), iss.GetReg(int(in.A))+imm)
	return false, nil
}

func execMuli(iss *ISS, in decode.Instruction) (bool, error) {
	imm := uint32(decode.SignExtend16(in.Imm16))
	iss.SetReg(int(in.B), iss.GetReg(int(in.A))*imm)
	return false, nil
}

func execLogicImm(op func(a, imm uint32) uint32) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		imm := uint32(in.Imm16)
		iss.SetReg(int(in.B), op(iss.GetReg(int(in.A)), imm))
		return false, nil
	}
}

func execOrhi(iss *ISS, in decode.Instruction) (bool, error) {
	iss.SetReg(int(in.B), iss.GetReg(int(in.A))|(uint32(in.Imm16)<<16))
	return false, nil
}

func execCmpImmSigned(cmp func(a, imm int32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		a := int32(iss.GetReg(int(in.A)))
		iss.SetReg(int(in.B), boolToWord(cmp(a, decode.SignExtend16(in.Imm16))))
		return false, nil
	}
}

func execCmpImmUnsigned(cmp func(a, imm uint32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		iss.SetReg(int(in.B), boolToWord(cmp(iss.GetReg(int(in.A)), uint32(in.Imm16))))
		return false, nil
	}
}

func loadAddr(iss *ISS, in decode.Instruction) uint32 {
	return iss.GetReg(int(in.A)) + uint32(decode.SignExtend16(in.Imm16))
}

func execLoadWord(iss *ISS, in decode.Instruction) (bool, error) {
	v, err := iss.Mem.LoadWord(loadAddr(iss, in))
	if err != nil {
		return false, err
	}
	iss.SetReg(int(in.B), v)
	return false, nil
}

func execLoadHalf(signed bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		v, err := iss.Mem.LoadHalf(loadAddr(iss, in))
		if err != nil {
			return false, err
		}
		if signed {
			iss.SetReg(int(in.B), uint32(int32(int16(v))))
		} else {
			iss.SetReg(int(in.B), uint32(v))
		}
		return false, nil
	}
}

func execLoadByte(signed bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		v, err := iss.Mem.LoadByte(loadAddr(iss, in))
		if err != nil {
			return false, err
		}
		if signed {
			iss.SetReg(int(in.B), uint32(int32(int8(v))))
		} else {
			iss.SetReg(int(in.B), uint32(v))
		}
		return false, nil
	}
}

func execStoreWord(iss *ISS, in decode.Instruction) (bool, error) {
	return false, iss.Mem.StoreWord(loadAddr(iss, in), iss.GetReg(int(in.B)))
}

func execStoreHalf(iss *ISS, in decode.Instruction) (bool, error) {
	return false, iss.Mem.StoreHalf(loadAddr(iss, in), uint16(iss.GetReg(int(in.B))))
}

func execStoreByte(iss *ISS, in decode.Instruction) (bool, error) {
	return false, iss.Mem.StoreByte(loadAddr(iss, in), byte(iss.GetReg(int(in.B))))
}

func execBranch(cmp func(a, b uint32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		if !cmp(iss.GetReg(int(in.A)), iss.GetReg(int(in.B))) {
			return false, nil
		}
		iss.SetPC(iss.GetPC() + 4 + uint32(decode.SignExtend16(in.Imm16)))
		return true, nil
	}
}

func execBranchSigned(cmp func(a, b int32) bool) handler {
	return func(iss *ISS, in decode.Instruction) (bool, error) {
		if !cmp(int32(iss.GetReg(int(in.A))), int32(iss.GetReg(int(in.B)))) {
			return false, nil
		}
		iss.SetPC(iss.GetPC() + 4 + uint32(decode.SignExtend16(in.Imm16)))
		return true, nil
	}
}

func jTarget(pcNext uint32, imm26 uint32) uint32 {
	return (pcNext & 0xF0000000) | (imm26 << 2)
}

func execCall(iss *ISS, in decode.Instruction) (bool, error) {
	next := iss.GetPC() + 4
	iss.SetReg(RA, next)
	iss.SetPC(jTarget(next, in.Imm26))
	return true, nil
}

func execJmpi(iss *ISS, in decode.Instruction) (bool, error) {
	next := iss.GetPC() + 4
	iss.SetPC(jTarget(next, in.Imm26))
	return true, nil
}
