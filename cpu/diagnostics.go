package cpu

import (
	"fmt"
	"sort"
	"strings"
)

// DumpMem renders length bytes starting at start as 16-bytes-per-row hex
// plus ASCII, addresses left-aligned (spec 4.H).
func (iss *ISS) DumpMem(start uint32, length uint32) string {
	var b strings.Builder
	for off := uint32(0); off < length; off += 16 {
		addr := start + off
		fmt.Fprintf(&b, "%08x: ", addr)
		rowLen := length - off
		if rowLen > 16 {
			rowLen = 16
		}
		row := make([]byte, rowLen)
		for i := uint32(0); i < rowLen; i++ {
			v, err := iss.Mem.LoadByte(addr + i)
			if err != nil {
				v = 0
			}
			row[i] = v
		}
		for i := uint32(0); i < 16; i++ {
			if i < rowLen {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" ")
		for _, v := range row {
			if v >= 0x20 && v < 0x7f {
				b.WriteByte(v)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DumpSymbols renders the object image's symbol table, one "name = address"
// line per symbol, sorted by address (spec 4.H).
func (iss *ISS) DumpSymbols() string {
	type sym struct {
		name string
		addr uint32
	}
	syms := make([]sym, 0, len(iss.img.Symbols))
	for name, addr := range iss.img.Symbols {
		syms = append(syms, sym{name, addr})
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].addr < syms[j].addr })

	var b strings.Builder
	for _, s := range syms {
		fmt.Fprintf(&b, "%s = 0x%08x\n", s.name, s.addr)
	}
	return b.String()
}

// DumpStack renders memory from sp-0x80 upward, clipped to the
// top-of-stack sentinel (spec 4.H).
func (iss *ISS) DumpStack() string {
	sp := iss.GetReg(SP)
	start := sp - 0x80
	length := uint32(0x100)
	if diff := uint32(TopOfStack) - start; diff < length {
		length = diff
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sp = 0x%08x\nfp = 0x%08x\n\n", sp, iss.GetReg(FP))
	b.WriteString(iss.DumpMem(start, length))
	return b.String()
}
