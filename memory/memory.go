// Package memory implements the Nios II simulator's flat 32-bit byte
// address space: little-endian word/halfword/byte access with alignment
// checking, and memory-mapped I/O dispatch to registered callbacks.
//
// This generalizes the teacher's memory.Bank (jmchacon-6502 memory/memory.go),
// which is a 16-bit aliasing RAM bank with a single parent-chain, into a
// sparse 32-bit store with no aliasing (real Nios II address spaces are
// islands of mapped memory separated by enormous unmapped gaps, so aliasing
// addr&mask like the 6502 teacher does would be wrong here) plus an MMIO
// layer the 6502 teacher doesn't need at this layer (its I/O chips are
// modeled as separate memory.Bank implementations wired into an address
// decoder instead).
package memory

import (
	"github.com/dgrunwald/nios2sim/fault"
	"github.com/dgrunwald/nios2sim/mmio"
	"github.com/dgrunwald/nios2sim/object"
)

// Memory is a sparse byte store keyed by 32-bit address, plus MMIO
// registrations. The zero value is not usable; use New.
type Memory struct {
	bytes  map[uint32]byte
	mmio   map[uint32]mmio.Callback
	Strict bool // if true, byte and word loads from addresses absent from the backing store fault with OutOfRange; halfword loads and all stores are not checked
}

// New creates an empty Memory with no MMIO registrations.
func New() *Memory {
	return &Memory{
		bytes: map[uint32]byte{},
		mmio:  map[uint32]mmio.Callback{},
	}
}

// Reset repopulates the backing store from img's sections, discarding all
// other backing-store contents. MMIO registrations are untouched: they
// outlive the run they were registered for (spec 5).
func (m *Memory) Reset(img *object.Image) {
	m.bytes = map[uint32]byte{}
	for _, sec := range img.Sections {
		for i, b := range sec.Bytes {
			m.bytes[sec.Address+uint32(i)] = b
		}
	}
}

// AddMMIO registers cb at word address addr, replacing any prior
// registration there. Re-registration replaces (spec 4.F).
func (m *Memory) AddMMIO(addr uint32, cb mmio.Callback) {
	m.mmio[addr] = cb
}

func (m *Memory) isMMIO(wordAddr uint32) (mmio.Callback, bool) {
	cb, ok := m.mmio[wordAddr]
	return cb, ok
}

func (m *Memory) readByte(addr uint32) byte {
	return m.bytes[addr]
}

func (m *Memory) writeByte(addr uint32, v byte) {
	m.bytes[addr] = v
}

// LoadByte loads a single byte. A byte access to a registered MMIO word is
// a protocol fault (spec 4.B: "a single MMIO register is treated as 4 bytes
// wide; byte/half accesses to an MMIO word are a fault").
func (m *Memory) LoadByte(addr uint32) (byte, error) {
	if _, ok := m.isMMIO(addr &^ 3); ok {
		return 0, fault.MMIOProtocol{Addr: addr, Write: false, Size: 1}
	}
	if m.Strict {
		if _, ok := m.bytes[addr]; !ok {
			return 0, fault.OutOfRange{Addr: addr, Write: false}
		}
	}
	return m.readByte(addr), nil
}

// StoreByte stores a single byte.
func (m *Memory) StoreByte(addr uint32, v byte) error {
	if _, ok := m.isMMIO(addr &^ 3); ok {
		return fault.MMIOProtocol{Addr: addr, Write: true, Size: 1}
	}
	m.writeByte(addr, v)
	return nil
}

// LoadHalf loads a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) LoadHalf(addr uint32) (uint16, error) {
	if addr%2 != 0 {
		return 0, fault.Misaligned{Addr: addr, Size: 2}
	}
	if _, ok := m.isMMIO(addr &^ 3); ok {
		return 0, fault.MMIOProtocol{Addr: addr, Write: false, Size: 2}
	}
	lo := m.readByte(addr)
	hi := m.readByte(addr + 1)
	return uint16(lo) | uint16(hi)<<8, nil
}

// StoreHalf stores a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) StoreHalf(addr uint32, v uint16) error {
	if addr%2 != 0 {
		return fault.Misaligned{Addr: addr, Size: 2}
	}
	if _, ok := m.isMMIO(addr &^ 3); ok {
		return fault.MMIOProtocol{Addr: addr, Write: true, Size: 2}
	}
	m.writeByte(addr, byte(v))
	m.writeByte(addr+1, byte(v>>8))
	return nil
}

// LoadWord loads a little-endian word. addr must be 4-byte aligned. If addr
// names a registered MMIO address, the read callback is invoked instead of
// the backing store (spec 4.B: "if the word straddles an MMIO address, the
// MMIO callback is invoked instead").
func (m *Memory) LoadWord(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fault.Misaligned{Addr: addr, Size: 4}
	}
	if cb, ok := m.isMMIO(addr); ok {
		v, ok := mmio.Dispatch(cb, false, 0)
		if !ok {
			return 0, fault.MMIOProtocol{Addr: addr, Write: false, Size: 4}
		}
		return v, nil
	}
	if m.Strict {
		if _, ok := m.bytes[addr]; !ok {
			return 0, fault.OutOfRange{Addr: addr, Write: false}
		}
	}
	b0 := uint32(m.readByte(addr))
	b1 := uint32(m.readByte(addr + 1))
	b2 := uint32(m.readByte(addr + 2))
	b3 := uint32(m.readByte(addr + 3))
	return b0 | b1<<8 | b2<<16 | b3<<24, nil
}

// StoreWord stores a little-endian word. addr must be 4-byte aligned. MMIO
// addresses dispatch to the write callback and do not mutate backing memory.
func (m *Memory) StoreWord(addr uint32, v uint32) error {
	if addr%4 != 0 {
		return fault.Misaligned{Addr: addr, Size: 4}
	}
	if cb, ok := m.isMMIO(addr); ok {
		if _, ok := mmio.Dispatch(cb, true, v); !ok {
			return fault.MMIOProtocol{Addr: addr, Write: true, Size: 4}
		}
		return nil
	}
	m.writeByte(addr, byte(v))
	m.writeByte(addr+1, byte(v>>8))
	m.writeByte(addr+2, byte(v>>16))
	m.writeByte(addr+3, byte(v>>24))
	return nil
}

// WriteSymbolWord stores value at symbols[name]+offset, a convenience for
// graders that initialize test fixtures by symbol name.
func (m *Memory) WriteSymbolWord(img *object.Image, name string, value uint32, offset uint32) error {
	addr, ok := img.Symbols[name]
	if !ok {
		return fault.BadImage{Reason: "no such symbol: " + name}
	}
	return m.StoreWord(addr+offset, value)
}

// GetSymbolWord loads the word at symbols[name]+offset.
func (m *Memory) GetSymbolWord(img *object.Image, name string, offset uint32) (uint32, error) {
	addr, ok := img.Symbols[name]
	if !ok {
		return 0, fault.BadImage{Reason: "no such symbol: " + name}
	}
	return m.LoadWord(addr + offset)
}
