// Package fault defines the error taxonomy shared by memory, decode, and cpu:
// the small set of ways a run can go wrong, each as a distinct type
// implementing error, following the teacher's InvalidCPUState/HaltOpcode
// pattern (jmchacon-6502 cpu/cpu.go) generalized to the Nios II fault list
// in spec 7.
package fault

import "fmt"

// UnknownOpcode is raised when the decoder finds no matching encoding.
type UnknownOpcode struct {
	PC   uint32
	Word uint32
}

func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%08x at PC 0x%08x", e.Word, e.PC)
}

// Misaligned is raised by a word or halfword access to a non-aligned address.
type Misaligned struct {
	Addr uint32
	Size int // 2 or 4
}

func (e Misaligned) Error() string {
	return fmt.Sprintf("misaligned %d-byte access at 0x%08x", e.Size, e.Addr)
}

// OutOfRange is raised only in strict mode for an access outside backing
// memory. In the default (non-strict) mode such accesses are silently
// permitted: reads return 0, writes are recorded.
type OutOfRange struct {
	Addr  uint32
	Write bool
}

func (e OutOfRange) Error() string {
	dir := "read"
	if e.Write {
		dir = "write"
	}
	return fmt.Sprintf("out of range %s at 0x%08x", dir, e.Addr)
}

// MMIOProtocol is raised by a sub-word access to an MMIO word, or an access
// in a direction the registered callback doesn't support.
type MMIOProtocol struct {
	Addr  uint32
	Write bool
	Size  int
}

func (e MMIOProtocol) Error() string {
	dir := "read from"
	if e.Write {
		dir = "write to"
	}
	return fmt.Sprintf("invalid %d-byte %s MMIO register at 0x%08x", e.Size, dir, e.Addr)
}

// BadImage reports a load-time inconsistency in an object image. Defined
// here (rather than only in package object) so memory's and cpu's
// symbol-addressed accessors can also return it for an unknown symbol name.
type BadImage struct {
	Reason string
}

func (e BadImage) Error() string {
	return fmt.Sprintf("bad object image: %s", e.Reason)
}
