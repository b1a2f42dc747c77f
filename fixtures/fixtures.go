// Package fixtures hand-assembles reference-solution programs for the seven
// grading exercises named in original_source/app.py's exercises table, using
// the asm package in place of the external nios2-elf-as/ld pipeline that
// produced the original ones. These are correct solutions, not the exercise
// skeletons the original serves learners, since they exist to exercise
// grader and conformance tests without a real toolchain available.
package fixtures

import (
	"github.com/dgrunwald/nios2sim/asm"
	"github.com/dgrunwald/nios2sim/object"
)

const base = 0x1000

// FindMin returns a program that writes the signed minimum of the N words
// at ARR into MIN, then breaks.
func FindMin() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.MoviaLabel(1, "ARR")
	b.MoviaLabel(8, "N")
	b.I("ldw", 8, 2, 0) // r2 = N
	b.MoviaLabel(9, "MIN")
	b.I("ldw", 1, 4, 0)   // r4 = ARR[0], the running min
	b.I("addi", 0, 3, 1)  // r3 = i = 1
	b.Mark("loop")
	b.Branch("bge", 3, 2, "done")
	b.R("slli", 3, 0, 5, 2)  // r5 = i << 2
	b.R("add", 5, 1, 5, 0)   // r5 = &ARR[i]
	b.I("ldw", 5, 6, 0)      // r6 = ARR[i]
	b.Branch("bge", 6, 4, "skip")
	b.I("addi", 6, 4, 0) // min = val
	b.Mark("skip")
	b.I("addi", 3, 3, 1) // i++
	b.Branch("br", 0, 0, "loop")
	b.Mark("done")
	b.I("stw", 9, 4, 0) // MIN = min
	b.R("break", 0, 0, 0, 0)

	b.Mark("MIN")
	b.Word(0)
	b.Mark("N")
	b.Word(0)
	b.Mark("ARR")
	b.Words(0, 0, 0, 0, 0)

	return b.Finish()
}

// SumArray returns a program that sums the strictly-positive words among
// the N at ARR into SUM, then breaks.
func SumArray() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.MoviaLabel(1, "ARR")
	b.MoviaLabel(8, "N")
	b.I("ldw", 8, 2, 0) // r2 = N
	b.MoviaLabel(9, "SUM")
	b.I("addi", 0, 4, 0) // r4 = sum = 0
	b.I("addi", 0, 3, 0) // r3 = i = 0
	b.Mark("loop")
	b.Branch("bge", 3, 2, "done")
	b.R("slli", 3, 0, 5, 2)
	b.R("add", 5, 1, 5, 0)
	b.I("ldw", 5, 6, 0)            // r6 = ARR[i]
	b.Branch("ble", 6, 0, "skip")  // val <= 0: not positive, skip
	b.R("add", 4, 6, 4, 0)         // sum += val
	b.Mark("skip")
	b.I("addi", 3, 3, 1)
	b.Branch("br", 0, 0, "loop")
	b.Mark("done")
	b.I("stw", 9, 4, 0)
	b.R("break", 0, 0, 0, 0)

	b.Mark("SUM")
	b.Word(0)
	b.Mark("N")
	b.Word(0)
	b.Mark("ARR")
	b.Words(0, 0, 0, 0, 0, 0)

	return b.Finish()
}

// LEDOn returns a program that writes all ten LED bits, then breaks.
func LEDOn() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.Movia(4, 0xFF200000)
	b.Movia(5, 0x3FF)
	b.I("stwio", 4, 5, 0)
	b.R("break", 0, 0, 0, 0)
	return b.Finish()
}

// Proj1 returns a program that, forever, reads the switches and writes the
// sum of their upper 5 bits and lower 5 bits to the LEDs, relying on the
// grader's MMIO callback to halt it once its test sequence is exhausted.
func Proj1() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.Movia(4, 0xFF200000) // LED addr
	b.Movia(5, 0xFF200040) // switch addr
	b.Mark("loop")
	b.I("ldwio", 5, 6, 0)   // r6 = switches
	b.R("srli", 6, 0, 7, 5) // r7 = sw >> 5
	b.I("andi", 7, 7, 0x1F) // r7 = high 5 bits
	b.I("andi", 6, 8, 0x1F) // r8 = low 5 bits
	b.R("add", 7, 8, 9, 0)  // r9 = high + low
	b.I("stwio", 4, 9, 0)
	b.Branch("br", 0, 0, "loop")
	return b.Finish()
}

// ListSum returns a program that sums the value field of the singly-linked
// list rooted at HEAD (node layout: word next, word value; next==0 ends the
// list) into SUM, then breaks.
func ListSum() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.MoviaLabel(9, "SUM")
	b.I("addi", 0, 4, 0) // sum = 0
	b.MoviaLabel(1, "HEAD")
	b.Mark("loop")
	b.Branch("beq", 1, 0, "done") // node == NULL
	b.I("ldw", 1, 2, 4)           // r2 = node.value
	b.R("add", 4, 2, 4, 0)        // sum += value
	b.I("ldw", 1, 1, 0)           // node = node.next
	b.Branch("br", 0, 0, "loop")
	b.Mark("done")
	b.I("stw", 9, 4, 0)
	b.R("break", 0, 0, 0, 0)

	b.Mark("SUM")
	b.Word(0)
	b.Mark("HEAD")
	// Room for up to 5 nodes (8 bytes each); the grader overwrites this
	// directly via raw StoreWord before each run.
	b.Words(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)

	return b.Finish()
}

// Fibonacci returns a program defining a fib(n) subroutine (argument in r4,
// result in r2, called via call/ret) and a _start that loads N, calls fib,
// and stores the result to F, then breaks. Mirrors the call/ret/movia shape
// of the original exercise's starter template.
func Fibonacci() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("fib")
	b.I("addi", 0, 2, 0) // r2 = a = 0
	b.I("addi", 0, 5, 1) // r5 = b = 1
	b.I("addi", 0, 6, 0) // r6 = i = 0
	b.Mark("floop")
	b.Branch("bge", 6, 4, "fdone") // i >= n
	b.R("add", 2, 5, 7, 0)         // r7 = a + b
	b.I("addi", 5, 2, 0)           // a = b
	b.I("addi", 7, 5, 0)           // b = tmp
	b.I("addi", 6, 6, 1)           // i++
	b.Branch("br", 0, 0, "floop")
	b.Mark("fdone")
	b.R("ret", 0, 0, 0, 0)

	b.Mark("_start")
	b.Movia(27, 0x04000000) // sp, redundant with reset but matches the original template
	b.MoviaLabel(8, "N")
	b.I("ldw", 8, 4, 0) // r4 = n, fib's argument
	b.Call("fib")
	b.MoviaLabel(9, "F")
	b.I("stw", 9, 2, 0)
	b.R("break", 0, 0, 0, 0)

	b.Mark("N")
	b.Word(0)
	b.Mark("F")
	b.Word(0)

	return b.Finish()
}

// Sort returns a program that bubble-sorts the N words at SORT into
// ascending order in place, then breaks.
func Sort() (*object.Image, error) {
	b := asm.NewBuilder(base)
	b.Mark("_start")
	b.MoviaLabel(1, "SORT")
	b.MoviaLabel(8, "N")
	b.I("ldw", 8, 2, 0) // r2 = n
	b.I("addi", 0, 3, 0) // r3 = i = 0
	b.Mark("outer")
	b.Branch("bge", 3, 2, "odone")
	b.I("addi", 0, 4, 0) // r4 = j = 0
	b.Mark("inner")
	b.I("addi", 2, 9, 0xFFFF) // r9 = n - 1
	b.Branch("bge", 4, 9, "idone")
	b.R("slli", 4, 0, 5, 2)
	b.R("add", 5, 1, 5, 0)  // r5 = &SORT[j]
	b.I("ldw", 5, 6, 0)     // r6 = SORT[j]
	b.I("ldw", 5, 7, 4)     // r7 = SORT[j+1]
	b.Branch("ble", 6, 7, "noswap")
	b.I("stw", 5, 7, 0)
	b.I("stw", 5, 6, 4)
	b.Mark("noswap")
	b.I("addi", 4, 4, 1)
	b.Branch("br", 0, 0, "inner")
	b.Mark("idone")
	b.I("addi", 3, 3, 1)
	b.Branch("br", 0, 0, "outer")
	b.Mark("odone")
	b.R("break", 0, 0, 0, 0)

	b.Mark("N")
	b.Word(0)
	b.Mark("SORT")
	// Room for the largest test vector (30 words).
	words := make([]uint32, 30)
	b.Words(words...)

	return b.Finish()
}
