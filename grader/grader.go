// Package grader implements the seven end-to-end exercise checks from
// original_source/app.py's check_find_min/check_array_sum/check_led_on/
// check_proj1/check_list_sum/check_fib/check_sort, each driving a cpu.ISS
// built from a learner's object image through a fixed battery of test
// vectors and producing pass/fail plus HTML-ready feedback text, exactly as
// the original grader does, minus the bottle/HTML-template glue (an
// external collaborator per spec 1).
package grader

import (
	"fmt"

	"github.com/dgrunwald/nios2sim/cpu"
	"github.com/dgrunwald/nios2sim/mmio"
	"github.com/dgrunwald/nios2sim/object"
)

// Result is the outcome of one grading run: whether it passed, human-
// readable feedback, and optional extra info (original_source/app.py's
// check_sort returns a third "total instructions" element; Extra carries
// that for checkers that have it, empty otherwise).
type Result struct {
	Passed   bool
	Feedback string
	Extra    string
}

// smallLimit and bigLimit mirror the generous per-exercise instruction ceilings
// original_source/app.py passes to run_until_halted (10000 for the array
// exercises, up to 100000000 for fib/sort).
const (
	smallLimit = 10000
	bigLimit   = 100000000
)

func requireSymbols(img *object.Image, names ...string) error {
	for _, n := range names {
		if _, ok := img.Symbols[n]; !ok {
			return fmt.Errorf("%s not found in memory (did you enter any instructions?)", n)
		}
	}
	return nil
}

func debugDump(iss *cpu.ISS, showStack bool) string {
	out := "\n"
	if err := iss.GetError(); err != "" {
		out += err
	}
	out += "\nMemory:\n" + iss.DumpMem(0, 0x100)
	out += "\nSymbols:\n" + iss.DumpSymbols()
	if showStack {
		out += "\nStack:\n" + iss.DumpStack()
	}
	return out
}

// FindMin checks that the learner's program leaves the signed minimum of
// the N words at ARR in MIN, for two test arrays.
func FindMin(img *object.Image) Result {
	if err := requireSymbols(img, "MIN", "ARR"); err != nil {
		return Result{Feedback: err.Error()}
	}

	tests := []struct {
		arr []int32
		ans int32
	}{
		{[]int32{5, 3, 9, 2}, 2},
		{[]int32{5, -8, 1, 12, 6}, -8},
	}

	iss := cpu.New(img)
	feedback := ""
	for i, tc := range tests {
		iss.Reset()
		for j, v := range tc.arr {
			if err := iss.WriteSymbolWord("ARR", uint32(v), uint32(j*4)); err != nil {
				return Result{Feedback: err.Error()}
			}
		}
		if err := iss.WriteSymbolWord("N", uint32(len(tc.arr)), 0); err != nil {
			return Result{Feedback: err.Error()}
		}

		iss.RunUntilHalted(smallLimit)

		theirAns, err := iss.GetSymbolWord("MIN", 0)
		if err != nil {
			return Result{Feedback: err.Error()}
		}
		if int32(theirAns) != tc.ans {
			feedback += fmt.Sprintf("Failed test case %d: MIN should be %d (0x%08x) for ARR %v. ", i+1, tc.ans, uint32(tc.ans), tc.arr)
			feedback += fmt.Sprintf("Your code produced MIN=0x%08x", theirAns)
			feedback += debugDump(iss, false)
			return Result{Feedback: feedback}
		}
		feedback += fmt.Sprintf("Passed test case %d\n", i+1)
	}
	return Result{Passed: true, Feedback: feedback}
}

// SumArray checks that the learner's program leaves the sum of the
// strictly-positive words among the N at ARR in SUM, for three test arrays.
// feedback is initialized before the loop so the failure path never
// references an unset variable.
func SumArray(img *object.Image) Result {
	if err := requireSymbols(img, "SUM", "ARR"); err != nil {
		return Result{Feedback: err.Error()}
	}

	tests := []struct {
		arr []int32
		ans int32
	}{
		{[]int32{5, 3, 9, 2}, 19},
		{[]int32{5, -8, 1, 12, 6}, 24},
		{[]int32{1, -8, -1, 0, 1, 1}, 3},
	}

	iss := cpu.New(img)
	feedback := ""
	for i, tc := range tests {
		iss.Reset()
		for j, v := range tc.arr {
			if err := iss.WriteSymbolWord("ARR", uint32(v), uint32(j*4)); err != nil {
				return Result{Feedback: err.Error()}
			}
		}
		if err := iss.WriteSymbolWord("N", uint32(len(tc.arr)), 0); err != nil {
			return Result{Feedback: err.Error()}
		}

		iss.RunUntilHalted(smallLimit)

		theirAns, err := iss.GetSymbolWord("SUM", 0)
		if err != nil {
			return Result{Feedback: err.Error()}
		}
		if int32(theirAns) != tc.ans {
			feedback += fmt.Sprintf("Failed test case %d: SUM should be %d (0x%08x) for ARR %v. ", i+1, tc.ans, uint32(tc.ans), tc.arr)
			feedback += fmt.Sprintf("Your code produced SUM=0x%08x", theirAns)
			feedback += debugDump(iss, false)
			return Result{Feedback: feedback}
		}
		feedback += fmt.Sprintf("Passed test case %d\n", i+1)
	}
	return Result{Passed: true, Feedback: feedback}
}

// LEDOn checks that the learner's program writes all ten LED bits set at
// 0xFF200000 before breaking.
func LEDOn(img *object.Image) Result {
	iss := cpu.New(img)

	var leds uint32
	iss.AddMMIO(0xFF200000, mmio.Access(func(isWrite bool, value uint32) uint32 {
		if isWrite {
			leds = value
		}
		return leds
	}))

	iss.RunUntilHalted(1000000)

	if leds&0x3FF != 0x3FF {
		feedback := fmt.Sprintf("Failed test case 1: LEDs are set to %010b (should be %010b)", leds&0x3FF, uint32(0x3FF))
		feedback += debugDump(iss, false)
		return Result{Feedback: feedback}
	}
	return Result{Passed: true, Feedback: "Passed test case 1"}
}

// proj1Driver owns the per-run cursor over the switch/LED test sequence, as
// the design note in spec 9 asks for: an explicit test-driver value with
// on_write/on_read methods instead of closures over mutable locals.
type proj1Driver struct {
	iss       *cpu.ISS
	tests     []proj1Case
	curTest   int
	feedback  string
	numPassed int
}

type proj1Case struct {
	sw, led uint32
}

func (d *proj1Driver) onWriteLED(val uint32) {
	tc := d.tests[d.curTest]
	if val != tc.led {
		if val&0x3FF != tc.led {
			d.feedback += fmt.Sprintf("Failed test case %d: LEDs set to %010b (should be %010b) for SW %010b", d.curTest+1, val&0x3FF, tc.led, tc.sw)
			d.feedback += debugDump(d.iss, false)
			d.iss.Halt()
			return
		}
		d.feedback += fmt.Sprintf("Test case %d: Warning: wrote 0x%08x (instead of 0x%08x) to LEDs for SW %010b; upper bits ignored.\n", d.curTest+1, val, tc.led, tc.sw)
	}
	d.feedback += fmt.Sprintf("Passed test case %d\n", d.curTest+1)
	d.curTest++
	d.numPassed++
	if d.curTest >= len(d.tests) {
		d.iss.Halt()
	}
}

func (d *proj1Driver) onReadSwitches() uint32 {
	if d.curTest >= len(d.tests) {
		return 0
	}
	return d.tests[d.curTest].sw
}

// Proj1 checks that the learner's program writes the sum of the switch
// word's upper five bits and lower five bits to the LEDs across a fixed
// sequence of switch settings, halting once the final case passes.
func Proj1(img *object.Image) Result {
	iss := cpu.New(img)

	driver := &proj1Driver{
		iss: iss,
		tests: []proj1Case{
			{0b0000000000, 0},
			{0b0000100001, 2},
			{0b0001100010, 5},
			{0b1011101110, 37},
			{0b1111111111, 62},
			{0b1111011111, 61},
			{0b0000111111, 32},
		},
	}

	iss.AddMMIO(0xFF200000, mmio.WriteOnly(driver.onWriteLED))
	iss.AddMMIO(0xFF200040, mmio.ReadOnly(driver.onReadSwitches))

	iss.RunUntilHalted(10000)

	feedback := iss.GetError() + driver.feedback
	return Result{Passed: driver.numPassed == len(driver.tests), Feedback: feedback}
}

// ListSum checks that the learner's program leaves the sum of a singly-
// linked list's value fields in SUM, for three test lists. Node layout is a
// (next, value) word pair 8 bytes apart; the last node's next is 0.
func ListSum(img *object.Image) Result {
	if err := requireSymbols(img, "SUM", "HEAD"); err != nil {
		return Result{Feedback: err.Error()}
	}

	tests := []struct {
		vals []int32
		ans  int32
	}{
		{[]int32{3, 2, 1}, 6},
		{[]int32{1, 0, 4}, 5},
		{[]int32{-1, 2, 15, 8, 6}, 30},
	}

	iss := cpu.New(img)
	headAddr := img.Symbols["HEAD"]
	feedback := ""
	for i, tc := range tests {
		iss.Reset()
		for j, v := range tc.vals {
			nextPtr := headAddr + uint32(j+1)*8
			if j == len(tc.vals)-1 {
				nextPtr = 0
			}
			if err := iss.StoreWord(headAddr+uint32(j)*8, nextPtr); err != nil {
				return Result{Feedback: err.Error()}
			}
			if err := iss.StoreWord(headAddr+uint32(j)*8+4, uint32(v)); err != nil {
				return Result{Feedback: err.Error()}
			}
		}

		iss.RunUntilHalted(1000000)

		theirAns, err := iss.GetSymbolWord("SUM", 0)
		if err != nil {
			return Result{Feedback: err.Error()}
		}
		if int32(theirAns) != tc.ans {
			feedback += fmt.Sprintf("Failed test case %d: SUM was %d (0x%08x), should be %d (0x%08x)", i+1, int32(theirAns), theirAns, tc.ans, uint32(tc.ans))
			feedback += debugDump(iss, false)
			return Result{Feedback: feedback}
		}
		feedback += fmt.Sprintf("Passed test case %d\n", i+1)
	}
	return Result{Passed: true, Feedback: feedback}
}

// Fibonacci checks that the learner's program computes F = fib(N) for four
// values of N, exercising call/ret and the stack under sp=0x04000000.
func Fibonacci(img *object.Image) Result {
	if err := requireSymbols(img, "N", "F"); err != nil {
		return Result{Feedback: err.Error()}
	}

	tests := []struct {
		n, ans uint32
	}{
		{10, 55},
		{15, 610},
		{12, 144},
		{30, 832040},
	}

	iss := cpu.New(img)
	feedback := ""
	for i, tc := range tests {
		iss.Reset()
		if err := iss.WriteSymbolWord("N", tc.n, 0); err != nil {
			return Result{Feedback: err.Error()}
		}

		iss.RunUntilHalted(bigLimit)

		theirAns, err := iss.GetSymbolWord("F", 0)
		if err != nil {
			return Result{Feedback: err.Error()}
		}
		if theirAns != tc.ans {
			feedback += fmt.Sprintf("Failed test case %d: fib(%d) returned %d, should have returned %d", i+1, tc.n, theirAns, tc.ans)
			feedback += debugDump(iss, true)
			return Result{Feedback: feedback}
		}
		feedback += fmt.Sprintf("Passed test case %d\n", i+1)
	}
	return Result{Passed: true, Feedback: feedback}
}

// Sort checks that the learner's program sorts the N words at SORT into
// ascending order in place, for five test vectors, and reports the total
// instruction count spent across all of them in Extra.
func Sort(img *object.Image) Result {
	if err := requireSymbols(img, "N", "SORT"); err != nil {
		return Result{Feedback: err.Error()}
	}

	tests := [][]int32{
		{5, 4, 3, 2, 1},
		{5, 4, 2, 3, 1},
		{2, 8, 3, 9, 15, 10},
		{8, -1, 11, 14, 12, 14, 0},
		{9, -2, 5, 0, -2, 0, -1, -4, 1, 9, 10, 6, -3, 7, 5, 10, 9, -2, 2, 9, 0, 3, -3, 7, 7, 6, -5, -2, -1, -4},
	}

	iss := cpu.New(img)
	feedback := ""
	var totInstr uint64
	for i, tc := range tests {
		iss.Reset()
		want := append([]int32(nil), tc...)
		sortInt32s(want)

		if err := iss.WriteSymbolWord("N", uint32(len(tc)), 0); err != nil {
			return Result{Feedback: err.Error()}
		}
		for j, v := range tc {
			if err := iss.WriteSymbolWord("SORT", uint32(v), uint32(j*4)); err != nil {
				return Result{Feedback: err.Error()}
			}
		}

		n, _ := iss.RunUntilHalted(bigLimit)
		totInstr += n

		got := make([]int32, len(tc))
		for j := range tc {
			v, err := iss.GetSymbolWord("SORT", uint32(j*4))
			if err != nil {
				return Result{Feedback: err.Error()}
			}
			got[j] = int32(v)
		}

		if !equalInt32s(got, want) {
			feedback += fmt.Sprintf("Failed test case %d: Sorting %v\n", i+1, tc)
			feedback += fmt.Sprintf("Code provided: %v\n", got)
			feedback += fmt.Sprintf("Correct answer: %v\n", want)
			feedback += debugDump(iss, false)
			return Result{Feedback: feedback}
		}
		feedback += fmt.Sprintf("Passed test case %d\n", i+1)
	}
	return Result{Passed: true, Feedback: feedback, Extra: fmt.Sprintf("%d total instructions", totInstr)}
}

func sortInt32s(s []int32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func equalInt32s(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
