// nios2sim loads a JSON object image, optionally wires the DE10-Lite LED/
// switch MMIO convention, runs it to a halt or an instruction ceiling, and
// prints diagnostics on any non-break halt. Replaces the teacher's
// vcs_main.go as the project's single runnable entry point, in the same
// flag/log.Fatalf CLI idiom as disassembler.go and hand_asm.go.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/dgrunwald/nios2sim/cpu"
	"github.com/dgrunwald/nios2sim/mmio"
	"github.com/dgrunwald/nios2sim/object"
)

var (
	limit   = flag.Uint64("limit", 1000000, "instruction ceiling for run_until_halted")
	de10    = flag.Bool("de10", false, "wire the DE10-Lite LED/switch MMIO convention (0xFF200000/0xFF200040)")
	strict  = flag.Bool("strict", false, "fault on byte/word loads from unmapped memory instead of reading 0")
	memDump = flag.Uint64("mem-dump-len", 0x100, "bytes to dump from address 0 on a non-break halt")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-limit N] [-de10] [-strict] <object.json>", os.Args[0])
	}
	fn := flag.Args()[0]

	b, err := ioutil.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}
	img, err := object.Load(b)
	if err != nil {
		log.Fatalf("Can't load object image %s - %v", fn, err)
	}
	if !img.HasStart() {
		log.Fatalf("object image %s has no _start symbol", fn)
	}

	iss := cpu.New(img)
	iss.Mem.Strict = *strict

	if *de10 {
		var leds uint32
		iss.AddMMIO(0xFF200000, mmio.WriteOnly(func(value uint32) {
			leds = value
			fmt.Printf("LEDs: %010b\n", leds&0x3FF)
		}))
		iss.AddMMIO(0xFF200040, mmio.ReadOnly(func() uint32 {
			return 0
		}))
	}

	instrs, _ := iss.RunUntilHalted(*limit)
	fmt.Printf("halted after %d instructions, cause=%s\n", instrs, iss.Cause())

	if iss.Cause() != cpu.HaltBreak {
		if msg := iss.GetError(); msg != "" {
			fmt.Println(msg)
		}
		fmt.Println(iss.DumpMem(0, uint32(*memDump)))
		fmt.Println(iss.DumpSymbols())
		os.Exit(1)
	}
}
