// disassembler loads a JSON object image and disassembles it to stdout
// starting at its entry point (or -start_pc if given), continuing until the
// highest mapped address is exhausted.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/dgrunwald/nios2sim/disassemble"
	"github.com/dgrunwald/nios2sim/memory"
	"github.com/dgrunwald/nios2sim/object"
)

var (
	startPC = flag.Uint64("start_pc", 0, "address to start disassembling at; defaults to the image's entry point")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-start_pc <addr>] <object.json>", os.Args[0])
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

	m := memory.New()
	m.Reset(img)

	pc := img.Entry
	if *startPC != 0 {
		pc = uint32(*startPC)
	}

	var last uint32
	for _, sec := range img.Sections {
		if end := sec.Address + uint32(len(sec.Bytes)); end > last {
			last = end
		}
	}

	fmt.Printf("entry: 0x%08x, disassembling to 0x%08x\n", pc, last)
	for pc < last {
		dis, off := disassemble.Step(pc, m)
		fmt.Println(dis)
		pc += uint32(off)
	}
}
