// hand_asm emits a JSON object-image fixture for one of the built-in
// reference solutions in the fixtures package, standing in for the external
// nios2-elf-as/nios2-elf-ld pipeline when no real toolchain is at hand. Play
// the same role the teacher's hand_asm tool plays (turn a hand-written
// description into a loadable binary without a real assembler) but sourced
// from Go builder code instead of a line-oriented hex listing.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/dgrunwald/nios2sim/fixtures"
	"github.com/dgrunwald/nios2sim/object"
)

var programs = map[string]func() (*object.Image, error){
	"find-min":  fixtures.FindMin,
	"sum-array": fixtures.SumArray,
	"led-on":    fixtures.LEDOn,
	"proj1":     fixtures.Proj1,
	"list-sum":  fixtures.ListSum,
	"fibonacci": fixtures.Fibonacci,
	"sort":      fixtures.Sort,
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		names := make([]string, 0, len(programs))
		for n := range programs {
			names = append(names, n)
		}
		log.Fatalf("Invalid command: %s <program> <output.json>\nknown programs: %v", os.Args[0], names)
	}
	name := flag.Args()[0]
	out := flag.Args()[1]

	build, ok := programs[name]
	if !ok {
		log.Fatalf("unknown program %q", name)
	}
	img, err := build()
	if err != nil {
		log.Fatalf("can't assemble %q: %v", name, err)
	}

	b, err := img.Marshal()
	if err != nil {
		log.Fatalf("can't marshal object image: %v", err)
	}
	if err := ioutil.WriteFile(out, b, 0644); err != nil {
		log.Fatalf("can't write %q: %v", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(b))
}
