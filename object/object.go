// Package object defines the linked program image the simulator loads:
// a set of byte-addressed sections, a symbol table, and an entry point.
// The assembler and linker that produce this image are external to this
// module; object only has to parse and validate what they emit.
package object

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgrunwald/nios2sim/fault"
)

// Section is a contiguous run of bytes loaded at Address.
type Section struct {
	Address uint32
	Bytes   []byte
}

// Image is the immutable, parsed representation of a linked Nios II program.
type Image struct {
	Entry   uint32
	Sections []Section
	Symbols  map[string]uint32
	// Lines optionally maps an instruction address to a source line for
	// diagnostics. Not all toolchains emit this.
	Lines map[uint32]string
}

// rawSection is the wire shape of a single section as emitted by the
// external toolchain: bytes are given either as a hex string or as a JSON
// array of byte values, so the loader isn't coupled to one emitter revision.
type rawSection struct {
	Address uint32          `json:"address"`
	Bytes   json.RawMessage `json:"bytes"`
}

type rawImage struct {
	Entry    *uint32           `json:"entry"`
	Symbols  map[string]uint32 `json:"symbols"`
	Sections []rawSection      `json:"sections"`
	Lines    map[string]string `json:"lines"`
}

// Load parses the JSON object-image document produced by the external
// assembler/linker pipeline (see the "gethex" step referenced by
// original_source/app.py's nios2_as). It validates that sections don't
// overlap and that every address fits in 32 bits.
func Load(data []byte) (*Image, error) {
	var raw rawImage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fault.BadImage{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	img := &Image{
		Symbols: raw.Symbols,
		Lines:   map[uint32]string{},
	}
	if img.Symbols == nil {
		img.Symbols = map[string]uint32{}
	}
	for addrStr, line := range raw.Lines {
		var addr uint32
		if _, err := fmt.Sscanf(addrStr, "0x%x", &addr); err != nil {
			if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
				return nil, fault.BadImage{Reason: fmt.Sprintf("invalid line-map address %q", addrStr)}
			}
		}
		img.Lines[addr] = line
	}

	for _, rs := range raw.Sections {
		b, err := decodeBytes(rs.Bytes)
		if err != nil {
			return nil, fault.BadImage{Reason: fmt.Sprintf("section at 0x%08x: %v", rs.Address, err)}
		}
		end := uint64(rs.Address) + uint64(len(b))
		if end > 1<<32 {
			return nil, fault.BadImage{Reason: fmt.Sprintf("section at 0x%08x length %d exceeds 32-bit address space", rs.Address, len(b))}
		}
		img.Sections = append(img.Sections, Section{Address: rs.Address, Bytes: b})
	}

	sort.Slice(img.Sections, func(i, j int) bool { return img.Sections[i].Address < img.Sections[j].Address })
	for i := 1; i < len(img.Sections); i++ {
		prev := img.Sections[i-1]
		cur := img.Sections[i]
		if uint64(prev.Address)+uint64(len(prev.Bytes)) > uint64(cur.Address) {
			return nil, fault.BadImage{Reason: fmt.Sprintf("section at 0x%08x overlaps section at 0x%08x", cur.Address, prev.Address)}
		}
	}

	for name, addr := range img.Symbols {
		if uint64(addr) > 0xFFFFFFFF {
			return nil, fault.BadImage{Reason: fmt.Sprintf("symbol %q address exceeds 32 bits", name)}
		}
	}

	switch {
	case raw.Entry != nil:
		img.Entry = *raw.Entry
	default:
		if addr, ok := img.Symbols["_start"]; ok {
			img.Entry = addr
		}
		// No _start and no explicit entry: the loader still succeeds per
		// spec; the grader is responsible for noticing the absence before
		// it asks the ISS to run.
	}

	return img, nil
}

// decodeBytes accepts either a JSON string (interpreted as hex) or a JSON
// array of byte values.
func decodeBytes(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		b, err := hex.DecodeString(asStr)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes: %w", err)
		}
		return b, nil
	}
	var asInts []int
	if err := json.Unmarshal(raw, &asInts); err == nil {
		b := make([]byte, len(asInts))
		for i, v := range asInts {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte value %d out of range", v)
			}
			b[i] = byte(v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("bytes field is neither a hex string nor a byte array")
}

// HasStart reports whether the image defines a _start symbol, which the
// ISS itself doesn't require at load time (spec 4.A) but which a grader
// should check before running.
func (img *Image) HasStart() bool {
	_, ok := img.Symbols["_start"]
	return ok
}

// Marshal renders img back into the same JSON shape Load accepts, hex-
// encoding section bytes. Used by hand_asm to emit a fixture an external
// toolchain's consumer could also read.
func (img *Image) Marshal() ([]byte, error) {
	raw := rawImage{
		Entry:   &img.Entry,
		Symbols: img.Symbols,
	}
	for _, sec := range img.Sections {
		b, err := json.Marshal(hex.EncodeToString(sec.Bytes))
		if err != nil {
			return nil, err
		}
		raw.Sections = append(raw.Sections, rawSection{Address: sec.Address, Bytes: b})
	}
	return json.MarshalIndent(raw, "", "  ")
}
