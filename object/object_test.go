package object

import (
	"testing"

	"github.com/dgrunwald/nios2sim/fault"
)

func TestLoadHexBytes(t *testing.T) {
	doc := `{"symbols": {"_start": 4096}, "sections": [{"address": 4096, "bytes": "deadbeef"}]}`
	img, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(img.Sections) != 1 || len(img.Sections[0].Bytes) != 4 {
		t.Fatalf("unexpected sections: %+v", img.Sections)
	}
	if got, want := img.Sections[0].Bytes[0], byte(0xDE); got != want {
		t.Errorf("byte 0 = 0x%02x, want 0x%02x", got, want)
	}
	if img.Entry != 4096 {
		t.Errorf("entry = %d, want 4096 (from _start)", img.Entry)
	}
}

func TestLoadByteArrayBytes(t *testing.T) {
	doc := `{"symbols": {}, "sections": [{"address": 0, "bytes": [1, 2, 3]}]}`
	img, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(img.Sections[0].Bytes) != 3 || img.Sections[0].Bytes[1] != 2 {
		t.Fatalf("unexpected bytes: %+v", img.Sections[0].Bytes)
	}
}

func TestExplicitEntryOverridesStart(t *testing.T) {
	doc := `{"entry": 8192, "symbols": {"_start": 4096}, "sections": []}`
	img, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Entry != 8192 {
		t.Errorf("entry = %d, want 8192", img.Entry)
	}
}

func TestMissingStartStillLoads(t *testing.T) {
	doc := `{"symbols": {}, "sections": []}`
	img, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.HasStart() {
		t.Error("HasStart() true with no _start symbol")
	}
}

func TestOverlappingSectionsFail(t *testing.T) {
	doc := `{"symbols": {}, "sections": [
		{"address": 0, "bytes": "00000000"},
		{"address": 2, "bytes": "00000000"}
	]}`
	_, err := Load([]byte(doc))
	if err == nil {
		t.Fatal("expected BadImage for overlapping sections")
	}
	if _, ok := err.(fault.BadImage); !ok {
		t.Errorf("got %T, want fault.BadImage", err)
	}
}

func TestInvalidJSONFails(t *testing.T) {
	_, err := Load([]byte(`not json`))
	if err == nil {
		t.Fatal("expected BadImage for invalid JSON")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := `{"entry": 4096, "symbols": {"_start": 4096}, "sections": [{"address": 4096, "bytes": "deadbeef"}]}`
	img, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := img.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	img2, err := Load(b)
	if err != nil {
		t.Fatalf("Load(Marshal()): %v", err)
	}
	if img2.Entry != img.Entry || len(img2.Sections) != len(img.Sections) {
		t.Fatalf("round trip mismatch: %+v vs %+v", img2, img)
	}
}
