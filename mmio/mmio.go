// Package mmio defines the callback shapes used to bind a memory-mapped I/O
// register to a Go value. It plays the same role the 6502 teacher's irq and
// io packages play (tiny, single-purpose capability interfaces passed into
// a bigger component) but as a closed set of three shapes instead of one,
// since a register may be read-only, write-only, or bidirectional.
package mmio

// Callback is implemented by exactly the three types in this package.
// The unexported method closes the interface so callers can't accidentally
// satisfy it with an unrelated type.
type Callback interface {
	isCallback()
}

// ReadOnly backs a register that only supports loads. Stores to it are a
// protocol fault.
type ReadOnly func() uint32

func (ReadOnly) isCallback() {}

// WriteOnly backs a register that only supports stores. Loads from it are a
// protocol fault.
type WriteOnly func(value uint32)

func (WriteOnly) isCallback() {}

// Access backs a bidirectional register. isWrite distinguishes the
// direction; the returned value is used for loads and ignored for stores.
type Access func(isWrite bool, value uint32) uint32

func (Access) isCallback() {}

// Dispatch invokes cb for a load (isWrite=false) or store (isWrite=true) of
// value, returning the loaded value (0 for stores) and whether the access
// direction is supported by cb.
func Dispatch(cb Callback, isWrite bool, value uint32) (result uint32, ok bool) {
	switch fn := cb.(type) {
	case ReadOnly:
		if isWrite {
			return 0, false
		}
		return fn(), true
	case WriteOnly:
		if !isWrite {
			return 0, false
		}
		fn(value)
		return 0, true
	case Access:
		v := fn(isWrite, value)
		if isWrite {
			return 0, true
		}
		return v, true
	default:
		return 0, false
	}
}
