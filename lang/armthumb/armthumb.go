// Package armthumb implements the machine-code analyzer contract of
// spec.md §4.3 for the Thumb (16-bit) and Thumb-2 (mixed 16/32-bit)
// instruction sets used by ARMv6-M and ARMv7-M Cortex-M cores.
//
// No available Go library decodes the Thumb instruction set
// (golang.org/x/arch only covers ARM/ARM64 A32/A64 and x86), so this
// package is hand-written directly from the bit patterns in the ARMv7-M
// Architecture Reference Manual, decoded with a plain byte-stream walk.
package armthumb

import (
	"encoding/binary"

	"github.com/mna/callstack/lang/symbols"
)

// Result is the 5-tuple contract of spec.md §4.3.
type Result struct {
	// BLs are the signed byte offsets (relative to the symbol's load
	// address) of every unconditional-with-link direct call.
	BLs []int32
	// Bs are the signed byte offsets of every branch instruction whose
	// target lies outside the symbol's own address range (tail calls).
	Bs []int32
	// Indirect is true iff the symbol performs at least one indirect call
	// the analyzer could not resolve to a concrete address.
	Indirect bool
	// ModifiesSP is true iff the symbol provably modifies the stack
	// pointer.
	ModifiesSP bool
	// OurStack is the exact constant local stack usage, or nil if the
	// analyzer could not decide (e.g. intra-symbol branches defeat it).
	OurStack *uint64
}

// Analyze decodes code (the raw bytes of one symbol's range in .text) and
// returns the 5-tuple of spec.md §4.3. addr is the symbol's load address
// (already Thumb-bit-cleared); isV7M distinguishes the two supported
// targets: the 32-bit B.W and {SUB,ADD}.W sp encodings are decoded only
// when it is true (the 32-bit BL is decoded for both). The sorted
// (address, Data|Thumb) tag list is not an input of Analyze; only the
// caller's sizing fallback (Sizing below) uses it.
//
// OurStack is the deepest point the frame reaches: the most negative
// running sum of PUSH and SP adjustments seen in the code.
func Analyze(code []byte, addr uint64, isV7M bool) Result {
	var res Result
	var spDelta, lowest int64
	sawIntraBranch := false
	decidable := true

	for off := 0; off < len(code); {
		if spDelta < lowest {
			lowest = spDelta
		}
		if off+2 > len(code) {
			break
		}
		hw1 := binary.LittleEndian.Uint16(code[off:])

		if isWide(hw1) && off+4 <= len(code) {
			hw2 := binary.LittleEndian.Uint16(code[off+2:])
			switch {
			case isBL32(hw1, hw2):
				// PC-relative calculations use "address of instruction + 4" as
				// PC, regardless of this being a 32-bit-encoded instruction.
				disp := int32(off+4) + blTarget(hw1, hw2)
				res.BLs = append(res.BLs, disp)
			case isB32(hw1, hw2) && isV7M:
				raw := b32Target(hw1, hw2)
				if raw != 0 {
					disp := int32(off+4) + raw
					if isIntraRange(disp, len(code)) {
						sawIntraBranch = true
					} else {
						res.Bs = append(res.Bs, disp)
					}
				}
			case isBLXReg32(hw1, hw2), isBXReg32(hw1, hw2):
				res.Indirect = true
			case isSPImm32(hw1, hw2) && isV7M:
				delta, ok := spImm32Delta(hw1, hw2)
				res.ModifiesSP = true
				if ok {
					spDelta += delta
				} else {
					decidable = false
				}
			}
			off += 4
			continue
		}

		switch {
		case isBLXReg16(hw1), isBXReg16(hw1):
			res.Indirect = true
		case isB16(hw1):
			disp := int32(off+4) + b16Target(hw1)
			if isIntraRange(disp, len(code)) {
				sawIntraBranch = true
			} else {
				res.Bs = append(res.Bs, disp)
			}
		case isPush16(hw1):
			n := popcount(hw1 & 0x1FF) // register_list plus bit 8 (M), set when LR is pushed
			res.ModifiesSP = true
			spDelta -= int64(n) * 4
		case isPop16(hw1):
			res.ModifiesSP = true
			// POP restores SP; does not, by itself, change the frame's local
			// usage beyond what the matching PUSH already accounted for.
		case isSubSPImm16(hw1):
			res.ModifiesSP = true
			spDelta -= int64(subSPImm16(hw1))
		case isAddSPImm16(hw1):
			res.ModifiesSP = true
			spDelta += int64(addSPImm16(hw1))
		case isSubSPReg16(hw1):
			res.ModifiesSP = true
			decidable = false
		}
		off += 2
	}

	if spDelta < lowest {
		lowest = spDelta
	}
	if sawIntraBranch || !decidable {
		res.OurStack = nil
		return res
	}
	if lowest < 0 {
		n := uint64(-lowest)
		res.OurStack = &n
	} else if res.ModifiesSP {
		res.OurStack = nil
	} else {
		zero := uint64(0)
		res.OurStack = &zero
	}
	return res
}

// Sizing implements the sizing fallback of spec.md §4.3: if size is zero
// and the nearest preceding tag is Thumb with a following Thumb tag, the
// size is the distance between those two tag addresses.
func Sizing(addr uint64, size uint64, tags []symbols.AddrTag) uint64 {
	if size != 0 {
		return size
	}
	idx := -1
	for i, t := range tags {
		if t.Addr > addr {
			break
		}
		idx = i
	}
	if idx < 0 || tags[idx].Tag != symbols.Thumb {
		return size
	}
	if idx+1 >= len(tags) || tags[idx+1].Tag != symbols.Thumb {
		return size
	}
	return tags[idx+1].Addr - tags[idx].Addr
}

// isIntraRange reports whether disp, a byte displacement from the symbol's
// own load address, still lands inside the symbol's own [0, codeLen) range
// (an intra-function branch, not a call).
func isIntraRange(disp int32, codeLen int) bool {
	return disp >= 0 && int64(disp) < int64(codeLen)
}

func popcount(x uint16) int {
	n := 0
	for x != 0 {
		n += int(x & 1)
		x >>= 1
	}
	return n
}
