package graph

import "strings"

// ignoredIntrinsicPrefixes are llvm.* intrinsics that compile to nothing
// observable at the call-graph level, per spec.md §4.4 phase 3.
var ignoredIntrinsicPrefixes = []string{
	"llvm.dbg.",
	"llvm.lifetime.",
	"llvm.assume",
	"llvm.trap",
}

func isIgnoredIntrinsic(name string) bool {
	for _, p := range ignoredIntrinsicPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// memFamilies maps a memcpy/memset/memmove intrinsic prefix to the fixed set
// of concrete symbol names it may lower to, including the ARM EABI aliases
// (__aeabi_memcpy*, __aeabi_memset* etc.), per spec.md §4.4 phase 3.
var memFamilies = map[string][]string{
	"llvm.memcpy.":  {"memcpy", "__aeabi_memcpy", "__aeabi_memcpy4", "__aeabi_memcpy8"},
	"llvm.memmove.": {"memmove", "__aeabi_memmove", "__aeabi_memmove4", "__aeabi_memmove8"},
	"llvm.memset.":  {"memset", "memclr", "__aeabi_memset", "__aeabi_memset4", "__aeabi_memset8", "__aeabi_memclr", "__aeabi_memclr4", "__aeabi_memclr8"},
}

// memFamilyFor returns the candidate symbol set for name, or nil if name is
// not a recognized mem* intrinsic.
func memFamilyFor(name string) []string {
	for prefix, candidates := range memFamilies {
		if strings.HasPrefix(name, prefix) {
			return candidates
		}
	}
	return nil
}

// overflowBitcountSaturationPrefixes lower directly to machine instructions
// (e.g. UADD8, CLZ, SSAT) with no IR-visible call, per spec.md §4.4 phase 3.
var overflowBitcountSaturationPrefixes = []string{
	"llvm.sadd.with.overflow.",
	"llvm.uadd.with.overflow.",
	"llvm.ssub.with.overflow.",
	"llvm.usub.with.overflow.",
	"llvm.smul.with.overflow.",
	"llvm.umul.with.overflow.",
	"llvm.ctlz.",
	"llvm.cttz.",
	"llvm.ctpop.",
	"llvm.bswap.",
	"llvm.sadd.sat.",
	"llvm.uadd.sat.",
	"llvm.ssub.sat.",
	"llvm.usub.sat.",
}

func isOverflowBitcountSaturation(name string) bool {
	for _, p := range overflowBitcountSaturationPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
