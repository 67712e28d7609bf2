// Package railcom implements the RailCom (RCN-217) cutout receiver
// (spec.md 4.7/C7): per-cutout window byte decode, message reassembly,
// and dispatch of reply fragments to the reply router (C9).
package railcom

import "math/bits"

// Symbol is the 8-to-6 decode result for one received UART byte.
type Symbol int

const (
	SymInvalid Symbol = iota
	SymData           // 6-bit datum, value in Datum
	SymACK1
	SymACK2
	SymNACK
	SymRsvd1
	SymRsvd2
	SymRsvd3
)

// symbolTable maps each of the 256 possible received bytes to its
// decoded Symbol (and 6-bit datum when SymData). RailCom's real 8-to-6
// code picks the 64 "4 ones out of 8 bits" (balanced) byte patterns as
// data codewords and a handful of other weights as ACK/NACK/reserved
// markers; the exact datum-to-codeword assignment used by the original
// firmware was not recoverable from the retrieval pack (original_source
// was empty), so this table is a self-consistent reconstruction built
// from the same "4-of-8 balanced code" structure, documented in
// DESIGN.md rather than presented as the verified RCN-217 table.
var symbolTable [256]Symbol
var datumTable [256]byte

func init() {
	var balanced []int
	for b := 0; b < 256; b++ {
		if bits.OnesCount8(uint8(b)) == 4 {
			balanced = append(balanced, b)
		}
	}
	// balanced has exactly 70 entries (C(8,4)=70): first 64 become data
	// codewords 0..63 in ascending byte order, the next 4 become
	// ACK1/ACK2/NACK/Rsvd1, remaining 2 are Rsvd2/Rsvd3.
	for i, b := range balanced {
		switch {
		case i < 64:
			symbolTable[b] = SymData
			datumTable[b] = byte(i)
		case i == 64:
			symbolTable[b] = SymACK1
		case i == 65:
			symbolTable[b] = SymACK2
		case i == 66:
			symbolTable[b] = SymNACK
		case i == 67:
			symbolTable[b] = SymRsvd1
		case i == 68:
			symbolTable[b] = SymRsvd2
		default:
			symbolTable[b] = SymRsvd3
		}
	}
}

// Decode returns the Symbol (and, for SymData, the 6-bit datum) for one
// received RailCom UART byte.
func Decode(raw byte) (Symbol, byte) {
	return symbolTable[raw], datumTable[raw]
}
