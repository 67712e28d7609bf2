package bitbuffer

// FmtConfig groups the timing knobs the source calls "fmtconfig" --
// everything an encoder needs besides the packet itself, so that
// encode(packet) is deterministic given equal FmtConfig (spec.md 8).
type FmtConfig struct {
	// DCC timing, microsecond half-periods (spec.md 4.5).
	DCCOneHalfPeriodUs  int
	DCCZeroHalfPeriodUs int
	DCCPreambleBits     int // >=14 with RailCom, >=20 for service mode
	DCCTailBits         int
	DCCRailComEnabled   bool

	// MM timing, microseconds (spec.md 4.5).
	MMLongPause      bool // historical "long pause" option
	MMBitHalfPeriodUs int  // half-period of one encoded trit-bit

	// M3 timing, microseconds (spec.md 4.5: L=100us, S=50us half-flags).
	M3LongHalfUs  int
	M3ShortHalfUs int
}

// DefaultFmtConfig matches the values spec.md 4.5/8 calls out explicitly.
func DefaultFmtConfig() FmtConfig {
	return FmtConfig{
		DCCOneHalfPeriodUs:  58,
		DCCZeroHalfPeriodUs: 100,
		DCCPreambleBits:     14,
		DCCTailBits:         0,
		DCCRailComEnabled:   true,
		MMLongPause:         false,
		MMBitHalfPeriodUs:   208,
		M3LongHalfUs:        100,
		M3ShortHalfUs:       50,
	}
}

// ServiceModeFmtConfig is used while on the programming track: a longer
// preamble and no RailCom cutout (spec.md 4.5/4.6).
func ServiceModeFmtConfig() FmtConfig {
	c := DefaultFmtConfig()
	c.DCCPreambleBits = 20
	c.DCCRailComEnabled = false
	return c
}

// MM timing constants (microseconds), spec.md 4.5.
const (
	MMIntraBlockGapSlowUs = 1250
	MMIntraBlockGapFastUs = 625
	MMInterPacketGapShortUs = 1500
	MMInterPacketGapLongUs  = 4025
)

// RailCom cutout timing constants (microseconds), spec.md 4.5/4.6.
const (
	RailComCutoutDelayUs   = 26
	RailComCutoutWindowUs  = 488
	RailComW1MaxUs         = 165
	RailComW2OffsetAfterW1Us = 270
	RailComISRCutoutDelayUs  = 50
	RailComBiDiAckSampleUs   = 1500
)
