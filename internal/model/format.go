// Package model holds the wire-independent data model shared by every
// component of the track-signal core: decoder definitions, live state,
// consists, packets and replies. None of the format-specific encoding
// lives here -- see bitbuffer/* for that.
package model

import "fmt"

// Format identifies the decoder protocol dialect a loco speaks.
type Format int

const (
	FormatUnknown Format = iota
	FormatMM1_14
	FormatMM2_14
	FormatMM2_27A
	FormatMM2_27B
	FormatDCC14
	FormatDCC28
	FormatDCC126
	FormatDCCSDF
	FormatM3_126
)

func (f Format) String() string {
	switch f {
	case FormatMM1_14:
		return "MM1/14"
	case FormatMM2_14:
		return "MM2/14"
	case FormatMM2_27A:
		return "MM2/27A"
	case FormatMM2_27B:
		return "MM2/27B"
	case FormatDCC14:
		return "DCC/14"
	case FormatDCC28:
		return "DCC/28"
	case FormatDCC126:
		return "DCC/126"
	case FormatDCCSDF:
		return "DCC/SDF"
	case FormatM3_126:
		return "M3/126"
	default:
		return "unknown"
	}
}

// IsMM reports whether the format belongs to the Maerklin-Motorola family.
func (f Format) IsMM() bool {
	switch f {
	case FormatMM1_14, FormatMM2_14, FormatMM2_27A, FormatMM2_27B:
		return true
	}
	return false
}

// IsDCC reports whether the format belongs to the DCC family (excludes DCC-A,
// which is not a loco format but a service-packet dialect over DCC).
func (f Format) IsDCC() bool {
	switch f {
	case FormatDCC14, FormatDCC28, FormatDCC126, FormatDCCSDF:
		return true
	}
	return false
}

func (f Format) IsM3() bool {
	return f == FormatM3_126
}

// MaxAddress returns the highest loco address legal for the format.
func (f Format) MaxAddress() uint16 {
	switch {
	case f.IsMM():
		return 255
	case f.IsDCC():
		return 10239
	case f.IsM3():
		return 16383
	}
	return 0
}

// MaxFunc returns the highest function number the format's own wire
// encoding can carry (independent of a decoder's advertised maxfunc).
func (f Format) MaxFunc() int {
	switch {
	case f.IsMM():
		return 4
	case f.IsDCC():
		return 31
	case f.IsM3():
		return 127
	}
	return 0
}

// ValidateAddress enforces spec.md 3's per-format address ranges.
func (f Format) ValidateAddress(adr uint16) error {
	if adr == 0 || adr > f.MaxAddress() {
		return fmt.Errorf("%w: address %d not valid for format %s (max %d)", ErrInternal, adr, f, f.MaxAddress())
	}
	return nil
}

// ConfigOrigin records how a loco definition came to exist.
type ConfigOrigin int

const (
	OriginManual ConfigOrigin = iota
	OriginDCCA
	OriginM3
	OriginRailComPlus
)

func (o ConfigOrigin) String() string {
	switch o {
	case OriginDCCA:
		return "dcca"
	case OriginM3:
		return "m3"
	case OriginRailComPlus:
		return "railcomplus"
	default:
		return "manual"
	}
}

const (
	// MinAddress is the smallest legal loco/turnout/accessory address.
	MinAddress = 1
	// MaxTurnoutAddress is the highest legal turnout/extended-accessory address (spec.md 3).
	MaxTurnoutAddress = 2047
	// MaxConsistLength bounds the number of members a single consist may hold.
	MaxConsistLength = 16
)
