package model

import (
	"fmt"
	"sort"
)

// FuncTiming describes how a function button behaves when pressed.
type FuncTiming int

const (
	// TimingToggle is the default: pressing the button flips the bit.
	TimingToggle FuncTiming = 0
	// TimingMomentary means the bit is on only while held.
	TimingMomentary FuncTiming = -1
)

// FuncMeta is a single entry in a loco's function-metadata list.
type FuncMeta struct {
	Num    int
	Icon   uint8      // 0..127
	Timing FuncTiming // TimingToggle, TimingMomentary, or N (hundreds of ms)
}

// DccaInfo is the optional DCC-A enrichment block for a loco definition.
type DccaInfo struct {
	Vendor, Product, FW, HW string
	ShortName               string
	PictureIndex            uint8
	Symbol                  uint8
	RequestedAddress        uint16
	VID                     uint8
	UID                     uint32
}

// LocoDef is the persistent catalogue entry for a locomotive (spec.md 3).
type LocoDef struct {
	Addr     uint16
	Format   Format
	MaxFunc  int
	VID      uint8
	UID      uint32
	Origin   ConfigOrigin
	Name     string
	Funcs    []FuncMeta
	DCCA     *DccaInfo
}

// Validate enforces the invariants from spec.md 3 and 8: address range,
// function list sorted & unique, maxfunc within the format's own ceiling.
func (d *LocoDef) Validate() error {
	if err := d.Format.ValidateAddress(d.Addr); err != nil {
		return err
	}
	if d.MaxFunc < 0 || d.MaxFunc > d.Format.MaxFunc() {
		return fmt.Errorf("%w: maxfunc %d exceeds format %s limit %d", ErrInternal, d.MaxFunc, d.Format, d.Format.MaxFunc())
	}
	last := -1
	for _, fn := range d.Funcs {
		if fn.Num <= last {
			return fmt.Errorf("%w: function list not sorted/unique at fnum %d", ErrInternal, fn.Num)
		}
		if fn.Num > d.MaxFunc {
			return fmt.Errorf("%w: function %d exceeds maxfunc %d", ErrInternal, fn.Num, d.MaxFunc)
		}
		last = fn.Num
	}
	if len(d.Name) > 63 {
		return fmt.Errorf("%w: name exceeds 63 bytes", ErrInternal)
	}
	return nil
}

// SetFuncIcon inserts or updates the icon of function fn, keeping Funcs
// sorted and deduplicated.
func (d *LocoDef) SetFuncIcon(fn int, icon uint8) {
	d.upsertFunc(fn, func(m *FuncMeta) { m.Icon = icon })
}

// SetFuncTiming inserts or updates the timing of function fn.
func (d *LocoDef) SetFuncTiming(fn int, timing FuncTiming) {
	d.upsertFunc(fn, func(m *FuncMeta) { m.Timing = timing })
}

func (d *LocoDef) upsertFunc(fn int, mutate func(*FuncMeta)) {
	idx := sort.Search(len(d.Funcs), func(i int) bool { return d.Funcs[i].Num >= fn })
	if idx < len(d.Funcs) && d.Funcs[idx].Num == fn {
		mutate(&d.Funcs[idx])
		return
	}
	d.Funcs = append(d.Funcs, FuncMeta{})
	copy(d.Funcs[idx+1:], d.Funcs[idx:])
	d.Funcs[idx] = FuncMeta{Num: fn}
	mutate(&d.Funcs[idx])
}

// FuncByNum returns the metadata for function fn, if present.
func (d *LocoDef) FuncByNum(fn int) (FuncMeta, bool) {
	idx := sort.Search(len(d.Funcs), func(i int) bool { return d.Funcs[i].Num >= fn })
	if idx < len(d.Funcs) && d.Funcs[idx].Num == fn {
		return d.Funcs[idx], true
	}
	return FuncMeta{}, false
}

// DefaultFormatForAddress mirrors C1's get_or_create rule: MM for
// addresses a configured default would place there (<=255), else DCC/28 up
// to the DCC ceiling, else M3.
func DefaultFormatForAddress(adr uint16, preferMM bool) Format {
	switch {
	case adr <= 255 && preferMM:
		return FormatMM2_14
	case adr <= 10239:
		return FormatDCC28
	default:
		return FormatM3_126
	}
}
