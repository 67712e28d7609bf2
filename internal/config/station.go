// Package config loads the station's persistence files: config.ini and
// bidib.ini via viper (matching the teacher's viper-based config
// loader, pkgs/config/config.go), and loco.ini via gopkg.in/ini.v1
// directly since its bespoke [L<adr>]/[T<adr>]/[X<adr>]/[Consists]
// section scheme needs precise key-by-key control a generic Unmarshal
// can't give us (spec.md 6).
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SystemFlag is the config.ini system-flag bitmap (spec.md 6: "names
// convey semantics, bit values are an implementation choice").
type SystemFlag uint32

const (
	FlagLongMMPause SystemFlag = 1 << iota
	FlagNoMagnetOnMain
	FlagNoMagnetOnCDE
	FlagNoMagnetOnMKLNBooster
	FlagRGBEntertainment
	FlagAccessoryAddressesLogical
	FlagRGBDim
	FlagPostPowerStartGo
	FlagGlobalBiDiBShortPropagates
	FlagBiDiBBoosterKeysActive
)

// FormatFlag is the per-format capability bitmap (spec.md 6).
type FormatFlag uint32

const (
	FormatFlagRailComEnable FormatFlag = 1 << iota
	FormatFlagDccaEnable
	FormatFlagDccAccessoryNOPEnable
	FormatFlagM3Enable
	FormatFlagForceDCCLongAddresses
)

// BiDiBNodeMapping is one BiDiB-node-to-S88-base mapping (spec.md 6:
// "per-node BiDiB->S88 base mappings").
type BiDiBNodeMapping struct {
	NodeUID string
	S88Base uint16
}

// Network holds config.ini's IPv4 section.
type Network struct {
	Method  string // "dhcp" or "static"
	Address string
	Mask    string
	Gateway string
}

// BiDiB holds the BiDiB transport section of config.ini.
type BiDiB struct {
	Port     uint16
	UserName string
}

// StationConfig is the unmarshalled contents of config.ini.
type StationConfig struct {
	Network Network
	P50XPort uint16
	BiDiB    BiDiB

	SystemFlags uint32
	FormatFlags uint32

	PurgeMinutes int

	MMShortTimingUs  int
	DCCShortTimingUs int

	FeedbackBusSize int
	S88FrequencyHz  int

	BiDiBS88Map []BiDiBNodeMapping
}

// TrustedBiDiBClient is one entry of bidib.ini.
type TrustedBiDiBClient struct {
	UID  string
	Name string
}

// BidibTrust is the unmarshalled contents of bidib.ini.
type BidibTrust struct {
	Clients []TrustedBiDiBClient
}

// LoadStationConfig reads config.ini from dir, the way the teacher's
// NewConfig layers viper defaults before reading the file (pkgs/config/
// config.go), generalized from YAML to the INI dialect spec.md 6 names.
func LoadStationConfig(dir string) (*StationConfig, error) {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetConfigName("config")
	v.AddConfigPath(dir)

	v.SetDefault("network.method", "dhcp")
	v.SetDefault("p50xport", 5550)
	v.SetDefault("bidib.port", 62875)
	v.SetDefault("purgeminutes", 120)
	v.SetDefault("mmshorttimingus", 208)
	v.SetDefault("dccshorttimingus", 58)
	v.SetDefault("feedbackbussize", 512)
	v.SetDefault("s88frequencyhz", 50)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config.ini: %w", err)
		}
	}

	cfg := &StationConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parse config.ini: %w", err)
	}
	return cfg, nil
}

// LoadBidibTrust reads bidib.ini from dir.
func LoadBidibTrust(dir string) (*BidibTrust, error) {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetConfigName("bidib")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &BidibTrust{}, nil
		}
		return nil, fmt.Errorf("config: read bidib.ini: %w", err)
	}

	trust := &BidibTrust{}
	if err := v.Unmarshal(trust); err != nil {
		return nil, fmt.Errorf("config: parse bidib.ini: %w", err)
	}
	return trust, nil
}
