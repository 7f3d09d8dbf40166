package config

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Version int `yaml:"version"`

	Emc PortConfig `yaml:"emc"`
	Efc PortConfig `yaml:"efc,omitempty"`

	Listen ListenConfig `yaml:"listen"`
	MDNS   MDNSConfig   `yaml:"mdns,omitempty"`

	// Chip selects the timing preset: "salina" or "salina2".
	Chip string `yaml:"chip,omitempty"`

	// Firmwares adds or overrides firmware constants entries.
	Firmwares []FirmwareConfig `yaml:"firmwares,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

// PortConfig names one serial device. An empty Device disables the
// channel.
type PortConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud,omitempty"`
}

// ListenConfig holds the network front-end addresses. A zero port
// disables that listener; the EMC port cannot be disabled.
type ListenConfig struct {
	Host     string `yaml:"host"`
	EmcPort  int    `yaml:"emc_port"`
	EfcPort  int    `yaml:"efc_port,omitempty"`
	HTTPPort int    `yaml:"http_port,omitempty"`
}

// MDNSConfig controls the zeroconf announcement.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"`
}

// FirmwareConfig is one firmware constants entry in file form. Addr and
// Shellcode are hex strings so the file stays hand-editable.
type FirmwareConfig struct {
	Version   string `yaml:"version"`
	Addr      string `yaml:"addr"`
	Shellcode string `yaml:"shellcode"`
}

// Decode parses the hex fields.
func (f FirmwareConfig) Decode() (addr uint32, shellcode []byte, err error) {
	a, err := strconv.ParseUint(f.Addr, 16, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("firmware %q: bad addr %q: %w", f.Version, f.Addr, err)
	}
	sc, err := hex.DecodeString(f.Shellcode)
	if err != nil {
		return 0, nil, fmt.Errorf("firmware %q: bad shellcode: %w", f.Version, err)
	}
	return uint32(a), sc, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: 1,
		Emc:     PortConfig{Device: "/dev/ttyUSB0", Baud: 115200},
		Listen: ListenConfig{
			Host:     "127.0.0.1",
			EmcPort:  3380,
			EfcPort:  3381,
			HTTPPort: 3382,
		},
		MDNS: MDNSConfig{Enabled: false},
		Chip: "salina",
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	if c.Emc.Device == "" {
		return fmt.Errorf("emc.device is required")
	}
	if c.Listen.EmcPort == 0 {
		return fmt.Errorf("listen.emc_port is required")
	}
	switch c.Chip {
	case "", "salina", "salina2":
	default:
		return fmt.Errorf("unknown chip preset %q", c.Chip)
	}
	for _, fw := range c.Firmwares {
		if fw.Version == "" {
			return fmt.Errorf("firmware entry missing version")
		}
		if _, _, err := fw.Decode(); err != nil {
			return err
		}
	}
	return nil
}
