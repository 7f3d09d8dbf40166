// Package config loads and persists the bridge configuration file.
//
// The file is YAML, lives in the platform config directory by default
// (~/.config/salina-uart/config.yaml on Linux), and covers everything the
// daemon needs at startup: serial devices, listen addresses, mDNS
// announcement, the chip timing preset, and any extra firmware constants
// beyond the built-in table. Saves are atomic (write-then-rename) so a
// crash mid-write never leaves a torn file.
package config
