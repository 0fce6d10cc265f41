// Package fmc models the STM32L4 flash memory controller register interface.
//
// # Overview
//
// The package is a pure data layer: register offsets, bit assignments, unlock
// keys, and the encode/decode helpers for the status register, the option
// register and the write-protection range registers. It performs no target
// I/O; the stm32l4 package drives an actual controller through these
// definitions.
//
// Register offsets and bit positions follow the STM32L476 reference manual
// (RM0351). All offsets are relative to the controller base address reported
// by the part registry (0x40022000 for every supported part).
//
// # Status decoding
//
// The SR value is wrapped in the Status type:
//
//	status := fmc.Status(raw)
//	if status.Busy() {
//	    // operation still in progress
//	}
//	if errs := status.Errors(); errs != 0 {
//	    // errs holds the latched error bits, write-one-to-clear
//	}
//
// # Option bytes
//
// OptionBytes decomposes the OPTR word and the four WRP range registers:
//
//	opts := fmc.DecodeOptions(optr)
//	opts.WRP1A = fmc.WRPRange{Start: 10, End: 20}
//	optr = opts.EncodeOPTR()
//
// A WRPRange with Start > End means "no zone"; the canonical empty encoding
// is Start=0xFF, End=0.
package fmc
