package stm32l4

import (
	"context"
	"fmt"

	"github.com/moffa90/go-stm32l4/fmc"
)

// Probe reads the device ID, matches the part registry, resolves the bank
// geometry from the flash size register and the bank option bits, and
// rebuilds the sector table. Every sector starts with erase state unknown
// and conservatively protected until ProtectCheck runs.
func (d *Driver) Probe(ctx context.Context) error {
	d.probed = false

	idcode, err := d.target.ReadU32(fmc.DeviceIDAddr)
	if err != nil {
		return &TransportError{Op: "read", Addr: fmc.DeviceIDAddr, Err: err}
	}
	d.idcode = idcode
	d.logInfo("device id", "idcode", fmt.Sprintf("0x%08X", idcode))

	part := partByID(idcode)
	if part == nil {
		d.logWarn("cannot identify target as an STM32L4xx family member",
			"idcode", fmt.Sprintf("0x%08X", idcode))
		return &UnsupportedPartError{IDCode: idcode}
	}
	d.part = part
	d.regsBase = part.RegsBase

	// Start from the immutable registry entry; adjustments below apply to
	// this bank's copy only.
	geo := Geometry{
		PageSize:         part.PageSize,
		FirstBankSectors: part.FirstBankSectors,
		HoleSectors:      part.HoleSectors,
		DualBank:         part.DualBank,
	}

	flashKB := uint32(0)
	sizeRaw, err := d.target.ReadU16(part.FSizeBase)
	if err != nil || sizeRaw == 0 || uint32(sizeRaw) > part.MaxFlashKB {
		d.logWarn("flash size probe inaccurate, assuming maximum",
			"assumed_kb", part.MaxFlashKB)
		flashKB = part.MaxFlashKB
	} else {
		flashKB = uint32(sizeRaw)
	}

	if part.DualBank {
		optr, err := d.readReg(fmc.OPTR)
		if err != nil {
			return err
		}
		if part.ID == 0x470 && optr&fmc.OptDBank == 0 {
			// DBANK clear: the two banks fuse into one with doubled pages.
			geo.PageSize = 8192
		} else if optr&fmc.OptDualBank != 0 && flashKB < part.MaxFlashKB {
			// Dual bank on an underpopulated device: sector numbers jump a
			// hole between the banks.
			geo.FirstBankSectors = int((flashKB * 1024 / geo.PageSize) / 2)
			geo.HoleSectors = int((part.MaxFlashKB*1024/geo.PageSize)/2) - geo.FirstBankSectors
		}
	}

	flashBytes := flashKB * 1024
	d.logInfo("flash size", "kb", flashKB, "base", fmt.Sprintf("0x%08X", d.config.BaseAddress))
	if d.config.BankSize != 0 {
		flashBytes = d.config.BankSize
		d.logInfo("ignoring probed flash size, using configured bank size",
			"bytes", flashBytes)
	}

	numSectors := flashBytes / geo.PageSize
	sectors := make([]Sector, numSectors)
	for i := range sectors {
		sectors[i] = Sector{
			Offset:    uint32(i) * geo.PageSize,
			Size:      geo.PageSize,
			Erased:    EraseUnknown,
			Protected: true,
		}
	}

	d.geo = geo
	d.base = d.config.BaseAddress
	d.size = flashBytes
	d.sectors = sectors
	d.probed = true
	return nil
}

// AutoProbe probes once; it is a no-op when the bank is already probed.
func (d *Driver) AutoProbe(ctx context.Context) error {
	if d.probed {
		return nil
	}
	return d.Probe(ctx)
}
