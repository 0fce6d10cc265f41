package stm32l4

import (
	"context"
	"time"

	"github.com/moffa90/go-stm32l4/fmc"
)

// Erase erases the inclusive sector range [first, last].
//
// Sector erase procedure (RM0351), per sector:
//  1. set PER and the sector number (SNB) in CR, with BKER for bank 2
//  2. set START
//  3. wait for BSY to clear
//
// BSY is not checked before the first sector's command; each later sector
// follows the previous sector's wait.
//
// On a failed sector the erase aborts immediately and the controller is left
// unlocked so the failure stays observable; on success CR.LOCK is restored.
func (d *Driver) Erase(ctx context.Context, first, last int) error {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}
	if err := d.checkSectorRange(first, last); err != nil {
		return err
	}

	if err := d.unlockCR(); err != nil {
		return err
	}

	start := time.Now()
	total := last - first + 1
	for i := first; i <= last; i++ {
		var ctrl uint32
		if i < d.geo.FirstBankSectors {
			ctrl = fmc.CRPageErase | fmc.SNB(uint32(i)) | fmc.CRStart
		} else {
			ctrl = fmc.CRBankErase | fmc.CRPageErase |
				fmc.SNB(uint32(i+d.geo.HoleSectors)) | fmc.CRStart
		}
		if err := d.writeReg(fmc.CR, ctrl); err != nil {
			d.logError("erase sector failed", "sector", i, "err", err)
			return err
		}

		if err := d.waitNotBusy(ctx, "erase", d.config.EraseTimeout); err != nil {
			d.logError("sector erase failed, target flash left unlocked", "sector", i)
			return err
		}

		d.sectors[i].Erased = EraseYes
		done := i - first + 1
		d.reportProgress(Progress{
			Phase:         PhaseErasing,
			CurrentSector: i,
			TotalSectors:  total,
			Percentage:    float64(done) / float64(total) * 100,
			ElapsedTime:   time.Since(start),
		})
	}

	return d.writeReg(fmc.CR, fmc.CRLock)
}

// MassErase erases the entire bank, setting MER2 alongside MER1 on dual-bank
// devices. On success every sector is marked erased. A failure after the
// unlock restores CR.LOCK before the error is returned.
func (d *Driver) MassErase(ctx context.Context) (err error) {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}

	if err := d.unlockCR(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = d.writeReg(fmc.CR, fmc.CRLock)
		}
	}()

	// Let a pending operation drain before touching CR.
	if err := d.waitNotBusy(ctx, "mass erase", d.config.EraseTimeout/10); err != nil {
		return err
	}

	ctrl, err := d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	ctrl |= fmc.CRMassErase1
	if d.geo.DualBank {
		ctrl |= fmc.CRMassErase2
	}

	if err := d.writeReg(fmc.CR, ctrl); err != nil {
		return err
	}
	if err := d.writeReg(fmc.CR, ctrl|fmc.CRStart); err != nil {
		return err
	}

	if err := d.waitNotBusy(ctx, "mass erase", d.config.EraseTimeout); err != nil {
		return err
	}

	ctrl, err = d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	if err := d.writeReg(fmc.CR, ctrl|fmc.CRLock); err != nil {
		return err
	}

	for i := range d.sectors {
		d.sectors[i].Erased = EraseYes
	}
	return nil
}
