package stm32l4

import (
	"context"

	"github.com/moffa90/go-stm32l4/fmc"
)

// readOptions refreshes the cached option bytes from OPTR and the WRP range
// registers.
func (d *Driver) readOptions() error {
	optr, err := d.readReg(fmc.OPTR)
	if err != nil {
		return err
	}
	opts := fmc.DecodeOptions(optr)

	raw, err := d.readReg(fmc.WRP1AR)
	if err != nil {
		return err
	}
	opts.WRP1A = fmc.DecodeWRP(raw)

	raw, err = d.readReg(fmc.WRP1BR)
	if err != nil {
		return err
	}
	opts.WRP1B = fmc.DecodeWRP(raw)

	if d.geo.DualBank {
		raw, err = d.readReg(fmc.WRP2AR)
		if err != nil {
			return err
		}
		opts.WRP2A = fmc.DecodeWRP(raw)

		raw, err = d.readReg(fmc.WRP2BR)
		if err != nil {
			return err
		}
		opts.WRP2B = fmc.DecodeWRP(raw)
	}

	if opts.RDP != fmc.RDPNone {
		d.logInfo("device readout protection is set", "rdp", opts.RDP)
	}

	d.options = opts
	return nil
}

// writeOptions programs the cached option bytes: OPTR, the WRP ranges, then
// one option programming cycle. The new values take effect only after a
// target reset or power cycle. A failure after the unlock restores OPTLOCK
// and LOCK before the error is returned.
func (d *Driver) writeOptions(ctx context.Context) (err error) {
	if err := d.unlockCR(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = d.writeReg(fmc.CR, fmc.CROptLock|fmc.CRLock)
		}
	}()
	if err := d.unlockOptCR(); err != nil {
		return err
	}

	if err := d.writeReg(fmc.OPTR, d.options.EncodeOPTR()); err != nil {
		return err
	}
	if err := d.writeReg(fmc.WRP1AR, d.options.WRP1A.Encode()); err != nil {
		return err
	}
	if err := d.writeReg(fmc.WRP1BR, d.options.WRP1B.Encode()); err != nil {
		return err
	}
	if d.geo.DualBank {
		if err := d.writeReg(fmc.WRP2AR, d.options.WRP2A.Encode()); err != nil {
			return err
		}
		if err := d.writeReg(fmc.WRP2BR, d.options.WRP2B.Encode()); err != nil {
			return err
		}
	}

	if err := d.writeReg(fmc.CR, fmc.CROptStart); err != nil {
		return err
	}
	if err := d.waitNotBusy(ctx, "option program", d.config.EraseTimeout); err != nil {
		return err
	}

	if err := d.writeReg(fmc.CR, fmc.CROptLock); err != nil {
		return err
	}
	if err := d.writeReg(fmc.CR, fmc.CRLock); err != nil {
		return err
	}

	d.logInfo("option bytes written; a reset or power cycle is required for the new settings to take effect")
	return nil
}

// Options returns the decoded option bytes, refreshing them from the target.
func (d *Driver) Options(ctx context.Context) (fmc.OptionBytes, error) {
	if err := d.AutoProbe(ctx); err != nil {
		return fmc.OptionBytes{}, err
	}
	if err := d.readOptions(); err != nil {
		return fmc.OptionBytes{}, err
	}
	return d.options, nil
}
