package stm32l4

import (
	"context"

	"github.com/moffa90/go-stm32l4/fmc"
)

// planWRP encodes a protect/unprotect request for the inclusive sector range
// [first, last] into the at-most-two-zones-per-bank WRP registers,
// overwriting the A zone of each touched bank and forcing the B zones empty.
// Zones outside the modified range are not merged; callers that need to
// preserve existing protections must read and combine them first.
func planWRP(opts *fmc.OptionBytes, set bool, first, last, firstBankSectors int) {
	empty := fmc.EmptyWRPRange()

	switch {
	// zone in first bank only
	case last < firstBankSectors:
		if set {
			opts.WRP1A = fmc.WRPRange{Start: uint8(first), End: uint8(last)}
		} else {
			opts.WRP1A = empty
		}
		opts.WRP1B = empty

	// zone in second bank only
	case first >= firstBankSectors:
		if set {
			opts.WRP2A = fmc.WRPRange{
				Start: uint8(first - firstBankSectors),
				End:   uint8(last - firstBankSectors),
			}
		} else {
			opts.WRP2A = empty
		}
		opts.WRP2B = empty

	// zone spread over the two banks
	default:
		if set {
			opts.WRP1A = fmc.WRPRange{Start: uint8(first), End: uint8(firstBankSectors - 1)}
			opts.WRP2A = fmc.WRPRange{Start: 0, End: uint8(last - firstBankSectors)}
		} else {
			opts.WRP1A = empty
			opts.WRP2A = empty
		}
		opts.WRP1B = empty
		opts.WRP2B = empty
	}
}

// Protect sets or clears write protection on the inclusive sector range
// [first, last] by rewriting the WRP zones and programming the option bytes.
// The encoding overwrites prior zones of the touched banks (see planWRP).
// The new protection takes effect after a target reset.
func (d *Driver) Protect(ctx context.Context, set bool, first, last int) error {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}
	if err := d.checkSectorRange(first, last); err != nil {
		return err
	}

	if err := d.readOptions(); err != nil {
		d.logDebug("unable to read option bytes")
		return err
	}

	for i := first; i <= last; i++ {
		d.sectors[i].Protected = set
	}

	planWRP(&d.options, set, first, last, d.geo.FirstBankSectors)

	return d.writeOptions(ctx)
}

// ProtectCheck refreshes the per-sector protection flags from the WRP zones
// currently programmed in the option registers.
func (d *Driver) ProtectCheck(ctx context.Context) error {
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}
	if err := d.readOptions(); err != nil {
		d.logDebug("unable to read option bytes")
		return err
	}

	for i := range d.sectors {
		if i < d.geo.FirstBankSectors {
			d.sectors[i].Protected = d.options.WRP1A.Contains(i) ||
				d.options.WRP1B.Contains(i)
		} else {
			j := i - d.geo.FirstBankSectors
			d.sectors[i].Protected = d.options.WRP2A.Contains(j) ||
				d.options.WRP2B.Contains(j)
		}
	}
	return nil
}
