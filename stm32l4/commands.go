package stm32l4

import (
	"context"

	"github.com/moffa90/go-stm32l4/fmc"
)

// Lock raises the readout protection to Level 1 by programming RDP=0x00.
// The device locks on the next reset or power cycle.
func (d *Driver) Lock(ctx context.Context) error {
	return d.updateOptions(ctx, func(o *fmc.OptionBytes) {
		o.RDP = 0
	})
}

// Unlock clears the readout protection by programming RDP=0xAA. This forces
// a full device unlock, including any latent protection, and takes effect
// after the next reset or power cycle.
func (d *Driver) Unlock(ctx context.Context) error {
	return d.updateOptions(ctx, func(o *fmc.OptionBytes) {
		o.RDP = fmc.RDPNone
	})
}

// SetWindowWatchdogSoft selects the software window watchdog (WWWG_SW).
func (d *Driver) SetWindowWatchdogSoft(ctx context.Context, enable bool) error {
	return d.updateOptionsUnlocked(ctx, func(o *fmc.OptionBytes) {
		o.WindowWatchdogSoft = enable
	})
}

// SetIndependentWatchdogSoft selects the software independent watchdog
// (IDWG_SW).
func (d *Driver) SetIndependentWatchdogSoft(ctx context.Context, enable bool) error {
	return d.updateOptionsUnlocked(ctx, func(o *fmc.OptionBytes) {
		o.IndependentWatchdogSoft = enable
	})
}

// SetIndependentWatchdogStandby freezes the independent watchdog counter in
// Standby mode (IWDG_STDBY).
func (d *Driver) SetIndependentWatchdogStandby(ctx context.Context, enable bool) error {
	return d.updateOptionsUnlocked(ctx, func(o *fmc.OptionBytes) {
		o.IndependentWatchdogStandby = enable
	})
}

// SetIndependentWatchdogStop freezes the independent watchdog counter in
// Stop mode (IWDG_STOP).
func (d *Driver) SetIndependentWatchdogStop(ctx context.Context, enable bool) error {
	return d.updateOptionsUnlocked(ctx, func(o *fmc.OptionBytes) {
		o.IndependentWatchdogStop = enable
	})
}

// updateOptions is the read-modify-write cycle behind Lock and Unlock.
func (d *Driver) updateOptions(ctx context.Context, mutate func(*fmc.OptionBytes)) error {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}
	if err := d.readOptions(); err != nil {
		return err
	}
	mutate(&d.options)
	return d.writeOptions(ctx)
}

// updateOptionsUnlocked is the cycle behind the watchdog toggles, which drop
// both locks before reading the current options.
func (d *Driver) updateOptionsUnlocked(ctx context.Context, mutate func(*fmc.OptionBytes)) error {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}
	if err := d.unlockCR(); err != nil {
		return err
	}
	if err := d.unlockOptCR(); err != nil {
		return err
	}
	if err := d.readOptions(); err != nil {
		d.logDebug("unable to read option bytes")
		return err
	}
	mutate(&d.options)
	return d.writeOptions(ctx)
}
