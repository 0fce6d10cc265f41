package stm32l4

import (
	"context"
	"testing"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/sim"
)

func TestOptionsRead(t *testing.T) {
	dev := device415()
	drv := New(dev)

	opts, err := drv.Options(context.Background())
	if err != nil {
		t.Fatalf("options read failed: %v", err)
	}
	if opts.RDP != fmc.RDPNone {
		t.Errorf("RDP = 0x%02X, want 0xAA", opts.RDP)
	}
	for _, r := range []fmc.WRPRange{opts.WRP1A, opts.WRP1B, opts.WRP2A, opts.WRP2B} {
		if !r.Empty() {
			t.Errorf("factory WRP range not empty: %+v", r)
		}
	}
}

func TestOptionsRDPNotice(t *testing.T) {
	dev := sim.New(sim.Config{
		IDCode:  0x10070415,
		FlashKB: 1024,
		OPTR:    0xFFEFF800 | 0xBB, // RDP level 1
	})
	logger := &testLogger{}
	drv := New(dev, WithLogger(logger))

	opts, err := drv.Options(context.Background())
	if err != nil {
		t.Fatalf("options read failed: %v", err)
	}
	if opts.RDP != 0xBB {
		t.Errorf("RDP = 0x%02X, want 0xBB", opts.RDP)
	}
	if !logger.has("info", "readout protection") {
		t.Error("no notice logged for raised RDP level")
	}
}

func TestWatchdogToggles(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		toggle func(*Driver, bool) error
		bit    uint32
	}{
		{
			name:   "window watchdog soft selection",
			toggle: func(d *Driver, on bool) error { return d.SetWindowWatchdogSoft(ctx, on) },
			bit:    fmc.OptWWDGSoft,
		},
		{
			name:   "independent watchdog soft selection",
			toggle: func(d *Driver, on bool) error { return d.SetIndependentWatchdogSoft(ctx, on) },
			bit:    fmc.OptIWDGSoft,
		},
		{
			name:   "independent watchdog standby",
			toggle: func(d *Driver, on bool) error { return d.SetIndependentWatchdogStandby(ctx, on) },
			bit:    fmc.OptIWDGStandby,
		},
		{
			name:   "independent watchdog stop",
			toggle: func(d *Driver, on bool) error { return d.SetIndependentWatchdogStop(ctx, on) },
			bit:    fmc.OptIWDGStop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := device415()
			drv := New(dev)

			if err := tt.toggle(drv, false); err != nil {
				t.Fatalf("disable failed: %v", err)
			}
			if dev.OPTR()&tt.bit != 0 {
				t.Errorf("OPTR bit 0x%08X still set after disable", tt.bit)
			}

			if err := tt.toggle(drv, true); err != nil {
				t.Fatalf("enable failed: %v", err)
			}
			if dev.OPTR()&tt.bit == 0 {
				t.Errorf("OPTR bit 0x%08X clear after enable", tt.bit)
			}

			if dev.CR()&fmc.CRLock == 0 || dev.CR()&fmc.CROptLock == 0 {
				t.Error("locks not restored after option write")
			}
		})
	}
}

func TestOptionsWriteRoundTrip(t *testing.T) {
	dev := device415()
	drv := New(dev)

	if err := drv.SetIndependentWatchdogStop(context.Background(), false); err != nil {
		t.Fatalf("option write failed: %v", err)
	}

	opts, err := drv.Options(context.Background())
	if err != nil {
		t.Fatalf("options read failed: %v", err)
	}
	if opts.IndependentWatchdogStop {
		t.Error("written option did not read back")
	}
	if opts.RDP != fmc.RDPNone {
		t.Errorf("RDP changed by watchdog toggle: 0x%02X", opts.RDP)
	}
}

func TestOptionsResetNotice(t *testing.T) {
	dev := device415()
	logger := &testLogger{}
	drv := New(dev, WithLogger(logger))

	if err := drv.SetWindowWatchdogSoft(context.Background(), true); err != nil {
		t.Fatalf("option write failed: %v", err)
	}
	if !logger.has("info", "reset or power cycle") {
		t.Error("reset-required notice not logged after option write")
	}
}

func TestLockSetsRDP(t *testing.T) {
	dev := device415()
	drv := New(dev)

	if err := drv.Lock(context.Background()); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if rdp := dev.OPTR() & 0xFF; rdp != 0x00 {
		t.Errorf("RDP = 0x%02X after lock, want 0x00", rdp)
	}
}

func TestUnlockClearsRDP(t *testing.T) {
	dev := sim.New(sim.Config{
		IDCode:  0x10070415,
		FlashKB: 1024,
		OPTR:    0xFFEFF800 | 0xBB,
	})
	drv := New(dev)

	if err := drv.Unlock(context.Background()); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if rdp := dev.OPTR() & 0xFF; rdp != uint32(fmc.RDPNone) {
		t.Errorf("RDP = 0x%02X after unlock, want 0xAA", rdp)
	}
}

func TestOptionCommandsRequireHalted(t *testing.T) {
	ctx := context.Background()
	cmds := map[string]func(*Driver) error{
		"lock":     func(d *Driver) error { return d.Lock(ctx) },
		"unlock":   func(d *Driver) error { return d.Unlock(ctx) },
		"wwdg":     func(d *Driver) error { return d.SetWindowWatchdogSoft(ctx, true) },
		"iwdg":     func(d *Driver) error { return d.SetIndependentWatchdogSoft(ctx, true) },
		"standby":  func(d *Driver) error { return d.SetIndependentWatchdogStandby(ctx, true) },
		"stop":     func(d *Driver) error { return d.SetIndependentWatchdogStop(ctx, true) },
		"mass":     func(d *Driver) error { return d.MassErase(ctx) },
	}

	for name, cmd := range cmds {
		t.Run(name, func(t *testing.T) {
			dev := device415()
			dev.Halted = false
			if err := cmd(New(dev)); err != ErrNotHalted {
				t.Errorf("error = %v, want ErrNotHalted", err)
			}
		})
	}
}
