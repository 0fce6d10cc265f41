package stm32l4

import (
	"context"
	"errors"
	"testing"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/sim"
)

func TestProbeFullDualBank(t *testing.T) {
	// 0x415 with the full 1 MiB populated: no hole between the banks.
	drv := New(device415())
	mustProbe(t, drv)

	geo := drv.Geometry()
	if geo.PageSize != 2048 {
		t.Errorf("PageSize = %d, want 2048", geo.PageSize)
	}
	if geo.FirstBankSectors != 256 || geo.HoleSectors != 0 {
		t.Errorf("bank split = %d/%d, want 256/0", geo.FirstBankSectors, geo.HoleSectors)
	}

	sectors := drv.Sectors()
	if len(sectors) != 512 {
		t.Fatalf("num sectors = %d, want 512", len(sectors))
	}
	if sectors[255].Offset != 0x7F800 {
		t.Errorf("sector 255 offset = 0x%X, want 0x7F800", sectors[255].Offset)
	}
	if sectors[256].Offset != 0x80000 {
		t.Errorf("sector 256 offset = 0x%X, want 0x80000", sectors[256].Offset)
	}

	// Contiguity and conservative initial state.
	var sum uint32
	for i, s := range sectors {
		sum += s.Size
		if i > 0 && s.Offset != sectors[i-1].Offset+sectors[i-1].Size {
			t.Fatalf("sector %d not contiguous", i)
		}
		if s.Erased != EraseUnknown {
			t.Fatalf("sector %d erase state = %v, want unknown", i, s.Erased)
		}
		if !s.Protected {
			t.Fatalf("sector %d not conservatively protected", i)
		}
	}
	if sum != drv.Size() {
		t.Errorf("sector sizes sum to 0x%X, bank size 0x%X", sum, drv.Size())
	}
	if drv.Base() != fmc.BankBaseAddr {
		t.Errorf("base = 0x%X, want 0x%X", drv.Base(), fmc.BankBaseAddr)
	}
}

func TestProbeUnderpopulatedDualBank(t *testing.T) {
	// 0x415 with only 512 KiB populated and DUALBANK set: the sector
	// numbering jumps a 128-sector hole between the banks.
	dev := sim.New(sim.Config{
		IDCode:           0x10070415,
		FlashKB:          512,
		FirstBankSectors: 128,
	})
	drv := New(dev)
	mustProbe(t, drv)

	geo := drv.Geometry()
	if geo.FirstBankSectors != 128 {
		t.Errorf("FirstBankSectors = %d, want 128", geo.FirstBankSectors)
	}
	if geo.HoleSectors != 128 {
		t.Errorf("HoleSectors = %d, want 128", geo.HoleSectors)
	}
	if n := len(drv.Sectors()); n != 256 {
		t.Errorf("num sectors = %d, want 256", n)
	}
}

func TestProbe470SingleBankMode(t *testing.T) {
	// 0x470 with DBANK cleared: page size doubles to 8 KiB.
	dev := sim.New(sim.Config{
		IDCode:  0x10000470,
		FlashKB: 2048,
		OPTR:    0xFFEFF8AA &^ fmc.OptDBank,
	})
	drv := New(dev)
	mustProbe(t, drv)

	if ps := drv.Geometry().PageSize; ps != 8192 {
		t.Errorf("PageSize = %d, want 8192", ps)
	}
	if n := len(drv.Sectors()); n != 256 {
		t.Errorf("num sectors = %d, want 256", n)
	}
}

func TestProbe470DualBankMode(t *testing.T) {
	dev := sim.New(sim.Config{
		IDCode:  0x10000470,
		FlashKB: 2048,
	})
	drv := New(dev)
	mustProbe(t, drv)

	if ps := drv.Geometry().PageSize; ps != 4096 {
		t.Errorf("PageSize = %d, want 4096", ps)
	}
	if n := len(drv.Sectors()); n != 512 {
		t.Errorf("num sectors = %d, want 512", n)
	}
}

func TestProbeFlashSizeFallback(t *testing.T) {
	tests := []struct {
		name    string
		flashKB uint16
	}{
		{name: "zero size register", flashKB: 0},
		{name: "size exceeds maximum", flashKB: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := sim.New(sim.Config{
				IDCode:     0x10070415,
				FlashKB:    tt.flashKB,
				FlashBytes: 1024 * 1024,
			})
			logger := &testLogger{}
			drv := New(dev, WithLogger(logger))
			mustProbe(t, drv)

			if drv.Size() != 1024*1024 {
				t.Errorf("size = %d, want max 1 MiB", drv.Size())
			}
			if !logger.has("warn", "assuming maximum") {
				t.Error("no warning logged for inaccurate flash size probe")
			}
		})
	}
}

func TestProbeUserOverrideSize(t *testing.T) {
	drv := New(device415(), WithBankSize(256*1024))
	mustProbe(t, drv)

	if drv.Size() != 256*1024 {
		t.Errorf("size = %d, want 256 KiB override", drv.Size())
	}
	if n := len(drv.Sectors()); n != 128 {
		t.Errorf("num sectors = %d, want 128", n)
	}
}

func TestProbeUnsupportedPart(t *testing.T) {
	dev := device415()
	dev.IDCode = 0x20000999
	drv := New(dev)

	err := drv.Probe(context.Background())
	var upe *UnsupportedPartError
	if !errors.As(err, &upe) {
		t.Fatalf("error = %v, want UnsupportedPartError", err)
	}
	if upe.IDCode != 0x20000999 {
		t.Errorf("IDCode = 0x%08X, want 0x20000999", upe.IDCode)
	}
	if drv.Probed() {
		t.Error("driver marked probed after failure")
	}
}

func TestAutoProbe(t *testing.T) {
	dev := device415()
	drv := New(dev)

	if err := drv.AutoProbe(context.Background()); err != nil {
		t.Fatalf("first auto probe: %v", err)
	}
	size := drv.Size()

	// A second auto probe must not re-read the target.
	dev.FlashKB = 256
	if err := drv.AutoProbe(context.Background()); err != nil {
		t.Fatalf("second auto probe: %v", err)
	}
	if drv.Size() != size {
		t.Error("auto probe re-probed an already probed bank")
	}

	// An explicit probe does.
	mustProbe(t, drv)
	if drv.Size() != 256*1024 {
		t.Errorf("explicit re-probe kept stale size %d", drv.Size())
	}
}
