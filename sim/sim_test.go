package sim

import (
	"testing"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/target"
)

var _ target.Target = (*Device)(nil)

func newDev() *Device {
	return New(Config{IDCode: 0x10070415, FlashKB: 1024})
}

func TestLocksAfterReset(t *testing.T) {
	d := newDev()
	if d.CR()&fmc.CRLock == 0 || d.CR()&fmc.CROptLock == 0 {
		t.Fatalf("CR = 0x%08X, want LOCK and OPTLOCK set", d.CR())
	}
}

func TestKeySequenceUnlocks(t *testing.T) {
	d := newDev()
	keyr := d.RegsBase + fmc.KEYR

	if err := d.WriteU32(keyr, fmc.Key1); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteU32(keyr, fmc.Key2); err != nil {
		t.Fatal(err)
	}
	if d.CR()&fmc.CRLock != 0 {
		t.Error("LOCK still set after key sequence")
	}
	if d.CR()&fmc.CROptLock == 0 {
		t.Error("key sequence must not clear OPTLOCK")
	}
}

func TestInterveningWriteAbortsKeySequence(t *testing.T) {
	d := newDev()
	keyr := d.RegsBase + fmc.KEYR

	if err := d.WriteU32(keyr, fmc.Key1); err != nil {
		t.Fatal(err)
	}
	// Any other register write aborts the sequence.
	if err := d.WriteU32(d.RegsBase+fmc.SR, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteU32(keyr, fmc.Key2); err != nil {
		t.Fatal(err)
	}
	if d.CR()&fmc.CRLock == 0 {
		t.Error("LOCK cleared despite broken key sequence")
	}
}

func TestCRWritesIgnoredWhileLocked(t *testing.T) {
	d := newDev()
	if err := d.WriteU32(d.RegsBase+fmc.CR, fmc.CRMassErase1|fmc.CRStart); err != nil {
		t.Fatal(err)
	}
	if len(d.CRWrites) != 0 {
		t.Error("CR write accepted while locked")
	}
	for _, b := range d.Flash[:16] {
		if b != 0xFF {
			t.Fatal("flash modified while locked")
		}
	}
}

func TestLockBitsStickOnCRWrite(t *testing.T) {
	d := newDev()
	keyr := d.RegsBase + fmc.KEYR
	d.WriteU32(keyr, fmc.Key1)
	d.WriteU32(keyr, fmc.Key2)

	// Writing CR with the OPTLOCK bit clear must not unlock the options.
	if err := d.WriteU32(d.RegsBase+fmc.CR, 0); err != nil {
		t.Fatal(err)
	}
	if d.CR()&fmc.CROptLock == 0 {
		t.Error("OPTLOCK cleared by plain CR write")
	}

	// Setting LOCK by software works.
	if err := d.WriteU32(d.RegsBase+fmc.CR, fmc.CRLock); err != nil {
		t.Fatal(err)
	}
	if d.CR()&fmc.CRLock == 0 {
		t.Error("LOCK not settable by software")
	}
}

func TestStatusWriteOneToClear(t *testing.T) {
	d := newDev()
	d.StickyBusy = false

	keyr := d.RegsBase + fmc.KEYR
	d.WriteU32(keyr, fmc.Key1)
	d.WriteU32(keyr, fmc.Key2)

	// Latch WRPERR by erasing a protected sector.
	d.WriteU32(d.RegsBase+fmc.OPTKEYR, fmc.OptKey1)
	d.WriteU32(d.RegsBase+fmc.OPTKEYR, fmc.OptKey2)
	d.WriteU32(d.RegsBase+fmc.WRP1AR, fmc.WRPRange{Start: 0, End: 0}.Encode())
	d.WriteU32(d.RegsBase+fmc.CR, fmc.CRPageErase|fmc.SNB(0)|fmc.CRStart)

	if fmc.Status(d.SR())&fmc.StatusWRPERR == 0 {
		t.Fatal("WRPERR not latched")
	}
	if err := d.WriteU32(d.RegsBase+fmc.SR, uint32(fmc.StatusWRPERR)); err != nil {
		t.Fatal(err)
	}
	if fmc.Status(d.SR()).Errors() != 0 {
		t.Error("error bits survived write-one-to-clear")
	}
}
