package stm32l4

import (
	"context"
	"time"

	"github.com/moffa90/go-stm32l4/fmc"
)

// pollInterval is the sleep between SR reads while waiting for BSY.
const pollInterval = time.Millisecond

// readReg reads a flash controller register. Valid once a probe has matched
// the part and resolved the register base.
func (d *Driver) readReg(offset uint32) (uint32, error) {
	addr := d.regsBase + offset
	v, err := d.target.ReadU32(addr)
	if err != nil {
		return 0, &TransportError{Op: "read", Addr: addr, Err: err}
	}
	return v, nil
}

// writeReg writes a flash controller register.
func (d *Driver) writeReg(offset, value uint32) error {
	addr := d.regsBase + offset
	if err := d.target.WriteU32(addr, value); err != nil {
		return &TransportError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

// waitNotBusy polls SR until BSY clears or the deadline passes, then latches
// and clears any error bits. The caller must have issued the
// operation-starting CR write before calling.
func (d *Driver) waitNotBusy(ctx context.Context, op string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var status fmc.Status
	for {
		raw, err := d.readReg(fmc.SR)
		if err != nil {
			d.logError("status poll failed", "op", op, "err", err)
			return err
		}
		status = fmc.Status(raw)
		if !status.Busy() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			d.logError("flash controller busy timeout", "op", op, "timeout", timeout)
			return &TimeoutError{Op: op, Timeout: timeout}
		}
		time.Sleep(pollInterval)
	}

	errs := status.Errors()
	if errs == 0 {
		return nil
	}

	// Write-one-to-clear so the next operation starts clean. A failure here
	// is ignored in favour of reporting the controller error itself.
	_ = d.writeReg(fmc.SR, uint32(errs))

	if status.WriteProtected() {
		d.logError("write protection error", "op", op, "status", errs)
		return &WriteProtectedError{Status: errs}
	}
	d.logError("flash controller error", "op", op, "status", errs)
	return &ControllerError{Status: errs}
}

// unlockCR drops the main register lock with the two-key sequence.
// Idempotent: returns immediately when CR is already unlocked. The two key
// writes must be adjacent; the controller re-locks on any intervening
// register write.
func (d *Driver) unlockCR() error {
	ctrl, err := d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	if ctrl&fmc.CRLock == 0 {
		return nil
	}

	if err := d.writeReg(fmc.KEYR, fmc.Key1); err != nil {
		return err
	}
	if err := d.writeReg(fmc.KEYR, fmc.Key2); err != nil {
		return err
	}

	ctrl, err = d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	if ctrl&fmc.CRLock != 0 {
		d.logError("flash not unlocked", "cr", ctrl)
		return &UnlockError{Register: "CR", Control: ctrl}
	}
	return nil
}

// unlockOptCR drops the option register lock. Idempotent like unlockCR.
func (d *Driver) unlockOptCR() error {
	ctrl, err := d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	if ctrl&fmc.CROptLock == 0 {
		return nil
	}

	if err := d.writeReg(fmc.OPTKEYR, fmc.OptKey1); err != nil {
		return err
	}
	if err := d.writeReg(fmc.OPTKEYR, fmc.OptKey2); err != nil {
		return err
	}

	ctrl, err = d.readReg(fmc.CR)
	if err != nil {
		return err
	}
	if ctrl&fmc.CROptLock != 0 {
		d.logError("options not unlocked", "cr", ctrl)
		return &UnlockError{Register: "OPTCR", Control: ctrl}
	}
	return nil
}
