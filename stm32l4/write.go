package stm32l4

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/target"
)

// flashWordSize is the programming granularity: each flash word is 64 bits,
// ECC secured, and can be written exactly once after an erase.
const flashWordSize = 8

// minRingSize is the smallest scratch ring the writer accepts; allocation
// attempts halve from the configured size and give up at this bound.
const minRingSize = 256

// Write programs data into the bank at the given offset using the on-target
// streaming stub.
//
// The offset must be 8-byte aligned. When len(data) is not a multiple of 8
// the payload is padded with 0xFF up to the next flash word: the pad cannot
// be rewritten later without an erase, because the first write programs the
// word's ECC bits.
func (d *Driver) Write(ctx context.Context, data []byte, offset uint32) error {
	if err := d.requireHalted(); err != nil {
		return err
	}
	if err := d.AutoProbe(ctx); err != nil {
		return err
	}

	if offset%flashWordSize != 0 {
		d.logWarn("write offset breaks required 8-byte alignment",
			"offset", fmt.Sprintf("0x%08X", offset))
		return &AlignmentError{Offset: offset}
	}

	if rem := len(data) % flashWordSize; rem != 0 {
		pad := flashWordSize - rem
		d.logWarn("padding write up to an 8-byte flash word", "pad_bytes", pad)
		padded := make([]byte, len(data)+pad)
		copy(padded, data)
		for i := len(data); i < len(padded); i++ {
			padded[i] = 0xFF
		}
		data = padded
	}

	if uint32(len(data)) > d.size || offset > d.size-uint32(len(data)) {
		return fmt.Errorf("write of %d bytes at offset 0x%X exceeds bank size 0x%X",
			len(data), offset, d.size)
	}

	if err := d.unlockCR(); err != nil {
		return err
	}

	err := d.writeBlock(ctx, data, offset)
	if err != nil && !errors.Is(err, ErrNoWorkingArea) {
		// The streaming run died mid-operation; restoring the lock here
		// could mask the failure, so the controller is left unlocked.
		d.logError("block write failed, target flash left unlocked", "err", err)
		return err
	}

	if lockErr := d.writeReg(fmc.CR, fmc.CRLock); lockErr != nil {
		return lockErr
	}
	return err
}

// writeBlock uploads the stub, allocates the scratch ring and runs the
// host's asynchronous flash-algorithm runner against it. Both working areas
// are released on every exit path.
func (d *Driver) writeBlock(ctx context.Context, data []byte, offset uint32) error {
	words := uint32(len(data)) / flashWordSize

	code, err := d.target.AllocWorkingArea(uint32(len(flashWriteStub)))
	if err != nil {
		d.logWarn("no working area available, can't do block memory writes")
		return ErrNoWorkingArea
	}
	defer d.target.FreeWorkingArea(code)

	if err := d.target.WriteBuffer(code.Address, flashWriteStub); err != nil {
		return &TransportError{Op: "write", Addr: code.Address, Err: err}
	}

	ringSize := d.config.RingBufferSize
	var ring *target.WorkingArea
	for {
		ring, err = d.target.AllocWorkingAreaTry(ringSize)
		if err == nil {
			break
		}
		ringSize /= 2
		if ringSize <= minRingSize {
			d.logWarn("no large enough working area available, can't do block memory writes")
			return ErrNoWorkingArea
		}
	}
	defer d.target.FreeWorkingArea(ring)

	alg := &target.Algorithm{
		Payload:   data,
		Count:     int(words),
		BlockSize: flashWordSize,
		Regs: []target.RegParam{
			{Name: "r0", Value: ring.Address, Direction: target.ParamInOut}, // ring start, status out
			{Name: "r1", Value: ring.Address + ring.Size, Direction: target.ParamOut}, // ring end
			{Name: "r2", Value: d.base + offset, Direction: target.ParamOut}, // target address
			{Name: "r3", Value: words, Direction: target.ParamOut},           // 64-bit word count
			{Name: "r4", Value: d.regsBase, Direction: target.ParamOut},      // controller base
		},
		RingStart: ring.Address,
		RingSize:  ring.Size,
		Entry:     code.Address,
	}

	start := time.Now()
	d.reportProgress(Progress{
		Phase:        PhaseWriting,
		BytesWritten: len(data),
	})
	err = d.target.RunFlashAsync(alg)
	if err == nil {
		d.reportProgress(Progress{
			Phase:        PhaseComplete,
			Percentage:   100,
			BytesWritten: len(data),
			ElapsedTime:  time.Since(start),
		})
		return nil
	}

	if errors.Is(err, target.ErrFlashOpFailed) {
		d.logInfo("error executing flash write algorithm")

		status := fmc.Status(alg.Regs[0].Value).Errors()
		if status != 0 {
			// Clear the latched bits so the next operation starts clean.
			if werr := d.writeReg(fmc.SR, uint32(status)); werr != nil {
				d.logError("failed to clear flash status", "err", werr)
			}
			if status.WriteProtected() {
				d.logError("flash memory write protected")
				return &WriteProtectedError{Status: status}
			}
			d.logError("flash write failed", "status", status)
			return &ControllerError{Status: status}
		}
	}
	return err
}
