package stm32l4

import (
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-stm32l4/fmc"
)

// ErrNotHalted indicates an operation was attempted on a running target.
var ErrNotHalted = errors.New("target not halted")

// ErrNoWorkingArea indicates the host refused to allocate target RAM for the
// streaming writer. The host may fall back to a non-accelerated write path.
var ErrNoWorkingArea = errors.New("no working area available")

// TransportError indicates the underlying debug link failed during a memory
// access. It wraps the link error unchanged.
type TransportError struct {
	Op   string // "read" or "write"
	Addr uint32
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s at 0x%08X: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates BSY failed to clear within the operation's
// deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: flash controller busy after %s", e.Op, e.Timeout)
}

// UnlockError indicates a key sequence did not clear the lock bit.
type UnlockError struct {
	Register string // "CR" or "OPTCR"
	Control  uint32 // CR value observed after the key writes
}

func (e *UnlockError) Error() string {
	return fmt.Sprintf("flash %s not unlocked, CR=0x%08X", e.Register, e.Control)
}

// AlignmentError indicates a write offset that is not a multiple of the
// 8-byte flash word.
type AlignmentError struct {
	Offset uint32
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("offset 0x%08X breaks required 8-byte alignment", e.Offset)
}

// UnsupportedPartError indicates the probed device ID is not in the part
// registry.
type UnsupportedPartError struct {
	IDCode uint32
}

func (e *UnsupportedPartError) Error() string {
	return fmt.Sprintf("cannot identify device id 0x%08X as an STM32L4xx family member", e.IDCode)
}

// WriteProtectedError indicates WRPERR latched during an operation. The
// latched bits were cleared in the controller before the error was returned.
type WriteProtectedError struct {
	Status fmc.Status
}

func (e *WriteProtectedError) Error() string {
	return fmt.Sprintf("flash memory write protected: %s", e.Status)
}

// ControllerError indicates SR error bits other than WRPERR latched during
// an operation. The latched bits were cleared in the controller before the
// error was returned.
type ControllerError struct {
	Status fmc.Status
}

func (e *ControllerError) Error() string {
	return fmt.Sprintf("flash controller error: %s", e.Status)
}
