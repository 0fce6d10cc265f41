// Package stm32l4 programs the on-chip NOR flash of STM32L4 family devices
// over a debug link.
//
// # Overview
//
// The driver manipulates the flash controller registers of a halted target
// through the narrow target.Target interface, and streams bulk writes
// through a small machine-code stub it uploads to target RAM:
//   - probe the silicon ID and resolve the bank geometry, including the
//     option-bit-dependent dual-bank layouts
//   - erase sector ranges or the whole bank
//   - program 64-bit flash words via the asynchronous streaming stub
//   - read, plan and program write-protection zones and the other option
//     bytes (readout protection, watchdog selectors)
//
// # Basic usage
//
//	// The host framework provides the debug target (see package target).
//	drv := stm32l4.New(tgt)
//
//	ctx := context.Background()
//	if err := drv.Probe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := drv.Erase(ctx, 0, 3); err != nil {
//	    log.Fatal(err)
//	}
//	if err := drv.Write(ctx, firmware, 0); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress tracking and logging
//
//	drv := stm32l4.New(tgt,
//	    stm32l4.WithLogger(myLogger),
//	    stm32l4.WithProgressCallback(func(p stm32l4.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
//
// # Error handling
//
// Operations return typed errors: ErrNotHalted, ErrNoWorkingArea,
// TransportError, TimeoutError, UnlockError, AlignmentError,
// UnsupportedPartError, WriteProtectedError and ControllerError. Latched SR
// error bits are always cleared before an error is returned, so subsequent
// operations start clean.
//
// # Locking discipline
//
// Every operation that writes CR restores the LOCK bit on exit, with one
// exception: a sector erase or streaming write that dies mid-operation
// leaves the controller unlocked and logs that fact, so the failure stays
// observable to the operator.
//
// # Concurrency
//
// The driver is single threaded and synchronous. Operations block until
// they complete, fail, or the context is cancelled at the next status poll.
// Call it from the host framework's command goroutine only; the host
// serialises access to the debug link.
//
// Reading flash back and blank-checking are left to the host framework's
// generic memory reader; the driver only implements the controller-specific
// operations.
package stm32l4
