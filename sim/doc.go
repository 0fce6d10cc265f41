// Package sim provides a simulated STM32L4 debug target.
//
// The Device implements target.Target over an in-memory model of the
// relevant silicon: the DBGMCU ID-code register, the factory flash-size
// halfword, the flash controller registers with their key-sequence lock
// state machine, a flash array, a RAM region with a working-area allocator,
// and the asynchronous flash-algorithm runner.
//
// It exists for two consumers: the driver test suite and the CLI rehearsal
// mode. It is not cycle accurate; operations complete
// before the next status read unless a fault knob says otherwise.
//
// Example:
//
//	dev := sim.New(sim.Config{IDCode: 0x10071415, FlashKB: 1024})
//	drv := stm32l4.New(dev)
//	err := drv.Probe(context.Background())
package sim
