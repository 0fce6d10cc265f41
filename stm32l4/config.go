package stm32l4

import (
	"time"

	"github.com/moffa90/go-stm32l4/fmc"
)

// Config holds the driver configuration.
type Config struct {
	// Logger receives driver log output (optional)
	Logger Logger

	// ProgressCallback is called during erase and write operations (optional)
	ProgressCallback ProgressCallback

	// BankSize overrides the probed flash size in bytes; 0 means autodetect.
	// Used to work around devices with an invalid flash size register.
	BankSize uint32

	// BaseAddress is where the bank appears in the target address space
	BaseAddress uint32

	// EraseTimeout bounds each sector erase, the mass erase and the option
	// programming cycle
	EraseTimeout time.Duration

	// RingBufferSize is the initial target RAM scratch size requested for
	// streaming writes; the writer halves it until allocation succeeds
	RingBufferSize uint32
}

func defaultConfig() Config {
	return Config{
		BaseAddress:    fmc.BankBaseAddr,
		EraseTimeout:   10 * time.Second,
		RingBufferSize: 16 * 1024,
	}
}

// Option is a functional option for configuring the Driver.
type Option func(*Config)

// WithLogger sets a logger for driver operations.
//
// Example:
//
//	drv := stm32l4.New(tgt, stm32l4.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback to track erase and write progress.
//
// Example:
//
//	drv := stm32l4.New(tgt,
//	    stm32l4.WithProgressCallback(func(p stm32l4.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithBankSize overrides the probed flash size in bytes. When this is
// non-zero the probe sizes the bank and its sector table from it instead of
// the flash size register; the register value still drives the dual-bank
// geometry adjustment.
func WithBankSize(size uint32) Option {
	return func(c *Config) {
		c.BankSize = size
	}
}

// WithBaseAddress overrides the bank base address. Default is 0x08000000.
func WithBaseAddress(base uint32) Option {
	return func(c *Config) {
		c.BaseAddress = base
	}
}

// WithEraseTimeout overrides the 10 s erase/option-programming timeout.
func WithEraseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.EraseTimeout = timeout
		}
	}
}

// WithRingBufferSize sets the initial scratch ring size requested on the
// target for streaming writes. Default is 16 KiB.
func WithRingBufferSize(size uint32) Option {
	return func(c *Config) {
		if size > 0 {
			c.RingBufferSize = size
		}
	}
}
