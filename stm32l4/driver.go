package stm32l4

import (
	"context"
	"fmt"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/target"
)

// EraseState is the tri-state erase knowledge about a sector.
type EraseState int

const (
	EraseUnknown EraseState = iota
	EraseYes
	EraseNo
)

// Sector describes one flash sector of a probed bank.
type Sector struct {
	Offset uint32
	Size   uint32

	// Erased is updated by successful erase operations
	Erased EraseState

	// Protected is conservatively true after probe until ProtectCheck runs
	Protected bool
}

// Geometry is the per-bank resolved geometry: a copy of the part registry
// values with the option-bit-dependent adjustments applied by Probe. It is
// owned by the driver; the registry entry is never mutated.
type Geometry struct {
	PageSize         uint32
	FirstBankSectors int
	HoleSectors      int
	DualBank         bool
}

// Driver programs the on-chip flash of an STM32L4 family device through a
// host debug target. It is strictly single threaded: call it from the host
// framework's command goroutine only.
type Driver struct {
	target target.Target
	config Config

	probed   bool
	idcode   uint32
	part     *PartInfo
	regsBase uint32
	geo      Geometry
	base     uint32
	size     uint32
	sectors  []Sector
	options  fmc.OptionBytes
}

// New creates a Driver bound to the given debug target.
//
// Example:
//
//	drv := stm32l4.New(tgt,
//	    stm32l4.WithLogger(myLogger),
//	    stm32l4.WithBankSize(512*1024),
//	)
func New(t target.Target, opts ...Option) *Driver {
	if t == nil {
		panic("target cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Driver{
		target: t,
		config: cfg,
	}
}

// Probed reports whether the bank geometry has been resolved.
func (d *Driver) Probed() bool {
	return d.probed
}

// IDCode returns the raw ID-code register value read by the last probe.
func (d *Driver) IDCode() uint32 {
	return d.idcode
}

// Part returns the registry entry matched by the last probe, nil before.
func (d *Driver) Part() *PartInfo {
	return d.part
}

// Geometry returns the resolved bank geometry. Valid after probe.
func (d *Driver) Geometry() Geometry {
	return d.geo
}

// Base returns the bank base address.
func (d *Driver) Base() uint32 {
	return d.base
}

// Size returns the bank size in bytes. Valid after probe.
func (d *Driver) Size() uint32 {
	return d.size
}

// Sectors returns a copy of the sector table. Valid after probe.
func (d *Driver) Sectors() []Sector {
	out := make([]Sector, len(d.sectors))
	copy(out, d.sectors)
	return out
}

// Info returns a human-readable part description with the revision decoded
// from the top 16 bits of the ID-code, probing first if necessary.
func (d *Driver) Info(ctx context.Context) (string, error) {
	if err := d.AutoProbe(ctx); err != nil {
		return "", err
	}

	rev := uint16(d.idcode >> 16)
	if name := d.part.revName(rev); name != "" {
		return fmt.Sprintf("%s - Rev: %s", d.part.Name, name), nil
	}
	return fmt.Sprintf("%s - Rev: unknown (0x%04x)", d.part.Name, rev), nil
}

// requireHalted rejects operations on a running target.
func (d *Driver) requireHalted() error {
	if d.target.State() != target.StateHalted {
		return ErrNotHalted
	}
	return nil
}

// checkSectorRange validates an inclusive sector range against the probed
// sector table.
func (d *Driver) checkSectorRange(first, last int) error {
	if first < 0 || last < first || last >= len(d.sectors) {
		return fmt.Errorf("sector range %d..%d invalid for bank with %d sectors",
			first, last, len(d.sectors))
	}
	return nil
}

func (d *Driver) reportProgress(p Progress) {
	if d.config.ProgressCallback != nil {
		d.config.ProgressCallback(p)
	}
}

func (d *Driver) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (d *Driver) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

func (d *Driver) logWarn(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Warn(msg, keysAndValues...)
	}
}

func (d *Driver) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
