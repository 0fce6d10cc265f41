package sim

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/moffa90/go-stm32l4/fmc"
	"github.com/moffa90/go-stm32l4/target"
)

// defaultOPTR is the factory option word: RDP level 0, most user option bits
// set (including DUALBANK and DBANK; bits 8-10 and 20 clear).
const defaultOPTR = 0xFFEFF8AA

// Config selects the silicon the Device models.
type Config struct {
	// IDCode is the DBGMCU ID-code value (part id in the low 12 bits,
	// revision in the high 16)
	IDCode uint32

	// FlashKB is the value of the factory flash-size halfword
	FlashKB uint16

	// FlashBytes sizes the backing flash array; 0 means FlashKB*1024
	FlashBytes uint32

	// OPTR is the initial option word; 0 means the factory default
	OPTR uint32

	// SectorSize is the erase granularity; 0 means 2048
	SectorSize uint32

	// FirstBankSectors is where bank 2 starts in the sector numbering;
	// 0 means 256
	FirstBankSectors int

	// RAMSize is the working RAM size; 0 means 96 KiB
	RAMSize uint32
}

// Device is a simulated STM32L4 target. The zero value is not usable; build
// one with New. Fields are exported where tests need to inspect or perturb
// the model.
type Device struct {
	IDCode           uint32
	FlashKB          uint16
	SectorSize       uint32
	FirstBankSectors int

	RegsBase  uint32
	FSizeAddr uint32
	FlashBase uint32
	RAMBase   uint32

	// Flash is the flash array; erased bytes read 0xFF
	Flash []byte

	// RAM backs stub uploads and working areas
	RAM []byte

	// Halted feeds State; true after New
	Halted bool

	// Fault knobs.
	ReadFault        func(addr uint32) error // consulted before every read
	WriteFault       func(addr uint32) error // consulted before every write
	StickyBusy       bool                    // SR reads always report BSY
	DropKeys         bool                    // key sequences never unlock
	WorkingAreaLimit uint32                  // cap on outstanding working RAM; 0 = len(RAM)

	// CRWrites records every accepted CR write, oldest first.
	CRWrites []uint32

	// AllocSizes records every working-area request, including refused ones.
	AllocSizes []uint32

	// LastAlgorithm is the most recent RunFlashAsync argument.
	LastAlgorithm *target.Algorithm

	cr          uint32
	sr          uint32
	optr        uint32
	wrp         [4]uint32 // 1A, 1B, 2A, 2B
	keyStage    int
	optKeyStage int

	allocTop  uint32
	allocLive int
}

// New builds a halted Device with locked flash registers and a blank
// (all-0xFF) flash array.
func New(cfg Config) *Device {
	if cfg.SectorSize == 0 {
		cfg.SectorSize = 2048
	}
	if cfg.FirstBankSectors == 0 {
		cfg.FirstBankSectors = 256
	}
	if cfg.RAMSize == 0 {
		cfg.RAMSize = 96 * 1024
	}
	if cfg.OPTR == 0 {
		cfg.OPTR = defaultOPTR
	}
	flashBytes := cfg.FlashBytes
	if flashBytes == 0 {
		flashBytes = uint32(cfg.FlashKB) * 1024
	}

	d := &Device{
		IDCode:           cfg.IDCode,
		FlashKB:          cfg.FlashKB,
		SectorSize:       cfg.SectorSize,
		FirstBankSectors: cfg.FirstBankSectors,
		RegsBase:         0x40022000,
		FSizeAddr:        0x1FFF75E0,
		FlashBase:        0x08000000,
		RAMBase:          0x20000000,
		Flash:            make([]byte, flashBytes),
		RAM:              make([]byte, cfg.RAMSize),
		Halted:           true,
		cr:               fmc.CRLock | fmc.CROptLock,
		optr:             cfg.OPTR,
	}
	for i := range d.Flash {
		d.Flash[i] = 0xFF
	}
	empty := fmc.EmptyWRPRange().Encode()
	for i := range d.wrp {
		d.wrp[i] = empty
	}
	return d
}

// CR returns the current control register value.
func (d *Device) CR() uint32 { return d.cr }

// SR returns the current status register value.
func (d *Device) SR() uint32 { return d.sr }

// OPTR returns the current option register value.
func (d *Device) OPTR() uint32 { return d.optr }

// WRP returns the current WRP1AR, WRP1BR, WRP2AR, WRP2BR values.
func (d *Device) WRP() [4]uint32 { return d.wrp }

func (d *Device) State() target.State {
	if d.Halted {
		return target.StateHalted
	}
	return target.StateRunning
}

func (d *Device) inRegs(addr uint32) bool {
	return addr >= d.RegsBase && addr < d.RegsBase+0x54
}

func (d *Device) inRAM(addr uint32) bool {
	return addr >= d.RAMBase && addr < d.RAMBase+uint32(len(d.RAM))
}

func (d *Device) inFlash(addr uint32) bool {
	return addr >= d.FlashBase && addr < d.FlashBase+uint32(len(d.Flash))
}

func (d *Device) ReadU16(addr uint32) (uint16, error) {
	if d.ReadFault != nil {
		if err := d.ReadFault(addr); err != nil {
			return 0, err
		}
	}
	switch {
	case addr == d.FSizeAddr:
		return d.FlashKB, nil
	case d.inRAM(addr):
		return binary.LittleEndian.Uint16(d.RAM[addr-d.RAMBase:]), nil
	case d.inFlash(addr):
		return binary.LittleEndian.Uint16(d.Flash[addr-d.FlashBase:]), nil
	}
	return 0, fmt.Errorf("sim: unmapped 16-bit read at 0x%08X", addr)
}

func (d *Device) ReadU32(addr uint32) (uint32, error) {
	if d.ReadFault != nil {
		if err := d.ReadFault(addr); err != nil {
			return 0, err
		}
	}
	switch {
	case addr == fmc.DeviceIDAddr:
		return d.IDCode, nil
	case d.inRegs(addr):
		return d.readReg(addr - d.RegsBase), nil
	case d.inRAM(addr):
		return binary.LittleEndian.Uint32(d.RAM[addr-d.RAMBase:]), nil
	case d.inFlash(addr):
		return binary.LittleEndian.Uint32(d.Flash[addr-d.FlashBase:]), nil
	}
	return 0, fmt.Errorf("sim: unmapped 32-bit read at 0x%08X", addr)
}

func (d *Device) readReg(offset uint32) uint32 {
	switch offset {
	case fmc.SR:
		s := d.sr
		if d.StickyBusy {
			s |= uint32(fmc.StatusBusy)
		}
		return s
	case fmc.CR:
		return d.cr
	case fmc.OPTR:
		return d.optr
	case fmc.WRP1AR:
		return d.wrp[0]
	case fmc.WRP1BR:
		return d.wrp[1]
	case fmc.WRP2AR:
		return d.wrp[2]
	case fmc.WRP2BR:
		return d.wrp[3]
	}
	return 0
}

func (d *Device) WriteU32(addr, value uint32) error {
	if d.WriteFault != nil {
		if err := d.WriteFault(addr); err != nil {
			return err
		}
	}
	switch {
	case d.inRegs(addr):
		d.writeReg(addr-d.RegsBase, value)
		return nil
	case d.inRAM(addr):
		binary.LittleEndian.PutUint32(d.RAM[addr-d.RAMBase:], value)
		return nil
	}
	return fmt.Errorf("sim: unmapped 32-bit write at 0x%08X", addr)
}

func (d *Device) writeReg(offset, value uint32) {
	// The controller aborts a key sequence on any intervening write.
	if offset != fmc.KEYR {
		d.keyStage = 0
	}
	if offset != fmc.OPTKEYR {
		d.optKeyStage = 0
	}

	switch offset {
	case fmc.KEYR:
		if d.DropKeys {
			return
		}
		switch {
		case d.keyStage == 0 && value == fmc.Key1:
			d.keyStage = 1
		case d.keyStage == 1 && value == fmc.Key2:
			d.cr &^= fmc.CRLock
			d.keyStage = 0
		default:
			d.keyStage = 0
		}

	case fmc.OPTKEYR:
		if d.DropKeys {
			return
		}
		switch {
		case d.optKeyStage == 0 && value == fmc.OptKey1:
			d.optKeyStage = 1
		case d.optKeyStage == 1 && value == fmc.OptKey2:
			d.cr &^= fmc.CROptLock
			d.optKeyStage = 0
		default:
			d.optKeyStage = 0
		}

	case fmc.SR:
		// Error bits are write-one-to-clear.
		d.sr &^= value & uint32(fmc.ErrorMask)

	case fmc.OPTR:
		if d.cr&fmc.CROptLock == 0 {
			d.optr = value
		}

	case fmc.WRP1AR, fmc.WRP1BR, fmc.WRP2AR, fmc.WRP2BR:
		if d.cr&fmc.CROptLock == 0 {
			idx := map[uint32]int{
				fmc.WRP1AR: 0, fmc.WRP1BR: 1, fmc.WRP2AR: 2, fmc.WRP2BR: 3,
			}[offset]
			d.wrp[idx] = value & 0x00FF00FF
		}

	case fmc.CR:
		d.writeCR(value)
	}
}

func (d *Device) writeCR(value uint32) {
	if d.cr&fmc.CRLock != 0 {
		// Register writes are ignored while locked.
		return
	}
	d.CRWrites = append(d.CRWrites, value)

	// LOCK and OPTLOCK can be set by software but cleared only by their key
	// sequences.
	locks := d.cr & (fmc.CRLock | fmc.CROptLock)
	d.cr = value | locks

	if value&fmc.CRStart != 0 {
		switch {
		case value&fmc.CRPageErase != 0:
			d.eraseSector(value)
		case value&(fmc.CRMassErase1|fmc.CRMassErase2) != 0:
			d.massErase()
		}
	}
	// START and OPTSTRT self-clear when the operation completes.
	d.cr &^= fmc.CRStart | fmc.CROptStart
}

// eraseSector decodes the PNB field. The 8-bit truncation mirrors the
// silicon: the hole arithmetic overflows PNB into BKER for bank 2, leaving
// the in-bank sector number in the field.
func (d *Device) eraseSector(cr uint32) {
	inBank := int((cr >> 3) & 0xFF)
	sector := inBank
	bank2 := cr&fmc.CRBankErase != 0
	if bank2 {
		sector = d.FirstBankSectors + inBank
	}

	if d.protected(sector) {
		d.sr |= uint32(fmc.StatusWRPERR)
		return
	}

	off := uint32(sector) * d.SectorSize
	if off+d.SectorSize > uint32(len(d.Flash)) {
		d.sr |= uint32(fmc.StatusPGAERR)
		return
	}
	for i := off; i < off+d.SectorSize; i++ {
		d.Flash[i] = 0xFF
	}
}

func (d *Device) massErase() {
	for i := range d.wrp {
		if !fmc.DecodeWRP(d.wrp[i]).Empty() {
			d.sr |= uint32(fmc.StatusWRPERR)
			return
		}
	}
	for i := range d.Flash {
		d.Flash[i] = 0xFF
	}
}

// protected reports whether a flash-array sector index falls in a WRP zone.
func (d *Device) protected(sector int) bool {
	if sector < d.FirstBankSectors {
		return fmc.DecodeWRP(d.wrp[0]).Contains(sector) ||
			fmc.DecodeWRP(d.wrp[1]).Contains(sector)
	}
	j := sector - d.FirstBankSectors
	return fmc.DecodeWRP(d.wrp[2]).Contains(j) ||
		fmc.DecodeWRP(d.wrp[3]).Contains(j)
}

func (d *Device) WriteBuffer(addr uint32, data []byte) error {
	if d.WriteFault != nil {
		if err := d.WriteFault(addr); err != nil {
			return err
		}
	}
	if !d.inRAM(addr) || !d.inRAM(addr+uint32(len(data))-1) {
		return fmt.Errorf("sim: buffer write outside RAM at 0x%08X", addr)
	}
	copy(d.RAM[addr-d.RAMBase:], data)
	return nil
}

func (d *Device) AllocWorkingArea(size uint32) (*target.WorkingArea, error) {
	return d.alloc(size)
}

func (d *Device) AllocWorkingAreaTry(size uint32) (*target.WorkingArea, error) {
	return d.alloc(size)
}

func (d *Device) alloc(size uint32) (*target.WorkingArea, error) {
	d.AllocSizes = append(d.AllocSizes, size)
	limit := d.WorkingAreaLimit
	if limit == 0 {
		limit = uint32(len(d.RAM))
	}
	if d.allocTop+size > limit {
		return nil, errors.New("sim: working area exhausted")
	}
	wa := &target.WorkingArea{Address: d.RAMBase + d.allocTop, Size: size}
	d.allocTop += size
	d.allocLive++
	return wa, nil
}

func (d *Device) FreeWorkingArea(area *target.WorkingArea) error {
	if area == nil {
		return nil
	}
	d.allocLive--
	if d.allocLive <= 0 {
		d.allocLive = 0
		d.allocTop = 0
	}
	return nil
}

// OutstandingWorkingAreas returns the number of areas not yet freed.
func (d *Device) OutstandingWorkingAreas() int {
	return d.allocLive
}

// RunFlashAsync emulates the streaming run: each 64-bit word of the payload
// is checked against the WRP zones and programmed into the flash array. On
// the first protected word the run stops the way the stub would, with the
// SR error byte in the r0 slot and WRPERR latched in the controller.
func (d *Device) RunFlashAsync(alg *target.Algorithm) error {
	d.LastAlgorithm = alg
	if len(alg.Regs) < 5 {
		return fmt.Errorf("sim: expected 5 register params, got %d", len(alg.Regs))
	}

	addr := alg.Regs[2].Value
	words := int(alg.Regs[3].Value)
	if len(alg.Payload) < words*alg.BlockSize {
		return fmt.Errorf("sim: payload %d bytes short of %d blocks", len(alg.Payload), words)
	}

	for w := 0; w < words; w++ {
		a := addr + uint32(w*alg.BlockSize)
		if !d.inFlash(a) {
			d.sr |= uint32(fmc.StatusPGAERR)
			alg.Regs[0].Value = uint32(fmc.StatusPGAERR)
			return target.ErrFlashOpFailed
		}
		off := a - d.FlashBase
		if d.protected(int(off / d.SectorSize)) {
			d.sr |= uint32(fmc.StatusWRPERR)
			alg.Regs[0].Value = uint32(fmc.StatusWRPERR)
			return target.ErrFlashOpFailed
		}
		copy(d.Flash[off:off+uint32(alg.BlockSize)], alg.Payload[w*alg.BlockSize:])
	}

	alg.Regs[0].Value = 0
	return nil
}
