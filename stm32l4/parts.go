package stm32l4

// Rev maps a 16-bit revision code from the ID-code register to its marketing
// letter.
type Rev struct {
	ID   uint16
	Name string
}

// PartInfo is one immutable entry of the part registry. Probe never mutates
// a PartInfo; option-dependent adjustments land in the per-bank Geometry.
type PartInfo struct {
	ID   uint16
	Name string
	Revs []Rev

	PageSize         uint32 // bytes per sector
	MaxFlashKB       uint32
	DualBank         bool
	FirstBankSectors int // sectors in bank 1 before the optional hole
	HoleSectors      int // sector numbers skipped between banks

	RegsBase  uint32 // flash controller register base
	FSizeBase uint32 // factory-programmed flash size halfword
}

var parts = []PartInfo{
	{
		ID:   0x415,
		Name: "STM32L47/L48xx", // 1M or 512K
		Revs: []Rev{
			{0x1000, "A"}, {0x1001, "Z"}, {0x1003, "Y"}, {0x1007, "X"},
		},
		PageSize:         2048,
		MaxFlashKB:       1024,
		DualBank:         true,
		FirstBankSectors: 256,
		RegsBase:         0x40022000,
		FSizeBase:        0x1FFF75E0,
	},
	{
		ID:   0x435,
		Name: "STM32L43/L44xx", // 256K
		Revs: []Rev{
			{0x1000, "A"}, {0x1001, "Z"},
		},
		PageSize:         2048,
		MaxFlashKB:       256,
		FirstBankSectors: 128,
		RegsBase:         0x40022000,
		FSizeBase:        0x1FFF75E0,
	},
	{
		ID:   0x462,
		Name: "STM32L45/L46xx", // 512K
		Revs: []Rev{
			{0x1000, "A"}, {0x2000, "B"},
		},
		PageSize:         2048,
		MaxFlashKB:       512,
		FirstBankSectors: 256,
		RegsBase:         0x40022000,
		FSizeBase:        0x1FFF75E0,
	},
	{
		ID:   0x461,
		Name: "STM32L49/L4Axx", // 1M or 512K or 256K
		Revs: []Rev{
			{0x1000, "A"}, {0x2000, "B"},
		},
		PageSize:         2048,
		MaxFlashKB:       1024,
		DualBank:         true,
		FirstBankSectors: 256,
		RegsBase:         0x40022000,
		FSizeBase:        0x1FFF75E0,
	},
	{
		ID:   0x470,
		Name: "STM32L4R/L4Sxx", // 2M
		Revs: []Rev{
			{0x1000, "A"}, {0x1001, "Z"},
		},
		PageSize:         4096, // 8192 when the DBANK option bit is clear
		MaxFlashKB:       2048,
		DualBank:         true,
		FirstBankSectors: 256,
		RegsBase:         0x40022000,
		FSizeBase:        0x1FFF75E0,
	},
}

// partByID looks up the registry by the low 12 bits of an ID-code value.
func partByID(idcode uint32) *PartInfo {
	id := uint16(idcode & 0xFFF)
	for i := range parts {
		if parts[i].ID == id {
			return &parts[i]
		}
	}
	return nil
}

// revName returns the marketing letter for a revision code, or "" if the
// code is not in the table.
func (p *PartInfo) revName(rev uint16) string {
	for _, r := range p.Revs {
		if r.ID == rev {
			return r.Name
		}
	}
	return ""
}
