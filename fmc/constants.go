package fmc

// Register offsets from the controller base, per RM0351.
const (
	// ACR is the access control register (latency, caches, power-down)
	ACR uint32 = 0x00

	// PDKEYR is the power-down key register
	PDKEYR uint32 = 0x04

	// KEYR receives the two-key sequence that clears CR.LOCK
	KEYR uint32 = 0x08

	// OPTKEYR receives the two-key sequence that clears CR.OPTLOCK
	OPTKEYR uint32 = 0x0C

	// SR is the status register (BSY plus latched error bits)
	SR uint32 = 0x10

	// CR is the control register
	CR uint32 = 0x14

	// ECR is the ECC register
	ECR uint32 = 0x18

	// OPTR is the option register
	OPTR uint32 = 0x20

	// PCROP1SR / PCROP1ER bound the bank 1 proprietary readout protection area
	PCROP1SR uint32 = 0x24
	PCROP1ER uint32 = 0x28

	// WRP1AR / WRP1BR hold the two bank 1 write-protection zones
	WRP1AR uint32 = 0x2C
	WRP1BR uint32 = 0x30

	// Bank 2 registers, present on dual-bank devices only.
	PCROP2SR uint32 = 0x44
	PCROP2ER uint32 = 0x48
	WRP2AR   uint32 = 0x4C
	WRP2BR   uint32 = 0x50
)

// CR register bits.
const (
	CRProgram   uint32 = 1 << 0  // PG
	CRPageErase uint32 = 1 << 1  // PER
	CRMassErase1 uint32 = 1 << 2 // MER1
	CRBankErase uint32 = 1 << 11 // BKER, dual-bank devices
	CRMassErase2 uint32 = 1 << 15 // MER2, dual-bank devices
	CRStart     uint32 = 1 << 16 // START
	CROptStart  uint32 = 1 << 17 // OPTSTRT
	CRFastProg  uint32 = 1 << 18 // FSTPG
	CROBLLaunch uint32 = 1 << 27 // OBL_LAUNCH
	CROptLock   uint32 = 1 << 30 // OPTLOCK
	CRLock      uint32 = 1 << 31 // LOCK
)

// snbShift is the bit position of the sector number field (PNB) in CR.
const snbShift = 3

// SNB places a controller sector number into the CR sector-number field.
func SNB(sector uint32) uint32 {
	return sector << snbShift
}

// Main register unlock keys, written to KEYR back to back.
const (
	Key1 uint32 = 0x45670123
	Key2 uint32 = 0xCDEF89AB
)

// Option register unlock keys, written to OPTKEYR back to back.
const (
	OptKey1 uint32 = 0x08192A3B
	OptKey2 uint32 = 0x4C5D6E7F
)

// OPTR bits. RDP occupies [7:0]; the user options occupy [31:8].
const (
	OptIWDGSoft    uint32 = 1 << 16 // IDWG_SW
	OptIWDGStop    uint32 = 1 << 17 // IWDG_STOP
	OptIWDGStandby uint32 = 1 << 18 // IWDG_STDBY
	OptWWDGSoft    uint32 = 1 << 19 // WWWG_SW
	OptDualBank    uint32 = 1 << 21 // DUALBANK
	OptDBank       uint32 = 1 << 22 // DBANK
)

// Readout protection levels. Any value other than RDPNone written to the RDP
// byte raises the device to Level 1; RDPLevel2 is irreversible.
const (
	RDPNone   uint8 = 0xAA
	RDPLevel2 uint8 = 0xCC
)

// DeviceIDAddr is the DBGMCU ID-code register: low 12 bits identify the
// part, the high 16 bits carry the revision code.
const DeviceIDAddr uint32 = 0xE0042000

// BankBaseAddr is where bank 0 flash appears in the target address space.
const BankBaseAddr uint32 = 0x08000000
