package stm32l4

// flashWriteStub is the Cortex-M word-programming stub uploaded to target
// RAM by the streaming writer. Position-independent Thumb code, assembled
// out-of-band from contrib/loaders/stm32l4x.S.
//
// Register block on entry:
//
//	r0 = ring buffer start; [r0+0] holds the host write pointer, [r0+4] the
//	     stub read pointer, data starts at r0+8. On exit r0 carries the SR
//	     error byte (0 on success).
//	r1 = ring buffer end (exclusive)
//	r2 = first flash target address
//	r3 = number of 64-bit words to program
//	r4 = flash controller register base
//
// The stub sets CR.PG, copies each flash word as two 32-bit halves with a
// barrier after each, polls SR.BSY, and halts via breakpoint either when all
// words are programmed (its read pointer slot then holds the final read
// position) or when the low byte of SR shows an error, in which case it
// zeroes the read pointer to signal the fault to the host runner.
var flashWriteStub = []byte{
	0x07, 0x68, 0x00, 0x2f, 0x23, 0xd0, 0x45, 0x68, 0x7e, 0x1b, 0x18, 0xd4,
	0x08, 0x2e, 0xf7, 0xd3, 0x01, 0x26, 0x66, 0x61, 0x40, 0xcd, 0x40, 0xc2,
	0xbf, 0xf3, 0x4f, 0x8f, 0x40, 0xcd, 0x40, 0xc2, 0xbf, 0xf3, 0x4f, 0x8f,
	0x26, 0x69, 0x76, 0x0c, 0xfc, 0xd2, 0x26, 0x69, 0xf6, 0xb2, 0x00, 0x2e,
	0x0b, 0xd1, 0x8d, 0x42, 0x06, 0xd2, 0x45, 0x60, 0x01, 0x3b, 0x08, 0xd0,
	0xe0, 0xe7, 0x0e, 0x44, 0x36, 0x1a, 0xe3, 0xe7, 0x05, 0x46, 0x08, 0x35,
	0xf5, 0xe7, 0x00, 0x21, 0x41, 0x60, 0x30, 0x46, 0x00, 0xbe,
}
