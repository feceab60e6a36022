package cartridge

import "github.com/pkg/errors"

// PRGStart is where NROM maps PRG-ROM in the CPU address space.
const PRGStart = 0x8000

// ErrUnsupportedMapper is returned when an image needs bank switching.
var ErrUnsupportedMapper = errors.New("unsupported mapper")

// NROM returns the 32KB CPU view of $8000-$FFFF for a mapper 0 image.
// A single 16KB bank is mirrored into $C000-$FFFF.
func (c *Cartridge) NROM() ([]byte, error) {
	if c.MapperID != 0 {
		return nil, errors.Wrapf(ErrUnsupportedMapper, "mapper %d", c.MapperID)
	}

	view := make([]byte, 2*prgBankSize)
	switch c.PRGBanks() {
	case 1:
		copy(view, c.PRG)
		copy(view[prgBankSize:], c.PRG)
	case 2:
		copy(view, c.PRG)
	default:
		return nil, errors.Wrapf(ErrUnsupportedMapper, "NROM with %d PRG banks", c.PRGBanks())
	}
	return view, nil
}

// ResetVector returns the entry point stored at $FFFC in the NROM view.
func (c *Cartridge) ResetVector() (uint16, error) {
	view, err := c.NROM()
	if err != nil {
		return 0, err
	}
	off := 0xFFFC - PRGStart
	return uint16(view[off]) | uint16(view[off+1])<<8, nil
}
