// Package cartridge reads iNES program images so their PRG-ROM can be
// mapped into the CPU address space.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	headerSize  = 16
	trainerSize = 512
	prgBankSize = 0x4000
	chrBankSize = 0x2000
)

var magic = []byte("NES\x1A")

// ErrInvalidImage is returned for data that is not a usable iNES image.
var ErrInvalidImage = errors.New("invalid iNES image")

// MirrorMode is the nametable arrangement recorded in the header.
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorFourScreen
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	}
	return "horizontal"
}

// iNES header layout
type header struct {
	Magic      [4]uint8
	PRGROMSize uint8 // 16KB units
	CHRROMSize uint8 // 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// Cartridge is a parsed iNES image.
type Cartridge struct {
	PRG []byte
	CHR []byte

	MapperID   uint8
	Mirror     MirrorMode
	HasBattery bool
	HasTrainer bool
}

// IsINES reports whether data starts with the iNES signature.
func IsINES(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// LoadFromFile parses the iNES image at path.
func LoadFromFile(path string) (*Cartridge, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cart, err := LoadFromReader(file)
	return cart, errors.WithMessage(err, path)
}

// LoadFromReader parses an iNES image. The trainer, when present, is
// skipped. CHR data is kept for reporting only.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrapf(ErrInvalidImage, "header: %v", err)
	}
	if !bytes.Equal(h.Magic[:], magic) {
		return nil, errors.Wrap(ErrInvalidImage, "bad signature")
	}
	if h.PRGROMSize == 0 {
		return nil, errors.Wrap(ErrInvalidImage, "PRG-ROM size is zero")
	}

	cart := &Cartridge{
		MapperID:   (h.Flags6 >> 4) | (h.Flags7 & 0xF0),
		HasBattery: h.Flags6&0x02 != 0,
		HasTrainer: h.Flags6&0x04 != 0,
	}
	switch {
	case h.Flags6&0x08 != 0:
		cart.Mirror = MirrorFourScreen
	case h.Flags6&0x01 != 0:
		cart.Mirror = MirrorVertical
	}

	if cart.HasTrainer {
		if _, err := io.CopyN(io.Discard, r, trainerSize); err != nil {
			return nil, errors.Wrapf(ErrInvalidImage, "trainer: %v", err)
		}
	}

	cart.PRG = make([]byte, int(h.PRGROMSize)*prgBankSize)
	if _, err := io.ReadFull(r, cart.PRG); err != nil {
		return nil, errors.Wrapf(ErrInvalidImage, "PRG-ROM: %v", err)
	}
	if h.CHRROMSize > 0 {
		cart.CHR = make([]byte, int(h.CHRROMSize)*chrBankSize)
		if _, err := io.ReadFull(r, cart.CHR); err != nil {
			return nil, errors.Wrapf(ErrInvalidImage, "CHR-ROM: %v", err)
		}
	}
	return cart, nil
}

// PRGBanks returns the number of 16KB PRG-ROM banks.
func (c *Cartridge) PRGBanks() int {
	return len(c.PRG) / prgBankSize
}

func (c *Cartridge) String() string {
	return fmt.Sprintf("mapper %d, %dx16KB PRG, %dx8KB CHR, %s mirroring",
		c.MapperID, c.PRGBanks(), len(c.CHR)/chrBankSize, c.Mirror)
}
