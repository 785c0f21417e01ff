// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package imageio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// decodeEXR reads the common case this module's HDR inputs actually
// take: a single-part, uncompressed, scanline OpenEXR file with R,
// G, B (and optionally A) channels stored as either HALF or FLOAT.
// Tiled, multi-part and compressed files are rejected rather than
// silently mishandled; none of flop's own test fixtures need them,
// and there is no third-party EXR decoder anywhere in the retrieved
// example pack to fall back on.
const exrMagic = 0x01312f76

var errUnsupportedEXR = errors.New("imageio: unsupported EXR layout (need single-part, scanline, uncompressed)")

type exrChannel struct {
	name string
	// pixelType: 0 = uint, 1 = half, 2 = float.
	pixelType int32
}

func decodeEXR(r io.Reader) (*Image, error) {
	// readEXRHeader reads through a bufio.Reader; sharing one here
	// keeps the offset table and scanlines at the right position.
	r = bufio.NewReader(r)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != exrMagic {
		return nil, fmt.Errorf("imageio: not an EXR file")
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version&0x200 != 0 || version&0x1000 != 0 {
		// Tiled or multi-part: not supported.
		return nil, errUnsupportedEXR
	}

	attrs, err := readEXRHeader(r)
	if err != nil {
		return nil, err
	}
	channels, ok := attrs["channels"].([]exrChannel)
	if !ok {
		return nil, errUnsupportedEXR
	}
	dw, ok := attrs["dataWindow"].([4]int32)
	if !ok {
		return nil, errUnsupportedEXR
	}
	if comp, ok := attrs["compression"].(byte); ok && comp != 0 {
		return nil, errUnsupportedEXR
	}

	w := int(dw[2]-dw[0]) + 1
	h := int(dw[3]-dw[1]) + 1
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("imageio: invalid EXR data window")
	}

	out := &Image{Width: w, Height: h, HDR: true, Pix: make([]byte, w*h*16)}
	hasAlpha := false
	chanIdx := map[string]int{}
	for i, c := range channels {
		chanIdx[c.name] = i
		if c.name == "A" {
			hasAlpha = true
		}
	}
	out.HandleAlpha = hasAlpha

	// Scanline offset table: one int64 per row, which this reader
	// does not need since rows are read sequentially here.
	if _, err := io.CopyN(io.Discard, r, 8*int64(h)); err != nil {
		return nil, err
	}

	for y := 0; y < h; y++ {
		var lineNo int32
		var dataSize uint32
		if err := binary.Read(r, binary.LittleEndian, &lineNo); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &dataSize); err != nil {
			return nil, err
		}
		row := make([]byte, dataSize)
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, err
		}
		if err := unpackEXRScanline(out, y, row, channels); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func unpackEXRScanline(img *Image, y int, row []byte, channels []exrChannel) error {
	off := 0
	samples := make(map[string][]float32, len(channels))
	for _, c := range channels {
		buf := make([]float32, img.Width)
		switch c.pixelType {
		case 1: // half
			for x := 0; x < img.Width; x++ {
				if off+2 > len(row) {
					return fmt.Errorf("imageio: truncated EXR scanline")
				}
				buf[x] = halfToFloat32(binary.LittleEndian.Uint16(row[off:]))
				off += 2
			}
		case 2: // float
			for x := 0; x < img.Width; x++ {
				if off+4 > len(row) {
					return fmt.Errorf("imageio: truncated EXR scanline")
				}
				buf[x] = math.Float32frombits(binary.LittleEndian.Uint32(row[off:]))
				off += 4
			}
		default:
			return errUnsupportedEXR
		}
		samples[c.name] = buf
	}

	rowOff := y * img.Width * 16
	for x := 0; x < img.Width; x++ {
		r := sampleOr(samples, "R", x, 0)
		g := sampleOr(samples, "G", x, 0)
		b := sampleOr(samples, "B", x, 0)
		a := sampleOr(samples, "A", x, 1)
		o := rowOff + x*16
		putFloat32LE(img.Pix[o:], r)
		putFloat32LE(img.Pix[o+4:], g)
		putFloat32LE(img.Pix[o+8:], b)
		putFloat32LE(img.Pix[o+12:], a)
	}
	return nil
}

func sampleOr(samples map[string][]float32, name string, x int, def float32) float32 {
	if s, ok := samples[name]; ok {
		return s[x]
	}
	return def
}

func putFloat32LE(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func halfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := (h >> 10) & 0x1f
	frac := uint32(h & 0x3ff)
	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: normalize.
		e := 1
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		bits := sign | uint32(int32(e+127-15))<<23 | frac<<13
		return math.Float32frombits(bits)
	case 0x1f:
		bits := sign | 0xff<<23 | frac<<13
		return math.Float32frombits(bits)
	default:
		bits := sign | uint32(int32(exp)+(127-15))<<23 | frac<<13
		return math.Float32frombits(bits)
	}
}
