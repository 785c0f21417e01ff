// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package imageio decodes the LDR and HDR image formats flop accepts
// as analyze inputs, and encodes the error color map as PNG output.
package imageio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedFormat means the file extension is not one flop
// accepts (.png, .jpg/.jpeg, .bmp, .exr).
var ErrUnsupportedFormat = errors.New("imageio: unsupported file format")

// Image is a decoded input, always normalized to 4 channels. Pix
// holds interleaved RGBA8 (LDR) or RGBA32F (HDR) samples, row-major,
// tightly packed.
type Image struct {
	Width, Height int
	HDR           bool
	// Pix is RGBA8 bytes (len == Width*Height*4) when !HDR, or
	// little-endian float32 quadruples (len == Width*Height*16)
	// when HDR.
	Pix []byte
	// HandleAlpha reports whether the source carries alpha. For LDR
	// inputs it is true when any decoded pixel has alpha below 255;
	// the source's channel count is not examined, so a fully opaque
	// 4-channel file is marked false. For EXR inputs it is true when
	// the file has an A channel. Sources without alpha are still
	// normalized to 4 channels (A=255/1.0).
	HandleAlpha bool
}

// Load decodes the file at path, dispatching on its extension.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return decodePNG(f)
	case ".jpg", ".jpeg":
		return decodeJPEG(f)
	case ".bmp":
		return decodeBMP(f)
	case ".exr":
		return decodeEXR(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// LoadPair decodes reference and test concurrently and checks that
// their extents match. Load failures are reported with the fixed
// messages the C ABI surface documents, identifying which of the two
// paths could not be read.
func LoadPair(ctx context.Context, refPath, testPath string) (ref, test *Image, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		if ref, e = Load(refPath); e != nil {
			return errors.New("Invalid reference path.")
		}
		return nil
	})
	g.Go(func() error {
		var e error
		if test, e = Load(testPath); e != nil {
			return errors.New("Invalid test path.")
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, nil, err
	}
	if ref.Width != test.Width || ref.Height != test.Height {
		return nil, nil, errors.New("Reference and test images do not have matching extents.")
	}
	return ref, test, nil
}

func decodePNG(r io.Reader) (*Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromImage(img), nil
}

func decodeJPEG(r io.Reader) (*Image, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromImage(img), nil
}

func decodeBMP(r io.Reader) (*Image, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromImage(img), nil
}

// fromImage normalizes any stdlib-decoded image to tightly packed
// RGBA8. HandleAlpha is set by scanning the decoded pixels for any
// non-opaque alpha byte, not by switching on the Go image type: the
// stdlib PNG decoder returns *image.RGBA for plain opaque truecolor
// input (color type 2, no tRNS) just as often as for genuinely
// transparent input, so the type alone does not say whether the
// source had a real alpha channel.
func fromImage(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		tmp := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				tmp.Set(x, y, img.At(x, y))
			}
		}
		nrgba = tmp
	}
	for y := 0; y < h; y++ {
		srcOff := (y) * nrgba.Stride
		dstOff := y * w * 4
		copy(out.Pix[dstOff:dstOff+w*4], nrgba.Pix[srcOff:srcOff+w*4])
	}
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0xff {
			out.HandleAlpha = true
			break
		}
	}
	return out
}

// EncodePNG writes an RGBA8 buffer to path as a PNG. pitch is the row
// stride of rgba in bytes; it must be at least width*4.
func EncodePNG(path string, width, height, pitch int, rgba []byte) error {
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: pitch,
		Rect:   image.Rect(0, 0, width, height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
