// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// readEXRHeader parses the attribute list that follows an EXR file's
// magic/version pair, returning the handful of attributes this
// reader understands: "channels", "dataWindow", "compression".
// Unrecognized attributes are skipped by their declared size.
func readEXRHeader(r io.Reader) (map[string]any, error) {
	br := bufio.NewReader(r)
	attrs := map[string]any{}
	for {
		name, err := readCString(br)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break // end of header
		}
		typ, err := readCString(br)
		if err != nil {
			return nil, err
		}
		var size int32
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, err
		}
		switch name {
		case "channels":
			if typ != "chlist" {
				return nil, errUnsupportedEXR
			}
			chans, err := parseChannelList(data)
			if err != nil {
				return nil, err
			}
			attrs["channels"] = chans
		case "dataWindow":
			if typ != "box2i" || len(data) != 16 {
				return nil, errUnsupportedEXR
			}
			var box [4]int32
			for i := range box {
				box[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
			}
			attrs["dataWindow"] = box
		case "compression":
			if typ != "compression" || len(data) != 1 {
				return nil, errUnsupportedEXR
			}
			attrs["compression"] = data[0]
		}
	}
	return attrs, nil
}

func parseChannelList(data []byte) ([]exrChannel, error) {
	var chans []exrChannel
	off := 0
	for off < len(data) && data[off] != 0 {
		start := off
		for off < len(data) && data[off] != 0 {
			off++
		}
		name := string(data[start:off])
		off++ // skip NUL
		if off+16 > len(data) {
			return nil, fmt.Errorf("imageio: truncated EXR channel list")
		}
		pixelType := int32(binary.LittleEndian.Uint32(data[off:]))
		off += 16 // pixelType(4) + pLinear/reserved(4) + xSampling(4) + ySampling(4)
		chans = append(chans, exrChannel{name: name, pixelType: pixelType})
	}
	return chans, nil
}

func readCString(br *bufio.Reader) (string, error) {
	s, err := br.ReadString(0)
	if err != nil {
		return "", err
	}
	if len(s) == 1 {
		return "", nil
	}
	return s[:len(s)-1], nil
}
