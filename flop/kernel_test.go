// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestPC1Bytes(t *testing.T) {
	pc := PC1{Width: 640, Height: 480, Input: 3, Output: 7}
	b := pc.bytes()
	if len(b) != 16 {
		t.Fatalf("PC1.bytes(): len\nhave %d\nwant 16", len(b))
	}
	if w := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])); w != 640 {
		t.Errorf("PC1.bytes(): width\nhave %v\nwant 640", w)
	}
	if h := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])); h != 480 {
		t.Errorf("PC1.bytes(): height\nhave %v\nwant 480", h)
	}
	if in := binary.LittleEndian.Uint32(b[8:12]); in != 3 {
		t.Errorf("PC1.bytes(): input\nhave %d\nwant 3", in)
	}
	if out := binary.LittleEndian.Uint32(b[12:16]); out != 7 {
		t.Errorf("PC1.bytes(): output\nhave %d\nwant 7", out)
	}
}

func TestPC2Bytes(t *testing.T) {
	pc := PC2{Width: 8, Height: 8, Input1: 1, Input2: 2, Output1: 3, Output2: 4}
	b := pc.bytes()
	if len(b) != 24 {
		t.Fatalf("PC2.bytes(): len\nhave %d\nwant 24", len(b))
	}
	want := []uint32{1, 2, 3, 4}
	for i, w := range want {
		off := 8 + 4*i
		if got := binary.LittleEndian.Uint32(b[off : off+4]); got != w {
			t.Errorf("PC2.bytes(): field %d\nhave %d\nwant %d", i, got, w)
		}
	}
}

func TestKernelGroups(t *testing.T) {
	k := &kernel{wgX: 8, wgY: 8}
	cases := []struct {
		w, h    int
		x, y, z int
	}{
		{64, 64, 8, 8, 1},
		{65, 64, 9, 8, 1},
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 1},
	}
	for _, c := range cases {
		x, y, z := k.groups(c.w, c.h)
		if x != c.x || y != c.y || z != c.z {
			t.Errorf("groups(%d, %d)\nhave %d, %d, %d\nwant %d, %d, %d", c.w, c.h, x, y, z, c.x, c.y, c.z)
		}
	}
}

func TestFloat32Bytes(t *testing.T) {
	b := float32Bytes(1.5, -2.25)
	if len(b) != 8 {
		t.Fatalf("float32Bytes(): len\nhave %d\nwant 8", len(b))
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])); v != 1.5 {
		t.Errorf("float32Bytes(): [0]\nhave %v\nwant 1.5", v)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])); v != -2.25 {
		t.Errorf("float32Bytes(): [1]\nhave %v\nwant -2.25", v)
	}
}

func TestInt32Bytes(t *testing.T) {
	b := int32Bytes(-1, 42)
	if len(b) != 8 {
		t.Fatalf("int32Bytes(): len\nhave %d\nwant 8", len(b))
	}
	if v := int32(binary.LittleEndian.Uint32(b[0:4])); v != -1 {
		t.Errorf("int32Bytes(): [0]\nhave %d\nwant -1", v)
	}
	if v := int32(binary.LittleEndian.Uint32(b[4:8])); v != 42 {
		t.Errorf("int32Bytes(): [1]\nhave %d\nwant 42", v)
	}
}

func TestExposureScale(t *testing.T) {
	if s := exposureScale(0); s != 1 {
		t.Errorf("exposureScale(0)\nhave %v\nwant 1", s)
	}
	if s := exposureScale(1); math.Abs(float64(s-2)) > 1e-4 {
		t.Errorf("exposureScale(1)\nhave %v\nwant ~2", s)
	}
	if s := exposureScale(-1); math.Abs(float64(s-0.5)) > 1e-4 {
		t.Errorf("exposureScale(-1)\nhave %v\nwant ~0.5", s)
	}
	if s := exposureScale(2); math.Abs(float64(s-4)) > 1e-3 {
		t.Errorf("exposureScale(2)\nhave %v\nwant ~4", s)
	}
}

func TestCSFExtra(t *testing.T) {
	b := csfExtra(axisX)
	if len(b) != 16 {
		t.Fatalf("csfExtra(): len\nhave %d\nwant 16", len(b))
	}
	if axis := int32(binary.LittleEndian.Uint32(b[0:4])); axis != axisX {
		t.Errorf("csfExtra(): axis\nhave %d\nwant %d", axis, axisX)
	}
}
