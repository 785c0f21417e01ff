// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package viewer

import (
	"encoding/binary"
	"testing"
)

func TestInt32Bytes(t *testing.T) {
	b := int32Bytes(12345)
	if len(b) != 4 {
		t.Fatalf("int32Bytes(): len\nhave %d\nwant 4", len(b))
	}
	if v := int32(binary.LittleEndian.Uint32(b)); v != 12345 {
		t.Errorf("int32Bytes(12345)\nhave %d\nwant 12345", v)
	}
}

func TestInt32BytesNegative(t *testing.T) {
	b := int32Bytes(-1)
	if v := int32(binary.LittleEndian.Uint32(b)); v != -1 {
		t.Errorf("int32Bytes(-1)\nhave %d\nwant -1", v)
	}
}
