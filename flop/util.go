// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"encoding/binary"
	"math"
)

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
