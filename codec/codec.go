/*
	Package codec converts between the raw bytes of a voxel and float64 for every
	supported NIfTI datatype in either byte order.  It is stateless and never applies
	scl_slope/scl_inter; scaling belongs to the caller.
*/
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/janelia-flyem/nifti/nifti"
)

// Range of each integer datatype as float64 bounds used for clamping.
type bounds struct {
	min, max float64
}

var intBounds = map[nifti.Datatype]bounds{
	nifti.DTUint8:  {0, math.MaxUint8},
	nifti.DTInt8:   {math.MinInt8, math.MaxInt8},
	nifti.DTUint16: {0, math.MaxUint16},
	nifti.DTInt16:  {math.MinInt16, math.MaxInt16},
	nifti.DTUint32: {0, math.MaxUint32},
	nifti.DTInt32:  {math.MinInt32, math.MaxInt32},
}

// 2^63 and 2^64 are exactly representable; every float64 below them converts without overflow.
const (
	twoTo63 = float64(1 << 63)
	twoTo64 = 2 * twoTo63
)

// Decode interprets raw, which must hold at least dt.Bytes() bytes, as one voxel.
func Decode(raw []byte, dt nifti.Datatype, order binary.ByteOrder) (float64, error) {
	if err := dt.Validate(); err != nil {
		return 0, err
	}
	if len(raw) < dt.Bytes() {
		return 0, fmt.Errorf("decoding %s needs %d bytes, got %d: %w", dt, dt.Bytes(), len(raw), nifti.ErrSizeMismatch)
	}
	return decode(raw, dt, order), nil
}

func decode(raw []byte, dt nifti.Datatype, order binary.ByteOrder) float64 {
	switch dt {
	case nifti.DTUint8:
		return float64(raw[0])
	case nifti.DTInt8:
		return float64(int8(raw[0]))
	case nifti.DTUint16:
		return float64(order.Uint16(raw))
	case nifti.DTInt16:
		return float64(int16(order.Uint16(raw)))
	case nifti.DTUint32:
		return float64(order.Uint32(raw))
	case nifti.DTInt32:
		return float64(int32(order.Uint32(raw)))
	case nifti.DTUint64:
		return float64(order.Uint64(raw))
	case nifti.DTInt64:
		return float64(int64(order.Uint64(raw)))
	case nifti.DTFloat32:
		return float64(math.Float32frombits(order.Uint32(raw)))
	case nifti.DTFloat64:
		return math.Float64frombits(order.Uint64(raw))
	}
	return 0
}

// Encode returns the dt.Bytes() bytes representing v.  Integer datatypes round half
// away from zero and clamp to their range; NaN encodes as 0.
func Encode(v float64, dt nifti.Datatype, order binary.ByteOrder) ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, dt.Bytes())
	encode(b, v, dt, order)
	return b, nil
}

// EncodeInto is like Encode but writes into the first dt.Bytes() bytes of dst.
func EncodeInto(dst []byte, v float64, dt nifti.Datatype, order binary.ByteOrder) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	if len(dst) < dt.Bytes() {
		return fmt.Errorf("encoding %s needs %d bytes, have %d: %w", dt, dt.Bytes(), len(dst), nifti.ErrSizeMismatch)
	}
	encode(dst, v, dt, order)
	return nil
}

func encode(dst []byte, v float64, dt nifti.Datatype, order binary.ByteOrder) {
	switch dt {
	case nifti.DTFloat32:
		order.PutUint32(dst, math.Float32bits(float32(v)))
		return
	case nifti.DTFloat64:
		order.PutUint64(dst, math.Float64bits(v))
		return
	case nifti.DTUint64:
		order.PutUint64(dst, toUint64(v))
		return
	case nifti.DTInt64:
		order.PutUint64(dst, uint64(toInt64(v)))
		return
	}
	r := clamp(v, intBounds[dt])
	switch dt {
	case nifti.DTUint8:
		dst[0] = uint8(r)
	case nifti.DTInt8:
		dst[0] = uint8(int8(r))
	case nifti.DTUint16:
		order.PutUint16(dst, uint16(r))
	case nifti.DTInt16:
		order.PutUint16(dst, uint16(int16(r)))
	case nifti.DTUint32:
		order.PutUint32(dst, uint32(r))
	case nifti.DTInt32:
		order.PutUint32(dst, uint32(int32(r)))
	}
}

// clamp rounds v half away from zero and limits it to the given bounds.
func clamp(v float64, b bounds) float64 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < b.min {
		return b.min
	}
	if r > b.max {
		return b.max
	}
	return r
}

func toInt64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r >= twoTo63 {
		return math.MaxInt64
	}
	if r < -twoTo63 {
		return math.MinInt64
	}
	return int64(r)
}

func toUint64(v float64) uint64 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r <= 0 {
		return 0
	}
	if r >= twoTo64 {
		return math.MaxUint64
	}
	return uint64(r)
}
