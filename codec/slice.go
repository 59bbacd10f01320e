package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/janelia-flyem/nifti/nifti"
)

// DecodeSlice decodes every voxel in raw, whose length must be a multiple of dt.Bytes().
func DecodeSlice(raw []byte, dt nifti.Datatype, order binary.ByteOrder) ([]float64, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	width := dt.Bytes()
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %s voxels: %w", len(raw), dt, nifti.ErrSizeMismatch)
	}
	values := make([]float64, len(raw)/width)
	for i := range values {
		values[i] = decode(raw[i*width:], dt, order)
	}
	return values, nil
}

// DecodeInto decodes len(dst) voxels from raw.
func DecodeInto(dst []float64, raw []byte, dt nifti.Datatype, order binary.ByteOrder) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	width := dt.Bytes()
	if len(raw) != len(dst)*width {
		return fmt.Errorf("%d voxels of %s need %d bytes, got %d: %w", len(dst), dt, len(dst)*width, len(raw), nifti.ErrSizeMismatch)
	}
	for i := range dst {
		dst[i] = decode(raw[i*width:], dt, order)
	}
	return nil
}

// EncodeSlice encodes values as consecutive voxels.
func EncodeSlice(values []float64, dt nifti.Datatype, order binary.ByteOrder) ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	width := dt.Bytes()
	b := make([]byte, len(values)*width)
	for i, v := range values {
		encode(b[i*width:], v, dt, order)
	}
	return b, nil
}

// EncodeSliceInto encodes values into dst, which must be exactly len(values)*dt.Bytes() long.
func EncodeSliceInto(dst []byte, values []float64, dt nifti.Datatype, order binary.ByteOrder) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	width := dt.Bytes()
	if len(dst) != len(values)*width {
		return fmt.Errorf("%d voxels of %s need %d bytes, have %d: %w", len(values), dt, len(values)*width, len(dst), nifti.ErrSizeMismatch)
	}
	for i, v := range values {
		encode(dst[i*width:], v, dt, order)
	}
	return nil
}
