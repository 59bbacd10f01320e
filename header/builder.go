package header

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/janelia-flyem/nifti/nifti"
)

// Builder stages edits to a header.  Setters validate their arguments and the first
// error is kept and returned by Build, so a chain of setters can be checked once.
type Builder struct {
	h   Header
	err error
}

// NewBuilder returns a Builder for a 1x1x1 uint8 combined dataset in little-endian
// byte order with unit spacing and no extensions.
func NewBuilder() *Builder {
	h := Header{
		byteOrder: binary.LittleEndian,
		datatype:  nifti.DTUint8,
		voxOffset: BlockSize,
		sclSlope:  1,
		magic:     MagicCombined,
	}
	h.dim[0] = 1
	h.dim[1] = 1
	for i := range h.pixdim {
		h.pixdim[i] = 1
	}
	return &Builder{h: h}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded by a setter.
func (b *Builder) Err() error {
	return b.err
}

// SetDatatype sets the voxel datatype.  Unsupported codes are rejected.
func (b *Builder) SetDatatype(dt nifti.Datatype) *Builder {
	if err := dt.Validate(); err != nil {
		return b.fail(err)
	}
	b.h.datatype = dt
	return b
}

// SetDims sets the number of dimensions to len(sizes) and the size of each.
// Sizes of undeclared dimensions are cleared.
func (b *Builder) SetDims(sizes ...int) *Builder {
	if len(sizes) < 1 || len(sizes) > MaxDims {
		return b.fail(fmt.Errorf("%d dimensions requested, must be 1 to %d: %w", len(sizes), MaxDims, nifti.ErrInvalidDims))
	}
	for i, size := range sizes {
		if size < 0 || size > math.MaxInt16 {
			return b.fail(fmt.Errorf("dimension %d has size %d: %w", i+1, size, nifti.ErrInvalidDims))
		}
	}
	var dim [8]int16
	dim[0] = int16(len(sizes))
	for i, size := range sizes {
		dim[i+1] = int16(size)
	}
	b.h.dim = dim
	return b
}

// SetPixDim sets voxel spacing for dimensions 1..len(spacing).
func (b *Builder) SetPixDim(spacing ...float32) *Builder {
	if len(spacing) > MaxDims {
		return b.fail(fmt.Errorf("%d spacings given for at most %d dimensions: %w", len(spacing), MaxDims, nifti.ErrInvalidDims))
	}
	for i, s := range spacing {
		b.h.pixdim[i+1] = s
	}
	return b
}

// SetQFac sets pixdim[0], the handedness of the qform (-1 or 1).
func (b *Builder) SetQFac(qfac float32) *Builder {
	if qfac < 0 {
		b.h.pixdim[0] = -1
	} else {
		b.h.pixdim[0] = 1
	}
	return b
}

// SetScale sets scl_slope and scl_inter.  A slope of 0 disables scaling.
func (b *Builder) SetScale(slope, inter float32) *Builder {
	b.h.sclSlope = slope
	b.h.sclInter = inter
	return b
}

// SetDescription sets the free-text description, truncated to DescriptionSize bytes.
func (b *Builder) SetDescription(s string) *Builder {
	b.h.descrip = truncate(s, DescriptionSize)
	return b
}

// SetAuxFile sets the auxiliary file name, truncated to AuxFileSize bytes.
func (b *Builder) SetAuxFile(s string) *Builder {
	b.h.auxFile = truncate(s, AuxFileSize)
	return b
}

// SetIntent sets the intent code, parameters and name (truncated to IntentNameSize).
func (b *Builder) SetIntent(code IntentCode, p1, p2, p3 float32, name string) *Builder {
	b.h.intentCode = int16(code)
	b.h.intentP = [3]float32{p1, p2, p3}
	b.h.intentName = truncate(name, IntentNameSize)
	return b
}

// SetCalRange sets the display range.
func (b *Builder) SetCalRange(min, max float32) *Builder {
	b.h.calMin = min
	b.h.calMax = max
	return b
}

// SetUnits sets the spatial and temporal units.
func (b *Builder) SetUnits(space SpaceUnits, time TimeUnits) *Builder {
	b.h.xyztUnits = uint8(space)&0x07 | uint8(time)&0x38
	return b
}

// SetTOffset sets the time coordinate offset.
func (b *Builder) SetTOffset(t float32) *Builder {
	b.h.toffset = t
	return b
}

// SetSliceInfo sets the slice timing fields.
func (b *Builder) SetSliceInfo(code SliceCode, start, end int, duration float32) *Builder {
	if start < 0 || end < 0 || start > math.MaxInt16 || end > math.MaxInt16 {
		return b.fail(fmt.Errorf("slice range %d-%d: %w", start, end, nifti.ErrInvalidDims))
	}
	b.h.sliceCode = uint8(code)
	b.h.sliceStart = int16(start)
	b.h.sliceEnd = int16(end)
	b.h.sliceDuration = duration
	return b
}

// SetDimInfo sets the frequency, phase and slice encoding dimensions (0..3 each).
func (b *Builder) SetDimInfo(freq, phase, slice int) *Builder {
	for _, d := range []int{freq, phase, slice} {
		if d < 0 || d > 3 {
			return b.fail(fmt.Errorf("dim_info entry %d: %w", d, nifti.ErrInvalidDims))
		}
	}
	b.h.dimInfo = uint8(freq) | uint8(phase)<<2 | uint8(slice)<<4
	return b
}

// SetQForm sets the qform code, quaternion (b, c, d) and offsets.
func (b *Builder) SetQForm(code XFormCode, quatern, offset [3]float32) *Builder {
	b.h.qformCode = int16(code)
	b.h.quatern = quatern
	b.h.qoffset = offset
	return b
}

// SetSForm sets the sform code and the first three rows of its affine.
func (b *Builder) SetSForm(code XFormCode, rows [3][4]float32) *Builder {
	b.h.sformCode = int16(code)
	b.h.srow = rows
	return b
}

// SetByteOrder sets the byte order used for the header and voxel data.
func (b *Builder) SetByteOrder(order binary.ByteOrder) *Builder {
	switch order {
	case binary.LittleEndian, binary.BigEndian:
		b.h.byteOrder = order
	default:
		return b.fail(fmt.Errorf("byte order %v not supported", order))
	}
	return b
}

// SetMagic sets the layout marker, MagicCombined or MagicPaired.
func (b *Builder) SetMagic(magic string) *Builder {
	if magic != MagicCombined && magic != MagicPaired {
		return b.fail(fmt.Errorf("magic %q: %w", magic, nifti.ErrBadMagic))
	}
	b.h.magic = magic
	return b
}

// SetVoxOffset sets the byte offset of voxel data.  It must lie past the header block
// for combined datasets; paired datasets conventionally use 0.
func (b *Builder) SetVoxOffset(offset int64) *Builder {
	if offset < 0 || offset > MaxVoxOffset {
		return b.fail(fmt.Errorf("vox_offset %d: %w", offset, nifti.ErrSizeMismatch))
	}
	b.h.voxOffset = float32(offset)
	return b
}

// SetExtensions sets the extender flag announcing extension records.
func (b *Builder) SetExtensions(present bool) *Builder {
	if present {
		b.h.extender[0] = 1
	} else {
		b.h.extender[0] = 0
	}
	return b
}

// Build validates the staged fields and returns the finished Header.
func (b *Builder) Build() (Header, error) {
	if b.err != nil {
		return Header{}, b.err
	}
	h := b.h
	if err := h.datatype.Validate(); err != nil {
		return Header{}, err
	}
	if h.dim[0] < 1 || h.dim[0] > MaxDims {
		return Header{}, fmt.Errorf("dim[0] = %d: %w", h.dim[0], nifti.ErrInvalidDims)
	}
	if h.magic == MagicCombined && h.voxOffset < BlockSize {
		return Header{}, fmt.Errorf("vox_offset %g is inside the %d-byte header: %w", h.voxOffset, BlockSize, nifti.ErrSizeMismatch)
	}
	if h.magic != MagicCombined && h.magic != MagicPaired {
		return Header{}, fmt.Errorf("magic %q: %w", h.magic, nifti.ErrBadMagic)
	}
	return h, nil
}

// truncate cuts s at its first NUL and to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > n {
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}
