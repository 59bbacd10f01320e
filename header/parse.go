package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/janelia-flyem/nifti/nifti"
)

// Byte offsets of the fields within the header struct.
const (
	offSizeofHdr     = 0
	offDimInfo       = 39
	offDim           = 40
	offIntentP       = 56
	offIntentCode    = 68
	offDatatype      = 70
	offBitpix        = 72
	offSliceStart    = 74
	offPixdim        = 76
	offVoxOffset     = 108
	offSclSlope      = 112
	offSclInter      = 116
	offSliceEnd      = 120
	offSliceCode     = 122
	offXyztUnits     = 123
	offCalMax        = 124
	offCalMin        = 128
	offSliceDuration = 132
	offToffset       = 136
	offDescrip       = 148
	offAuxFile       = 228
	offQformCode     = 252
	offSformCode     = 254
	offQuatern       = 256
	offQoffset       = 268
	offSrow          = 280
	offIntentName    = 328
	offMagic         = 344
	offExtender      = 348
)

// detectByteOrder decides the byte order from sizeof_hdr and, failing that, from a
// plausible dim[0].
func detectByteOrder(b []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(b[offSizeofHdr:]) == StructSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(b[offSizeofHdr:]) == StructSize {
		return binary.BigEndian, nil
	}
	if nd := int16(binary.LittleEndian.Uint16(b[offDim:])); nd >= 1 && nd <= MaxDims {
		return binary.LittleEndian, nil
	}
	if nd := int16(binary.BigEndian.Uint16(b[offDim:])); nd >= 1 && nd <= MaxDims {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("sizeof_hdr is not %d in either byte order: %w", StructSize, nifti.ErrBadMagic)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Parse decodes a header block of exactly BlockSize bytes.
func Parse(b []byte) (Header, error) {
	var h Header
	if len(b) != BlockSize {
		return h, fmt.Errorf("header block is %d bytes, expected %d: %w", len(b), BlockSize, nifti.ErrSizeMismatch)
	}
	order, err := detectByteOrder(b)
	if err != nil {
		return h, err
	}
	h.byteOrder = order

	magic := b[offMagic : offMagic+4]
	switch {
	case magic[3] != 0:
		return h, fmt.Errorf("magic %q: %w", magic, nifti.ErrBadMagic)
	case string(magic[:3]) == MagicCombined, string(magic[:3]) == MagicPaired:
		h.magic = string(magic[:3])
	default:
		return h, fmt.Errorf("magic %q: %w", magic[:3], nifti.ErrBadMagic)
	}

	i16 := func(off int) int16 { return int16(order.Uint16(b[off:])) }
	f32 := func(off int) float32 { return math.Float32frombits(order.Uint32(b[off:])) }

	nd := i16(offDim)
	if nd < 1 || nd > MaxDims {
		return h, fmt.Errorf("dim[0] = %d: %w", nd, nifti.ErrInvalidDims)
	}
	h.dim[0] = nd
	for i := 1; i <= int(nd); i++ {
		size := i16(offDim + 2*i)
		if size < 0 {
			return h, fmt.Errorf("dim[%d] = %d: %w", i, size, nifti.ErrInvalidDims)
		}
		h.dim[i] = size
	}

	h.datatype = nifti.Datatype(i16(offDatatype))
	if err := h.datatype.Validate(); err != nil {
		return h, err
	}

	h.dimInfo = b[offDimInfo]
	for i := 0; i < 3; i++ {
		h.intentP[i] = f32(offIntentP + 4*i)
	}
	h.intentCode = i16(offIntentCode)
	h.sliceStart = i16(offSliceStart)
	for i := 0; i < 8; i++ {
		h.pixdim[i] = f32(offPixdim + 4*i)
	}
	h.voxOffset = f32(offVoxOffset)
	h.sclSlope = f32(offSclSlope)
	h.sclInter = f32(offSclInter)
	h.sliceEnd = i16(offSliceEnd)
	h.sliceCode = b[offSliceCode]
	h.xyztUnits = b[offXyztUnits]
	h.calMax = f32(offCalMax)
	h.calMin = f32(offCalMin)
	h.sliceDuration = f32(offSliceDuration)
	h.toffset = f32(offToffset)
	h.descrip = cString(b[offDescrip : offDescrip+DescriptionSize])
	h.auxFile = cString(b[offAuxFile : offAuxFile+AuxFileSize])
	h.qformCode = i16(offQformCode)
	h.sformCode = i16(offSformCode)
	for i := 0; i < 3; i++ {
		h.quatern[i] = f32(offQuatern + 4*i)
		h.qoffset[i] = f32(offQoffset + 4*i)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			h.srow[r][c] = f32(offSrow + 16*r + 4*c)
		}
	}
	h.intentName = cString(b[offIntentName : offIntentName+IntentNameSize])
	copy(h.extender[:], b[offExtender:offExtender+ExtenderSize])

	if v := float64(h.voxOffset); math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 0 || v > MaxVoxOffset {
		return h, fmt.Errorf("vox_offset %g is not a byte offset within %d: %w", h.voxOffset, MaxVoxOffset, nifti.ErrSizeMismatch)
	}
	if h.magic == MagicCombined && h.voxOffset < BlockSize {
		return h, fmt.Errorf("vox_offset %g is inside the %d-byte header: %w", h.voxOffset, BlockSize, nifti.ErrSizeMismatch)
	}
	return h, nil
}

// ReadFrom reads and parses a header from r.  A stream holding only the 348-byte
// struct, as written by some tools for paired datasets, is accepted and treated as
// having a zero extender.
func ReadFrom(r io.Reader) (Header, error) {
	b := make([]byte, BlockSize)
	n, err := io.ReadFull(r, b)
	switch {
	case err == nil:
	case err == io.ErrUnexpectedEOF && n >= StructSize:
		for i := n; i < BlockSize; i++ {
			b[i] = 0
		}
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return Header{}, fmt.Errorf("only %d header bytes available: %w", n, nifti.ErrSizeMismatch)
	default:
		return Header{}, err
	}
	return Parse(b)
}

// Serialize returns the BlockSize bytes encoding h in its byte order.
func Serialize(h Header) []byte {
	b := make([]byte, BlockSize)
	order := h.ByteOrder()

	i16 := func(off int, v int16) { order.PutUint16(b[off:], uint16(v)) }
	f32 := func(off int, v float32) { order.PutUint32(b[off:], math.Float32bits(v)) }

	order.PutUint32(b[offSizeofHdr:], StructSize)
	b[offDimInfo] = h.dimInfo
	i16(offDim, h.dim[0])
	for i := 1; i <= h.NumDims(); i++ {
		i16(offDim+2*i, h.dim[i])
	}
	for i := 0; i < 3; i++ {
		f32(offIntentP+4*i, h.intentP[i])
	}
	i16(offIntentCode, h.intentCode)
	i16(offDatatype, int16(h.datatype))
	i16(offBitpix, int16(h.datatype.BitPix()))
	i16(offSliceStart, h.sliceStart)
	for i := 0; i < 8; i++ {
		f32(offPixdim+4*i, h.pixdim[i])
	}
	f32(offVoxOffset, h.voxOffset)
	f32(offSclSlope, h.sclSlope)
	f32(offSclInter, h.sclInter)
	i16(offSliceEnd, h.sliceEnd)
	b[offSliceCode] = h.sliceCode
	b[offXyztUnits] = h.xyztUnits
	f32(offCalMax, h.calMax)
	f32(offCalMin, h.calMin)
	f32(offSliceDuration, h.sliceDuration)
	f32(offToffset, h.toffset)
	copy(b[offDescrip:offDescrip+DescriptionSize], h.descrip)
	copy(b[offAuxFile:offAuxFile+AuxFileSize], h.auxFile)
	i16(offQformCode, h.qformCode)
	i16(offSformCode, h.sformCode)
	for i := 0; i < 3; i++ {
		f32(offQuatern+4*i, h.quatern[i])
		f32(offQoffset+4*i, h.qoffset[i])
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			f32(offSrow+16*r+4*c, h.srow[r][c])
		}
	}
	copy(b[offIntentName:offIntentName+IntentNameSize], h.intentName)
	copy(b[offMagic:offMagic+3], h.magic)
	copy(b[offExtender:], h.extender[:])
	return b
}

// MarshalBinary fulfills the encoding.BinaryMarshaler interface.
func (h Header) MarshalBinary() ([]byte, error) {
	return Serialize(h), nil
}

// UnmarshalBinary fulfills the encoding.BinaryUnmarshaler interface.
func (h *Header) UnmarshalBinary(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
