/*
	Package header models the fixed NIfTI-1 header: the 348-byte struct followed by the
	4-byte extender.  A Header is an immutable value.  Edits are staged in a Builder and
	finalized with Build(), so a partially-edited header never reaches disk.
*/
package header

import (
	"encoding/binary"
	"math"

	"github.com/janelia-flyem/nifti/nifti"
)

const (
	// StructSize is the value of sizeof_hdr: the size of the NIfTI-1 header struct.
	StructSize = 348

	// ExtenderSize is the size of the extender block that follows the header struct.
	ExtenderSize = 4

	// BlockSize is the number of bytes Parse expects and Serialize produces.
	BlockSize = StructSize + ExtenderSize

	// MaxDims is the largest number of dimensions a dataset can declare.
	MaxDims = 7

	// DescriptionSize and AuxFileSize are the widths of the free-text fields.
	DescriptionSize = 80
	AuxFileSize     = 24
	IntentNameSize  = 16

	// MaxVoxOffset bounds vox_offset so the header and extensions stay small.
	MaxVoxOffset = 1 << 24
)

// Magic strings distinguishing the two layouts.
const (
	MagicCombined = "n+1"
	MagicPaired   = "ni1"
)

// Header holds every field of a NIfTI-1 header.  Legacy ANALYZE fields that the
// format marks unused (data_type, db_name, extents, session_error, regular, glmax,
// glmin) are not retained and are written as zero.
type Header struct {
	byteOrder binary.ByteOrder

	dimInfo uint8
	dim     [8]int16

	intentP    [3]float32
	intentCode int16
	intentName string

	datatype   nifti.Datatype
	sliceStart int16
	pixdim     [8]float32
	voxOffset  float32
	sclSlope   float32
	sclInter   float32
	sliceEnd   int16
	sliceCode  uint8
	xyztUnits  uint8

	calMax        float32
	calMin        float32
	sliceDuration float32
	toffset       float32

	descrip string
	auxFile string

	qformCode int16
	sformCode int16
	quatern   [3]float32
	qoffset   [3]float32
	srow      [3][4]float32

	magic    string
	extender [4]byte
}

// ByteOrder returns the byte order of the header and its voxel data.
func (h Header) ByteOrder() binary.ByteOrder {
	if h.byteOrder == nil {
		return binary.LittleEndian
	}
	return h.byteOrder
}

// NumDims returns dim[0], the number of declared dimensions.
func (h Header) NumDims() int {
	return int(h.dim[0])
}

// Dim returns the size of dimension i, 1-based as in the header.  Dimensions beyond
// the declared count return 0.
func (h Header) Dim(i int) int {
	if i < 1 || i > h.NumDims() {
		return 0
	}
	return int(h.dim[i])
}

// Dims returns the sizes of the declared dimensions.
func (h Header) Dims() []int {
	dims := make([]int, h.NumDims())
	for i := range dims {
		dims[i] = int(h.dim[i+1])
	}
	return dims
}

// extent is like Dim but treats undeclared dimensions as singletons.
func (h Header) extent(i int) int {
	if i > h.NumDims() {
		return 1
	}
	return int(h.dim[i])
}

// XDim, YDim and ZDim are the spatial extents with undeclared axes of size 1.
func (h Header) XDim() int { return h.extent(1) }
func (h Header) YDim() int { return h.extent(2) }
func (h Header) ZDim() int { return h.extent(3) }

// NumVolumes returns the number of 3D volumes, i.e., the product of the sizes of
// dimensions 4 through 7.  A 3D dataset has one volume.
func (h Header) NumVolumes() int {
	n := 1
	for i := 4; i <= MaxDims; i++ {
		n *= h.extent(i)
	}
	return n
}

// VoxelsPerVolume returns X*Y*Z.
func (h Header) VoxelsPerVolume() int64 {
	return int64(h.XDim()) * int64(h.YDim()) * int64(h.ZDim())
}

// VolumeBytes returns the number of payload bytes in one 3D volume.
func (h Header) VolumeBytes() int64 {
	return h.VoxelsPerVolume() * int64(h.datatype.Bytes())
}

// DataBytes returns the size of the whole voxel payload.
func (h Header) DataBytes() int64 {
	return h.VolumeBytes() * int64(h.NumVolumes())
}

// Datatype returns the voxel datatype code.
func (h Header) Datatype() nifti.Datatype {
	return h.datatype
}

// BitPix returns the bits per voxel implied by the datatype.
func (h Header) BitPix() int {
	return h.datatype.BitPix()
}

// PixDim returns pixdim[i].  PixDim(0) is qfac and PixDim(1..7) are voxel spacings.
func (h Header) PixDim(i int) float32 {
	if i < 0 || i > MaxDims {
		return 0
	}
	return h.pixdim[i]
}

// VoxOffset returns the byte offset of voxel data within a combined file.
func (h Header) VoxOffset() int64 {
	return int64(h.voxOffset)
}

// ScaleParams returns the raw scl_slope and scl_inter fields.
func (h Header) ScaleParams() (slope, inter float32) {
	return h.sclSlope, h.sclInter
}

// Scale returns the intensity scaling to apply to raw voxel values.
func (h Header) Scale() Scale {
	slope := float64(h.sclSlope)
	if slope == 0 || math.IsNaN(slope) || math.IsInf(slope, 0) {
		return Identity
	}
	inter := float64(h.sclInter)
	if math.IsNaN(inter) || math.IsInf(inter, 0) {
		inter = 0
	}
	return Scale{Slope: slope, Inter: inter}
}

// Intent returns the intent code, its parameters and the intent name.
func (h Header) Intent() (code IntentCode, p1, p2, p3 float32, name string) {
	return IntentCode(h.intentCode), h.intentP[0], h.intentP[1], h.intentP[2], h.intentName
}

// CalRange returns cal_min and cal_max, the display range.
func (h Header) CalRange() (min, max float32) {
	return h.calMin, h.calMax
}

// SliceInfo returns slice timing fields.
func (h Header) SliceInfo() (code SliceCode, start, end int, duration float32) {
	return SliceCode(h.sliceCode), int(h.sliceStart), int(h.sliceEnd), h.sliceDuration
}

// DimInfo returns the frequency, phase and slice encoding dimensions (0 if unknown).
func (h Header) DimInfo() (freq, phase, slice int) {
	return int(h.dimInfo & 0x03), int((h.dimInfo >> 2) & 0x03), int((h.dimInfo >> 4) & 0x03)
}

// Units returns the spatial and temporal units packed in xyzt_units.
func (h Header) Units() (space SpaceUnits, time TimeUnits) {
	return SpaceUnits(h.xyztUnits & 0x07), TimeUnits(h.xyztUnits & 0x38)
}

// TOffset returns the time coordinate offset.
func (h Header) TOffset() float32 {
	return h.toffset
}

// Description returns the free-text description.
func (h Header) Description() string {
	return h.descrip
}

// AuxFile returns the auxiliary file name.
func (h Header) AuxFile() string {
	return h.auxFile
}

// QForm returns the qform code, quaternion (b, c, d) and offsets.
func (h Header) QForm() (code XFormCode, quatern, offset [3]float32) {
	return XFormCode(h.qformCode), h.quatern, h.qoffset
}

// SForm returns the sform code and the first three rows of the affine.
func (h Header) SForm() (code XFormCode, rows [3][4]float32) {
	return XFormCode(h.sformCode), h.srow
}

// Magic returns "n+1" for combined datasets and "ni1" for paired ones.
func (h Header) Magic() string {
	return h.magic
}

// HasExtensions returns true if the extender flags extension records after the header.
func (h Header) HasExtensions() bool {
	return h.extender[0] != 0
}

// Builder returns a Builder initialized with this header's fields.
func (h Header) Builder() *Builder {
	return &Builder{h: h}
}
