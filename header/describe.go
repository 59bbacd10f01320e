package header

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// String returns a multi-line, human-readable listing of every header field.
func (h Header) String() string {
	var sb strings.Builder
	order := "little-endian"
	if h.ByteOrder() == binary.BigEndian {
		order = "big-endian"
	}
	fmt.Fprintf(&sb, "magic:          %q (%s)\n", h.magic, order)
	fmt.Fprintf(&sb, "dims:           %d %v\n", h.NumDims(), h.Dims())
	fmt.Fprintf(&sb, "datatype:       %s (code %d, %d bits)\n", h.datatype, int16(h.datatype), h.BitPix())
	fmt.Fprintf(&sb, "pixdim:         %v\n", h.pixdim)
	space, time := h.Units()
	fmt.Fprintf(&sb, "units:          space %s, time %s\n", space, time)
	fmt.Fprintf(&sb, "vox_offset:     %d\n", h.VoxOffset())
	fmt.Fprintf(&sb, "scl_slope:      %g\n", h.sclSlope)
	fmt.Fprintf(&sb, "scl_inter:      %g\n", h.sclInter)
	fmt.Fprintf(&sb, "cal range:      %g to %g\n", h.calMin, h.calMax)
	freq, phase, slice := h.DimInfo()
	fmt.Fprintf(&sb, "dim_info:       freq %d, phase %d, slice %d\n", freq, phase, slice)
	fmt.Fprintf(&sb, "slice timing:   %s, slices %d-%d, duration %g\n", SliceCode(h.sliceCode), h.sliceStart, h.sliceEnd, h.sliceDuration)
	fmt.Fprintf(&sb, "toffset:        %g\n", h.toffset)
	fmt.Fprintf(&sb, "intent:         %s (%g, %g, %g) %q\n", IntentCode(h.intentCode), h.intentP[0], h.intentP[1], h.intentP[2], h.intentName)
	fmt.Fprintf(&sb, "qform:          %s quatern %v offset %v\n", XFormCode(h.qformCode), h.quatern, h.qoffset)
	fmt.Fprintf(&sb, "sform:          %s\n", XFormCode(h.sformCode))
	for r := 0; r < 3; r++ {
		fmt.Fprintf(&sb, "  srow_%c:       %v\n", 'x'+r, h.srow[r])
	}
	fmt.Fprintf(&sb, "descrip:        %q\n", h.descrip)
	fmt.Fprintf(&sb, "aux_file:       %q\n", h.auxFile)
	fmt.Fprintf(&sb, "extensions:     %t\n", h.HasExtensions())
	fmt.Fprintf(&sb, "volumes:        %d of %s each (%s total)\n", h.NumVolumes(),
		humanize.Bytes(uint64(h.VolumeBytes())), humanize.Bytes(uint64(h.DataBytes())))
	return sb.String()
}
