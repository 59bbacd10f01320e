/*
	This file handles the on-disk representation of a voxel: its datatype code,
	byte width and numeric kind.
*/

package nifti

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Datatype is the NIfTI-1 datatype code stored in the header, e.g., 16 for float32.
type Datatype int16

const (
	DTUnknown    Datatype = 0
	DTBinary     Datatype = 1
	DTUint8      Datatype = 2
	DTInt16      Datatype = 4
	DTInt32      Datatype = 8
	DTFloat32    Datatype = 16
	DTComplex64  Datatype = 32
	DTFloat64    Datatype = 64
	DTRGB24      Datatype = 128
	DTInt8       Datatype = 256
	DTUint16     Datatype = 512
	DTUint32     Datatype = 768
	DTInt64      Datatype = 1024
	DTUint64     Datatype = 1280
	DTFloat128   Datatype = 1536
	DTComplex128 Datatype = 1792
	DTComplex256 Datatype = 2048
	DTRGBA32     Datatype = 2304
)

// Kind is the numeric interpretation of a voxel's bytes.
type Kind uint8

const (
	KindNone Kind = iota
	KindUnsigned
	KindSigned
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	default:
		return "none"
	}
}

type datatypeInfo struct {
	name      string
	bitpix    int
	kind      Kind
	supported bool
}

// Every code the format defines is listed.  Only entries marked supported can be
// converted to and from float64; the rest are known so headers using them can be
// reported by name before being rejected.
var datatypes = map[Datatype]datatypeInfo{
	DTUnknown:    {"unknown", 0, KindNone, false},
	DTBinary:     {"binary", 1, KindNone, false},
	DTUint8:      {"uint8", 8, KindUnsigned, true},
	DTInt16:      {"int16", 16, KindSigned, true},
	DTInt32:      {"int32", 32, KindSigned, true},
	DTFloat32:    {"float32", 32, KindFloat, true},
	DTComplex64:  {"complex64", 64, KindNone, false},
	DTFloat64:    {"float64", 64, KindFloat, true},
	DTRGB24:      {"rgb24", 24, KindNone, false},
	DTInt8:       {"int8", 8, KindSigned, true},
	DTUint16:     {"uint16", 16, KindUnsigned, true},
	DTUint32:     {"uint32", 32, KindUnsigned, true},
	DTInt64:      {"int64", 64, KindSigned, true},
	DTUint64:     {"uint64", 64, KindUnsigned, true},
	DTFloat128:   {"float128", 128, KindNone, false},
	DTComplex128: {"complex128", 128, KindNone, false},
	DTComplex256: {"complex256", 256, KindNone, false},
	DTRGBA32:     {"rgba32", 32, KindNone, false},
}

// Supported returns true if voxels of this datatype can be decoded and encoded.
func (dt Datatype) Supported() bool {
	return datatypes[dt].supported
}

// Validate returns an error wrapping ErrUnsupportedDatatype if dt is not supported.
func (dt Datatype) Validate() error {
	if !dt.Supported() {
		return fmt.Errorf("datatype %s: %w", dt, ErrUnsupportedDatatype)
	}
	return nil
}

// BitPix returns the number of bits per voxel, or 0 for an unknown code.
func (dt Datatype) BitPix() int {
	return datatypes[dt].bitpix
}

// Bytes returns the number of bytes per voxel for a supported datatype.  No error
// checking is performed; unsupported datatypes return their nominal width, if any.
func (dt Datatype) Bytes() int {
	return datatypes[dt].bitpix / 8
}

// Kind returns the numeric kind of a supported datatype or KindNone.
func (dt Datatype) Kind() Kind {
	info := datatypes[dt]
	if !info.supported {
		return KindNone
	}
	return info.kind
}

func (dt Datatype) String() string {
	if info, found := datatypes[dt]; found {
		return info.name
	}
	return fmt.Sprintf("datatype(%d)", int16(dt))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (dt Datatype) MarshalText() ([]byte, error) {
	if _, found := datatypes[dt]; !found {
		return nil, fmt.Errorf("datatype code %d: %w", int16(dt), ErrUnsupportedDatatype)
	}
	return []byte(dt.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.  Either the
// name ("float32") or the numeric code ("16") is accepted.
func (dt *Datatype) UnmarshalText(b []byte) error {
	parsed, err := ParseDatatype(string(b))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// ParseDatatype returns the supported Datatype for a name or numeric code.
func ParseDatatype(s string) (Datatype, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, err := strconv.ParseInt(s, 10, 16); err == nil {
		dt := Datatype(code)
		return dt, dt.Validate()
	}
	for dt, info := range datatypes {
		if info.name == s {
			return dt, dt.Validate()
		}
	}
	return DTUnknown, fmt.Errorf("datatype %q: %w", s, ErrUnsupportedDatatype)
}

// SupportedDatatypes returns all datatypes that can be read and written, in code order.
func SupportedDatatypes() []Datatype {
	var dts []Datatype
	for dt, info := range datatypes {
		if info.supported {
			dts = append(dts, dt)
		}
	}
	sort.Slice(dts, func(i, j int) bool { return dts[i] < dts[j] })
	return dts
}
