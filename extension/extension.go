/*
	Package extension reads and writes the records stored between the fixed header block
	and the voxel payload.  Each record is (esize int32, ecode int32, data) where esize
	counts itself and is padded to a multiple of 16 bytes.
*/
package extension

import (
	"encoding/binary"
	"fmt"

	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/nifti"
)

const (
	// Alignment of every record's total size.
	Alignment = 16

	// PrefixSize is the size of the esize and ecode fields preceding the data.
	PrefixSize = 8
)

// Record is one extension.  Data never includes the zero padding added on disk.
type Record struct {
	Code int32
	Data []byte
}

// Size returns the padded on-disk size of the record, including its prefix.
func (r Record) Size() int64 {
	return nifti.RoundUp(int64(PrefixSize+len(r.Data)), Alignment)
}

func (r Record) String() string {
	return fmt.Sprintf("extension %s (code %d, %d bytes)", CodeName(r.Code), r.Code, len(r.Data))
}

// TotalSize returns the number of bytes the records occupy on disk.
func TotalSize(records []Record) int64 {
	var total int64
	for _, r := range records {
		total += r.Size()
	}
	return total
}

// DataOffset returns the smallest voxel offset of a combined dataset carrying the records.
func DataOffset(records []Record) int64 {
	return header.BlockSize + TotalSize(records)
}

// Read decodes the records in tail, which holds every byte from the end of the header
// block up to the start of voxel data (or the end of a paired header file).  Records
// must exactly fill tail.
func Read(tail []byte, order binary.ByteOrder) ([]Record, error) {
	var records []Record
	var pos int
	for pos < len(tail) {
		remain := len(tail) - pos
		if remain < PrefixSize {
			return nil, fmt.Errorf("%d bytes left at offset %d cannot hold an extension: %w",
				remain, header.BlockSize+pos, nifti.ErrTruncatedExtension)
		}
		esize := int32(order.Uint32(tail[pos:]))
		ecode := int32(order.Uint32(tail[pos+4:]))
		if esize < PrefixSize {
			return nil, fmt.Errorf("extension at offset %d has esize %d: %w",
				header.BlockSize+pos, esize, nifti.ErrTruncatedExtension)
		}
		if int(esize) > remain {
			return nil, fmt.Errorf("extension at offset %d with esize %d overruns the %d bytes available: %w",
				header.BlockSize+pos, esize, remain, nifti.ErrTruncatedExtension)
		}
		data := tail[pos+PrefixSize : pos+int(esize)]
		records = append(records, Record{Code: ecode, Data: trimPadding(data)})
		pos += int(esize)
	}
	return records, nil
}

// trimPadding drops the zero bytes that can have been added to reach the alignment.
func trimPadding(data []byte) []byte {
	n := len(data)
	for i := 0; i < Alignment-1 && n > 0 && data[n-1] == 0; i++ {
		n--
	}
	out := make([]byte, n)
	copy(out, data[:n])
	return out
}

// Encode returns the on-disk bytes of the records in the given byte order.
func Encode(records []Record, order binary.ByteOrder) []byte {
	b := make([]byte, TotalSize(records))
	var pos int64
	for _, r := range records {
		size := r.Size()
		order.PutUint32(b[pos:], uint32(size))
		order.PutUint32(b[pos+4:], uint32(r.Code))
		copy(b[pos+PrefixSize:], r.Data)
		pos += size
	}
	return b
}

// Append returns a new list with a record for the payload added at the end, along with
// the voxel offset a combined dataset holding the new list must use.  The given
// records are not modified.
func Append(records []Record, code int32, payload []byte) ([]Record, int64) {
	data := make([]byte, len(payload))
	copy(data, payload)
	out := make([]Record, len(records), len(records)+1)
	copy(out, records)
	out = append(out, Record{Code: code, Data: data})
	return out, DataOffset(out)
}
