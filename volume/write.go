package volume

import (
	"fmt"
	"os"

	"github.com/janelia-flyem/nifti/codec"
	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/nifti"
)

// WriteVolume stores vol, a [z][y][x] array, as volume t.  Values are unscaled and
// encoded before anything is written, so a bad shape or index leaves the file alone.
// Volumes may be written in any order; the data file grows as needed.
func (e *Engine) WriteVolume(vol [][][]float64, t int) error {
	if err := e.checkVolume(t); err != nil {
		return err
	}
	flat, err := e.flatten(vol)
	if err != nil {
		return err
	}
	if !e.scale.IsIdentity() {
		for i, v := range flat {
			flat[i] = e.scale.Invert(v)
		}
	}
	raw, err := codec.EncodeSlice(flat, e.hdr.Datatype(), e.hdr.ByteOrder())
	if err != nil {
		return err
	}
	timedLog := nifti.NewTimeLog()
	if err := e.writeData(e.volumeOffset(t), raw, false); err != nil {
		return err
	}
	timedLog.Debugf("wrote volume %d of %s (%d voxels)", t, e.layout, len(flat))
	return nil
}

// WriteAll stores the entire raw payload, which must be exactly DataBytes() long.
// Anything in the data file past the payload is removed.
func (e *Engine) WriteAll(raw []byte) error {
	if n := e.hdr.DataBytes(); int64(len(raw)) != n {
		return fmt.Errorf("payload of %d bytes given for %s which requires %d: %w", len(raw), e.layout, n, nifti.ErrSizeMismatch)
	}
	return e.writeData(e.start, raw, true)
}

// headerBytes returns the serialized header, the encoded extensions and, for combined
// datasets, zero padding up to the voxel offset.
func (e *Engine) headerBytes(exts []byte) ([]byte, error) {
	need := int64(header.BlockSize + len(exts))
	size := need
	if e.layout.SingleFile() {
		if e.start < need {
			return nil, fmt.Errorf("vox_offset %d of %s cannot hold %d bytes of header and extensions: %w",
				e.start, e.layout, need, nifti.ErrSizeMismatch)
		}
		size = e.start
	}
	b := make([]byte, size)
	copy(b, header.Serialize(e.hdr))
	copy(b[header.BlockSize:], exts)
	return b, nil
}

// WriteHeader stores the header block followed by the encoded extension records.  For
// combined datasets the bytes before the voxel offset are overwritten and the payload
// kept; paired header files are replaced.
func (e *Engine) WriteHeader(exts []byte) error {
	b, err := e.headerBytes(exts)
	if err != nil {
		return err
	}
	if e.layout.SingleFile() {
		return e.writeData(0, b, false)
	}
	return replaceFile(e.layout.HeaderPath(), e.layout.Compressed(), b)
}

// WriteDataset stores header, extensions and the whole payload.  A combined dataset is
// assembled in a temporary file that then replaces the original, so readers see either
// the old or the new file.  Paired datasets have each file replaced in turn, header
// first, with no atomicity across the two.
func (e *Engine) WriteDataset(exts, raw []byte) error {
	if n := e.hdr.DataBytes(); int64(len(raw)) != n {
		return fmt.Errorf("payload of %d bytes given for %s which requires %d: %w", len(raw), e.layout, n, nifti.ErrSizeMismatch)
	}
	return e.replace(exts, raw)
}

// Reset stores the header and extensions with an empty payload, replacing any
// existing files.  Volumes can then be added with WriteVolume.
func (e *Engine) Reset(exts []byte) error {
	return e.replace(exts, nil)
}

func (e *Engine) replace(exts, raw []byte) error {
	hdr, err := e.headerBytes(exts)
	if err != nil {
		return err
	}
	defer bumpGeneration(e.layout.DataPath())
	if e.layout.SingleFile() {
		return replaceFile(e.layout.DataPath(), e.layout.Compressed(), hdr, raw)
	}
	if err := replaceFile(e.layout.HeaderPath(), e.layout.Compressed(), hdr); err != nil {
		return err
	}
	return replaceFile(e.layout.DataPath(), e.layout.Compressed(), raw)
}

// writeData writes b at offset off of the (decompressed) data file, creating it if
// needed.  With truncate set the file ends right after b.
func (e *Engine) writeData(off int64, b []byte, truncate bool) error {
	path := e.layout.DataPath()
	defer bumpGeneration(path)
	if e.layout.Compressed() {
		return spliceGzip(path, off, b, truncate)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nifti.NewIOError("open", path, err)
	}
	if _, err := f.WriteAt(b, off); err != nil {
		f.Close()
		return nifti.NewIOError("write", path, err)
	}
	if truncate {
		if err := f.Truncate(off + int64(len(b))); err != nil {
			f.Close()
			return nifti.NewIOError("truncate", path, err)
		}
	}
	return nifti.NewIOError("close", path, f.Close())
}
