package volume

import (
	"fmt"
	"io"
	"os"

	"github.com/janelia-flyem/nifti/codec"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/klauspost/compress/gzip"
)

// ReadVolume returns volume t as a [z][y][x] array.  Only that volume's bytes are read
// and, for compressed data, decompressed bytes before it are discarded as they stream.
func (e *Engine) ReadVolume(t int) ([][][]float64, error) {
	if err := e.checkVolume(t); err != nil {
		return nil, err
	}
	timedLog := nifti.NewTimeLog()
	raw, err := e.readVolumeBytes(t)
	if err != nil {
		return nil, err
	}
	nx, ny, nz := e.hdr.XDim(), e.hdr.YDim(), e.hdr.ZDim()
	vol, flat := newVolume(nx, ny, nz)
	if err := codec.DecodeInto(flat, raw, e.hdr.Datatype(), e.hdr.ByteOrder()); err != nil {
		return nil, err
	}
	e.applyScale(flat)
	timedLog.Debugf("read volume %d of %s (%d voxels)", t, e.layout, len(flat))
	return vol, nil
}

// ReadTimecourse returns the value of voxel (x, y, z) in every volume.  Only one voxel
// is read per volume.
func (e *Engine) ReadTimecourse(x, y, z int) ([]float64, error) {
	if err := e.checkVoxel(x, y, z); err != nil {
		return nil, err
	}
	width := int64(e.hdr.Datatype().Bytes())
	index := (int64(z)*int64(e.hdr.YDim())+int64(y))*int64(e.hdr.XDim()) + int64(x)
	offsets := make([]int64, e.hdr.NumVolumes())
	for t := range offsets {
		offsets[t] = e.volumeOffset(t) + index*width
	}
	raw, err := e.readVoxels(offsets, width)
	if err != nil {
		return nil, err
	}
	values, err := codec.DecodeSlice(raw, e.hdr.Datatype(), e.hdr.ByteOrder())
	if err != nil {
		return nil, err
	}
	e.applyScale(values)
	return values, nil
}

// ReadAll returns the entire raw voxel payload.
func (e *Engine) ReadAll() ([]byte, error) {
	return e.readRange(e.start, e.hdr.DataBytes())
}

func (e *Engine) applyScale(values []float64) {
	if e.scale.IsIdentity() {
		return
	}
	for i, v := range values {
		values[i] = e.scale.Apply(v)
	}
}

func (e *Engine) readVolumeBytes(t int) ([]byte, error) {
	key, cacheable := e.cacheKey(t)
	if cacheable {
		if raw := cacheGet(key); raw != nil {
			return raw, nil
		}
	}
	if !cacheable {
		return e.readRange(e.volumeOffset(t), e.hdr.VolumeBytes())
	}
	// concurrent misses on the same volume share one read
	v, err, _ := volumeReads.Do(string(key), func() (interface{}, error) {
		raw, err := e.readRange(e.volumeOffset(t), e.hdr.VolumeBytes())
		if err != nil {
			return nil, err
		}
		cacheSet(key, raw)
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// openData opens the data file, returning a reader positioned at its first
// decompressed byte along with a function releasing everything opened.
func (e *Engine) openData() (io.Reader, *os.File, func(), error) {
	path := e.layout.DataPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, nifti.NewIOError("open", path, err)
	}
	if !e.layout.Compressed() {
		return f, f, func() { f.Close() }, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, nil, nifti.NewIOError("gunzip", path, err)
	}
	return zr, f, func() { zr.Close(); f.Close() }, nil
}

func (e *Engine) shortErr(end int64) error {
	return fmt.Errorf("%s holds fewer than the %d bytes required by its header: %w",
		e.layout.DataPath(), end, nifti.ErrSizeMismatch)
}

func (e *Engine) readErr(err error, end int64) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return e.shortErr(end)
	}
	return nifti.NewIOError("read", e.layout.DataPath(), err)
}

// readRange reads n bytes at offset off of the (decompressed) data file.
func (e *Engine) readRange(off, n int64) ([]byte, error) {
	r, f, release, err := e.openData()
	if err != nil {
		return nil, err
	}
	defer release()

	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if e.layout.Compressed() {
		if err := discard(r, off); err != nil {
			return nil, e.readErr(err, off+n)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, e.readErr(err, off+n)
		}
		return buf, nil
	}
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, e.readErr(err, off+n)
	}
	return buf, nil
}

// readVoxels reads width bytes at each of the increasing offsets with one pass over
// the file.
func (e *Engine) readVoxels(offsets []int64, width int64) ([]byte, error) {
	out := make([]byte, int64(len(offsets))*width)
	if len(offsets) == 0 || width == 0 {
		return out, nil
	}
	r, f, release, err := e.openData()
	if err != nil {
		return nil, err
	}
	defer release()

	var pos int64
	for i, off := range offsets {
		dst := out[int64(i)*width : int64(i+1)*width]
		if e.layout.Compressed() {
			if err := discard(r, off-pos); err != nil {
				return nil, e.readErr(err, off+width)
			}
			if _, err := io.ReadFull(r, dst); err != nil {
				return nil, e.readErr(err, off+width)
			}
			pos = off + width
		} else if _, err := f.ReadAt(dst, off); err != nil {
			return nil, e.readErr(err, off+width)
		}
	}
	return out, nil
}

// discard skips n bytes of r.
func discard(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	skipped, err := io.CopyN(io.Discard, r, n)
	if err == nil && skipped < n {
		return io.ErrUnexpectedEOF
	}
	return err
}
