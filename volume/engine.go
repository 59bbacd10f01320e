/*
	Package volume reads and writes voxel data of a dataset whose header and layout are
	already known.  Reads touch only the bytes needed for the requested volume or voxel
	series, and every call opens and closes its own files.
*/
package volume

import (
	"fmt"

	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
)

// Engine performs voxel I/O for one dataset.  It holds no open files and is safe for
// concurrent reads, but concurrent writes to the same dataset must be serialized by
// the caller.
type Engine struct {
	layout layout.Layout
	hdr    header.Header
	start  int64
	scale  header.Scale
}

// New returns an Engine for the dataset with the given layout and header.  Values are
// scaled by the header's slope and intercept on read and unscaled on write.
func New(l layout.Layout, h header.Header) *Engine {
	return &Engine{
		layout: l,
		hdr:    h,
		start:  layout.DataStart(l, h),
		scale:  h.Scale(),
	}
}

// Unscaled returns a copy of the engine that passes raw stored values through.
func (e *Engine) Unscaled() *Engine {
	raw := *e
	raw.scale = header.Identity
	return &raw
}

func (e *Engine) Header() header.Header { return e.hdr }
func (e *Engine) Layout() layout.Layout { return e.layout }

// DataStart returns the offset of the voxel payload within the data file.
func (e *Engine) DataStart() int64 { return e.start }

func (e *Engine) volumeOffset(t int) int64 {
	return e.start + int64(t)*e.hdr.VolumeBytes()
}

func (e *Engine) checkVolume(t int) error {
	if n := e.hdr.NumVolumes(); t < 0 || t >= n {
		return fmt.Errorf("volume %d requested from %s with %d volumes: %w", t, e.layout, n, nifti.ErrIndexOutOfRange)
	}
	return nil
}

func (e *Engine) checkVoxel(x, y, z int) error {
	nx, ny, nz := e.hdr.XDim(), e.hdr.YDim(), e.hdr.ZDim()
	if x < 0 || y < 0 || z < 0 || x >= nx || y >= ny || z >= nz {
		return fmt.Errorf("voxel (%d, %d, %d) outside %d x %d x %d volume of %s: %w",
			x, y, z, nx, ny, nz, e.layout, nifti.ErrIndexOutOfRange)
	}
	return nil
}

// NewVolume returns a zeroed [z][y][x] array backed by one contiguous slice.
func NewVolume(nx, ny, nz int) [][][]float64 {
	vol, _ := newVolume(nx, ny, nz)
	return vol
}

func newVolume(nx, ny, nz int) ([][][]float64, []float64) {
	flat := make([]float64, nx*ny*nz)
	vol := make([][][]float64, nz)
	for z := range vol {
		vol[z] = make([][]float64, ny)
		for y := range vol[z] {
			i := (z*ny + y) * nx
			vol[z][y] = flat[i : i+nx : i+nx]
		}
	}
	return vol, flat
}

// flatten copies vol into X-fastest order after checking it has the header's shape.
func (e *Engine) flatten(vol [][][]float64) ([]float64, error) {
	nx, ny, nz := e.hdr.XDim(), e.hdr.YDim(), e.hdr.ZDim()
	mismatch := func(what string, got, expected int) error {
		return fmt.Errorf("volume for %s has %d %s, expected %d: %w", e.layout, got, what, expected, nifti.ErrSizeMismatch)
	}
	if len(vol) != nz {
		return nil, mismatch("slices", len(vol), nz)
	}
	flat := make([]float64, 0, nx*ny*nz)
	for z := range vol {
		if len(vol[z]) != ny {
			return nil, mismatch(fmt.Sprintf("rows in slice %d", z), len(vol[z]), ny)
		}
		for y := range vol[z] {
			if len(vol[z][y]) != nx {
				return nil, mismatch(fmt.Sprintf("columns in row %d of slice %d", y, z), len(vol[z][y]), nx)
			}
			flat = append(flat, vol[z][y]...)
		}
	}
	return flat, nil
}
