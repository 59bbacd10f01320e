package volume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/stretchr/testify/require"
)

func makeHeader(t *testing.T, l layout.Layout, dt nifti.Datatype, dims ...int) header.Header {
	b := header.NewBuilder().SetDatatype(dt).SetDims(dims...)
	if !l.SingleFile() {
		b.SetMagic(header.MagicPaired).SetVoxOffset(0)
	}
	h, err := b.Build()
	require.NoError(t, err)
	return h
}

func filled(nx, ny, nz int, v float64) [][][]float64 {
	vol := NewVolume(nx, ny, nz)
	for z := range vol {
		for y := range vol[z] {
			for x := range vol[z][y] {
				vol[z][y][x] = v
			}
		}
	}
	return vol
}

// ramp returns a volume whose voxels hold their linear index plus base.
func ramp(nx, ny, nz int, base float64) [][][]float64 {
	vol := NewVolume(nx, ny, nz)
	for z := range vol {
		for y := range vol[z] {
			for x := range vol[z][y] {
				vol[z][y][x] = base + float64((z*ny+y)*nx+x)
			}
		}
	}
	return vol
}

func allLayouts(dir string) []layout.Layout {
	base := filepath.Join(dir, "vol")
	return []layout.Layout{
		layout.New(base+"-c", layout.KindCombined),
		layout.New(base+"-cz", layout.KindCombinedGz),
		layout.New(base+"-p", layout.KindPaired),
		layout.New(base+"-pz", layout.KindPairedGz),
	}
}

func TestVolumeAndTimecourse(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		h := makeHeader(t, l, nifti.DTFloat32, 4, 3, 2, 5)
		e := New(l, h)
		require.NoError(t, e.WriteHeader(nil), l.String())
		for v := 0; v < 5; v++ {
			require.NoError(t, e.WriteVolume(filled(4, 3, 2, float64(v)), v), l.String())
		}
		for v := 0; v < 5; v++ {
			vol, err := e.ReadVolume(v)
			require.NoError(t, err, l.String())
			require.Equal(t, filled(4, 3, 2, float64(v)), vol, l.String())
		}
		tc, err := e.ReadTimecourse(0, 0, 0)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 1, 2, 3, 4}, tc, l.String())

		raw, err := e.ReadAll()
		require.NoError(t, err)
		require.Len(t, raw, 4*3*2*5*4)

		// header rewrite keeps the payload
		require.NoError(t, e.WriteHeader(nil))
		vol, err := e.ReadVolume(3)
		require.NoError(t, err)
		require.Equal(t, filled(4, 3, 2, 3), vol, l.String())
	}
}

func TestVoxelOrder(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		e := New(l, makeHeader(t, l, nifti.DTInt32, 5, 4, 3, 2))
		require.NoError(t, e.WriteHeader(nil))
		require.NoError(t, e.WriteVolume(ramp(5, 4, 3, 0), 0))
		require.NoError(t, e.WriteVolume(ramp(5, 4, 3, 1000), 1))

		tc, err := e.ReadTimecourse(2, 1, 2)
		require.NoError(t, err)
		idx := float64((2*4+1)*5 + 2)
		require.Equal(t, []float64{idx, 1000 + idx}, tc, l.String())

		vol, err := e.ReadVolume(1)
		require.NoError(t, err)
		require.Equal(t, ramp(5, 4, 3, 1000), vol)
	}
}

func TestOutOfRange(t *testing.T) {
	dir := t.TempDir()
	l := layout.New(filepath.Join(dir, "none"), layout.KindCombined)
	e := New(l, makeHeader(t, l, nifti.DTUint8, 4, 3, 2, 5))

	// checked before the (missing) file is touched
	_, err := e.ReadVolume(5)
	require.True(t, errors.Is(err, nifti.ErrIndexOutOfRange))
	_, err = e.ReadVolume(-1)
	require.True(t, errors.Is(err, nifti.ErrIndexOutOfRange))
	_, err = e.ReadTimecourse(4, 0, 0)
	require.True(t, errors.Is(err, nifti.ErrIndexOutOfRange))
	_, err = e.ReadTimecourse(0, 0, -1)
	require.True(t, errors.Is(err, nifti.ErrIndexOutOfRange))
	err = e.WriteVolume(filled(4, 3, 2, 1), 5)
	require.True(t, errors.Is(err, nifti.ErrIndexOutOfRange))
	_, statErr := os.Stat(l.DataPath())
	require.True(t, os.IsNotExist(statErr))

	_, err = e.ReadVolume(0)
	require.True(t, errors.Is(err, nifti.ErrIOFailure))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestShapeMismatch(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		e := New(l, makeHeader(t, l, nifti.DTInt16, 4, 3, 2))
		require.NoError(t, e.WriteHeader(nil))
		require.NoError(t, e.WriteVolume(filled(4, 3, 2, 9), 0))
		before, err := e.ReadAll()
		require.NoError(t, err)

		for _, bad := range [][][][]float64{
			filled(4, 3, 3, 1),
			filled(4, 2, 2, 1),
			filled(5, 3, 2, 1),
			nil,
		} {
			err := e.WriteVolume(bad, 0)
			require.True(t, errors.Is(err, nifti.ErrSizeMismatch), l.String())
		}
		ragged := filled(4, 3, 2, 1)
		ragged[1][2] = ragged[1][2][:3]
		require.True(t, errors.Is(e.WriteVolume(ragged, 0), nifti.ErrSizeMismatch))

		after, err := e.ReadAll()
		require.NoError(t, err)
		require.Equal(t, before, after)

		require.True(t, errors.Is(e.WriteAll(make([]byte, 7)), nifti.ErrSizeMismatch))
	}
}

func TestShortFile(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		e := New(l, makeHeader(t, l, nifti.DTFloat64, 2, 2, 2, 3))
		require.NoError(t, e.WriteHeader(nil))
		require.NoError(t, e.WriteVolume(filled(2, 2, 2, 1), 0))

		_, err := e.ReadVolume(1)
		require.True(t, errors.Is(err, nifti.ErrSizeMismatch), l.String())
		_, err = e.ReadTimecourse(1, 1, 1)
		require.True(t, errors.Is(err, nifti.ErrSizeMismatch), l.String())
		_, err = e.ReadAll()
		require.True(t, errors.Is(err, nifti.ErrSizeMismatch), l.String())
	}
}

func TestScaling(t *testing.T) {
	dir := t.TempDir()
	l := layout.New(filepath.Join(dir, "scaled"), layout.KindCombined)
	h, err := header.NewBuilder().SetDatatype(nifti.DTInt16).SetDims(2, 2, 1).SetScale(2, 1).Build()
	require.NoError(t, err)
	e := New(l, h)
	require.NoError(t, e.WriteHeader(nil))

	vol := [][][]float64{{{7, 1}, {-3, 99}}}
	require.NoError(t, e.WriteVolume(vol, 0))

	got, err := e.ReadVolume(0)
	require.NoError(t, err)
	require.Equal(t, vol, got)

	raw, err := e.Unscaled().ReadVolume(0)
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{3, 0}, {-2, 49}}}, raw)

	// stored values are rounded half away from zero: (100-1)/2 = 49.5 -> 50 -> 101
	require.NoError(t, e.WriteVolume([][][]float64{{{0, 0}, {0, 100}}}, 0))
	got, err = e.ReadVolume(0)
	require.NoError(t, err)
	require.Equal(t, 101.0, got[0][1][1])

	tc, err := e.ReadTimecourse(1, 1, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{101}, tc)
}

func TestWriteAllTruncates(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		e := New(l, makeHeader(t, l, nifti.DTUint8, 2, 2, 1, 2))
		require.NoError(t, e.WriteHeader(nil))
		require.NoError(t, e.WriteVolume(filled(2, 2, 1, 5), 0))
		require.NoError(t, e.WriteVolume(filled(2, 2, 1, 6), 1))
		require.NoError(t, e.WriteVolume(filled(2, 2, 1, 6), 1))

		payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		require.NoError(t, e.WriteAll(payload))
		raw, err := e.ReadAll()
		require.NoError(t, err)
		require.Equal(t, payload, raw)

		if !l.Compressed() {
			fi, err := os.Stat(l.DataPath())
			require.NoError(t, err)
			require.Equal(t, e.DataStart()+8, fi.Size())
		}
	}
}

func TestWriteDataset(t *testing.T) {
	exts := make([]byte, 32)
	copy(exts, "extension bytes")
	for _, l := range allLayouts(t.TempDir()) {
		b := header.NewBuilder().SetDatatype(nifti.DTUint16).SetDims(3, 1, 1, 2).SetExtensions(true)
		if l.SingleFile() {
			b.SetVoxOffset(header.BlockSize + 32)
		} else {
			b.SetMagic(header.MagicPaired).SetVoxOffset(0)
		}
		h, err := b.Build()
		require.NoError(t, err)
		e := New(l, h)

		payload := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0}
		require.NoError(t, e.WriteDataset(exts, payload))

		tc, err := e.ReadTimecourse(2, 0, 0)
		require.NoError(t, err)
		require.Equal(t, []float64{3, 6}, tc)

		headerFile, err := OpenFile(l.HeaderPath(), l.Compressed())
		require.NoError(t, err)
		prefix := make([]byte, header.BlockSize+32)
		_, err = io.ReadFull(headerFile, prefix)
		require.NoError(t, err)
		require.NoError(t, headerFile.Close())
		require.True(t, bytes.Equal(prefix[header.BlockSize:], exts), l.String())

		// offsets too small for the extensions are rejected before writing
		if l.SingleFile() {
			require.True(t, errors.Is(e.WriteHeader(make([]byte, 48)), nifti.ErrSizeMismatch))
		}
	}
}

func TestCache(t *testing.T) {
	InitializeCache(4 * nifti.Mega)
	defer InitializeCache(0)

	dir := t.TempDir()
	l := layout.New(filepath.Join(dir, "cached"), layout.KindCombined)
	e := New(l, makeHeader(t, l, nifti.DTUint8, 4, 4, 4, 2))
	require.NoError(t, e.WriteHeader(nil))
	require.NoError(t, e.WriteVolume(filled(4, 4, 4, 1), 0))

	attempts0, hits0 := CacheStats()
	_, err := e.ReadVolume(0)
	require.NoError(t, err)
	vol, err := e.ReadVolume(0)
	require.NoError(t, err)
	require.Equal(t, filled(4, 4, 4, 1), vol)
	attempts, hits := CacheStats()
	require.Equal(t, attempts0+2, attempts)
	require.Equal(t, hits0+1, hits)

	// a write must never be masked by a cached volume
	require.NoError(t, e.WriteVolume(filled(4, 4, 4, 2), 0))
	vol, err = e.ReadVolume(0)
	require.NoError(t, err)
	require.Equal(t, filled(4, 4, 4, 2), vol)
}

func TestCompressionLevel(t *testing.T) {
	level := CompressionLevel()
	defer SetCompressionLevel(level)
	require.NoError(t, SetCompressionLevel(9))
	require.Equal(t, 9, CompressionLevel())
	require.Error(t, SetCompressionLevel(42))
	require.Equal(t, 9, CompressionLevel())
}

func TestReset(t *testing.T) {
	for _, l := range allLayouts(t.TempDir()) {
		e := New(l, makeHeader(t, l, nifti.DTUint8, 2, 2, 2, 2))
		require.NoError(t, e.WriteDataset(nil, make([]byte, 16)))
		_, err := e.ReadVolume(1)
		require.NoError(t, err)

		require.NoError(t, e.Reset(nil))
		_, err = e.ReadVolume(0)
		require.True(t, errors.Is(err, nifti.ErrSizeMismatch), l.String())

		r, err := OpenFile(l.HeaderPath(), l.Compressed())
		require.NoError(t, err)
		h, err := header.ReadFrom(r)
		require.NoError(t, r.Close())
		require.NoError(t, err)
		require.Equal(t, e.Header(), h)
	}
}

func TestConcurrentCachedReads(t *testing.T) {
	InitializeCache(4 * nifti.Mega)
	defer InitializeCache(0)

	l := layout.New(filepath.Join(t.TempDir(), "shared"), layout.KindCombinedGz)
	e := New(l, makeHeader(t, l, nifti.DTInt16, 8, 8, 4, 3))
	require.NoError(t, e.WriteHeader(nil))
	for v := 0; v < 3; v++ {
		require.NoError(t, e.WriteVolume(ramp(8, 8, 4, float64(v*1000)), v))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 24)
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			vol, err := e.ReadVolume(v)
			if err == nil && vol[3][7][7] != float64(v*1000+255) {
				err = fmt.Errorf("volume %d has %g at (7,7,3)", v, vol[3][7][7])
			}
			errs <- err
		}(i % 3)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
