/*
	Package dataset composes header, layout, extension and volume handling into
	operations on whole NIfTI-1 datasets: create, open, copy, read and write volumes and
	time courses, and add extensions.

	A Dataset is not safe for concurrent mutation.  Paired datasets are never updated
	atomically across their two files: an interrupted write can leave a header that
	disagrees with its data file, and recovery means writing the dataset again.
*/
package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/janelia-flyem/nifti/config"
	"github.com/janelia-flyem/nifti/extension"
	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/janelia-flyem/nifti/volume"
)

var (
	settingsMu sync.RWMutex

	defaultKind  = layout.KindCombined
	defaultOrder = binary.ByteOrder(binary.LittleEndian)
	schemas      = extension.NewSchemas()
)

// Initialize applies the loaded configuration: logging, the volume cache, output
// defaults and extension schemas.
func Initialize() error {
	config.Logging().SetLogger()
	volume.InitializeCache(config.CacheSize("volume"))
	if err := volume.SetCompressionLevel(config.CompressionLevel()); err != nil {
		return err
	}
	s := extension.NewSchemas()
	for code, path := range config.ExtensionSchemas() {
		if err := s.Load(code, path); err != nil {
			return err
		}
		nifti.Infof("Validating extension code %d (%s) payloads against %s\n", code, extension.CodeName(code), path)
	}

	settingsMu.Lock()
	defaultKind = config.DefaultLayout()
	defaultOrder = config.DefaultByteOrder()
	schemas = s
	settingsMu.Unlock()
	return nil
}

func settings() (layout.Kind, binary.ByteOrder, *extension.Schemas) {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return defaultKind, defaultOrder, schemas
}

// Dataset is a header and its extensions bound to the files holding them.
type Dataset struct {
	layout layout.Layout
	hdr    header.Header
	exts   []extension.Record
}

func (d *Dataset) Header() header.Header { return d.hdr }
func (d *Dataset) Layout() layout.Layout { return d.layout }

// Extensions returns a copy of the extension records.
func (d *Dataset) Extensions() []extension.Record {
	out := make([]extension.Record, len(d.exts))
	for i, r := range d.exts {
		out[i] = extension.Record{Code: r.Code, Data: append([]byte(nil), r.Data...)}
	}
	return out
}

func (d *Dataset) String() string {
	return d.layout.String()
}

func (d *Dataset) engine() *volume.Engine {
	return volume.New(d.layout, d.hdr)
}

// finalize sets the fields of b that the layout and extensions determine.
func finalize(b *header.Builder, l layout.Layout, exts []extension.Record) (header.Header, error) {
	b.SetMagic(l.Magic()).SetExtensions(len(exts) > 0)
	if l.SingleFile() {
		b.SetVoxOffset(extension.DataOffset(exts))
	} else {
		b.SetVoxOffset(0)
	}
	return b.Build()
}

// Create makes a new dataset at path with the given datatype and dimension sizes and
// writes its header.  The layout follows the path's extension, or the configured
// default for a bare name.  Existing files are replaced and the payload starts empty;
// fill it with WriteVolume or WriteData.
func Create(path string, dt nifti.Datatype, dims ...int) (*Dataset, error) {
	_, order, _ := settings()
	b := header.NewBuilder().
		SetDatatype(dt).
		SetDims(dims...).
		SetByteOrder(order).
		SetDescription(fmt.Sprintf("janelia-flyem/nifti %s", nifti.Version))
	return CreateWith(path, b)
}

// CreateWith is like Create but takes every header field from b.  The magic, voxel
// offset and extension flag are set to match the layout.
func CreateWith(path string, b *header.Builder) (*Dataset, error) {
	kind, _, _ := settings()
	l, err := layout.ForWrite(path, kind)
	if err != nil {
		return nil, err
	}
	h, err := finalize(b, l, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", l, err)
	}
	d := &Dataset{layout: l, hdr: h}
	if err := d.engine().Reset(nil); err != nil {
		return nil, err
	}
	nifti.Debugf("Created %s: %s %v, %s of voxel data expected\n", l, h.Datatype(), h.Dims(), humanizeBytes(h.DataBytes()))
	return d, nil
}

// Open reads the header and extensions of an existing dataset.  The path may name
// either file of a pair, or be a base name matching exactly one dataset.
func Open(path string) (*Dataset, error) {
	l, err := layout.Resolve(path)
	if err != nil {
		return nil, err
	}
	r, err := volume.OpenFile(l.HeaderPath(), l.Compressed())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h, err := header.ReadFrom(r)
	if err != nil {
		return nil, readError(l.HeaderPath(), err)
	}
	if err := layout.Check(l, h.Magic()); err != nil {
		return nil, err
	}
	d := &Dataset{layout: l, hdr: h}
	if h.HasExtensions() {
		if d.exts, err = readExtensions(r, l, h); err != nil {
			return nil, err
		}
	}
	nifti.Debugf("Opened %s: %s %v with %d extensions\n", l, h.Datatype(), h.Dims(), len(d.exts))
	return d, nil
}

// readExtensions reads the records following the header block from r.  They end at
// the voxel offset of a combined dataset or at the end of a paired header file.
func readExtensions(r io.Reader, l layout.Layout, h header.Header) ([]extension.Record, error) {
	var tail []byte
	var err error
	if l.SingleFile() {
		// read what the file holds so a short file fails before a large allocation
		want := h.VoxOffset() - header.BlockSize
		tail, err = io.ReadAll(io.LimitReader(r, want))
		if err == nil && int64(len(tail)) < want {
			return nil, fmt.Errorf("%s ends before its voxel offset %d: %w", l, h.VoxOffset(), nifti.ErrTruncatedExtension)
		}
	} else {
		tail, err = io.ReadAll(r)
	}
	if err != nil {
		return nil, nifti.NewIOError("read", l.HeaderPath(), err)
	}
	exts, err := extension.Read(tail, h.ByteOrder())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.HeaderPath(), err)
	}
	return exts, nil
}

var formatErrors = []error{
	nifti.ErrBadMagic,
	nifti.ErrUnsupportedDatatype,
	nifti.ErrInvalidDims,
	nifti.ErrSizeMismatch,
	nifti.ErrIOFailure,
}

// readError adds the path to a header parse error, or wraps a storage failure.
func readError(path string, err error) error {
	for _, kind := range formatErrors {
		if errors.Is(err, kind) {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nifti.NewIOError("read", path, err)
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nifti.NewIOError("read", path, err)
	}
	return b, nil
}
