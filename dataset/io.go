package dataset

import (
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
	"github.com/janelia-flyem/nifti/extension"
	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/janelia-flyem/nifti/volume"
)

func humanizeBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// ReadVolume returns volume t as a [z][y][x] array of scaled values.
func (d *Dataset) ReadVolume(t int) ([][][]float64, error) {
	return d.readVolume(d.engine(), t)
}

// ReadRawVolume is like ReadVolume but ignores scl_slope and scl_inter.
func (d *Dataset) ReadRawVolume(t int) ([][][]float64, error) {
	return d.readVolume(d.engine().Unscaled(), t)
}

func (d *Dataset) readVolume(e *volume.Engine, t int) ([][][]float64, error) {
	timedLog := nifti.NewTimeLog()
	vol, err := e.ReadVolume(t)
	if err != nil {
		return nil, err
	}
	// sizing walks every row, so only pay for it when the message is logged
	if nifti.DebugEnabled() {
		timedLog.Debugf("Volume %d of %s held in %s", t, d, humanizeBytes(int64(size.Of(vol))))
	}
	return vol, nil
}

// ReadTimecourse returns the scaled value of voxel (x, y, z) in every volume.
func (d *Dataset) ReadTimecourse(x, y, z int) ([]float64, error) {
	return d.engine().ReadTimecourse(x, y, z)
}

// ReadData returns the raw voxel payload.
func (d *Dataset) ReadData() ([]byte, error) {
	return d.engine().ReadAll()
}

// WriteVolume stores vol as volume t, applying the inverse of the header's scaling.
func (d *Dataset) WriteVolume(vol [][][]float64, t int) error {
	return d.engine().WriteVolume(vol, t)
}

// WriteData replaces the whole raw voxel payload.
func (d *Dataset) WriteData(raw []byte) error {
	return d.engine().WriteAll(raw)
}

// SetHeader replaces the in-memory header with the one staged in b, typically
// obtained from d.Header().Builder().  The magic, voxel offset and extension flag are
// kept as the layout and extensions require.  Nothing is written until WriteHeader;
// a changed datatype or size means the payload must be rewritten too.
func (d *Dataset) SetHeader(b *header.Builder) error {
	b.SetMagic(d.layout.Magic()).SetExtensions(len(d.exts) > 0)
	if d.layout.SingleFile() {
		b.SetVoxOffset(d.hdr.VoxOffset())
	} else {
		b.SetVoxOffset(0)
	}
	h, err := b.Build()
	if err != nil {
		return err
	}
	d.hdr = h
	return nil
}

// WriteHeader stores the header and extensions.  The payload is left in place.
func (d *Dataset) WriteHeader() error {
	return d.engine().WriteHeader(extension.Encode(d.exts, d.hdr.ByteOrder()))
}

// AddExtension appends an extension record and stores it.  A combined dataset is
// rewritten with its payload moved to the new voxel offset, replacing the file in one
// step.  A paired dataset only has its header file rewritten.
func (d *Dataset) AddExtension(code int32, payload []byte) error {
	_, _, s := settings()
	exts, offset := extension.Append(d.exts, code, payload)
	if err := s.Validate(exts[len(exts)-1]); err != nil {
		return err
	}
	h, err := finalize(d.hdr.Builder(), d.layout, exts)
	if err != nil {
		return err
	}
	next := &Dataset{layout: d.layout, hdr: h, exts: exts}
	encoded := extension.Encode(exts, h.ByteOrder())

	if d.layout.SingleFile() {
		raw, err := d.ReadData()
		if err != nil {
			return err
		}
		if err := next.engine().WriteDataset(encoded, raw); err != nil {
			return err
		}
		nifti.Debugf("Added %s to %s, voxel offset now %d, rewrote %s of voxel data\n",
			exts[len(exts)-1], d, offset, humanizeBytes(int64(len(raw))))
	} else {
		if err := next.engine().WriteHeader(encoded); err != nil {
			return err
		}
		nifti.Debugf("Added %s to %s header\n", exts[len(exts)-1], d)
	}
	*d = *next
	return nil
}

// VolumeWriter stores volumes of a dataset in increasing time order.
type VolumeWriter struct {
	d    *Dataset
	next int
}

// NewVolumeWriter returns a writer whose first Write stores volume 0.
func (d *Dataset) NewVolumeWriter() *VolumeWriter {
	return &VolumeWriter{d: d}
}

// Write stores vol as the next volume.
func (w *VolumeWriter) Write(vol [][][]float64) error {
	if err := w.d.WriteVolume(vol, w.next); err != nil {
		return err
	}
	w.next++
	return nil
}

// Written returns the number of volumes stored so far.
func (w *VolumeWriter) Written() int {
	return w.next
}

// Remaining returns the number of volumes still to be written.
func (w *VolumeWriter) Remaining() int {
	return w.d.hdr.NumVolumes() - w.next
}

// Describe returns the header listing plus the layout, orientation and extensions.
func (d *Dataset) Describe() string {
	desc := fmt.Sprintf("dataset:        %s (%s)\n", d.layout, d.layout.Kind())
	desc += d.hdr.String()
	m, code := d.hdr.StdMatrix()
	order := "neurological"
	if d.hdr.LeftRightOrder() == header.Radiological {
		order = "radiological"
	}
	desc += fmt.Sprintf("orientation:    %s via %s\n", order, code)
	for r := 0; r < 3; r++ {
		desc += fmt.Sprintf("  %8.3f %8.3f %8.3f %8.3f\n", m[r][0], m[r][1], m[r][2], m[r][3])
	}
	for i, r := range d.exts {
		desc += fmt.Sprintf("extension %d:    code %d (%s), %d bytes\n", i, r.Code, extension.CodeName(r.Code), len(r.Data))
	}
	return desc
}

// Copy duplicates the dataset at src, with its extensions, to dst.  A bare dst name
// keeps the layout kind of src; an extension on dst selects the layout of the copy.
func Copy(src, dst string) error {
	s, err := Open(src)
	if err != nil {
		return err
	}
	timedLog := nifti.NewTimeLog()
	raw, err := s.ReadData()
	if err != nil {
		return err
	}
	l, err := layout.ForWrite(dst, s.layout.Kind())
	if err != nil {
		return err
	}
	h, err := finalize(s.hdr.Builder(), l, s.exts)
	if err != nil {
		return err
	}
	d := &Dataset{layout: l, hdr: h, exts: s.exts}
	if err := d.engine().WriteDataset(extension.Encode(s.exts, h.ByteOrder()), raw); err != nil {
		return err
	}
	timedLog.Infof("Copied %s of voxel data from %s to %s", humanizeBytes(int64(len(raw))), s, d)
	return nil
}

// AddExtension appends the contents of payloadPath as an extension of the given code
// to the dataset at path.
func AddExtension(path string, code int32, payloadPath string) error {
	payload, err := readFile(payloadPath)
	if err != nil {
		return err
	}
	d, err := Open(path)
	if err != nil {
		return err
	}
	return d.AddExtension(code, payload)
}
