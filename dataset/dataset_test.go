package dataset_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janelia-flyem/nifti/config"
	"github.com/janelia-flyem/nifti/dataset"
	"github.com/janelia-flyem/nifti/extension"
	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/layout"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/janelia-flyem/nifti/tests"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type DatasetSuite struct{}

var _ = Suite(&DatasetSuite{})

func (s *DatasetSuite) SetUpSuite(c *C) {
	tests.UseDir()
}

func (s *DatasetSuite) TearDownSuite(c *C) {
	tests.CloseDir()
}

var exts = []string{".nii", ".nii.gz", ".hdr", ".hdr.gz"}

func isError(err, kind error) bool {
	return errors.Is(err, kind)
}

func (s *DatasetSuite) TestCreateReadBack(c *C) {
	for _, ext := range exts {
		path := tests.TempName("series") + ext
		_, err := tests.NewTimeSeries(path, nifti.DTFloat32, 4, 3, 2, 5)
		c.Assert(err, IsNil)

		d, err := dataset.Open(path)
		c.Assert(err, IsNil)
		h := d.Header()
		c.Assert(h.Dims(), DeepEquals, []int{4, 3, 2, 5})
		c.Assert(h.Datatype(), Equals, nifti.DTFloat32)
		c.Assert(h.Magic(), Equals, d.Layout().Magic())
		c.Assert(h.ByteOrder(), Equals, binary.ByteOrder(binary.LittleEndian))
		c.Assert(strings.HasPrefix(h.Description(), "janelia-flyem/nifti"), Equals, true)

		for t := 0; t < 5; t++ {
			vol, err := d.ReadVolume(t)
			c.Assert(err, IsNil)
			c.Assert(vol, DeepEquals, tests.Filled(4, 3, 2, float64(t)))
		}
		tc, err := d.ReadTimecourse(0, 0, 0)
		c.Assert(err, IsNil)
		c.Assert(tc, DeepEquals, []float64{0, 1, 2, 3, 4})

		_, err = d.ReadVolume(5)
		c.Assert(isError(err, nifti.ErrIndexOutOfRange), Equals, true)
		_, err = d.ReadTimecourse(0, 3, 0)
		c.Assert(isError(err, nifti.ErrIndexOutOfRange), Equals, true)

		raw, err := d.ReadData()
		c.Assert(err, IsNil)
		c.Assert(raw, HasLen, 4*3*2*5*4)
	}
}

func (s *DatasetSuite) TestOpenByEitherName(c *C) {
	base := tests.TempName("pair")
	_, err := tests.NewTimeSeries(base+".img", nifti.DTUint8, 2, 2, 2, 2)
	c.Assert(err, IsNil)
	for _, name := range []string{base, base + ".hdr", base + ".img"} {
		d, err := dataset.Open(name)
		c.Assert(err, IsNil)
		c.Assert(d.Layout(), DeepEquals, layout.Layout(layout.Paired{Header: base + ".hdr", Data: base + ".img"}))
	}
	c.Assert(os.WriteFile(base+".nii", nil, 0644), IsNil)
	_, err = dataset.Open(base)
	c.Assert(isError(err, nifti.ErrAmbiguousLayout), Equals, true)
}

func (s *DatasetSuite) TestExtensionCombined(c *C) {
	for _, ext := range []string{".nii", ".nii.gz"} {
		path := tests.TempName("ext") + ext
		d, err := tests.NewTimeSeries(path, nifti.DTInt16, 3, 3, 3, 4)
		c.Assert(err, IsNil)
		c.Assert(d.Header().VoxOffset(), Equals, int64(header.BlockSize))

		c.Assert(d.AddExtension(extension.CodeComment, []byte("hello")), IsNil)
		c.Assert(d.Header().VoxOffset(), Equals, int64(header.BlockSize+16))

		reopened, err := dataset.Open(path)
		c.Assert(err, IsNil)
		records := reopened.Extensions()
		c.Assert(records, HasLen, 1)
		c.Assert(records[0].Code, Equals, int32(6))
		c.Assert(string(records[0].Data), Equals, "hello")
		c.Assert(reopened.Header().HasExtensions(), Equals, true)
		c.Assert(reopened.Header().VoxOffset(), Equals, int64(header.BlockSize+16))

		// voxel data moved with the offset
		for t := 0; t < 4; t++ {
			vol, err := reopened.ReadVolume(t)
			c.Assert(err, IsNil)
			c.Assert(vol, DeepEquals, tests.Filled(3, 3, 3, float64(t)))
		}

		c.Assert(reopened.AddExtension(extension.CodeAFNI, []byte("<AFNI_attributes/>")), IsNil)
		again, err := dataset.Open(path)
		c.Assert(err, IsNil)
		c.Assert(again.Extensions(), HasLen, 2)
		c.Assert(again.Header().VoxOffset(), Equals, int64(header.BlockSize+16+32))
		tc, err := again.ReadTimecourse(2, 2, 2)
		c.Assert(err, IsNil)
		c.Assert(tc, DeepEquals, []float64{0, 1, 2, 3})
	}
}

func (s *DatasetSuite) TestExtensionPairedLeavesData(c *C) {
	for _, ext := range []string{".hdr", ".hdr.gz"} {
		path := tests.TempName("pairext") + ext
		d, err := tests.NewTimeSeries(path, nifti.DTUint16, 4, 2, 2, 3)
		c.Assert(err, IsNil)
		dataPath := d.Layout().DataPath()
		before, err := os.ReadFile(dataPath)
		c.Assert(err, IsNil)

		payloadPath := tests.TempName("payload")
		c.Assert(os.WriteFile(payloadPath, []byte("hello"), 0644), IsNil)
		c.Assert(dataset.AddExtension(path, extension.CodeComment, payloadPath), IsNil)

		after, err := os.ReadFile(dataPath)
		c.Assert(err, IsNil)
		c.Assert(bytes.Equal(before, after), Equals, true)

		reopened, err := dataset.Open(path)
		c.Assert(err, IsNil)
		c.Assert(reopened.Header().VoxOffset(), Equals, int64(0))
		c.Assert(reopened.Extensions(), DeepEquals, []extension.Record{{Code: 6, Data: []byte("hello")}})
		vol, err := reopened.ReadVolume(2)
		c.Assert(err, IsNil)
		c.Assert(vol, DeepEquals, tests.Filled(4, 2, 2, 2))
	}

	err := dataset.AddExtension(tests.TempName("missing")+".nii", 6, tests.TempName("nopayload"))
	c.Assert(isError(err, nifti.ErrIOFailure), Equals, true)
}

func (s *DatasetSuite) TestCopy(c *C) {
	src := tests.TempName("src") + ".nii"
	d, err := tests.NewTimeSeries(src, nifti.DTFloat64, 5, 4, 3, 6)
	c.Assert(err, IsNil)
	c.Assert(d.AddExtension(extension.CodeComment, []byte("provenance")), IsNil)

	for _, dst := range []string{tests.TempName("bare"), tests.TempName("dst") + ".hdr", tests.TempName("dst") + ".nii.gz"} {
		c.Assert(dataset.Copy(src, dst), IsNil)
		copied, err := dataset.Open(dst)
		c.Assert(err, IsNil)
		c.Assert(copied.Extensions(), DeepEquals, d.Extensions())
		c.Assert(copied.Header().Dims(), DeepEquals, d.Header().Dims())
		for t := 0; t < 6; t++ {
			want, err := d.ReadVolume(t)
			c.Assert(err, IsNil)
			got, err := copied.ReadVolume(t)
			c.Assert(err, IsNil)
			c.Assert(got, DeepEquals, want)
		}
	}

	// a bare destination keeps the combined layout
	bare := tests.TempName("keep")
	c.Assert(dataset.Copy(src, bare), IsNil)
	_, err = os.Stat(bare + ".nii")
	c.Assert(err, IsNil)

	// conversion to paired recomputes magic and offset
	hdr := tests.TempName("conv") + ".hdr"
	c.Assert(dataset.Copy(src, hdr), IsNil)
	conv, err := dataset.Open(hdr)
	c.Assert(err, IsNil)
	c.Assert(conv.Header().Magic(), Equals, header.MagicPaired)
	c.Assert(conv.Header().VoxOffset(), Equals, int64(0))
	fi, err := os.Stat(conv.Layout().DataPath())
	c.Assert(err, IsNil)
	c.Assert(fi.Size(), Equals, int64(5*4*3*6*8))
}

func (s *DatasetSuite) TestOpenErrors(c *C) {
	_, err := dataset.Open(tests.TempName("nothing"))
	c.Assert(isError(err, nifti.ErrAmbiguousLayout), Equals, true)

	_, err = dataset.Open(tests.TempName("nothing") + ".nii")
	c.Assert(isError(err, nifti.ErrIOFailure), Equals, true)
	c.Assert(isError(err, os.ErrNotExist), Equals, true)

	garbage := tests.TempName("garbage") + ".nii"
	c.Assert(os.WriteFile(garbage, tests.RandomBytes(100), 0644), IsNil)
	_, err = dataset.Open(garbage)
	c.Assert(isError(err, nifti.ErrSizeMismatch), Equals, true)

	h, err := header.NewBuilder().SetDims(2, 2).Build()
	c.Assert(err, IsNil)
	b := header.Serialize(h)
	copy(b[344:], "xyz")
	bad := tests.TempName("badmagic") + ".nii"
	c.Assert(os.WriteFile(bad, b, 0644), IsNil)
	_, err = dataset.Open(bad)
	c.Assert(isError(err, nifti.ErrBadMagic), Equals, true)

	// combined magic inside a paired header file
	mismatch := tests.TempName("mismatch") + ".hdr"
	c.Assert(os.WriteFile(mismatch, header.Serialize(h), 0644), IsNil)
	_, err = dataset.Open(mismatch)
	c.Assert(isError(err, nifti.ErrAmbiguousLayout), Equals, true)

	// extension running past the end of the file
	path := tests.TempName("trunc") + ".nii"
	d, err := tests.NewTimeSeries(path, nifti.DTUint8, 2, 2, 2, 1)
	c.Assert(err, IsNil)
	c.Assert(d.AddExtension(extension.CodeComment, []byte("a comment that spans two blocks")), IsNil)
	c.Assert(os.Truncate(path, header.BlockSize+20), IsNil)
	_, err = dataset.Open(path)
	c.Assert(isError(err, nifti.ErrTruncatedExtension), Equals, true)

	// vox_offset that is not a usable byte offset
	withExt, err := header.NewBuilder().SetDims(2, 2).SetExtensions(true).Build()
	c.Assert(err, IsNil)
	for _, offset := range []float32{float32(math.NaN()), float32(math.Inf(1)), 1e30, 1e9} {
		b := header.Serialize(withExt)
		binary.LittleEndian.PutUint32(b[108:], math.Float32bits(offset))
		b = append(b, make([]byte, 64)...)
		odd := tests.TempName("voxoffset") + ".nii"
		c.Assert(os.WriteFile(odd, b, 0644), IsNil)
		_, err = dataset.Open(odd)
		c.Assert(isError(err, nifti.ErrSizeMismatch), Equals, true, Commentf("vox_offset %g", offset))
	}

	// a valid but distant vox_offset in a short file
	b = header.Serialize(withExt)
	binary.LittleEndian.PutUint32(b[108:], math.Float32bits(header.MaxVoxOffset))
	b = append(b, make([]byte, 64)...)
	far := tests.TempName("far") + ".nii"
	c.Assert(os.WriteFile(far, b, 0644), IsNil)
	_, err = dataset.Open(far)
	c.Assert(isError(err, nifti.ErrTruncatedExtension), Equals, true)
}

func (s *DatasetSuite) TestShortPairedHeader(c *C) {
	base := tests.TempName("short")
	h, err := header.NewBuilder().SetMagic(header.MagicPaired).SetVoxOffset(0).
		SetDatatype(nifti.DTInt8).SetDims(3, 1, 1).Build()
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(base+".hdr", header.Serialize(h)[:header.StructSize], 0644), IsNil)
	c.Assert(os.WriteFile(base+".img", []byte{0xFF, 0, 7}, 0644), IsNil)

	d, err := dataset.Open(base + ".hdr")
	c.Assert(err, IsNil)
	c.Assert(d.Extensions(), HasLen, 0)
	vol, err := d.ReadVolume(0)
	c.Assert(err, IsNil)
	c.Assert(vol, DeepEquals, [][][]float64{{{-1, 0, 7}}})
}

func (s *DatasetSuite) TestScaledVolumes(c *C) {
	path := tests.TempName("scaled") + ".nii"
	b := header.NewBuilder().SetDatatype(nifti.DTInt16).SetDims(2, 1, 1, 2).SetScale(0.5, 10)
	d, err := dataset.CreateWith(path, b)
	c.Assert(err, IsNil)

	w := d.NewVolumeWriter()
	c.Assert(w.Remaining(), Equals, 2)
	c.Assert(w.Write([][][]float64{{{10, 12}}}), IsNil)
	c.Assert(w.Write([][][]float64{{{20, -10}}}), IsNil)
	c.Assert(w.Written(), Equals, 2)
	c.Assert(w.Remaining(), Equals, 0)
	err = w.Write([][][]float64{{{0, 0}}})
	c.Assert(isError(err, nifti.ErrIndexOutOfRange), Equals, true)

	d, err = dataset.Open(path)
	c.Assert(err, IsNil)
	vol, err := d.ReadVolume(1)
	c.Assert(err, IsNil)
	c.Assert(vol, DeepEquals, [][][]float64{{{20, -10}}})
	raw, err := d.ReadRawVolume(1)
	c.Assert(err, IsNil)
	c.Assert(raw, DeepEquals, [][][]float64{{{20, -40}}})
	tc, err := d.ReadTimecourse(1, 0, 0)
	c.Assert(err, IsNil)
	c.Assert(tc, DeepEquals, []float64{12, -10})
}

func (s *DatasetSuite) TestSetHeader(c *C) {
	for _, ext := range exts {
		path := tests.TempName("edit") + ext
		d, err := tests.NewTimeSeries(path, nifti.DTUint8, 2, 2, 2, 3)
		c.Assert(err, IsNil)
		c.Assert(d.AddExtension(extension.CodeComment, []byte("keep me")), IsNil)

		b := d.Header().Builder().SetDescription("edited").SetPixDim(1.5, 1.5, 3).SetMagic(header.MagicCombined)
		c.Assert(d.SetHeader(b), IsNil)
		c.Assert(d.WriteHeader(), IsNil)

		reopened, err := dataset.Open(path)
		c.Assert(err, IsNil)
		c.Assert(reopened.Header().Description(), Equals, "edited")
		c.Assert(reopened.Header().PixDim(3), Equals, float32(3))
		c.Assert(reopened.Header().Magic(), Equals, d.Layout().Magic())
		c.Assert(reopened.Extensions(), HasLen, 1)
		vol, err := reopened.ReadVolume(2)
		c.Assert(err, IsNil)
		c.Assert(vol, DeepEquals, tests.Filled(2, 2, 2, 2))
	}
}

func (s *DatasetSuite) TestWriteData(c *C) {
	path := tests.TempName("whole") + ".nii"
	d, err := dataset.Create(path, nifti.DTUint8, 2, 2)
	c.Assert(err, IsNil)
	c.Assert(isError(d.WriteData([]byte{1, 2, 3}), nifti.ErrSizeMismatch), Equals, true)
	c.Assert(d.WriteData([]byte{1, 2, 3, 4}), IsNil)
	vol, err := d.ReadVolume(0)
	c.Assert(err, IsNil)
	c.Assert(vol, DeepEquals, [][][]float64{{{1, 2}, {3, 4}}})

	_, err = dataset.Create(path, nifti.DTComplex64, 2, 2)
	c.Assert(isError(err, nifti.ErrUnsupportedDatatype), Equals, true)
	_, err = dataset.Create(path, nifti.DTUint8)
	c.Assert(isError(err, nifti.ErrInvalidDims), Equals, true)
}

func (s *DatasetSuite) TestDescribe(c *C) {
	path := tests.TempName("describe") + ".nii"
	d, err := tests.NewTimeSeries(path, nifti.DTInt32, 2, 2, 2, 2)
	c.Assert(err, IsNil)
	c.Assert(d.AddExtension(extension.CodeComment, []byte("note")), IsNil)
	desc := d.Describe()
	c.Assert(strings.Contains(desc, "NIFTI"), Equals, true)
	c.Assert(strings.Contains(desc, "int32"), Equals, true)
	c.Assert(strings.Contains(desc, "radiological"), Equals, true)
	c.Assert(strings.Contains(desc, "code 6 (comment), 4 bytes"), Equals, true)
}

const authorSchema = `{"type": "object", "required": ["author"]}`

func (s *DatasetSuite) TestConfigured(c *C) {
	dir := filepath.Dir(tests.TempName("config"))
	schemaPath := tests.TempName("schema") + ".json"
	c.Assert(os.WriteFile(schemaPath, []byte(authorSchema), 0644), IsNil)
	configPath := tests.TempName("config") + ".toml"
	toml := `
[output]
layout = "NIFTI_PAIR_GZ"
byte_order = "big"
compression = 1

[cache.volume]
size = 8

[extensions.schemas]
comment = "` + filepath.Base(schemaPath) + `"
`
	c.Assert(os.WriteFile(configPath, []byte(toml), 0644), IsNil)
	c.Assert(config.LoadConfig(configPath), IsNil)
	c.Assert(dataset.Initialize(), IsNil)
	defer func() {
		config.Reset()
		c.Assert(dataset.Initialize(), IsNil)
	}()

	base := filepath.Join(dir, "configured")
	d, err := tests.NewTimeSeries(base, nifti.DTFloat32, 3, 2, 1, 2)
	c.Assert(err, IsNil)
	c.Assert(d.Layout().Kind(), Equals, layout.KindPairedGz)
	c.Assert(d.Header().ByteOrder(), Equals, binary.ByteOrder(binary.BigEndian))

	err = d.AddExtension(extension.CodeComment, []byte(`{"year": 1999}`))
	c.Assert(isError(err, nifti.ErrInvalidExtension), Equals, true)
	c.Assert(d.Extensions(), HasLen, 0)
	c.Assert(d.AddExtension(extension.CodeComment, []byte(`{"author": "fsl"}`)), IsNil)

	reopened, err := dataset.Open(base)
	c.Assert(err, IsNil)
	c.Assert(reopened.Extensions(), HasLen, 1)
	for i := 0; i < 2; i++ { // second read may come from the cache
		vol, err := reopened.ReadVolume(1)
		c.Assert(err, IsNil)
		c.Assert(vol, DeepEquals, tests.Filled(3, 2, 1, 1))
	}
}

func (s *DatasetSuite) TestVerboseRead(c *C) {
	nifti.Verbose = true
	defer func() { nifti.Verbose = false }()
	c.Assert(nifti.DebugEnabled(), Equals, true)

	path := tests.TempName("verbose") + ".nii"
	d, err := tests.NewTimeSeries(path, nifti.DTInt16, 3, 3, 2, 2)
	c.Assert(err, IsNil)
	vol, err := d.ReadVolume(1)
	c.Assert(err, IsNil)
	c.Assert(vol, DeepEquals, tests.Filled(3, 3, 2, 1))
	raw, err := d.ReadRawVolume(1)
	c.Assert(err, IsNil)
	c.Assert(raw, DeepEquals, vol)
}
