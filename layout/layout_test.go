package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/stretchr/testify/require"
)

func TestResolveExplicit(t *testing.T) {
	tests := []struct {
		name     string
		expected Layout
	}{
		{"brain.nii", Combined{Path: "brain.nii"}},
		{"brain.nii.gz", Combined{Path: "brain.nii.gz"}},
		{"dir/brain.hdr", Paired{Header: "dir/brain.hdr", Data: "dir/brain.img"}},
		{"dir/brain.img", Paired{Header: "dir/brain.hdr", Data: "dir/brain.img"}},
		{"brain.hdr.gz", Paired{Header: "brain.hdr.gz", Data: "brain.img.gz"}},
		{"brain.img.gz", Paired{Header: "brain.hdr.gz", Data: "brain.img.gz"}},
	}
	for _, tc := range tests {
		l, err := Resolve(tc.name)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.expected, l, tc.name)
	}

	l, _ := Resolve("a.img.gz")
	require.True(t, l.Compressed())
	require.False(t, l.SingleFile())
	require.Equal(t, KindPairedGz, l.Kind())
	require.Equal(t, header.MagicPaired, l.Magic())
	require.Equal(t, []string{"a.hdr.gz", "a.img.gz"}, Files(l))
}

func TestResolveBareName(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "subject")

	_, err := Resolve(base)
	require.True(t, errors.Is(err, nifti.ErrAmbiguousLayout))

	require.NoError(t, os.WriteFile(base+".hdr", nil, 0644))
	l, err := Resolve(base)
	require.NoError(t, err)
	require.Equal(t, Paired{Header: base + ".hdr", Data: base + ".img"}, l)

	require.NoError(t, os.WriteFile(base+".nii", nil, 0644))
	_, err = Resolve(base)
	require.True(t, errors.Is(err, nifti.ErrAmbiguousLayout))
}

func TestForWrite(t *testing.T) {
	l, err := ForWrite("out", KindPairedGz)
	require.NoError(t, err)
	require.Equal(t, Paired{Header: "out.hdr.gz", Data: "out.img.gz"}, l)

	l, err = ForWrite("out.nii", KindPaired)
	require.NoError(t, err)
	require.Equal(t, Combined{Path: "out.nii"}, l)

	_, err = ForWrite("", KindCombined)
	require.True(t, errors.Is(err, nifti.ErrAmbiguousLayout))

	// a lone extension is treated as a bare name
	l, err = ForWrite(".nii", KindCombined)
	require.NoError(t, err)
	require.Equal(t, Combined{Path: ".nii.nii"}, l)
}

func TestCheckAndDataStart(t *testing.T) {
	h, err := header.NewBuilder().SetVoxOffset(400).Build()
	require.NoError(t, err)

	c := Combined{Path: "x.nii"}
	p := Paired{Header: "x.hdr", Data: "x.img"}
	require.NoError(t, Check(c, header.MagicCombined))
	require.True(t, errors.Is(Check(c, header.MagicPaired), nifti.ErrAmbiguousLayout))
	require.True(t, errors.Is(Check(p, header.MagicCombined), nifti.ErrAmbiguousLayout))

	require.Equal(t, int64(400), DataStart(c, h))
	require.Equal(t, int64(0), DataStart(p, h))
}

func TestParseKind(t *testing.T) {
	for k := KindCombined; k <= KindPairedGz; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	k, err := ParseKind(" nifti_pair ")
	require.NoError(t, err)
	require.Equal(t, KindPaired, k)
	_, err = ParseKind("analyze")
	require.Error(t, err)
}
