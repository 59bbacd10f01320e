/*
	Package layout decides which files hold a dataset's header and voxel data.

	A combined dataset (".nii" or ".nii.gz") keeps the header block, any extensions and
	the voxel payload in one file.  A paired dataset keeps the header and extensions in
	".hdr" and the payload in ".img", each optionally gzip-compressed.
*/
package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/janelia-flyem/nifti/header"
	"github.com/janelia-flyem/nifti/nifti"
)

// Kind enumerates the four file arrangements.
type Kind uint8

const (
	KindCombined Kind = iota
	KindCombinedGz
	KindPaired
	KindPairedGz
)

var kindNames = []string{"NIFTI", "NIFTI_GZ", "NIFTI_PAIR", "NIFTI_PAIR_GZ"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("layout(%d)", uint8(k))
}

// ParseKind accepts the names returned by Kind.String, case insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindCombined, fmt.Errorf("unknown layout %q", s)
}

// SingleFile returns true for the combined kinds.
func (k Kind) SingleFile() bool {
	return k == KindCombined || k == KindCombinedGz
}

// Compressed returns true for the gzip kinds.
func (k Kind) Compressed() bool {
	return k == KindCombinedGz || k == KindPairedGz
}

// Layout is the resolved set of files for a dataset.  It is either Combined or Paired.
type Layout interface {
	Kind() Kind
	SingleFile() bool
	Compressed() bool
	HeaderPath() string
	DataPath() string
	Magic() string
	String() string
}

// Combined is a dataset held in one ".nii" or ".nii.gz" file.
type Combined struct {
	Path string
}

func (c Combined) Kind() Kind {
	if c.Compressed() {
		return KindCombinedGz
	}
	return KindCombined
}

func (c Combined) SingleFile() bool   { return true }
func (c Combined) Compressed() bool   { return strings.HasSuffix(c.Path, gzSuffix) }
func (c Combined) HeaderPath() string { return c.Path }
func (c Combined) DataPath() string   { return c.Path }
func (c Combined) Magic() string      { return header.MagicCombined }
func (c Combined) String() string     { return c.Path }

// Paired is a dataset split into a header file and a data file.
type Paired struct {
	Header string
	Data   string
}

func (p Paired) Kind() Kind {
	if p.Compressed() {
		return KindPairedGz
	}
	return KindPaired
}

func (p Paired) SingleFile() bool   { return false }
func (p Paired) Compressed() bool   { return strings.HasSuffix(p.Header, gzSuffix) }
func (p Paired) HeaderPath() string { return p.Header }
func (p Paired) DataPath() string   { return p.Data }
func (p Paired) Magic() string      { return header.MagicPaired }
func (p Paired) String() string     { return p.Header + " + " + p.Data }

const gzSuffix = ".gz"

var kindExts = map[Kind]string{
	KindCombined:   ".nii",
	KindCombinedGz: ".nii.gz",
	KindPaired:     ".hdr",
	KindPairedGz:   ".hdr.gz",
}

// recognized suffixes, longest first so ".nii.gz" wins over ".gz" style prefixes
var suffixes = []struct {
	ext  string
	kind Kind
}{
	{".nii.gz", KindCombinedGz},
	{".hdr.gz", KindPairedGz},
	{".img.gz", KindPairedGz},
	{".nii", KindCombined},
	{".hdr", KindPaired},
	{".img", KindPaired},
}

// SplitName returns the base name and kind implied by a recognized extension.  The
// boolean is false if name carries none of them.
func SplitName(name string) (base string, kind Kind, found bool) {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.ext) && len(name) > len(s.ext) {
			return strings.TrimSuffix(name, s.ext), s.kind, true
		}
	}
	return name, KindCombined, false
}

// New returns the layout of the given kind for a base name without extension.
func New(base string, kind Kind) Layout {
	switch kind {
	case KindCombinedGz:
		return Combined{Path: base + ".nii.gz"}
	case KindPaired:
		return Paired{Header: base + ".hdr", Data: base + ".img"}
	case KindPairedGz:
		return Paired{Header: base + ".hdr.gz", Data: base + ".img.gz"}
	default:
		return Combined{Path: base + ".nii"}
	}
}

// Resolve determines the layout of an existing dataset.  An explicit extension decides
// the layout directly, deriving the partner file for paired datasets.  A bare base name
// is resolved by probing the file system; it must match exactly one dataset.
func Resolve(name string) (Layout, error) {
	if base, kind, found := SplitName(name); found {
		return New(base, kind), nil
	}
	var matches []Kind
	for kind := KindCombined; kind <= KindPairedGz; kind++ {
		path := name + kindExts[kind]
		_, err := os.Stat(path)
		switch {
		case err == nil:
			matches = append(matches, kind)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, nifti.NewIOError("stat", path, err)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no dataset found for %q: %w", name, nifti.ErrAmbiguousLayout)
	case 1:
		return New(name, matches[0]), nil
	default:
		return nil, fmt.Errorf("%q matches %d datasets %v: %w", name, len(matches), matches, nifti.ErrAmbiguousLayout)
	}
}

// ForWrite determines the layout for a dataset about to be written.  Only the name
// decides; existing files are not consulted.  A bare name uses defaultKind.
func ForWrite(name string, defaultKind Kind) (Layout, error) {
	if name == "" {
		return nil, fmt.Errorf("empty dataset name: %w", nifti.ErrAmbiguousLayout)
	}
	if base, kind, found := SplitName(name); found {
		return New(base, kind), nil
	}
	if defaultKind > KindPairedGz {
		return nil, fmt.Errorf("default %s: %w", defaultKind, nifti.ErrAmbiguousLayout)
	}
	return New(name, defaultKind), nil
}

// Check returns an error if the header magic disagrees with the layout it was read from.
func Check(l Layout, magic string) error {
	if l.Magic() != magic {
		return fmt.Errorf("%s has magic %q but its layout requires %q: %w", l, magic, l.Magic(), nifti.ErrAmbiguousLayout)
	}
	return nil
}

// DataStart returns the byte offset of the voxel payload within l.DataPath().
func DataStart(l Layout, h header.Header) int64 {
	if l.SingleFile() {
		return h.VoxOffset()
	}
	return 0
}

// Files returns the distinct files making up the layout.
func Files(l Layout) []string {
	if l.SingleFile() {
		return []string{l.HeaderPath()}
	}
	return []string{l.HeaderPath(), l.DataPath()}
}
