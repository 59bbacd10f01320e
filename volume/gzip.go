package volume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/janelia-flyem/nifti/nifti"
	"github.com/klauspost/compress/gzip"
	"github.com/twinj/uuid"
)

var compressionLevel = gzip.DefaultCompression

// SetCompressionLevel sets the gzip level used for compressed datasets written from
// now on.
func SetCompressionLevel(level int) error {
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		return err
	}
	compressionLevel = level
	return nil
}

// CompressionLevel returns the gzip level for written datasets.
func CompressionLevel() int {
	return compressionLevel
}

// tempPath returns a unique name in the same directory as path so a rename onto path
// stays within one file system.
func tempPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.%x.tmp", base, uuid.NewV4().Bytes()))
}

// atomicWrite calls fill with a new temporary file and renames it onto path if fill
// and the close succeed.  The temporary file is removed on any failure.
func atomicWrite(path string, fill func(w io.Writer) error) (err error) {
	tmp := tempPath(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nifti.NewIOError("create", tmp, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if err = fill(f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return nifti.NewIOError("close", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nifti.NewIOError("rename", path, err)
	}
	return nil
}

// replaceFile atomically replaces path with the concatenated parts, gzip compressed
// if requested.
func replaceFile(path string, compressed bool, parts ...[]byte) error {
	return atomicWrite(path, func(w io.Writer) error {
		out := w
		var zw *gzip.Writer
		if compressed {
			var err error
			if zw, err = gzip.NewWriterLevel(w, compressionLevel); err != nil {
				return err
			}
			out = zw
		}
		for _, p := range parts {
			if _, err := out.Write(p); err != nil {
				return nifti.NewIOError("write", path, err)
			}
		}
		if zw != nil {
			return nifti.NewIOError("gzip", path, zw.Close())
		}
		return nil
	})
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// spliceGzip rewrites the gzip file at path so its decompressed content has b at
// offset off.  Content before off is kept (zero filled if the file was shorter) and,
// unless truncate is set, content after b is kept as well.  The new stream is built in
// a temporary file that replaces path.
func spliceGzip(path string, off int64, b []byte, truncate bool) error {
	var old io.Reader = eofReader{}
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		zr, err := gzip.NewReader(f)
		switch {
		case err == nil:
			defer zr.Close()
			old = zr
		case err != io.EOF: // an empty file has no stream to keep
			return nifti.NewIOError("gunzip", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nifti.NewIOError("open", path, err)
	}

	return atomicWrite(path, func(w io.Writer) error {
		zw, err := gzip.NewWriterLevel(w, compressionLevel)
		if err != nil {
			return err
		}
		kept, err := io.CopyN(zw, old, off)
		if err != nil && err != io.EOF {
			return nifti.NewIOError("read", path, err)
		}
		if kept < off {
			if _, err := io.CopyN(zw, zeroReader{}, off-kept); err != nil {
				return nifti.NewIOError("write", path, err)
			}
		}
		if _, err := zw.Write(b); err != nil {
			return nifti.NewIOError("write", path, err)
		}
		if !truncate && kept == off {
			skipped, err := io.CopyN(io.Discard, old, int64(len(b)))
			if err != nil && err != io.EOF {
				return nifti.NewIOError("read", path, err)
			}
			if skipped == int64(len(b)) {
				if _, err := io.Copy(zw, old); err != nil {
					return nifti.NewIOError("splice", path, err)
				}
			}
		}
		return nifti.NewIOError("gzip", path, zw.Close())
	})
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

// OpenFile opens path for reading, decompressing it if requested.
func OpenFile(path string, compressed bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nifti.NewIOError("open", path, err)
	}
	if !compressed {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nifti.NewIOError("gunzip", path, err)
	}
	return gzipFile{zr, f}, nil
}
