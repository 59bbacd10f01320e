/*
	The tests package provides shared support for testing NIfTI datasets: a scratch
	directory shared by all users in a process and fixture datasets.
*/
package tests

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/janelia-flyem/nifti/dataset"
	"github.com/janelia-flyem/nifti/nifti"
	"github.com/twinj/uuid"
)

func init() {
	nifti.SetLogMode(nifti.WarningMode)
}

var (
	count int
	dir   string
	mu    sync.Mutex
)

// UseDir returns a scratch directory, creating it for the first user.  Each call must
// be paired with CloseDir.
func UseDir() string {
	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("nifti-test-%x", uuid.NewV4().Bytes()))
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Can't create a test directory: %s\n", err.Error())
		}
	}
	count++
	return dir
}

// CloseDir releases the scratch directory, deleting it once the last user is done.
func CloseDir() {
	mu.Lock()
	defer mu.Unlock()
	count--
	if count == 0 {
		if err := os.RemoveAll(dir); err != nil {
			log.Fatalf("Unable to cleanup test directory: %s\n", dir)
		}
		dir = ""
	}
}

// TempName returns a unique base name, without extension, in the scratch directory.
func TempName(prefix string) string {
	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		log.Fatalf("TempName(%q) called without UseDir()\n", prefix)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%x", prefix, uuid.NewV4().Bytes()))
}

// Filled returns a [z][y][x] volume with every voxel set to v.
func Filled(nx, ny, nz int, v float64) [][][]float64 {
	vol := make([][][]float64, nz)
	for z := range vol {
		vol[z] = make([][]float64, ny)
		for y := range vol[z] {
			vol[z][y] = make([]float64, nx)
			for x := range vol[z][y] {
				vol[z][y][x] = v
			}
		}
	}
	return vol
}

// NewTimeSeries creates a dataset at path whose volume t holds the value t in every
// voxel.
func NewTimeSeries(path string, dt nifti.Datatype, nx, ny, nz, nt int) (*dataset.Dataset, error) {
	d, err := dataset.Create(path, dt, nx, ny, nz, nt)
	if err != nil {
		return nil, err
	}
	w := d.NewVolumeWriter()
	for t := 0; t < nt; t++ {
		if err := w.Write(Filled(nx, ny, nz, float64(t))); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// RandomBytes returns a slices of random bytes.
func RandomBytes(numBytes int32) []byte {
	buf := make([]byte, numBytes)
	src := rand.NewSource(time.Now().UnixNano())
	var offset int32
	for {
		val := int64(src.Int63())
		for i := 0; i < 8; i++ {
			if offset >= numBytes {
				return buf
			}
			buf[offset] = byte(val)
			offset++
			val >>= 8
		}
	}
}
