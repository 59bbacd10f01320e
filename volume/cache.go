package volume

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/janelia-flyem/nifti/nifti"
	"golang.org/x/sync/singleflight"
)

var (
	volumeCache *freecache.Cache
	cacheMu     sync.RWMutex

	cacheAttempts uint64
	cacheHits     uint64
	volumeReads   singleflight.Group

	// generations counts writes made through this process per data file so cached
	// volumes are never served after a write, even within the file system's mtime
	// resolution.
	generations = make(map[string]uint64)
	genMu       sync.Mutex
)

// InitializeCache sets the size of the process-wide cache of raw volume bytes.  A size
// of 0 disables caching.  Volumes larger than 1/1024 of the cache are never cached.
func InitializeCache(numBytes int) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if volumeCache == nil {
		if numBytes > 0 {
			volumeCache = freecache.NewCache(numBytes)
			nifti.Infof("Created freecache of ~ %s for volume reads.\n", humanize.Bytes(uint64(numBytes)))
		}
	} else if numBytes == 0 {
		volumeCache = nil
	} else {
		volumeCache.Clear()
	}
}

// CacheStats returns the number of cached volume lookups and how many hit.
func CacheStats() (attempts, hits uint64) {
	return atomic.LoadUint64(&cacheAttempts), atomic.LoadUint64(&cacheHits)
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func bumpGeneration(path string) {
	genMu.Lock()
	generations[canonicalPath(path)]++
	genMu.Unlock()
}

func generation(path string) uint64 {
	genMu.Lock()
	defer genMu.Unlock()
	return generations[canonicalPath(path)]
}

// cacheKey identifies volume t of the data file as it is now.  The boolean is false if
// caching is off or the file cannot be examined.
func (e *Engine) cacheKey(t int) ([]byte, bool) {
	cacheMu.RLock()
	enabled := volumeCache != nil
	cacheMu.RUnlock()
	if !enabled {
		return nil, false
	}
	path := e.layout.DataPath()
	fi, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	key := fmt.Sprintf("%s\x00%d\x00%d\x00%d\x00%d\x00%d",
		canonicalPath(path), generation(path), fi.ModTime().UnixNano(), fi.Size(), e.volumeOffset(t), e.hdr.VolumeBytes())
	return []byte(key), true
}

func cacheGet(key []byte) []byte {
	cacheMu.RLock()
	c := volumeCache
	cacheMu.RUnlock()
	if c == nil {
		return nil
	}
	atomic.AddUint64(&cacheAttempts, 1)
	raw, err := c.Get(key)
	if err != nil {
		if err != freecache.ErrNotFound {
			nifti.Errorf("unable to get cached volume: %v\n", err)
		}
		return nil
	}
	atomic.AddUint64(&cacheHits, 1)
	return raw
}

func cacheSet(key, raw []byte) {
	cacheMu.RLock()
	c := volumeCache
	cacheMu.RUnlock()
	if c == nil {
		return
	}
	if err := c.Set(key, raw, 0); err != nil && err != freecache.ErrLargeEntry {
		nifti.Errorf("unable to cache volume of %s: %v\n", humanize.Bytes(uint64(len(raw))), err)
	}
}
