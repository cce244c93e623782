package imgio

import (
	"bytes"
	"image"
	"sync"

	"github.com/jdeng/goheif"
)

// safeMu serializes flips of goheif.SafeEncoding, a package-level
// switch shared by every caller in the process.
var safeMu sync.Mutex

func decodeHEIF(data []byte) (image.Image, error) {
	return goheif.Decode(bytes.NewReader(data))
}

// decodeHEIFSafe retries the same library through its slower
// copy-based path, which recovers some files the fast path rejects.
func decodeHEIFSafe(data []byte) (image.Image, error) {
	safeMu.Lock()
	defer safeMu.Unlock()

	prev := goheif.SafeEncoding
	goheif.SafeEncoding = true
	defer func() { goheif.SafeEncoding = prev }()

	return goheif.Decode(bytes.NewReader(data))
}
