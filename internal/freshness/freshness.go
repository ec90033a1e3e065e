// Package freshness implements the single cache-coherence predicate
// both the positive and negative cache are validated against.
package freshness

import (
	"os"
	"strconv"

	"thumbnailify/internal/provenance"
)

// IsFresh reports whether the thumbnail at thumbPath may be reused for
// sourcePath. It returns false on any of: the thumbnail cannot be
// opened or parsed as a PNG, it has no Thumb::MTime chunk, that chunk
// doesn't parse as an unsigned integer, the source's metadata can't be
// read, the source mtime (seconds, floor) differs from Thumb::MTime, or
// Thumb::Size is present and differs from the source's length.
func IsFresh(thumbPath, sourcePath string) bool {
	texts, err := provenance.ReadTextChunks(thumbPath)
	if err != nil {
		return false
	}

	mtimeStr, ok := texts[provenance.KeywordMTime]
	if !ok {
		return false
	}
	thumbMTime, err := strconv.ParseUint(mtimeStr, 10, 64)
	if err != nil {
		return false
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}

	if uint64(info.ModTime().Unix()) != thumbMTime {
		return false
	}

	if sizeStr, ok := texts[provenance.KeywordSize]; ok {
		thumbSize, err := strconv.ParseUint(sizeStr, 10, 64)
		if err != nil {
			return false
		}
		if thumbSize != uint64(info.Size()) {
			return false
		}
	}

	return true
}
