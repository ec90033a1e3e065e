// Package provenance reads and writes the freedesktop-style PNG
// ancillary text chunks (Thumb::URI, Thumb::MTime, Thumb::Size,
// Software) that tie a cached thumbnail back to its source.
//
// encoding/png (stdlib) can decode and encode pixels but exposes no
// public API to read or emit arbitrary tEXt chunks — and nothing in
// the retrieved example pack provides freedesktop-style chunk
// injection either (see DESIGN.md). This package implements the
// minimum necessary chunk-stream reader/writer directly against the
// PNG container format (ISO/IEC 15948): an 8-byte signature followed
// by length-prefixed, CRC-32-suffixed chunks. Pixel codecs are never
// reimplemented here — image/png still owns the IHDR/IDAT payload.
package provenance

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"os"

	"thumbnailify/internal/fingerprint"
	"thumbnailify/internal/thumberr"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	// KeywordURI is the Thumb::URI chunk keyword.
	KeywordURI = "Thumb::URI"
	// KeywordMTime is the Thumb::MTime chunk keyword.
	KeywordMTime = "Thumb::MTime"
	// KeywordSize is the Thumb::Size chunk keyword.
	KeywordSize = "Thumb::Size"
	// KeywordSoftware is the Software chunk keyword.
	KeywordSoftware = "Software"
)

type chunk struct {
	typ  [4]byte
	data []byte
}

// WritePNGWithProvenance encodes img as an 8-bit RGBA PNG at path,
// embedding Software, Thumb::URI, Thumb::Size and Thumb::MTime tEXt
// chunks computed from sourcePath's live filesystem metadata.
func WritePNGWithProvenance(path string, img image.Image, sourcePath string, producerID string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return thumberr.New(thumberr.KindMissingSource, sourcePath, err)
	}

	uri, err := fingerprint.CanonicalURI(sourcePath)
	if err != nil {
		return thumberr.New(thumberr.KindProvenance, sourcePath, err)
	}

	var pixelBuf bytes.Buffer
	if err := png.Encode(&pixelBuf, toRGBA(img)); err != nil {
		return thumberr.New(thumberr.KindProvenance, path, err)
	}

	chunks, err := splitChunks(pixelBuf.Bytes())
	if err != nil {
		return thumberr.New(thumberr.KindProvenance, path, err)
	}

	textChunks := []chunk{
		textChunk(KeywordSoftware, producerID),
		textChunk(KeywordURI, uri),
		textChunk(KeywordSize, fmt.Sprintf("%d", info.Size())),
		textChunk(KeywordMTime, fmt.Sprintf("%d", info.ModTime().Unix())),
	}
	chunks = insertBeforeIEND(chunks, textChunks)

	f, err := os.Create(path)
	if err != nil {
		return thumberr.New(thumberr.KindIO, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writePNG(w, chunks); err != nil {
		return thumberr.New(thumberr.KindProvenance, path, err)
	}
	return w.Flush()
}

// ReadTextChunks opens the PNG at path and returns its ancillary tEXt
// chunks as a keyword->text mapping, without decoding pixels.
func ReadTextChunks(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, thumberr.New(thumberr.KindIO, path, err)
	}
	chunks, err := splitChunks(data)
	if err != nil {
		return nil, thumberr.New(thumberr.KindProvenance, path, err)
	}

	out := make(map[string]string)
	for _, c := range chunks {
		if string(c.typ[:]) != "tEXt" {
			continue
		}
		nul := bytes.IndexByte(c.data, 0)
		if nul < 0 {
			continue
		}
		out[string(c.data[:nul])] = string(c.data[nul+1:])
	}
	return out, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

func textChunk(keyword, text string) chunk {
	var c chunk
	copy(c.typ[:], "tEXt")
	c.data = append([]byte(keyword), 0)
	c.data = append(c.data, []byte(text)...)
	return c
}

// splitChunks parses the 8-byte signature and the length-prefixed chunk
// stream that follows it.
func splitChunks(data []byte) ([]chunk, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], pngSignature) {
		return nil, fmt.Errorf("not a PNG: missing signature")
	}
	var chunks []chunk
	buf := data[8:]
	for len(buf) > 0 {
		if len(buf) < 8 {
			return nil, fmt.Errorf("truncated chunk header")
		}
		length := binary.BigEndian.Uint32(buf[0:4])
		if uint64(len(buf)) < uint64(8+length+4) {
			return nil, fmt.Errorf("truncated chunk body")
		}
		var c chunk
		copy(c.typ[:], buf[4:8])
		c.data = append([]byte(nil), buf[8:8+length]...)
		chunks = append(chunks, c)
		buf = buf[8+length+4:]
	}
	return chunks, nil
}

// insertBeforeIEND returns a new chunk slice with extra inserted
// immediately before the first IEND chunk (PNG requires IEND last).
func insertBeforeIEND(chunks []chunk, extra []chunk) []chunk {
	out := make([]chunk, 0, len(chunks)+len(extra))
	inserted := false
	for _, c := range chunks {
		if string(c.typ[:]) == "IEND" && !inserted {
			out = append(out, extra...)
			inserted = true
		}
		out = append(out, c)
	}
	if !inserted {
		out = append(out, extra...)
	}
	return out
}

func writePNG(w io.Writer, chunks []chunk) error {
	if _, err := w.Write(pngSignature); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := writeChunk(w, c); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, c chunk) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(c.typ[:]); err != nil {
		return err
	}
	if _, err := w.Write(c.data); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	crc.Write(c.typ[:])
	crc.Write(c.data)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc.Sum32())
	_, err := w.Write(crcBuf[:])
	return err
}
