package processor

import (
	"bytes"
	"encoding/binary"
	"image"

	"golang.org/x/image/bmp"
)

// oleSignature is the compound-file-binary-format magic number (D0 CF 11
// E0 A1 B1 1A E1) that precedes any OLE2 document (legacy .doc/.xls/.ppt,
// and some embedded-object containers).
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// processOLEFallback implements the spec's narrowest fallback: no OLE
// directory parser is available anywhere in this module's dependency
// reach, so rather than walk the compound-file directory structure
// properly, it scans raw bytes for a BMP stream ("BM" magic followed by a
// plausible little-endian file size) and decodes whatever it finds. This
// only ever fires for formats no other branch already claimed.
func (p *Processor) processOLEFallback(job Job, data []byte) (Outcome, bool) {
	if !bytes.HasPrefix(data, oleSignature) {
		return Outcome{}, false
	}

	idx := 0
	for {
		rel := bytes.Index(data[idx:], []byte("BM"))
		if rel == -1 {
			return Outcome{}, false
		}
		pos := idx + rel
		if img, ok := tryDecodeBMPAt(data, pos); ok {
			w, h := p.thumbnailDimensions(job.OriginalExtension)
			thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)
			return Outcome{Success: true, ThumbnailImage: thumb}, true
		}
		idx = pos + 2
		if idx >= len(data) {
			return Outcome{}, false
		}
	}
}

// tryDecodeBMPAt reads the 14-byte BMP file header's declared size field
// and attempts to decode that slice; a candidate "BM" match elsewhere in
// the stream (a false positive) simply fails to decode and the scan moves on.
func tryDecodeBMPAt(data []byte, pos int) (image.Image, bool) {
	if pos+14 > len(data) {
		return nil, false
	}
	size := binary.LittleEndian.Uint32(data[pos+2 : pos+6])
	if size < 14 || int(size) > len(data)-pos {
		return nil, false
	}
	img, err := bmp.Decode(bytes.NewReader(data[pos : pos+int(size)]))
	if err != nil {
		return nil, false
	}
	return img, true
}
