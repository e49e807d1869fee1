package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// DetectFormat sniffs the container from magic bytes.
func DetectFormat(data []byte) (Format, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return FormatUnknown, fmt.Errorf("%w: unrecognized content", ErrUnsupportedFormat)
	}

	switch kind.Extension {
	case "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.MIME.Value)
	}
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG color types carrying an alpha sample per pixel.
const (
	pngColorGrayAlpha = 4
	pngColorRGBA      = 6
)

// pngInfo is what the chunk walk learns about a PNG stream.
type pngInfo struct {
	colorType uint8
	hasTRNS   bool
	exif      []byte
}

func (p pngInfo) alphaChannel() bool {
	return p.colorType == pngColorGrayAlpha || p.colorType == pngColorRGBA
}

// inspectPNG walks the chunk list without decoding pixel data.
func inspectPNG(data []byte) (pngInfo, error) {
	var info pngInfo
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return info, fmt.Errorf("%w: missing PNG signature", ErrDecode)
	}

	seenIHDR := false
	off := len(pngSignature)
	for off+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		start := off + 8
		end := start + length
		if length < 0 || end+4 > len(data) {
			break
		}
		chunk := data[start:end]

		switch typ {
		case "IHDR":
			if len(chunk) < 13 {
				return info, fmt.Errorf("%w: short IHDR", ErrDecode)
			}
			info.colorType = chunk[9]
			seenIHDR = true
		case "tRNS":
			info.hasTRNS = true
		case "eXIf":
			info.exif = chunk
		case "IEND":
			off = len(data)
			continue
		}
		off = end + 4
	}

	if !seenIHDR {
		return info, fmt.Errorf("%w: missing IHDR", ErrDecode)
	}
	return info, nil
}
