package codec

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Orientation describes an EXIF orientation tag value.
type Orientation int

const (
	OrientNormal      Orientation = 1
	OrientFlipH       Orientation = 2
	OrientRotate180   Orientation = 3
	OrientFlipV       Orientation = 4
	OrientTranspose   Orientation = 5
	OrientRotate90CW  Orientation = 6
	OrientTransverse  Orientation = 7
	OrientRotate270CW Orientation = 8
)

// ReadOrientation returns the orientation stored in an EXIF block. The input
// may be a whole JPEG stream or a raw TIFF-structured block such as the
// payload of a PNG eXIf chunk. Anything unreadable yields OrientNormal.
func ReadOrientation(data []byte) Orientation {
	if len(data) == 0 {
		return OrientNormal
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return OrientNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientNormal
	}
	v, err := tag.Int(0)
	if err != nil || v < int(OrientNormal) || v > int(OrientRotate270CW) {
		return OrientNormal
	}
	return Orientation(v)
}

// SwapsAxes reports whether applying the orientation exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientTranspose && o <= OrientRotate270CW
}

// applyOrientation returns img transformed so that it displays upright.
func applyOrientation(img image.Image, o Orientation) *image.NRGBA {
	switch o {
	case OrientFlipH:
		return imaging.FlipH(img)
	case OrientRotate180:
		return imaging.Rotate180(img)
	case OrientFlipV:
		return imaging.FlipV(img)
	case OrientTranspose:
		return imaging.Transpose(img)
	case OrientRotate90CW:
		return imaging.Rotate270(img)
	case OrientTransverse:
		return imaging.Transverse(img)
	case OrientRotate270CW:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
