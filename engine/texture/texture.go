// Package texture converts decoded images into equally sized RGBA layers for the GPU texture array.
package texture

import (
	"errors"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	xdraw "golang.org/x/image/draw"
)

// DefaultSize is the layer side used when Stage is given a zero size.
const DefaultSize = 512

var (
	// ErrUnsupportedFormat is returned for a pixel format the stager cannot convert to RGBA.
	ErrUnsupportedFormat = errors.New("texture: unsupported pixel format")

	// ErrImageSize is returned when an image is empty or its pixel buffer does not match its dimensions.
	ErrImageSize = errors.New("texture: image size mismatch")
)

// Stage converts every image to RGBA8 and rescales it to size x size with bilinear filtering,
// in order, so layer i of the result is images[i]. With no images a single opaque white
// layer is returned so the texture binding is always valid.
//
// Parameters:
//   - images: the decoded images, in texture-index order
//   - size: the side of every layer, or 0 for DefaultSize
//
// Returns:
//   - []common.TextureStagingData: one staged layer per image
//   - error: ErrUnsupportedFormat or ErrImageSize naming the offending layer
func Stage(images []mesh.Image, size uint32) ([]common.TextureStagingData, error) {
	size = common.Coalesce(size, DefaultSize)

	if len(images) == 0 {
		return []common.TextureStagingData{placeholder(size)}, nil
	}

	layers := make([]common.TextureStagingData, 0, len(images))
	for i, img := range images {
		src, err := ToRGBA(img)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, scale(src, size))
	}
	return layers, nil
}

// ToRGBA converts img into an *image.RGBA without resampling.
func ToRGBA(img mesh.Image) (*image.RGBA, error) {
	bpp := img.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, img.Format)
	}
	if img.Width == 0 || img.Height == 0 || len(img.Pixels) != int(img.Width)*int(img.Height)*bpp {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrImageSize, img.Width, img.Height, len(img.Pixels))
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(img.Width), int(img.Height)))
	n := int(img.Width) * int(img.Height)
	for p := range n {
		s := img.Pixels[p*bpp : p*bpp+bpp]
		d := dst.Pix[p*4 : p*4+4]
		switch img.Format {
		case mesh.PixelFormatRGBA8:
			copy(d, s)
		case mesh.PixelFormatBGRA8:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
		case mesh.PixelFormatRGB8:
			d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
		case mesh.PixelFormatGray8:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 0xff
		}
	}
	return dst, nil
}

func scale(src *image.RGBA, size uint32) common.TextureStagingData {
	b := src.Bounds()
	if uint32(b.Dx()) == size && uint32(b.Dy()) == size {
		return common.TextureStagingData{Pixels: src.Pix, Width: size, Height: size}
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(size), int(size)))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return common.TextureStagingData{Pixels: dst.Pix, Width: size, Height: size}
}

func placeholder(size uint32) common.TextureStagingData {
	pix := make([]byte, int(size)*int(size)*4)
	for i := range pix {
		pix[i] = 0xff
	}
	return common.TextureStagingData{Pixels: pix, Width: size, Height: size}
}
