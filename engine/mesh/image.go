package mesh

import "fmt"

// PixelFormat is the layout of Image.Pixels.
type PixelFormat int

const (
	PixelFormatRGBA8 PixelFormat = iota
	PixelFormatBGRA8
	PixelFormatRGB8
	PixelFormatGray8
)

// BytesPerPixel returns the size of one pixel, or 0 for an unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8, PixelFormatBGRA8:
		return 4
	case PixelFormatRGB8:
		return 3
	case PixelFormatGray8:
		return 1
	default:
		return 0
	}
}

// Image is already-decoded pixel data. Decoding files into an Image happens outside the engine.
type Image struct {
	Width  uint32
	Height uint32
	Format PixelFormat
	Pixels []byte
}

// Validate checks that Pixels holds exactly Width*Height pixels of Format.
func (img Image) Validate() error {
	bpp := img.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unknown pixel format %d", ErrInvalidImage, img.Format)
	}
	if img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("%w: empty %dx%d image", ErrInvalidImage, img.Width, img.Height)
	}
	if want := int(img.Width) * int(img.Height) * bpp; len(img.Pixels) != want {
		return fmt.Errorf("%w: %dx%d image needs %d bytes, got %d", ErrInvalidImage, img.Width, img.Height, want, len(img.Pixels))
	}
	return nil
}
