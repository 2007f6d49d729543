// package common contains helpers and plain data types shared across the engine.
package common

// TextureStagingData holds RGBA pixel data for one texture-array layer pending GPU upload.
type TextureStagingData struct {
	// Pixels is tightly packed RGBA8, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the layer in pixels.
	Width uint32
	// Height is the height of the layer in pixels.
	Height uint32
}

// BytesPerRow returns the row pitch of the staged pixels.
func (t TextureStagingData) BytesPerRow() uint32 {
	return t.Width * 4
}
