package texture

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/umbra/engine/mesh"
)

func TestToRGBAConversions(t *testing.T) {
	tests := []struct {
		name   string
		format mesh.PixelFormat
		pixels []byte
		want   []byte
	}{
		{"rgba", mesh.PixelFormatRGBA8, []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{"bgra", mesh.PixelFormatBGRA8, []byte{1, 2, 3, 4}, []byte{3, 2, 1, 4}},
		{"rgb", mesh.PixelFormatRGB8, []byte{1, 2, 3}, []byte{1, 2, 3, 255}},
		{"gray", mesh.PixelFormatGray8, []byte{9}, []byte{9, 9, 9, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRGBA(mesh.Image{Width: 1, Height: 1, Format: tt.format, Pixels: tt.pixels})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if string(got.Pix) != string(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got.Pix)
			}
		})
	}
}

func TestStageRescalesToCommonSize(t *testing.T) {
	red := make([]byte, 4*4*4)
	for i := 0; i < len(red); i += 4 {
		red[i], red[i+3] = 255, 255
	}
	images := []mesh.Image{
		{Width: 4, Height: 4, Format: mesh.PixelFormatRGBA8, Pixels: red},
		{Width: 2, Height: 1, Format: mesh.PixelFormatGray8, Pixels: []byte{0, 0}},
	}
	layers, err := Stage(images, 8)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	for i, l := range layers {
		if l.Width != 8 || l.Height != 8 || len(l.Pixels) != 8*8*4 || l.BytesPerRow() != 32 {
			t.Errorf("layer %d: expected 8x8 RGBA, got %dx%d with %d bytes", i, l.Width, l.Height, len(l.Pixels))
		}
	}
	// a uniform image stays uniform after filtering
	if p := layers[0].Pixels[4*27 : 4*27+4]; p[0] != 255 || p[1] != 0 || p[3] != 255 {
		t.Errorf("expected red after rescale, got %v", p)
	}
}

func TestStageWithoutImages(t *testing.T) {
	layers, err := Stage(nil, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(layers) != 1 || layers[0].Width != DefaultSize {
		t.Fatalf("expected one %d placeholder layer, got %d layers", DefaultSize, len(layers))
	}
	if layers[0].Pixels[0] != 0xff {
		t.Errorf("expected a white placeholder")
	}
}

func TestStageErrors(t *testing.T) {
	_, err := Stage([]mesh.Image{{Width: 1, Height: 1, Format: mesh.PixelFormat(42), Pixels: []byte{0}}}, 4)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	_, err = Stage([]mesh.Image{{Width: 2, Height: 2, Format: mesh.PixelFormatRGBA8, Pixels: []byte{0}}}, 4)
	if !errors.Is(err, ErrImageSize) {
		t.Errorf("expected ErrImageSize, got %v", err)
	}
}
