package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewBindGroupProvider(t *testing.T) {
	p := NewBindGroupProvider("entity")
	if p.Label() != "entity" {
		t.Errorf("expected label entity, got %q", p.Label())
	}
	if p.Layout() != nil || p.BindGroup() != nil {
		t.Errorf("expected no GPU objects before Init")
	}
	if p.Generation() != 0 {
		t.Errorf("expected generation 0, got %d", p.Generation())
	}
}

func TestBindWithoutLayout(t *testing.T) {
	p := NewBindGroupProvider("scene")
	if err := p.Bind(nil, nil); err == nil {
		t.Errorf("expected error binding before Init")
	}
	if p.Generation() != 0 {
		t.Errorf("expected failed Bind to leave generation at 0, got %d", p.Generation())
	}
}

func TestReleaseBeforeInit(t *testing.T) {
	p := NewBindGroupProvider("shadow_camera")
	p.Release()
	p.Release()
	if p.Entries() != nil {
		t.Errorf("expected no entries after Release")
	}
}

func TestEntries(t *testing.T) {
	tests := []struct {
		name    string
		entry   wgpu.BindGroupEntry
		binding uint32
		size    uint64
	}{
		{"whole buffer", BufferEntry(1, nil, 0), 1, wgpu.WholeSize},
		{"sized buffer", BufferEntry(0, nil, 144), 0, 144},
		{"texture", TextureEntry(4, nil), 4, 0},
		{"sampler", SamplerEntry(5, nil), 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.entry.Binding != tt.binding {
				t.Errorf("expected binding %d, got %d", tt.binding, tt.entry.Binding)
			}
			if tt.entry.Size != tt.size {
				t.Errorf("expected size %d, got %d", tt.size, tt.entry.Size)
			}
		})
	}
}
