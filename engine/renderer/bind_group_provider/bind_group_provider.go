package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label used to name the layout and every bind group created from it.
	label string

	// layout is created once by Init and outlives every bind group bound against it.
	layout *wgpu.BindGroupLayout
	// bindGroup is the current bind group, replaced on every Bind.
	bindGroup *wgpu.BindGroup
	// entries are the resources of the current bind group, kept so a rebind can swap one of them.
	entries []wgpu.BindGroupEntry
	// generation counts successful Bind calls.
	generation int
}

// BindGroupProvider owns one fixed bind group slot of the wgpu backend: its layout, which is
// created once, and the bind group built against that layout from the backend's current
// resources. The backend rebinds whenever a resource behind the group is reallocated.
//
// Usage pattern:
//  1. Backend creates a provider per bind group slot
//  2. Backend calls Init with the slot's fixed layout descriptor
//  3. Backend calls Bind with the current buffers, texture views and samplers
//  4. Pipelines are created against Layout(); passes set BindGroup()
type BindGroupProvider interface {
	// Release releases the bind group and the layout.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Init creates the bind group layout. Calling it again after a successful call is a no-op.
	//
	// Parameters:
	//   - dev: the device to create the layout on
	//   - desc: the layout descriptor; its Label defaults to the provider label
	//
	// Returns:
	//   - error: an error if the layout could not be created
	Init(dev *wgpu.Device, desc wgpu.BindGroupLayoutDescriptor) error

	// Bind (re)creates the bind group from entries, releasing the previous one.
	//
	// Parameters:
	//   - dev: the device to create the bind group on
	//   - entries: one entry per layout binding
	//
	// Returns:
	//   - error: an error if Init has not been called or the bind group could not be created
	Bind(dev *wgpu.Device, entries []wgpu.BindGroupEntry) error

	// Layout returns the bind group layout, or nil before Init.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	Layout() *wgpu.BindGroupLayout

	// BindGroup returns the current bind group, or nil before the first Bind.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Entries returns the entries of the current bind group.
	Entries() []wgpu.BindGroupEntry

	// Generation returns how many times the bind group has been (re)created.
	Generation() int
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label of the layout and bind groups
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{label: label}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Init(dev *wgpu.Device, desc wgpu.BindGroupLayoutDescriptor) error {
	if p.layout != nil {
		return nil
	}
	if desc.Label == "" {
		desc.Label = p.label + " Bind Group Layout"
	}
	layout, err := dev.CreateBindGroupLayout(&desc)
	if err != nil {
		return fmt.Errorf("%s: create bind group layout: %w", p.label, err)
	}
	p.layout = layout
	return nil
}

func (p *bindGroupProvider) Bind(dev *wgpu.Device, entries []wgpu.BindGroupEntry) error {
	if p.layout == nil {
		return fmt.Errorf("%s: bind group layout not initialized", p.label)
	}
	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label + " Bind Group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s: create bind group: %w", p.label, err)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.entries = entries
	p.generation++
	return nil
}

func (p *bindGroupProvider) Layout() *wgpu.BindGroupLayout {
	return p.layout
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Entries() []wgpu.BindGroupEntry {
	return p.entries
}

func (p *bindGroupProvider) Generation() int {
	return p.generation
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	p.entries = nil
}
