package mesh

import "iter"

// Handle refers to a mesh inside an Arena. Many entities may hold the same Handle.
type Handle uint32

// Arena owns every mesh of a scene. Meshes are appended, never removed or modified,
// so a Handle stays valid for the Arena's lifetime.
type Arena struct {
	meshes []Mesh
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add stores m and returns its Handle.
func (a *Arena) Add(m Mesh) Handle {
	a.meshes = append(a.meshes, m)
	return Handle(len(a.meshes) - 1)
}

// Get returns the mesh for h.
func (a *Arena) Get(h Handle) (Mesh, bool) {
	if int(h) >= len(a.meshes) {
		return nil, false
	}
	return a.meshes[h], true
}

// Len returns the number of meshes stored.
func (a *Arena) Len() int {
	return len(a.meshes)
}

// All iterates every mesh in insertion order.
func (a *Arena) All() iter.Seq2[Handle, Mesh] {
	return func(yield func(Handle, Mesh) bool) {
		for i, m := range a.meshes {
			if !yield(Handle(i), m) {
				return
			}
		}
	}
}
