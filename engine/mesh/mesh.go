// Package mesh holds immutable vertex geometry. A Mesh is either Untextured or Textured; the vertex
// layout, and therefore the pipeline's vertex state, follows from which one it is.
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrInvalidMesh  = errors.New("invalid mesh")
	ErrInvalidImage = errors.New("invalid image")
)

// Kind tags the two mesh variants.
type Kind int

const (
	// KindEntity is a plain mesh: position, normal, tangent, bitangent.
	KindEntity Kind = iota

	// KindTextured adds a UV coordinate and carries the image sampled with it.
	KindTextured
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindTextured:
		return "textured"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Topology is the primitive type a mesh's indices (or vertices, when unindexed) describe.
type Topology int

const (
	TopologyTriangle Topology = iota
	TopologyLine
	TopologyPoint
)

func (t Topology) String() string {
	switch t {
	case TopologyTriangle:
		return "triangle"
	case TopologyLine:
		return "line"
	case TopologyPoint:
		return "point"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// verticesPerPrimitive is the number of indices one primitive of t consumes.
func (t Topology) verticesPerPrimitive() int {
	switch t {
	case TopologyTriangle:
		return 3
	case TopologyLine:
		return 2
	default:
		return 1
	}
}

// Mesh is the sum of *Untextured and *Textured. Consumers switch on the concrete type or on Kind.
type Mesh interface {
	Kind() Kind
	Topology() Topology
	// Indices returns the index list, or nil for an unindexed mesh.
	Indices() []uint32
	VertexCount() int
	// VertexBytes returns the interleaved vertex buffer matching Layout(Kind()).
	VertexBytes() []byte

	sealed()
}

// Untextured is the plain mesh variant.
type Untextured struct {
	topology Topology
	vertices []Vertex
	indices  []uint32
}

// Textured is the mesh variant sampled with an image.
type Textured struct {
	Untextured
	uvs   []mgl32.Vec2
	image Image
}

var (
	_ Mesh = &Untextured{}
	_ Mesh = &Textured{}
)

// NewUntextured builds a plain mesh. Tangent frames are derived from the normals.
//
// Parameters:
//   - topology: the primitive type the indices describe
//   - positions: vertex positions in model space
//   - normals: one normal per position
//   - indices: optional index list; nil draws the vertices in order
//
// Returns:
//   - *Untextured: the immutable mesh
//   - error: ErrInvalidMesh when the inputs are inconsistent
func NewUntextured(topology Topology, positions, normals []mgl32.Vec3, indices []uint32) (*Untextured, error) {
	if err := validate(topology, positions, normals, indices); err != nil {
		return nil, err
	}
	vertices := make([]Vertex, len(positions))
	for i := range positions {
		n := normals[i].Normalize()
		t, b := orthonormalBasis(n)
		vertices[i] = Vertex{Position: positions[i], Normal: n, Tangent: t, Bitangent: b}
	}
	return &Untextured{topology: topology, vertices: vertices, indices: cloneIndices(indices)}, nil
}

// NewTextured builds a textured mesh. Triangle meshes get tangents from their UV gradients;
// other topologies, and triangles with degenerate UVs, fall back to a basis around the normal.
func NewTextured(topology Topology, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32, image Image) (*Textured, error) {
	if err := validate(topology, positions, normals, indices); err != nil {
		return nil, err
	}
	if len(uvs) != len(positions) {
		return nil, fmt.Errorf("%w: %d uvs for %d positions", ErrInvalidMesh, len(uvs), len(positions))
	}
	if err := image.Validate(); err != nil {
		return nil, err
	}

	vertices := make([]Vertex, len(positions))
	for i := range positions {
		vertices[i] = Vertex{Position: positions[i], Normal: normals[i].Normalize()}
	}
	if topology == TopologyTriangle {
		accumulateTangents(vertices, uvs, indices)
	}
	for i := range vertices {
		v := &vertices[i]
		t := v.Tangent.Sub(v.Normal.Mul(v.Normal.Dot(v.Tangent)))
		if t.Len() < 1e-6 {
			v.Tangent, v.Bitangent = orthonormalBasis(v.Normal)
			continue
		}
		v.Tangent = t.Normalize()
		v.Bitangent = v.Normal.Cross(v.Tangent)
	}

	img := image
	img.Pixels = append([]byte(nil), image.Pixels...)
	return &Textured{
		Untextured: Untextured{topology: topology, vertices: vertices, indices: cloneIndices(indices)},
		uvs:        append([]mgl32.Vec2(nil), uvs...),
		image:      img,
	}, nil
}

func (m *Untextured) Kind() Kind          { return KindEntity }
func (m *Untextured) Topology() Topology  { return m.topology }
func (m *Untextured) Indices() []uint32   { return m.indices }
func (m *Untextured) VertexCount() int    { return len(m.vertices) }
func (m *Untextured) Vertices() []Vertex  { return m.vertices }
func (m *Untextured) VertexBytes() []byte { return marshalVertices(m.vertices, nil) }
func (m *Untextured) sealed()             {}

func (m *Textured) Kind() Kind          { return KindTextured }
func (m *Textured) UVs() []mgl32.Vec2   { return m.uvs }
func (m *Textured) Image() Image        { return m.image }
func (m *Textured) VertexBytes() []byte { return marshalVertices(m.vertices, m.uvs) }

// Wireframe returns a line-list index buffer with the three edges of every triangle.
// It returns nil for meshes that are not triangle meshes.
func Wireframe(m Mesh) []uint32 {
	if m.Topology() != TopologyTriangle {
		return nil
	}
	idx := m.Indices()
	if idx == nil {
		idx = make([]uint32, m.VertexCount())
		for i := range idx {
			idx[i] = uint32(i)
		}
	}
	out := make([]uint32, 0, len(idx)*2)
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, c := idx[i], idx[i+1], idx[i+2]
		out = append(out, a, b, b, c, c, a)
	}
	return out
}

func validate(topology Topology, positions, normals []mgl32.Vec3, indices []uint32) error {
	if len(positions) == 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidMesh)
	}
	if len(normals) != len(positions) {
		return fmt.Errorf("%w: %d normals for %d positions", ErrInvalidMesh, len(normals), len(positions))
	}
	count := len(positions)
	if indices != nil {
		count = len(indices)
		for i, ix := range indices {
			if int(ix) >= len(positions) {
				return fmt.Errorf("%w: index %d at %d out of range", ErrInvalidMesh, ix, i)
			}
		}
	}
	if per := topology.verticesPerPrimitive(); count%per != 0 {
		return fmt.Errorf("%w: %d elements is not a whole number of %s primitives", ErrInvalidMesh, count, topology)
	}
	return nil
}

func cloneIndices(indices []uint32) []uint32 {
	if indices == nil {
		return nil
	}
	return append([]uint32(nil), indices...)
}

// accumulateTangents sums each triangle's UV-space tangent into its three vertices.
func accumulateTangents(vertices []Vertex, uvs []mgl32.Vec2, indices []uint32) {
	tri := func(i0, i1, i2 uint32) {
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		w0, w1, w2 := uvs[i0], uvs[i1], uvs[i2]
		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		d1, d2 := w1.Sub(w0), w2.Sub(w0)
		det := d1.X()*d2.Y() - d2.X()*d1.Y()
		if det == 0 {
			return
		}
		t := e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(1 / det)
		for _, ix := range [3]uint32{i0, i1, i2} {
			vertices[ix].Tangent = vertices[ix].Tangent.Add(t)
		}
	}
	if indices == nil {
		for i := 0; i+2 < len(vertices); i += 3 {
			tri(uint32(i), uint32(i+1), uint32(i+2))
		}
		return
	}
	for i := 0; i+2 < len(indices); i += 3 {
		tri(indices[i], indices[i+1], indices[i+2])
	}
}

// orthonormalBasis picks a tangent and bitangent perpendicular to n.
func orthonormalBasis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	ref := mgl32.Vec3{0, 1, 0}
	if abs(n.Y()) > 0.99 {
		ref = mgl32.Vec3{1, 0, 0}
	}
	t := ref.Cross(n).Normalize()
	return t, n.Cross(t)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
