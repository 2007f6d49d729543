package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AlignUp rounds size up to the next multiple of align.
// An align of zero leaves size unchanged.
//
// Parameters:
//   - size: the byte size to align
//   - align: the required alignment in bytes
//
// Returns:
//   - uint64: the smallest multiple of align that is >= size
func AlignUp(size, align uint64) uint64 {
	if align == 0 {
		return size
	}
	return (size + align - 1) / align * align
}

// Perspective creates a right-handed perspective projection that maps depth into the WebGPU
// clip range [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range, so it is not used directly.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1.0
	m[14] = (near * far) / (near - far)
	return m
}

// LookAt builds a view matrix looking from eye towards center.
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, center, up)
}

// EulerRotation returns rotX(r.x) * rotY(r.y) * rotZ(r.z) as a homogeneous matrix.
func EulerRotation(r mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DX(r.X()).Mul4(mgl32.HomogRotate3DY(r.Y())).Mul4(mgl32.HomogRotate3DZ(r.Z()))
}

// NormalMatrix returns the inverse-transpose of the model matrix, padded to a full 4x4 so it can be
// uploaded without relying on WGSL's mat3x3 column padding. A singular model yields the identity.
func NormalMatrix(model mgl32.Mat4) mgl32.Mat4 {
	if model.Det() == 0 {
		return mgl32.Ident4()
	}
	n := model.Inv().Transpose()
	n[3], n[7], n[11] = 0, 0, 0
	n[12], n[13], n[14] = 0, 0, 0
	n[15] = 1
	return n
}

// PutFloat32 writes v little-endian at buf[off:].
func PutFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

// PutUint32 writes v little-endian at buf[off:].
func PutUint32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

// PutInt32 writes v little-endian at buf[off:].
func PutInt32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

// PutFloats writes each value of vs consecutively starting at buf[off:] and returns the offset past the last one.
func PutFloats(buf []byte, off int, vs ...float32) int {
	for _, v := range vs {
		PutFloat32(buf, off, v)
		off += 4
	}
	return off
}

// PutMat4 writes the 16 column-major floats of m starting at buf[off:].
func PutMat4(buf []byte, off int, m mgl32.Mat4) int {
	return PutFloats(buf, off, m[:]...)
}

// ReadFloat32 reads a little-endian float32 at buf[off:]. It is the inverse of PutFloat32.
func ReadFloat32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}
