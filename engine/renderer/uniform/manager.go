// Package uniform owns the renderer's uniform and storage buffers and keeps their contents in
// step with the scene, the lights and the entity list.
package uniform

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/camera"
	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/light"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
)

// Buffer labels, as passed to device.CreateBuffer.
const (
	LabelScene         = "scene"
	LabelLights        = "lights"
	LabelShadowCameras = "shadow_cameras"
	LabelEntities      = "entities"
)

// defaultAlignment is used when a device reports no uniform offset alignment.
const defaultAlignment = 256

// Manager allocates the per-frame GPU buffers and packs records into them.
//
// Entity and shadow-camera records are bound with dynamic offsets, so each slot is
// padded to the device's minUniformBufferOffsetAlignment.
type Manager struct {
	dev device.Device

	maxLights int
	align     uint64
	storage   bool

	scene         device.Handle
	lights        device.Handle
	shadowCameras device.Handle
	entities      device.Handle
	entitySlots   int

	workers  int
	pool     worker.DynamicWorkerPool
	lightBuf []byte
}

// NewManager allocates the scene, light, shadow-camera and entity buffers.
//
// Parameters:
//   - dev: the device buffers are created on
//   - maxLights: the light array capacity; must be positive
//   - entityCount: the number of entity slots to allocate
//   - opts: a variadic list of Option functions to configure the manager
//
// Returns:
//   - *Manager: the manager owning the new buffers
//   - error: config.ErrTooManyLights for a non-positive capacity, or a wrapped device error
func NewManager(dev device.Device, maxLights, entityCount int, opts ...Option) (*Manager, error) {
	if maxLights <= 0 {
		return nil, fmt.Errorf("%w: light capacity must be positive, got %d", config.ErrTooManyLights, maxLights)
	}

	caps := dev.Capabilities()
	m := &Manager{
		dev:       dev,
		maxLights: maxLights,
		align:     common.Coalesce(uint64(caps.MinUniformBufferOffsetAlignment), defaultAlignment),
		storage:   caps.SupportsStorageBuffers,
		lightBuf:  make([]byte, maxLights*light.GPULightSize),
	}
	for _, opt := range opts {
		opt(m)
	}

	lightUsage := device.BufferUsageUniform
	if m.storage {
		lightUsage = device.BufferUsageStorage
	}

	var err error
	if m.scene, err = dev.CreateBuffer(LabelScene, camera.GPUSceneUniformSize, device.BufferUsageUniform|device.BufferUsageCopyDst); err != nil {
		m.Release()
		return nil, fmt.Errorf("create scene buffer: %w", err)
	}
	if m.lights, err = dev.CreateBuffer(LabelLights, uint64(len(m.lightBuf)), lightUsage|device.BufferUsageCopyDst); err != nil {
		m.Release()
		return nil, fmt.Errorf("create light buffer: %w", err)
	}
	if m.shadowCameras, err = dev.CreateBuffer(LabelShadowCameras, uint64(maxLights)*m.ShadowCameraStride(), device.BufferUsageUniform|device.BufferUsageCopyDst); err != nil {
		m.Release()
		return nil, fmt.Errorf("create shadow camera buffer: %w", err)
	}
	if _, err = m.ResizeEntities(entityCount); err != nil {
		m.Release()
		return nil, err
	}

	if m.workers > 1 {
		m.pool = worker.NewDynamicWorkerPool(m.workers, maxLights, time.Second)
	}
	return m, nil
}

// MaxLights returns the light array capacity.
func (m *Manager) MaxLights() int {
	return m.maxLights
}

// StorageLights reports whether the light array is a storage buffer.
func (m *Manager) StorageLights() bool {
	return m.storage
}

// UpdateScene rewrites the scene uniform from cam and the current light count.
func (m *Manager) UpdateScene(cam camera.CameraStyle, lightCount int) {
	g := camera.NewGPUSceneUniform(&cam, lightCount)
	m.dev.WriteBuffer(m.scene, 0, g.Marshal())
}

// UpdateLight packs every light from scratch, rewrites the whole light array and writes the
// shadow camera of each shadowed light at its aligned slot.
//
// Parameters:
//   - lights: the scene's lights, in shadow-layer order
//   - shadowMapSize: the side of each shadow-map layer
//
// Returns:
//   - []light.GPULight: exactly one record per light
//   - error: config.ErrTooManyLights when len(lights) exceeds the capacity
func (m *Manager) UpdateLight(lights []light.LightStyle, shadowMapSize uint32) ([]light.GPULight, error) {
	if len(lights) > m.maxLights {
		return nil, fmt.Errorf("%w: %d lights, capacity %d", config.ErrTooManyLights, len(lights), m.maxLights)
	}

	records := make([]light.GPULight, len(lights))
	if m.pool != nil && len(lights) > 1 {
		// Each task owns one slot of records; the WaitGroup is the barrier before any write.
		var wg sync.WaitGroup
		for i := range lights {
			wg.Add(1)
			m.pool.SubmitTask(worker.Task{
				ID: i,
				Do: func() (any, error) {
					defer wg.Done()
					records[i] = light.Pack(&lights[i], i, shadowMapSize)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for i := range lights {
			records[i] = light.Pack(&lights[i], i, shadowMapSize)
		}
	}

	clear(m.lightBuf)
	for i := range records {
		records[i].MarshalTo(m.lightBuf[i*light.GPULightSize:])
	}
	m.dev.WriteBuffer(m.lights, 0, m.lightBuf)

	for i := range records {
		if records[i].UseShadow == 0 {
			continue
		}
		cam := light.GPUShadowCamera{ViewProj: records[i].ShadowProj}
		m.dev.WriteBuffer(m.shadowCameras, m.ShadowCameraOffset(i), cam.Marshal())
	}
	return records, nil
}

// EntityStride returns the aligned size of one entity slot.
func (m *Manager) EntityStride() uint64 {
	return common.AlignUp(entity.GPUEntitySize, m.align)
}

// EntityOffset returns the byte offset of entity slot i.
func (m *Manager) EntityOffset(i int) uint64 {
	return uint64(i) * m.EntityStride()
}

// EntityBufferSize returns the allocated size of the entity buffer.
func (m *Manager) EntityBufferSize() uint64 {
	return uint64(m.entitySlots) * m.EntityStride()
}

// EntityCapacity returns the number of entity slots allocated.
func (m *Manager) EntityCapacity() int {
	return m.entitySlots
}

// ResizeEntities reallocates the entity buffer to exactly n slots when n differs from the
// current count. An empty list still gets one slot so the binding stays valid.
//
// Parameters:
//   - n: the number of entities
//
// Returns:
//   - bool: true if the buffer was reallocated and frame resources must be rebound
//   - error: a wrapped device error; the old buffer is kept on failure
func (m *Manager) ResizeEntities(n int) (bool, error) {
	n = max(n, 1)
	if m.entities != nil && n == m.entitySlots {
		return false, nil
	}
	buf, err := m.dev.CreateBuffer(LabelEntities, uint64(n)*m.EntityStride(), device.BufferUsageUniform|device.BufferUsageCopyDst)
	if err != nil {
		return false, fmt.Errorf("create entity buffer: %w", err)
	}
	if m.entities != nil {
		m.entities.Release()
		common.Logger().Info("entity buffer reallocated", "from", m.entitySlots, "to", n)
	}
	m.entities = buf
	m.entitySlots = n
	return true, nil
}

// WriteEntity writes e's record into slot i.
func (m *Manager) WriteEntity(i int, e *entity.Entity) {
	g := entity.NewGPUEntity(e)
	m.dev.WriteBuffer(m.entities, m.EntityOffset(i), g.Marshal())
}

// ShadowCameraStride returns the aligned size of one shadow-camera slot.
func (m *Manager) ShadowCameraStride() uint64 {
	return common.AlignUp(light.GPUShadowCameraSize, m.align)
}

// ShadowCameraOffset returns the byte offset of light i's shadow camera.
func (m *Manager) ShadowCameraOffset(i int) uint64 {
	return uint64(i) * m.ShadowCameraStride()
}

// FrameResources describes the current buffers for device.BindFrameResources.
func (m *Manager) FrameResources() *device.FrameResources {
	return &device.FrameResources{
		Scene:             m.scene,
		Lights:            m.lights,
		LightsSize:        uint64(len(m.lightBuf)),
		LightsStorage:     m.storage,
		ShadowCameras:     m.shadowCameras,
		ShadowCameraSize:  light.GPUShadowCameraSize,
		Entities:          m.entities,
		EntityBindingSize: entity.GPUEntitySize,
	}
}

// Release frees every buffer and stops the packing workers.
func (m *Manager) Release() {
	for _, h := range []*device.Handle{&m.scene, &m.lights, &m.shadowCameras, &m.entities} {
		if *h != nil {
			(*h).Release()
			*h = nil
		}
	}
	if m.pool != nil {
		m.pool.Stop()
		m.pool = nil
	}
}
