package uniform

// Option is a functional option used to configure a Manager during construction.
type Option func(*Manager)

// WithWorkers packs light records on a pool of n workers. Values below 2 pack on the
// calling goroutine.
//
// Parameters:
//   - n: the number of packing workers
//
// Returns:
//   - Option: a function that sets the worker count for this manager
func WithWorkers(n int) Option {
	return func(m *Manager) {
		m.workers = n
	}
}

// WithUniformLights forces the uniform-array light variant even on devices with storage buffers.
func WithUniformLights() Option {
	return func(m *Manager) {
		m.storage = false
	}
}
