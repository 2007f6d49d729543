package pipeline

// CacheOption is a functional option used to configure a Cache during construction.
type CacheOption func(*Cache)

// WithMaxLights sets the light array capacity substituted for MAX_LIGHT_NUM.
//
// Parameters:
//   - n: the number of light records the shaders declare
//
// Returns:
//   - CacheOption: a function that sets the light capacity for this cache
func WithMaxLights(n int) CacheOption {
	return func(c *Cache) {
		c.maxLights = n
	}
}

// WithSupportStorage selects the storage-buffer light array variant.
// It should be read once from the device's Capabilities.
func WithSupportStorage(supported bool) CacheOption {
	return func(c *Cache) {
		c.supportStorage = supported
	}
}

// WithValidator runs validate over every expanded module before it reaches the device.
//
// Parameters:
//   - validate: returns an error for WGSL the device should never see, e.g. shader.Validate
//
// Returns:
//   - CacheOption: a function that sets the validator for this cache
func WithValidator(validate func(src string) error) CacheOption {
	return func(c *Cache) {
		c.validate = validate
	}
}

// WithSampleCount sets the MSAA sample count of color pipelines.
func WithSampleCount(n uint32) CacheOption {
	return func(c *Cache) {
		c.sampleCount = n
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias of shadow pipelines.
func WithDepthBias(constant int32, slope float32) CacheOption {
	return func(c *Cache) {
		c.depthBias = constant
		c.depthBiasSlope = slope
	}
}
