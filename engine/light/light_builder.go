package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption configures a LightStyle in NewLightStyle.
type LightBuilderOption func(*LightStyle)

// WithColor sets the light color.
func WithColor(c mgl32.Vec3) LightBuilderOption {
	return func(l *LightStyle) {
		l.Color = c
	}
}

// WithAmbient sets the ambient contribution factor.
func WithAmbient(a float32) LightBuilderOption {
	return func(l *LightStyle) {
		l.Ambient = a
	}
}

// WithPosition sets the light position before rotation.
func WithPosition(p mgl32.Vec3) LightBuilderOption {
	return func(l *LightStyle) {
		l.Position = p
	}
}

// WithRotation sets the Euler rotation in radians.
func WithRotation(r mgl32.Vec3) LightBuilderOption {
	return func(l *LightStyle) {
		l.Rotation = r
	}
}

// WithBrightness sets the brightness multiplier.
func WithBrightness(b float32) LightBuilderOption {
	return func(l *LightStyle) {
		l.Brightness = b
	}
}

// WithShadow makes the light cast shadows. Zero fields of s take the package defaults.
func WithShadow(s ShadowStyle) LightBuilderOption {
	return func(l *LightStyle) {
		if s.Fov == 0 {
			s.Fov = DefaultShadowFov
		}
		if s.Near == 0 {
			s.Near = DefaultShadowNear
		}
		if s.Far == 0 {
			s.Far = DefaultShadowFar
		}
		if s.Up == (mgl32.Vec3{}) {
			s.Up = mgl32.Vec3{0, 1, 0}
		}
		if s.Opacity == 0 {
			s.Opacity = 1
		}
		l.Shadow = &s
	}
}

// WithHemisphere sets the sky and ground colors for ModelHemisphere.
func WithHemisphere(sky, ground mgl32.Vec3) LightBuilderOption {
	return func(l *LightStyle) {
		l.Hemisphere = &HemisphereStyle{Sky: sky, Ground: ground}
	}
}
