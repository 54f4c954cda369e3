package lighting

import "github.com/Carmen-Shannon/oxy-render/engine/light"

const (
	// MaxPlainLights is the number of point or directional lights without shadows per setup.
	MaxPlainLights = 8
	// MaxMappedLights is the number of shadow mapped spot or directional lights per setup.
	MaxMappedLights = 2
	// MaxCSMLights is the number of cascade shadow mapped lights per setup.
	MaxCSMLights = 1
)

// NoRef is the lighting reference of a receiver that has not been assigned a setup yet.
const NoRef = -1

// Setup is the group of lights applied to every lit receiver whose light mask equals EntityMask.
// Lights and environment entries are compared by identity.
type Setup struct {
	CSMLight     light.Light
	MappedLight0 light.Light
	MappedLight1 light.Light
	PlainLights  []light.Light
	Ambient      *light.AmbientLight
	Fog          *light.Fog
	EntityMask   uint32
}

// MappedLights returns the assigned shadow mapped lights in slot order.
func (s *Setup) MappedLights() []light.Light {
	out := make([]light.Light, 0, MaxMappedLights)
	if s.MappedLight0 != nil {
		out = append(out, s.MappedLight0)
	}
	if s.MappedLight1 != nil {
		out = append(out, s.MappedLight1)
	}
	return out
}

// Equal reports whether both setups reference the same lights in the same slots.
func (s *Setup) Equal(o *Setup) bool {
	if s.CSMLight != o.CSMLight || s.MappedLight0 != o.MappedLight0 || s.MappedLight1 != o.MappedLight1 {
		return false
	}
	if len(s.PlainLights) != len(o.PlainLights) {
		return false
	}
	for i := range s.PlainLights {
		if s.PlainLights[i] != o.PlainLights[i] {
			return false
		}
	}
	return s.Ambient == o.Ambient && s.Fog == o.Fog && s.EntityMask == o.EntityMask
}
