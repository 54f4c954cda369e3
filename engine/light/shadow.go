package light

// ShadowMapResolution is the default width and height in texels of a shadow map.
// Lights override it with WithShadow.
const ShadowMapResolution = 2048

// DefaultShadowBias is the constant depth bias applied when rendering shadow casters
// to reduce shadow acne.
const DefaultShadowBias float32 = 0.001

// DefaultShadowSlopeBias scales the depth bias by the polygon slope. Higher values push
// casters further back on grazing surfaces at the cost of slight shadow detachment.
const DefaultShadowSlopeBias float32 = 3.0

// DefaultCascadeScale are the default split ratios of cascades 1 to 3.
// Cascade 0 always covers the full light bounds.
var DefaultCascadeScale = [3]float32{0.5, 0.25, 0.125}

// DefaultCascadeBlendWidth is the default fraction of a cascade blended into the next one.
const DefaultCascadeBlendWidth float32 = 0.1
