package lighting

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
)

var logger = log.New("lighting")

// Source provides the lights, environment and lit receivers of a world.
type Source interface {
	Lights() []light.Light
	AmbientLights() []*light.AmbientLight
	Fogs() []*light.Fog
	LitReceivers() []Receiver
}

// Receiver is a lit renderer that references a lighting setup.
type Receiver interface {
	// LightMask returns the receiver's light mask and whether it has one.
	LightMask() (uint32, bool)
	// LightingRef returns the index of the assigned setup, or NoRef.
	LightingRef() int
	// SetLightingRef assigns a setup index.
	SetLightingRef(ref int)
}

type setupAndMask struct {
	setup   *Setup
	mask    uint32
	changed bool
}

// Aggregator assigns every light to a lighting setup per distinct receiver light mask.
// Setup 0 always serves receivers without a mask.
type Aggregator struct {
	strictMapped bool
	setups       []setupAndMask
	maskIndex    map[uint32]int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithStrictMappedLights makes a third shadow mapped light in one setup panic instead of being dropped.
func WithStrictMappedLights(strict bool) AggregatorOption {
	return func(a *Aggregator) {
		a.strictMapped = strict
	}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(options ...AggregatorOption) *Aggregator {
	a := &Aggregator{maskIndex: map[uint32]int{}}
	for _, option := range options {
		option(a)
	}
	return a
}

// Setups returns the current setups. A receiver's LightingRef indexes this slice.
func (a *Aggregator) Setups() []*Setup {
	out := make([]*Setup, len(a.setups))
	for i, s := range a.setups {
		out[i] = s.setup
	}
	return out
}

// Setup returns the setup at ref, or nil if ref is out of range.
func (a *Aggregator) Setup(ref int) *Setup {
	if ref < 0 || ref >= len(a.setups) {
		return nil
	}
	return a.setups[ref].setup
}

// Update rebuilds the setup of every distinct receiver mask, writes back only the setups that
// changed and points receivers at their setup. Receivers are only touched when their setup
// changed or they have none yet.
//
// Parameters:
//   - src: the world to aggregate
//
// Returns:
//   - int: the number of setups that changed
func (a *Aggregator) Update(src Source) int {
	receivers := src.LitReceivers()
	masks := a.uniqueMasks(receivers)

	anyChanged := false
	for i, m := range masks {
		if i >= len(a.setups) {
			a.setups = append(a.setups, setupAndMask{setup: &Setup{EntityMask: m}, mask: m, changed: true})
			anyChanged = true
		} else if a.setups[i].mask != m {
			a.setups[i].mask = m
			a.setups[i].changed = true
			anyChanged = true
		}
	}
	a.setups = a.setups[:len(masks)]

	clear(a.maskIndex)
	for i, m := range masks {
		a.maskIndex[m] = i
	}

	lights := src.Lights()
	for i := range a.setups {
		sm := &a.setups[i]
		next := a.buildSetup(sm.mask, lights, src.AmbientLights(), src.Fogs())
		if !sm.setup.Equal(next) {
			*sm.setup = *next
			sm.changed = true
			anyChanged = true
		}
	}

	for _, r := range receivers {
		idx := 0
		if m, ok := r.LightMask(); ok {
			idx = a.maskIndex[m]
		}
		if r.LightingRef() == NoRef || (anyChanged && a.setups[idx].changed) {
			r.SetLightingRef(idx)
		}
	}

	changed := 0
	for i := range a.setups {
		if a.setups[i].changed {
			changed++
		}
		a.setups[i].changed = false
	}
	if changed > 0 {
		logger.Noticef("Changed %d lighting setup(s).", changed)
	}
	return changed
}

// uniqueMasks returns all bits followed by the distinct receiver masks in first seen order.
func (a *Aggregator) uniqueMasks(receivers []Receiver) []uint32 {
	masks := []uint32{common.AllBits}
	seen := map[uint32]bool{common.AllBits: true}
	for _, r := range receivers {
		m, ok := r.LightMask()
		if !ok || seen[m] {
			continue
		}
		seen[m] = true
		masks = append(masks, m)
	}
	return masks
}

func affects(l light.Light, entMask uint32) bool {
	if m, ok := l.Mask(); ok && entMask&m == 0 {
		return false
	}
	return true
}

func (a *Aggregator) buildSetup(entMask uint32, lights []light.Light, ambients []*light.AmbientLight, fogs []*light.Fog) *Setup {
	s := &Setup{EntityMask: entMask}

	for _, l := range lights {
		if !l.Enabled() || !affects(l, entMask) {
			continue
		}
		_, shadowed := l.Shadow()
		csm := l.Cascade() != nil

		switch {
		case csm:
			if s.CSMLight != nil {
				panic("lighting: more than one cascade shadow mapped light is not supported")
			}
			s.CSMLight = l
		case shadowed && l.Kind() != light.KindPoint:
			switch {
			case s.MappedLight0 == nil:
				s.MappedLight0 = l
			case s.MappedLight1 == nil:
				s.MappedLight1 = l
			case a.strictMapped:
				panic("lighting: more than two shadow mapped lights are not supported")
			default:
				logger.Warningf("more than %d shadow mapped lights for mask %#x, dropping light %d", MaxMappedLights, entMask, l.ID())
			}
		case !shadowed && l.Kind() != light.KindSpot:
			if len(s.PlainLights) < MaxPlainLights {
				s.PlainLights = append(s.PlainLights, l)
			} else {
				logger.Warningf("more than %d plain lights for mask %#x, dropping light %d", MaxPlainLights, entMask, l.ID())
			}
		default:
			logger.Debugf("%s light %d without a supported shadow setup is ignored", l.Kind(), l.ID())
		}
	}

	var prevAmbient float32
	for _, amb := range ambients {
		if !amb.Affects(entMask) {
			continue
		}
		if s.Ambient == nil {
			s.Ambient = amb
			prevAmbient = amb.Brightness()
			continue
		}
		if s.Ambient.Effective() != amb.Effective() {
			logger.Warning("multiple different ambient lights in scene, selecting the brightest one")
			if b := amb.Brightness(); prevAmbient < b {
				s.Ambient = amb
				prevAmbient = b
			}
		}
	}

	for _, f := range fogs {
		if !f.Affects(entMask) {
			continue
		}
		if s.Fog == nil {
			s.Fog = f
			continue
		}
		if !s.Fog.Equal(*f) {
			logger.Warning("multiple different fog settings in scene, picked the first enabled one")
			if s.Fog.Mode == light.FogNone && f.Mode != light.FogNone {
				s.Fog = f
			}
		}
	}
	return s
}
