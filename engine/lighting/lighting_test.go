package lighting

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

type fakeReceiver struct {
	mask    uint32
	hasMask bool
	ref     int
	sets    int
}

func (r *fakeReceiver) LightMask() (uint32, bool) { return r.mask, r.hasMask }
func (r *fakeReceiver) LightingRef() int          { return r.ref }
func (r *fakeReceiver) SetLightingRef(ref int) {
	r.ref = ref
	r.sets++
}

type fakeWorld struct {
	lights    []light.Light
	ambients  []*light.AmbientLight
	fogs      []*light.Fog
	receivers []*fakeReceiver
}

func (w *fakeWorld) Lights() []light.Light                { return w.lights }
func (w *fakeWorld) AmbientLights() []*light.AmbientLight { return w.ambients }
func (w *fakeWorld) Fogs() []*light.Fog                   { return w.fogs }
func (w *fakeWorld) LitReceivers() []Receiver {
	out := make([]Receiver, len(w.receivers))
	for i, r := range w.receivers {
		out[i] = r
	}
	return out
}

func newReceiver() *fakeReceiver {
	return &fakeReceiver{ref: NoRef}
}

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	log.SetSink(&buf)
	t.Cleanup(func() { log.SetSink(os.Stdout) })
	return &buf
}

func mappedSpot() light.Light {
	return light.NewLight(light.KindSpot, light.WithShadow(1024))
}

func cascadeLight(cam camera.Camera) light.Light {
	return light.NewLight(light.KindDirectional,
		light.WithShadow(2048),
		light.WithAutoMoving(common.AABB{Extents: mgl32.Vec3{10, 10, 10}}, false, cam),
		light.WithCascades(cam, mgl32.Vec3{0.5, 0.25, 0.125}, 0.1))
}

func TestPlainLightOverflowDrops(t *testing.T) {
	buf := captureLog(t)
	w := &fakeWorld{receivers: []*fakeReceiver{newReceiver()}}
	for i := 0; i < 9; i++ {
		w.lights = append(w.lights, light.NewLight(light.KindPoint))
	}

	a := NewAggregator()
	a.Update(w)

	s := a.Setup(0)
	if len(s.PlainLights) != MaxPlainLights {
		t.Fatalf("expected %d plain lights; got %d", MaxPlainLights, len(s.PlainLights))
	}
	if s.PlainLights[7] != w.lights[7] {
		t.Fatalf("expected the first eight lights to be kept in order")
	}
	if !strings.Contains(buf.String(), "dropping light") {
		t.Fatalf("expected a warning about the dropped light; got %q", buf.String())
	}
}

func TestMappedLightOverflow(t *testing.T) {
	type spec struct {
		strict      bool
		expectPanic bool
	}

	specs := []spec{
		{strict: false, expectPanic: false},
		{strict: true, expectPanic: true},
	}

	for index, s := range specs {
		captureLog(t)
		w := &fakeWorld{
			lights:    []light.Light{mappedSpot(), mappedSpot(), mappedSpot()},
			receivers: []*fakeReceiver{newReceiver()},
		}
		a := NewAggregator(WithStrictMappedLights(s.strict))

		panicked := func() (p bool) {
			defer func() { p = recover() != nil }()
			a.Update(w)
			return false
		}()
		if panicked != s.expectPanic {
			t.Fatalf("[spec %d] expected panic %v; got %v", index, s.expectPanic, panicked)
		}
		if !s.expectPanic {
			setup := a.Setup(0)
			if setup.MappedLight0 != w.lights[0] || setup.MappedLight1 != w.lights[1] {
				t.Fatalf("[spec %d] expected the first two mapped lights to be kept", index)
			}
		}
	}
}

func TestSecondCascadeLightPanics(t *testing.T) {
	cam := camera.NewCamera()
	w := &fakeWorld{lights: []light.Light{cascadeLight(cam), cascadeLight(cam)}}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a second cascade shadow mapped light to panic")
		}
	}()
	NewAggregator().Update(w)
}

func TestClassification(t *testing.T) {
	captureLog(t)
	cam := camera.NewCamera()
	point := light.NewLight(light.KindPoint)
	dir := light.NewLight(light.KindDirectional)
	spot := mappedSpot()
	csm := cascadeLight(cam)
	disabled := light.NewLight(light.KindPoint, light.WithDisabled())
	unshadowedSpot := light.NewLight(light.KindSpot)

	w := &fakeWorld{lights: []light.Light{point, dir, spot, csm, disabled, unshadowedSpot}}
	a := NewAggregator()
	a.Update(w)
	s := a.Setup(0)

	if len(s.PlainLights) != 2 || s.PlainLights[0] != point || s.PlainLights[1] != dir {
		t.Fatalf("expected the point and directional lights as plain lights; got %d", len(s.PlainLights))
	}
	if s.MappedLight0 != spot || s.MappedLight1 != nil {
		t.Fatalf("expected the shadowed spot as the only mapped light")
	}
	if s.CSMLight != csm {
		t.Fatalf("expected the cascade light in the csm slot")
	}
	if s.EntityMask != common.AllBits {
		t.Fatalf("expected setup 0 to serve all bits; got %#x", s.EntityMask)
	}
}

func TestMasksAndReceiverRefs(t *testing.T) {
	captureLog(t)
	masked := light.NewLight(light.KindPoint, light.WithMask(0b01))
	global := light.NewLight(light.KindPoint)

	plain := newReceiver()
	maskA := &fakeReceiver{mask: 0b01, hasMask: true, ref: NoRef}
	maskB := &fakeReceiver{mask: 0b10, hasMask: true, ref: NoRef}
	maskA2 := &fakeReceiver{mask: 0b01, hasMask: true, ref: NoRef}

	w := &fakeWorld{lights: []light.Light{masked, global}, receivers: []*fakeReceiver{plain, maskA, maskB, maskA2}}
	a := NewAggregator()
	if changed := a.Update(w); changed != 3 {
		t.Fatalf("expected 3 new setups; got %d", changed)
	}

	type spec struct {
		r        *fakeReceiver
		ref      int
		expected int
	}

	specs := []spec{
		{plain, 0, 2},
		{maskA, 1, 2},
		{maskB, 2, 1},
		{maskA2, 1, 2},
	}

	for index, s := range specs {
		if s.r.ref != s.ref {
			t.Fatalf("[spec %d] expected ref %d; got %d", index, s.ref, s.r.ref)
		}
		if got := len(a.Setup(s.r.ref).PlainLights); got != s.expected {
			t.Fatalf("[spec %d] expected %d lights in the setup; got %d", index, s.expected, got)
		}
	}

	if changed := a.Update(w); changed != 0 {
		t.Fatalf("expected an unchanged world to change no setups; got %d", changed)
	}
	for index, s := range specs {
		if s.r.sets != 1 {
			t.Fatalf("[spec %d] expected receivers to be assigned once; got %d", index, s.r.sets)
		}
	}

	masked.SetEnabled(false)
	if changed := a.Update(w); changed != 2 {
		t.Fatalf("expected disabling the masked light to change two setups; got %d", changed)
	}
	if maskB.sets != 1 || maskA.sets != 2 || plain.sets != 2 {
		t.Fatalf("expected only receivers of changed setups to be reassigned; got %d %d %d", plain.sets, maskA.sets, maskB.sets)
	}
}

func TestAmbientAndFogSelection(t *testing.T) {
	buf := captureLog(t)
	dim := &light.AmbientLight{Color: mgl32.Vec3{0.1, 0.1, 0.1}, Intensity: 1}
	bright := &light.AmbientLight{Color: mgl32.Vec3{0.5, 0.5, 0.5}, Intensity: 1}
	off := &light.Fog{Mode: light.FogNone}
	linear := &light.Fog{Mode: light.FogLinear, Start: 1, End: 10}
	exp := &light.Fog{Mode: light.FogExp, Density: 0.1, Start: 1, End: 10}

	w := &fakeWorld{ambients: []*light.AmbientLight{dim, bright}, fogs: []*light.Fog{off, linear, exp}}
	a := NewAggregator()
	a.Update(w)
	s := a.Setup(0)

	if s.Ambient != bright {
		t.Fatalf("expected the brightest ambient light to win")
	}
	if s.Fog != linear {
		t.Fatalf("expected the first enabled fog to win; got mode %d", s.Fog.Mode)
	}
	if !strings.Contains(buf.String(), "ambient") || !strings.Contains(buf.String(), "fog") {
		t.Fatalf("expected warnings about conflicting ambient and fog; got %q", buf.String())
	}
}

func TestAmbientAndFogMasks(t *testing.T) {
	captureLog(t)
	global := &light.AmbientLight{Color: mgl32.Vec3{0.1, 0.1, 0.1}, Intensity: 1}
	onlyB := &light.AmbientLight{Color: mgl32.Vec3{0.9, 0.9, 0.9}, Intensity: 1, Mask: 0b10}
	fogA := &light.Fog{Mode: light.FogExp, Density: 0.1, Mask: 0b01}

	maskA := &fakeReceiver{mask: 0b01, hasMask: true, ref: NoRef}
	maskB := &fakeReceiver{mask: 0b10, hasMask: true, ref: NoRef}
	w := &fakeWorld{
		ambients:  []*light.AmbientLight{global, onlyB},
		fogs:      []*light.Fog{fogA},
		receivers: []*fakeReceiver{maskA, maskB},
	}
	a := NewAggregator()
	a.Update(w)

	type spec struct {
		r          *fakeReceiver
		expAmbient *light.AmbientLight
		expFog     *light.Fog
	}

	specs := []spec{
		{maskA, global, fogA},
		{maskB, onlyB, nil},
	}

	for index, s := range specs {
		setup := a.Setup(s.r.ref)
		if setup.Ambient != s.expAmbient {
			t.Fatalf("[spec %d] expected ambient %+v; got %+v", index, s.expAmbient, setup.Ambient)
		}
		if setup.Fog != s.expFog {
			t.Fatalf("[spec %d] expected fog %+v; got %+v", index, s.expFog, setup.Fog)
		}
	}

	if all := a.Setup(0); all.Ambient != onlyB || all.Fog != fogA {
		t.Fatalf("expected the all bits setup to see every ambient light and fog")
	}
}

func TestSetupEqual(t *testing.T) {
	l := light.NewLight(light.KindPoint)
	a := &Setup{PlainLights: []light.Light{l}, EntityMask: 1}
	b := &Setup{PlainLights: []light.Light{l}, EntityMask: 1}
	c := &Setup{PlainLights: []light.Light{light.NewLight(light.KindPoint)}, EntityMask: 1}
	if !a.Equal(b) || a.Equal(c) {
		t.Fatalf("expected setups to compare by light identity")
	}
}

func TestComputeSpotMask(t *testing.T) {
	type spec struct {
		inner, ratio float32
		expected     mgl32.Vec4
	}

	specs := []spec{
		{0, 1, mgl32.Vec4{1, 1, 1, 0}},
		{0.5, 0.5, mgl32.Vec4{float32(math.Sqrt2), 2 * float32(math.Sqrt2), 2, 0}},
	}

	for index, s := range specs {
		if got := ComputeSpotMask(s.inner, s.ratio); !got.ApproxEqualThreshold(s.expected, eps) {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.expected, got)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected an inner radius of 1 to panic")
		}
	}()
	ComputeSpotMask(1, 1)
}

func TestPlainLightPacking(t *testing.T) {
	var g GPULighting
	g.SetPointLight(0, mgl32.Vec3{1, 2, 3}, 4, mgl32.Vec3{1, 0, 0})
	g.SetDirLight(1, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0})

	if g.PositionOrDir[0] != (mgl32.Vec4{1, 2, 3, 1}) || !mgl32.FloatEqualThreshold(g.ColorIVR[0].W(), 1.0/16, eps) {
		t.Fatalf("expected a point light with w 1 and inverse squared range; got %v %v", g.PositionOrDir[0], g.ColorIVR[0])
	}
	if g.PositionOrDir[1] != (mgl32.Vec4{0, 1, 0, 0}) || g.ColorIVR[1].W() != 0 {
		t.Fatalf("expected a directional light pointing at the light with w 0; got %v %v", g.PositionOrDir[1], g.ColorIVR[1])
	}
}

func TestBuildGPULighting(t *testing.T) {
	cam := camera.NewCamera()
	cam.Update(common.AABB{}, 0)
	csm := cascadeLight(cam)
	light.UpdateAutoMoving(csm, common.AABB{})
	csm.UpdateMatrices()

	spot := light.NewLight(light.KindSpot, light.WithShadow(512), light.WithClip(0.1, 10), light.WithSpot(60, 0, 1),
		light.WithWorld(mgl32.Translate3D(1, 2, 3)))
	spot.SetShadowRefs(4, 7)
	dir := light.NewLight(light.KindDirectional, light.WithShadow(512))

	s := &Setup{
		CSMLight:     csm,
		MappedLight0: spot,
		MappedLight1: dir,
		PlainLights:  []light.Light{light.NewLight(light.KindPoint, light.WithClip(0.1, 2))},
		Ambient:      &light.AmbientLight{Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.25},
		Fog:          &light.Fog{Mode: light.FogLinear, Density: 0.5, Start: 2, End: 6, Color: mgl32.Vec4{1, 1, 1, 1}},
	}
	g := BuildGPULighting(s, false)

	if g.NumPlainLights != 1 || g.NumMappedLights != 2 || g.NumCSMLights != 1 {
		t.Fatalf("expected 1/2/1 lights; got %d/%d/%d", g.NumPlainLights, g.NumMappedLights, g.NumCSMLights)
	}
	if g.MappedLight0.ShadowMap != 7 || g.MappedLight01SIS[0] != 512 {
		t.Fatalf("expected mapped light 0 to use its shadow map; got %d size %f", g.MappedLight0.ShadowMap, g.MappedLight01SIS[0])
	}
	if g.MappedLight1.ShadowMap != NoShadowMap || g.MappedLight01SIS[2] != 1 {
		t.Fatalf("expected mapped light 1 without a shadow map yet; got %d size %f", g.MappedLight1.ShadowMap, g.MappedLight01SIS[2])
	}
	if g.MappedLight0.WorldPosOrDir != (mgl32.Vec4{1, 2, 3, 1}) || g.MappedLight0.Mask != (mgl32.Vec4{1, 1, 1, 0}) {
		t.Fatalf("expected the spot position and cone mask; got %v %v", g.MappedLight0.WorldPosOrDir, g.MappedLight0.Mask)
	}
	if g.MappedLight1.WorldPosOrDir != (mgl32.Vec4{0, 0, -1, 0}) || g.MappedLight1.ColorInvRangeSqr.W() != 0 {
		t.Fatalf("expected the directional light reversed with no attenuation; got %v", g.MappedLight1.WorldPosOrDir)
	}
	if g.CSMOffsetScale[3].W() != 8 || g.CSMLightSIS[0] != 1 || g.CSMLightSIS[2] != -2 {
		t.Fatalf("expected cascade scales and a border for a missing shadow map; got %v %v", g.CSMOffsetScale[3], g.CSMLightSIS)
	}
	if !g.FogParams.ApproxEqualThreshold(mgl32.Vec4{1, 0.5, 6, 0.25}, eps) {
		t.Fatalf("expected linear fog params; got %v", g.FogParams)
	}
	if !g.Ambient.ApproxEqualThreshold(mgl32.Vec4{0.25, 0.25, 0.25, 0}, eps) {
		t.Fatalf("expected premultiplied ambient; got %v", g.Ambient)
	}

	gamma := BuildGPULighting(&Setup{Ambient: &light.AmbientLight{Color: mgl32.Vec3{0.5, 0.5, 0.5}, Intensity: 1}}, true)
	if gamma.Ambient.X() <= 0.5 {
		t.Fatalf("expected gamma output to brighten linear mid grey; got %v", gamma.Ambient)
	}

	buf := g.Marshal()
	if len(buf) != GPULightingSize {
		t.Fatalf("expected %d bytes; got %d", GPULightingSize, len(buf))
	}
	if n := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])); n != 1 {
		t.Fatalf("expected the block to lead with the plain light count; got %f", n)
	}
}

func TestViewSpaceCache(t *testing.T) {
	var g GPULighting
	g.SetPointLight(0, mgl32.Vec3{1, 0, 0}, 1, mgl32.Vec3{1, 1, 1})
	g.NumPlainLights = 1
	view := mgl32.Translate3D(0, 0, 5)

	cache := NewViewSpace()
	if !g.TransformToViewSpace(view, &cache, 3, 0) {
		t.Fatalf("expected a fresh cache to be filled")
	}
	if cache.PositionOrDir[0] != (mgl32.Vec4{1, 0, 5, 1}) {
		t.Fatalf("expected the light in view space; got %v", cache.PositionOrDir[0])
	}

	type spec struct {
		viewID   uint16
		setupRef int
		flush    bool
		expected bool
	}

	specs := []spec{
		{3, 0, false, false},
		{3, 1, false, true},
		{4, 1, false, true},
		{4, 1, true, true},
	}

	for index, s := range specs {
		if s.flush {
			cache.Flush()
		}
		if got := g.TransformToViewSpace(view, &cache, s.viewID, s.setupRef); got != s.expected {
			t.Fatalf("[spec %d] expected refresh %v; got %v", index, s.expected, got)
		}
	}
}
