package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFlipCulling(t *testing.T) {
	type spec struct {
		state    uint64
		expected uint64
	}

	specs := []spec{
		{StateWriteZ | StateCullCw, StateWriteZ | StateCullCcw},
		{StateWriteZ | StateCullCcw, StateWriteZ | StateCullCw},
		{StateWriteZ, StateWriteZ},
		{StateWriteZ | StateCullMask, StateWriteZ | StateCullMask},
	}

	for index, s := range specs {
		if got := FlipCulling(s.state); got != s.expected {
			t.Fatalf("[spec %d] expected %#x; got %#x", index, s.expected, got)
		}
		if got := FlipCulling(FlipCulling(s.state)); got != s.state {
			t.Fatalf("[spec %d] expected flipping twice to restore the state; got %#x", index, got)
		}
	}
}

func TestBlendFunc(t *testing.T) {
	b := BlendFunc(StateBlendOne, StateBlendInvSrcAlpha)
	if b&^StateBlendMask != 0 {
		t.Fatalf("expected blend bits inside the blend mask; got %#x", b)
	}
	src, dst := BlendFactors(b | StateWriteRgb)
	if src != StateBlendOne || dst != StateBlendInvSrcAlpha {
		t.Fatalf("expected factors (one, inv src alpha); got (%#x, %#x)", src, dst)
	}
	if src, dst := BlendFactors(StateWriteRgb); src != 0 || dst != 0 {
		t.Fatalf("expected no factors without blending")
	}
}

func TestAdjustProjection(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 1, 10)

	compressed := AdjustProjection(proj, true, false)
	near := compressed.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := compressed.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	if !mgl32.FloatEqualThreshold(near.Z()/near.W(), 0, 1e-4) || !mgl32.FloatEqualThreshold(far.Z()/far.W(), 1, 1e-4) {
		t.Fatalf("expected depth compressed to [0,1]; got %f and %f", near.Z()/near.W(), far.Z()/far.W())
	}

	flipped := AdjustProjection(proj, false, true)
	p := mgl32.Vec4{0, 1, -5, 1}
	if a, b := proj.Mul4x1(p), flipped.Mul4x1(p); !mgl32.FloatEqual(a.Y(), -b.Y()) || a.Z() != b.Z() {
		t.Fatalf("expected only y to be negated; got %v and %v", a, b)
	}
}

func TestNeedsYFlip(t *testing.T) {
	type spec struct {
		caps     Caps
		rtt      bool
		expected bool
	}

	specs := []spec{
		{Caps{OriginBottomLeft: true, HomogeneousDepth: true}, true, false},
		{Caps{OriginBottomLeft: false}, true, true},
		{Caps{OriginBottomLeft: false}, false, false},
		{Caps{OriginBottomLeft: true}, true, false},
	}

	for index, s := range specs {
		if got := s.caps.NeedsYFlip(s.rtt); got != s.expected {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.expected, got)
		}
	}
}

const testDepthShader = `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}
`

func makeTestProgram(t *testing.T, b Backend) Handle {
	t.Helper()
	vs, err := b.CreateShader("vs_test", []byte(testDepthShader))
	if err != nil {
		t.Fatalf("expected shader creation to succeed; got %v", err)
	}
	prog, err := b.CreateProgram(vs, Handle{})
	if err != nil {
		t.Fatalf("expected program creation to succeed; got %v", err)
	}
	return prog
}

func TestRecordingBackendHandles(t *testing.T) {
	b := NewRecordingBackend()

	if _, err := b.CreateProgram(Handle{Kind: HandleShader, ID: 42}, Handle{}); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle for an unknown shader; got %v", err)
	}
	if _, err := b.CreateShader("missing", nil); err == nil {
		t.Fatalf("expected an error for a missing shader binary")
	}
	if _, err := b.CreateShader("no_entry", []byte("fn f() {}")); err == nil {
		t.Fatalf("expected an error for a shader without a vertex entry point")
	}
	vs, err := b.CreateShader("depth", []byte(testDepthShader))
	if err != nil {
		t.Fatalf("expected shader creation to succeed; got %v", err)
	}
	if _, err := b.CreateProgram(vs, vs); err == nil {
		t.Fatalf("expected an error for a fragment shader without a fragment entry point")
	}

	tex, err := b.CreateTexture(TextureDesc{Width: 4, Height: 4}, nil)
	if err != nil {
		t.Fatalf("expected texture creation to succeed; got %v", err)
	}
	fb, err := b.CreateFrameBuffer(tex)
	if err != nil {
		t.Fatalf("expected frame buffer creation to succeed; got %v", err)
	}
	if b.LiveCount(HandleTexture) != 1 || b.LiveCount(HandleFrameBuffer) != 1 {
		t.Fatalf("expected one live texture and frame buffer")
	}

	b.Destroy(fb)
	b.Destroy(tex)
	b.Destroy(tex)
	if b.IsLive(tex) || b.LiveCount(HandleTexture) != 0 {
		t.Fatalf("expected the texture to be destroyed")
	}
}

func TestRecordingBackendOrdersByView(t *testing.T) {
	b := NewRecordingBackend(WithMaxEncoders(2))
	prog := makeTestProgram(t, b)
	b.SetViewMode(1, ViewModeDepthDescending)
	b.SetViewMode(2, ViewModeDepthAscending)

	e0, err := b.BeginEncoder()
	if err != nil {
		t.Fatalf("expected an encoder; got %v", err)
	}
	e1, err := b.BeginEncoder()
	if err != nil {
		t.Fatalf("expected a second encoder; got %v", err)
	}
	if _, err := b.BeginEncoder(); !errors.Is(err, ErrEncodersExhausted) {
		t.Fatalf("expected ErrEncodersExhausted; got %v", err)
	}

	e1.Submit(2, prog, 5)
	e1.Submit(1, prog, 1)
	e0.Submit(2, prog, 3)
	e0.Submit(1, prog, 7)
	e0.Submit(0, prog, 0)

	if _, err := b.Frame(); !errors.Is(err, ErrEncoderOpen) {
		t.Fatalf("expected ErrEncoderOpen; got %v", err)
	}
	b.EndEncoder(e1)
	b.EndEncoder(e0)
	if _, err := b.Frame(); err != nil {
		t.Fatalf("expected the frame to succeed; got %v", err)
	}

	type spec struct {
		view  uint16
		depth uint32
	}
	specs := []spec{{0, 0}, {1, 7}, {1, 1}, {2, 3}, {2, 5}}

	frame := b.LastFrame()
	if len(frame.Draws) != len(specs) {
		t.Fatalf("expected %d draws; got %d", len(specs), len(frame.Draws))
	}
	for index, s := range specs {
		d := frame.Draws[index]
		if d.View != s.view || d.Depth != s.depth {
			t.Fatalf("[spec %d] expected view %d depth %d; got view %d depth %d", index, s.view, s.depth, d.View, d.Depth)
		}
	}
}

func TestRecordingBackendTransientBudget(t *testing.T) {
	layout := VertexLayout{Stride: 16}
	b := NewRecordingBackend(WithTransientBudget(64, 12))

	tvb, tib, err := b.AllocTransientBuffers(layout, 4, 6)
	if err != nil {
		t.Fatalf("expected the first allocation to fit; got %v", err)
	}
	if len(tvb.Data) != 64 || len(tib.Data) != 6 {
		t.Fatalf("expected 64 bytes and 6 indices; got %d and %d", len(tvb.Data), len(tib.Data))
	}
	if _, _, err := b.AllocTransientBuffers(layout, 1, 0); !errors.Is(err, ErrOutOfTransientMemory) {
		t.Fatalf("expected ErrOutOfTransientMemory; got %v", err)
	}

	if _, err := b.Frame(); err != nil {
		t.Fatalf("expected the frame to succeed; got %v", err)
	}
	if _, _, err := b.AllocTransientBuffers(layout, 4, 6); err != nil {
		t.Fatalf("expected the budget to reset at frame end; got %v", err)
	}
}

func TestRecordingEncoderResetsAfterSubmit(t *testing.T) {
	b := NewRecordingBackend()
	prog := makeTestProgram(t, b)
	u, _ := b.CreateUniform("u_color", UniformVec4, 1)

	e, _ := b.BeginEncoder()
	e.SetState(StateWriteRgb, 0)
	e.SetUniform(u, mgl32.Vec4{1, 2, 3, 4})
	e.Submit(0, prog, 0)
	e.Submit(0, prog, 0)
	e.Submit(0, Handle{}, 0)
	b.EndEncoder(e)
	b.Frame()

	draws := b.LastFrame().Draws
	if len(draws) != 2 {
		t.Fatalf("expected the invalid program draw to be dropped; got %d draws", len(draws))
	}
	if draws[0].Seq != 0 || draws[0].State != StateWriteRgb || draws[0].Uniforms[u][0] != (mgl32.Vec4{1, 2, 3, 4}) {
		t.Fatalf("expected the first draw to carry its state and uniform; got %+v", draws[0])
	}
	if draws[1].State != StateDefault || draws[1].Uniforms != nil {
		t.Fatalf("expected the second draw to start from a reset state; got %+v", draws[1])
	}
}
