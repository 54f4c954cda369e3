package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrOutOfTransientMemory is returned when the per-frame transient vertex or index budget is exhausted.
	ErrOutOfTransientMemory = errors.New("renderer: out of transient memory")

	// ErrInvalidHandle is returned when a handle is zero, of the wrong kind, or already destroyed.
	ErrInvalidHandle = errors.New("renderer: invalid handle")

	// ErrEncodersExhausted is returned by BeginEncoder when every encoder slot is in use.
	ErrEncodersExhausted = errors.New("renderer: no free encoder")

	// ErrEncoderOpen is returned by Frame when an encoder was begun but never ended.
	ErrEncoderOpen = errors.New("renderer: encoder still open at frame end")
)

// HandleKind identifies the resource type a Handle refers to.
type HandleKind uint8

const (
	HandleNone HandleKind = iota
	HandleVertexBuffer
	HandleIndexBuffer
	HandleDynamicVertexBuffer
	HandleDynamicIndexBuffer
	HandleTexture
	HandleFrameBuffer
	HandleShader
	HandleProgram
	HandleUniform
)

func (k HandleKind) String() string {
	switch k {
	case HandleVertexBuffer:
		return "vertex buffer"
	case HandleIndexBuffer:
		return "index buffer"
	case HandleDynamicVertexBuffer:
		return "dynamic vertex buffer"
	case HandleDynamicIndexBuffer:
		return "dynamic index buffer"
	case HandleTexture:
		return "texture"
	case HandleFrameBuffer:
		return "frame buffer"
	case HandleShader:
		return "shader"
	case HandleProgram:
		return "program"
	case HandleUniform:
		return "uniform"
	}
	return "none"
}

// Handle is an opaque reference to a backend resource. The zero value is the invalid handle.
type Handle struct {
	Kind HandleKind
	ID   uint16
}

// Valid reports whether the handle refers to a resource.
func (h Handle) Valid() bool {
	return h.Kind != HandleNone && h.ID != 0
}

// Caps describes the conventions and limits of a backend.
type Caps struct {
	// OriginBottomLeft is true when texture and framebuffer coordinates start at the bottom left (GL style).
	OriginBottomLeft bool
	// HomogeneousDepth is true when clip space depth runs from -1 to 1; false for 0 to 1.
	HomogeneousDepth bool
	// MaxEncoders is the number of encoders that may be open at the same time.
	MaxEncoders int
	// TransientVertexBytes and TransientIndexCount are the per-frame transient budgets.
	TransientVertexBytes int
	TransientIndexCount  int
}

// AttributeFormat is the component type of a vertex attribute.
type AttributeFormat uint8

const (
	AttributeFloat32 AttributeFormat = iota
	AttributeUnorm8
)

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	Location   uint32
	Offset     uint32
	Components uint32
	Format     AttributeFormat
}

// VertexLayout describes an interleaved vertex stream.
type VertexLayout struct {
	Name       string
	Stride     uint32
	Attributes []VertexAttribute
}

// TextureFormat is the pixel format of a texture.
type TextureFormat uint8

const (
	TextureRGBA8 TextureFormat = iota
	TextureRGBA8SRGB
	TextureDepth16
	TextureDepth24
	TextureDepth32F
)

// IsDepth reports whether the format is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f >= TextureDepth16
}

// TextureFlags configures how a texture may be used.
type TextureFlags uint32

const (
	TextureSampled TextureFlags = 1 << iota
	TextureRenderTarget
	TextureCompare
	TextureClamp
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label  string
	Width  uint16
	Height uint16
	Format TextureFormat
	Flags  TextureFlags
}

// UniformType is the shape of a uniform.
type UniformType uint8

const (
	UniformVec4 UniformType = iota
	UniformMat4
	UniformSampler
)

// ClearFlags selects the attachments a view clears before drawing.
type ClearFlags uint16

const (
	ClearColor   ClearFlags = 1
	ClearDepth   ClearFlags = 2
	ClearStencil ClearFlags = 4
)

// ViewMode controls how the draws of one view are ordered at frame end.
type ViewMode uint8

const (
	// ViewModeDefault leaves the order to the backend.
	ViewModeDefault ViewMode = iota
	// ViewModeSequential keeps submission order.
	ViewModeSequential
	// ViewModeDepthAscending sorts by ascending sort depth.
	ViewModeDepthAscending
	// ViewModeDepthDescending sorts by descending sort depth.
	ViewModeDepthDescending
)

// TransientVertexBuffer is a per-frame vertex allocation. Data is written by the caller before submission.
type TransientVertexBuffer struct {
	Layout      VertexLayout
	Data        []byte
	StartVertex uint32
	Count       uint32
}

// TransientIndexBuffer is a per-frame index allocation.
type TransientIndexBuffer struct {
	Data       []uint16
	StartIndex uint32
	Count      uint32
}

// Backend is the opaque GPU service the render core drives. Resource creation is fallible and
// returns wrapped errors; per-view setup and encoders are fire and forget within a frame.
type Backend interface {
	// Caps returns the backend conventions and limits.
	Caps() Caps

	// BackBufferSize returns the size of the front buffer in pixels.
	BackBufferSize() (width, height int)

	// Resize changes the front buffer size.
	Resize(width, height int) error

	CreateVertexBuffer(data []byte, layout VertexLayout) (Handle, error)
	CreateIndexBuffer(indices []uint16) (Handle, error)
	CreateDynamicVertexBuffer(capacity uint32, layout VertexLayout) (Handle, error)
	UpdateDynamicVertexBuffer(h Handle, startVertex uint32, data []byte) error
	CreateDynamicIndexBuffer(capacity uint32) (Handle, error)
	UpdateDynamicIndexBuffer(h Handle, startIndex uint32, indices []uint16) error

	// CreateTexture creates a 2D texture, uploading data when it is not nil.
	CreateTexture(desc TextureDesc, data []byte) (Handle, error)

	// CreateFrameBuffer creates a render target from texture attachments.
	CreateFrameBuffer(attachments ...Handle) (Handle, error)

	// CreateShader compiles a shader from source.
	CreateShader(name string, code []byte) (Handle, error)

	// CreateProgram links a vertex and a fragment shader. An invalid fragment handle makes a depth only program.
	CreateProgram(vs, fs Handle) (Handle, error)

	// CreateUniform registers a named uniform with num elements.
	CreateUniform(name string, kind UniformType, num int) (Handle, error)

	// Destroy releases a resource. Destroying an unknown handle is logged and ignored.
	Destroy(h Handle)

	// AllocTransientBuffers reserves per-frame vertex and index space.
	//
	// Returns:
	//   - *TransientVertexBuffer: the vertex allocation
	//   - *TransientIndexBuffer: the index allocation
	//   - error: ErrOutOfTransientMemory when the frame budget cannot hold the request
	AllocTransientBuffers(layout VertexLayout, numVertices, numIndices uint32) (*TransientVertexBuffer, *TransientIndexBuffer, error)

	SetViewName(view uint16, name string)
	SetViewRect(view uint16, rect common.Rect16)
	SetViewScissor(view uint16, rect common.Rect16)
	SetViewClear(view uint16, flags ClearFlags, rgba uint32, depth float32, stencil uint8)
	SetViewTransform(view uint16, viewMatrix, projection mgl32.Mat4)
	SetViewFrameBuffer(view uint16, fb Handle)
	SetViewMode(view uint16, mode ViewMode)

	// Touch makes sure the view is executed (cleared) even when nothing is drawn into it.
	Touch(view uint16)

	// BeginEncoder opens an encoder for one worker.
	//
	// Returns:
	//   - Encoder: the encoder
	//   - error: ErrEncodersExhausted when all MaxEncoders slots are open
	BeginEncoder() (Encoder, error)

	// EndEncoder closes an encoder opened with BeginEncoder.
	EndEncoder(e Encoder)

	// Frame hands everything encoded so far to the GPU and starts a new frame.
	//
	// Returns:
	//   - uint32: the number of the frame just submitted
	//   - error: ErrEncoderOpen if an encoder was left open, or a backend failure
	Frame() (uint32, error)

	// Shutdown releases every resource.
	Shutdown()
}

// Encoder records draw state and draws for one worker. Submit consumes the pending state.
type Encoder interface {
	SetState(state uint64, rgba uint32)
	SetTransform(m mgl32.Mat4)
	SetUniform(h Handle, values ...mgl32.Vec4)
	SetUniformMat4(h Handle, values ...mgl32.Mat4)
	SetTexture(stage uint8, sampler Handle, texture Handle)
	SetVertexBuffer(stream uint8, h Handle, start, count uint32)
	SetIndexBuffer(h Handle, start, count uint32)
	SetTransientVertexBuffer(stream uint8, tvb *TransientVertexBuffer, start, count uint32)
	SetTransientIndexBuffer(tib *TransientIndexBuffer, start, count uint32)

	// Submit records a draw into a view with a sort depth and resets the pending state.
	Submit(view uint16, program Handle, depth uint32)

	// Discard drops the pending state without drawing.
	Discard()
}

// Mat4ToVec4 splits matrices into their columns for vec4 uniform arrays.
func Mat4ToVec4(ms ...mgl32.Mat4) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, 0, len(ms)*4)
	for _, m := range ms {
		out = append(out, m.Col(0), m.Col(1), m.Col(2), m.Col(3))
	}
	return out
}
