package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("renderer")

// TextureBinding is one texture bound to a sampler stage.
type TextureBinding struct {
	Stage   uint8
	Sampler Handle
	Texture Handle
}

// DrawRecord is one submitted draw as seen by the recording backend.
type DrawRecord struct {
	View         uint16
	Program      Handle
	Depth        uint32
	State        uint64
	RGBA         uint32
	Transform    mgl32.Mat4
	Uniforms     map[Handle][]mgl32.Vec4
	Textures     []TextureBinding
	VertexBuffer Handle
	IndexBuffer  Handle
	Streams      uint8
	Transient    bool
	StartIndex   uint32
	IndexCount   uint32
	VertexStart  uint32
	VertexCount  uint32
	Encoder      int
	Seq          int

	// TransientVertices and TransientIndices are the transient allocations of stream 0 and the
	// index stream, nil for static or dynamic buffers.
	TransientVertices *TransientVertexBuffer
	TransientIndices  *TransientIndexBuffer
}

// ViewRecord is the setup of one view at frame end.
type ViewRecord struct {
	ID           uint16
	Name         string
	Rect         common.Rect16
	Scissor      common.Rect16
	ClearFlags   ClearFlags
	ClearRGBA    uint32
	ClearDepth   float32
	ClearStencil uint8
	View         mgl32.Mat4
	Projection   mgl32.Mat4
	FrameBuffer  Handle
	Mode         ViewMode
	Touched      bool
}

// FrameRecord is everything one frame submitted, in backend execution order.
type FrameRecord struct {
	Number         uint32
	Views          []ViewRecord
	Draws          []DrawRecord
	TransientBytes int
	TransientIndex int
}

// DrawsInView returns the draws of one view in execution order.
func (f *FrameRecord) DrawsInView(view uint16) []DrawRecord {
	var out []DrawRecord
	for _, d := range f.Draws {
		if d.View == view {
			out = append(out, d)
		}
	}
	return out
}

// RecordingBackend is a deterministic in-memory Backend. It validates handles, enforces the encoder
// and transient limits and keeps the last frame for inspection. Headless runs and tests use it.
type RecordingBackend interface {
	Backend

	// LastFrame returns the record of the last completed frame.
	LastFrame() FrameRecord

	// LiveCount returns the number of live resources of a kind.
	LiveCount(kind HandleKind) int

	// IsLive reports whether a handle refers to a live resource.
	IsLive(h Handle) bool

	// ResourceName returns the name a shader or uniform was created with.
	ResourceName(h Handle) string
}

type recordedResource struct {
	name     string
	layout   VertexLayout
	capacity uint32
	desc     TextureDesc
	shader   shader.Shader
}

type recordingBackendImpl struct {
	mu *sync.Mutex

	caps   Caps
	width  int
	height int

	nextID    map[HandleKind]uint16
	resources map[Handle]recordedResource

	views   map[uint16]*ViewRecord
	slots   []bool
	pending []DrawRecord

	transientBytes int
	transientIndex int

	frame uint32
	last  FrameRecord
}

var _ RecordingBackend = &recordingBackendImpl{}

// NewRecordingBackend creates a recording backend. Defaults: GL conventions off (top-left origin,
// 0..1 depth), 8 encoders, 1920x1080, 4 MB of transient vertices and 1M transient indices.
//
// Parameters:
//   - options: functional options to configure the backend
//
// Returns:
//   - RecordingBackend: the new backend
func NewRecordingBackend(options ...RecordingBackendOption) RecordingBackend {
	b := &recordingBackendImpl{
		mu: &sync.Mutex{},
		caps: Caps{
			MaxEncoders:          8,
			TransientVertexBytes: 4 << 20,
			TransientIndexCount:  1 << 20,
		},
		width:     1920,
		height:    1080,
		nextID:    map[HandleKind]uint16{},
		resources: map[Handle]recordedResource{},
		views:     map[uint16]*ViewRecord{},
	}
	for _, option := range options {
		option(b)
	}
	b.slots = make([]bool, b.caps.MaxEncoders)
	return b
}

func (b *recordingBackendImpl) Caps() Caps {
	return b.caps
}

func (b *recordingBackendImpl) BackBufferSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *recordingBackendImpl) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: invalid back buffer size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	b.height = height
	return nil
}

// alloc creates a handle of the given kind. Caller must hold the mutex.
func (b *recordingBackendImpl) alloc(kind HandleKind, res recordedResource) (Handle, error) {
	id := b.nextID[kind] + 1
	if id == 0 {
		return Handle{}, fmt.Errorf("renderer: out of %s handles", kind)
	}
	b.nextID[kind] = id
	h := Handle{Kind: kind, ID: id}
	b.resources[h] = res
	return h, nil
}

// live reports whether h is a live handle of the given kind. Caller must hold the mutex.
func (b *recordingBackendImpl) live(h Handle, kind HandleKind) bool {
	if h.Kind != kind || !h.Valid() {
		return false
	}
	_, ok := b.resources[h]
	return ok
}

// resource returns a live resource by handle.
func (b *recordingBackendImpl) resource(h Handle) (recordedResource, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.resources[h]
	return res, ok
}

func (b *recordingBackendImpl) CreateVertexBuffer(data []byte, layout VertexLayout) (Handle, error) {
	if layout.Stride == 0 || len(data) == 0 || len(data)%int(layout.Stride) != 0 {
		return Handle{}, fmt.Errorf("renderer: vertex data of %d bytes does not match stride %d", len(data), layout.Stride)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleVertexBuffer, recordedResource{layout: layout, capacity: uint32(len(data)) / layout.Stride})
}

func (b *recordingBackendImpl) CreateIndexBuffer(indices []uint16) (Handle, error) {
	if len(indices) == 0 {
		return Handle{}, fmt.Errorf("renderer: empty index buffer")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleIndexBuffer, recordedResource{capacity: uint32(len(indices))})
}

func (b *recordingBackendImpl) CreateDynamicVertexBuffer(capacity uint32, layout VertexLayout) (Handle, error) {
	if layout.Stride == 0 || capacity == 0 {
		return Handle{}, fmt.Errorf("renderer: invalid dynamic vertex buffer of %d vertices", capacity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleDynamicVertexBuffer, recordedResource{layout: layout, capacity: capacity})
}

func (b *recordingBackendImpl) UpdateDynamicVertexBuffer(h Handle, startVertex uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live(h, HandleDynamicVertexBuffer) {
		return fmt.Errorf("renderer: update dynamic vertex buffer %d: %w", h.ID, ErrInvalidHandle)
	}
	res := b.resources[h]
	if startVertex+uint32(len(data))/res.layout.Stride > res.capacity {
		return fmt.Errorf("renderer: update of dynamic vertex buffer %d exceeds capacity %d", h.ID, res.capacity)
	}
	return nil
}

func (b *recordingBackendImpl) CreateDynamicIndexBuffer(capacity uint32) (Handle, error) {
	if capacity == 0 {
		return Handle{}, fmt.Errorf("renderer: invalid dynamic index buffer of %d indices", capacity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleDynamicIndexBuffer, recordedResource{capacity: capacity})
}

func (b *recordingBackendImpl) UpdateDynamicIndexBuffer(h Handle, startIndex uint32, indices []uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live(h, HandleDynamicIndexBuffer) {
		return fmt.Errorf("renderer: update dynamic index buffer %d: %w", h.ID, ErrInvalidHandle)
	}
	if res := b.resources[h]; startIndex+uint32(len(indices)) > res.capacity {
		return fmt.Errorf("renderer: update of dynamic index buffer %d exceeds capacity %d", h.ID, res.capacity)
	}
	return nil
}

func (b *recordingBackendImpl) CreateTexture(desc TextureDesc, data []byte) (Handle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return Handle{}, fmt.Errorf("renderer: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleTexture, recordedResource{name: desc.Label, desc: desc})
}

func (b *recordingBackendImpl) CreateFrameBuffer(attachments ...Handle) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(attachments) == 0 {
		return Handle{}, fmt.Errorf("renderer: frame buffer without attachments")
	}
	for _, a := range attachments {
		if !b.live(a, HandleTexture) {
			return Handle{}, fmt.Errorf("renderer: frame buffer attachment %d: %w", a.ID, ErrInvalidHandle)
		}
	}
	return b.alloc(HandleFrameBuffer, recordedResource{})
}

func (b *recordingBackendImpl) CreateShader(name string, code []byte) (Handle, error) {
	if len(code) == 0 {
		return Handle{}, fmt.Errorf("renderer: missing shader binary for %q", name)
	}
	sh, err := shader.NewShader(name, code)
	if err != nil {
		return Handle{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleShader, recordedResource{name: name, shader: sh})
}

func (b *recordingBackendImpl) CreateProgram(vs, fs Handle) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live(vs, HandleShader) {
		return Handle{}, fmt.Errorf("renderer: program vertex shader %d: %w", vs.ID, ErrInvalidHandle)
	}
	if fs.Valid() && !b.live(fs, HandleShader) {
		return Handle{}, fmt.Errorf("renderer: program fragment shader %d: %w", fs.ID, ErrInvalidHandle)
	}
	if fs.Valid() && b.resources[fs].shader.FragmentEntryPoint() == "" {
		return Handle{}, fmt.Errorf("renderer: program fragment shader %q has no fragment entry point", b.resources[fs].name)
	}
	return b.alloc(HandleProgram, recordedResource{name: b.resources[vs].name, shader: b.resources[vs].shader})
}

func (b *recordingBackendImpl) CreateUniform(name string, kind UniformType, num int) (Handle, error) {
	if num <= 0 {
		return Handle{}, fmt.Errorf("renderer: uniform %q with %d elements", name, num)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alloc(HandleUniform, recordedResource{name: name, capacity: uint32(num)})
}

func (b *recordingBackendImpl) Destroy(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.resources[h]; !ok {
		logger.Warningf("Destroying unknown %s handle %d.", h.Kind, h.ID)
		return
	}
	delete(b.resources, h)
}

func (b *recordingBackendImpl) AllocTransientBuffers(layout VertexLayout, numVertices, numIndices uint32) (*TransientVertexBuffer, *TransientIndexBuffer, error) {
	if layout.Stride == 0 {
		return nil, nil, fmt.Errorf("renderer: transient layout without stride")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	vbytes := int(numVertices * layout.Stride)
	if b.transientBytes+vbytes > b.caps.TransientVertexBytes || b.transientIndex+int(numIndices) > b.caps.TransientIndexCount {
		return nil, nil, fmt.Errorf("%w: %d vertices, %d indices requested", ErrOutOfTransientMemory, numVertices, numIndices)
	}

	tvb := &TransientVertexBuffer{
		Layout:      layout,
		Data:        make([]byte, vbytes),
		StartVertex: uint32(b.transientBytes) / layout.Stride,
		Count:       numVertices,
	}
	tib := &TransientIndexBuffer{
		Data:       make([]uint16, numIndices),
		StartIndex: uint32(b.transientIndex),
		Count:      numIndices,
	}
	b.transientBytes += vbytes
	b.transientIndex += int(numIndices)
	return tvb, tib, nil
}

// view returns the record of a view, creating it. Caller must hold the mutex.
func (b *recordingBackendImpl) view(id uint16) *ViewRecord {
	v, ok := b.views[id]
	if !ok {
		v = &ViewRecord{ID: id, View: mgl32.Ident4(), Projection: mgl32.Ident4()}
		b.views[id] = v
	}
	return v
}

func (b *recordingBackendImpl) SetViewName(view uint16, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view(view).Name = name
}

func (b *recordingBackendImpl) SetViewRect(view uint16, rect common.Rect16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view(view).Rect = rect
}

func (b *recordingBackendImpl) SetViewScissor(view uint16, rect common.Rect16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view(view).Scissor = rect
}

func (b *recordingBackendImpl) SetViewClear(view uint16, flags ClearFlags, rgba uint32, depth float32, stencil uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.view(view)
	v.ClearFlags = flags
	v.ClearRGBA = rgba
	v.ClearDepth = depth
	v.ClearStencil = stencil
}

func (b *recordingBackendImpl) SetViewTransform(view uint16, viewMatrix, projection mgl32.Mat4) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.view(view)
	v.View = viewMatrix
	v.Projection = projection
}

func (b *recordingBackendImpl) SetViewFrameBuffer(view uint16, fb Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fb.Valid() && !b.live(fb, HandleFrameBuffer) {
		logger.Errorf("View %d set to unknown frame buffer %d.", view, fb.ID)
		return
	}
	b.view(view).FrameBuffer = fb
}

func (b *recordingBackendImpl) SetViewMode(view uint16, mode ViewMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view(view).Mode = mode
}

func (b *recordingBackendImpl) Touch(view uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view(view).Touched = true
}

func (b *recordingBackendImpl) BeginEncoder() (Encoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for slot, open := range b.slots {
		if !open {
			b.slots[slot] = true
			e := &recordingEncoder{backend: b, slot: slot}
			e.reset()
			return e, nil
		}
	}
	return nil, ErrEncodersExhausted
}

func (b *recordingBackendImpl) EndEncoder(e Encoder) {
	re, ok := e.(*recordingEncoder)
	if !ok || re.backend != b {
		panic("renderer: ending an encoder that belongs to another backend")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.slots[re.slot] {
		panic(fmt.Sprintf("renderer: encoder slot %d ended twice", re.slot))
	}
	b.pending = append(b.pending, re.draws...)
	re.draws = nil
	b.slots[re.slot] = false
}

func (b *recordingBackendImpl) Frame() (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for slot, open := range b.slots {
		if open {
			return b.frame, fmt.Errorf("slot %d: %w", slot, ErrEncoderOpen)
		}
	}

	draws := b.pending
	sort.SliceStable(draws, func(i, j int) bool {
		return b.drawLess(&draws[i], &draws[j])
	})

	views := make([]ViewRecord, 0, len(b.views))
	for _, v := range b.views {
		views = append(views, *v)
		v.Touched = false
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	b.last = FrameRecord{
		Number:         b.frame,
		Views:          views,
		Draws:          draws,
		TransientBytes: b.transientBytes,
		TransientIndex: b.transientIndex,
	}
	b.pending = nil
	b.transientBytes = 0
	b.transientIndex = 0

	n := b.frame
	b.frame++
	return n, nil
}

// drawLess orders draws by view id, then by the view's mode. Caller must hold the mutex.
func (b *recordingBackendImpl) drawLess(x, y *DrawRecord) bool {
	if x.View != y.View {
		return x.View < y.View
	}
	mode := ViewModeDefault
	if v, ok := b.views[x.View]; ok {
		mode = v.Mode
	}
	switch mode {
	case ViewModeDepthAscending:
		if x.Depth != y.Depth {
			return x.Depth < y.Depth
		}
	case ViewModeDepthDescending:
		if x.Depth != y.Depth {
			return x.Depth > y.Depth
		}
	case ViewModeDefault:
		if x.Program != y.Program {
			return x.Program.ID < y.Program.ID
		}
		if x.State != y.State {
			return x.State < y.State
		}
	}
	if x.Encoder != y.Encoder {
		return x.Encoder < y.Encoder
	}
	return x.Seq < y.Seq
}

func (b *recordingBackendImpl) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources = map[Handle]recordedResource{}
	b.views = map[uint16]*ViewRecord{}
	b.pending = nil
}

func (b *recordingBackendImpl) LastFrame() FrameRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *recordingBackendImpl) LiveCount(kind HandleKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for h := range b.resources {
		if h.Kind == kind {
			n++
		}
	}
	return n
}

func (b *recordingBackendImpl) IsLive(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live(h, h.Kind)
}

func (b *recordingBackendImpl) ResourceName(h Handle) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resources[h].name
}

// recordingEncoder is owned by one worker between BeginEncoder and EndEncoder, so it needs no lock.
type recordingEncoder struct {
	backend *recordingBackendImpl
	slot    int
	seq     int
	pending DrawRecord
	draws   []DrawRecord
}

var _ Encoder = &recordingEncoder{}

func (e *recordingEncoder) reset() {
	e.pending = DrawRecord{Transform: mgl32.Ident4(), State: StateDefault}
}

func (e *recordingEncoder) SetState(state uint64, rgba uint32) {
	e.pending.State = state
	e.pending.RGBA = rgba
}

func (e *recordingEncoder) SetTransform(m mgl32.Mat4) {
	e.pending.Transform = m
}

func (e *recordingEncoder) SetUniform(h Handle, values ...mgl32.Vec4) {
	if e.pending.Uniforms == nil {
		e.pending.Uniforms = map[Handle][]mgl32.Vec4{}
	}
	e.pending.Uniforms[h] = append([]mgl32.Vec4(nil), values...)
}

func (e *recordingEncoder) SetUniformMat4(h Handle, values ...mgl32.Mat4) {
	e.SetUniform(h, Mat4ToVec4(values...)...)
}

func (e *recordingEncoder) SetTexture(stage uint8, sampler Handle, texture Handle) {
	e.pending.Textures = append(e.pending.Textures, TextureBinding{Stage: stage, Sampler: sampler, Texture: texture})
}

func (e *recordingEncoder) SetVertexBuffer(stream uint8, h Handle, start, count uint32) {
	e.pending.Streams = max(e.pending.Streams, stream+1)
	if stream > 0 {
		return
	}
	e.pending.VertexBuffer = h
	e.pending.VertexStart = start
	e.pending.VertexCount = count
	e.pending.TransientVertices = nil
}

func (e *recordingEncoder) SetIndexBuffer(h Handle, start, count uint32) {
	e.pending.IndexBuffer = h
	e.pending.StartIndex = start
	e.pending.IndexCount = count
	e.pending.TransientIndices = nil
}

func (e *recordingEncoder) SetTransientVertexBuffer(stream uint8, tvb *TransientVertexBuffer, start, count uint32) {
	e.pending.Streams = max(e.pending.Streams, stream+1)
	e.pending.Transient = true
	if stream > 0 {
		return
	}
	e.pending.VertexStart = start
	e.pending.VertexCount = count
	e.pending.TransientVertices = tvb
}

func (e *recordingEncoder) SetTransientIndexBuffer(tib *TransientIndexBuffer, start, count uint32) {
	e.pending.Transient = true
	e.pending.StartIndex = tib.StartIndex + start
	e.pending.IndexCount = count
	e.pending.TransientIndices = tib
}

func (e *recordingEncoder) Submit(view uint16, program Handle, depth uint32) {
	if !program.Valid() || program.Kind != HandleProgram {
		logger.Errorf("Submit to view %d with invalid program %d.", view, program.ID)
		e.reset()
		return
	}
	d := e.pending
	d.View = view
	d.Program = program
	d.Depth = depth
	d.Encoder = e.slot
	d.Seq = e.seq
	e.seq++
	e.draws = append(e.draws, d)
	e.reset()
}

func (e *recordingEncoder) Discard() {
	e.reset()
}
