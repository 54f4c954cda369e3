package renderer

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// nullFragmentSource is the fragment stage of depth only programs drawn into color targets.
const nullFragmentSource = "@fragment\nfn fs_null() {}\n"

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	layout VertexLayout

	// shadow mirrors dynamic buffers so partial updates can be written 4 byte aligned.
	shadow []byte
}

type wgpuTexture struct {
	desc    TextureDesc
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

func (t *wgpuTexture) release() {
	if t.sampler != nil {
		t.sampler.Release()
	}
	t.view.Release()
	t.texture.Release()
}

type wgpuShader struct {
	shader shader.Shader
	module *wgpu.ShaderModule
}

// pipelineKey identifies one pipeline of a program.
type pipelineKey struct {
	state   uint64
	layout  string
	stride  uint32
	color   wgpu.TextureFormat
	depth   wgpu.TextureFormat
	samples uint32
}

type wgpuProgram struct {
	name string
	vs   *wgpuShader
	fs   *wgpuShader

	bindings   []shader.Binding
	groupDescs map[int]wgpu.BindGroupLayoutDescriptor
	groups     []*wgpu.BindGroupLayout
	layout     *wgpu.PipelineLayout

	draw      shader.UniformBlock
	hasDraw   bool
	drawGroup bind_group_provider.BindGroupProvider
	drawBytes uint64

	pipelines map[pipelineKey]pipeline.Pipeline
}

func (p *wgpuProgram) release() {
	for _, pl := range p.pipelines {
		pl.Release()
	}
	if p.drawGroup != nil {
		p.drawGroup.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	for g, l := range p.groups {
		if _, own := p.groupDescs[g]; own && l != nil {
			l.Release()
		}
	}
}

// wgpuDefaults are bound where a draw leaves a texture stage empty.
type wgpuDefaults struct {
	emptyLayout  *wgpu.BindGroupLayout
	emptyGroup   *wgpu.BindGroup
	white        *wgpuTexture
	depth        *wgpuTexture
	linear       *wgpu.Sampler
	comparison   *wgpu.Sampler
	nullFragment *wgpu.ShaderModule
}

func (d *wgpuDefaults) release() {
	if d.nullFragment != nil {
		d.nullFragment.Release()
	}
	if d.comparison != nil {
		d.comparison.Release()
	}
	if d.linear != nil {
		d.linear.Release()
	}
	if d.depth != nil {
		d.depth.release()
	}
	if d.white != nil {
		d.white.release()
	}
	if d.emptyGroup != nil {
		d.emptyGroup.Release()
	}
	if d.emptyLayout != nil {
		d.emptyLayout.Release()
	}
	*d = wgpuDefaults{}
}

// renderTarget is what the render pass of one view draws into.
type renderTarget struct {
	color       *wgpu.TextureView
	resolve     *wgpu.TextureView
	colorFormat wgpu.TextureFormat
	depth       *wgpu.TextureView
	depthFormat wgpu.TextureFormat
	width       uint32
	height      uint32
	samples     uint32
}

func (b *wgpuBackendImpl) createDefaults() error {
	d := &b.defaults
	var err error

	d.emptyLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: "Empty Bind Group Layout"})
	if err != nil {
		return fmt.Errorf("renderer: create empty layout: %w", err)
	}
	d.emptyGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Label: "Empty Bind Group", Layout: d.emptyLayout})
	if err != nil {
		return fmt.Errorf("renderer: create empty bind group: %w", err)
	}

	d.white, err = b.newTexture(TextureDesc{Label: "Default White", Width: 1, Height: 1, Format: TextureRGBA8}, []byte{255, 255, 255, 255})
	if err != nil {
		return err
	}
	d.depth, err = b.newTexture(TextureDesc{Label: "Default Depth", Width: 1, Height: 1, Format: TextureDepth32F, Flags: TextureRenderTarget | TextureCompare}, nil)
	if err != nil {
		return err
	}
	if err := b.clearDepth(d.depth.view); err != nil {
		return err
	}
	d.linear = d.white.sampler
	d.white.sampler = nil
	d.comparison = d.depth.sampler
	d.depth.sampler = nil

	d.nullFragment, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Null Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: nullFragmentSource},
	})
	if err != nil {
		return fmt.Errorf("renderer: create null fragment: %w", err)
	}
	return nil
}

// clearDepth fills a depth texture with the far plane, so an unbound shadow map never shadows.
func (b *wgpuBackendImpl) clearDepth(view *wgpu.TextureView) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("renderer: clear depth: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Clear Depth",
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	pass.End()
	pass.Release()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: clear depth: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// newTexture creates a GPU texture, its view and its sampler, uploading data when given.
func (b *wgpuBackendImpl) newTexture(desc TextureDesc, data []byte) (*wgpuTexture, error) {
	size := wgpu.Extent3D{
		Width:              uint32(desc.Width),
		Height:             uint32(desc.Height),
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         wgpuTextureUsage(desc.Flags),
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpuTextureFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}

	if data != nil {
		if desc.Format.IsDepth() {
			logger.Warningf("Ignoring initial data of depth texture %q.", desc.Label)
		} else {
			b.queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture:  tex,
					MipLevel: 0,
					Origin:   wgpu.Origin3D{},
					Aspect:   wgpu.TextureAspectAll,
				},
				data,
				&wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  uint32(desc.Width) * 4,
					RowsPerImage: uint32(desc.Height),
				},
				&size,
			)
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("renderer: create view of %q: %w", desc.Label, err)
	}

	address := wgpu.AddressModeRepeat
	if desc.Flags&(TextureClamp|TextureCompare) != 0 {
		address = wgpu.AddressModeClampToEdge
	}
	samplerDesc := &wgpu.SamplerDescriptor{
		Label:         desc.Label + " Sampler",
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if desc.Flags&TextureCompare != 0 {
		samplerDesc.Compare = wgpu.CompareFunctionLessEqual
	}
	samp, err := b.device.CreateSampler(samplerDesc)
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("renderer: create sampler of %q: %w", desc.Label, err)
	}
	return &wgpuTexture{desc: desc, texture: tex, view: view, sampler: samp}, nil
}

// newBuffer creates a GPU buffer of at least size bytes, rounded up to 4.
func (b *wgpuBackendImpl) newBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             align(max(size, 4), 4),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s: %w", label, err)
	}
	return buf, nil
}

// createBuffer creates the GPU side of a buffer handle, dropping the handle on failure.
func (b *wgpuBackendImpl) createBuffer(h Handle, data []byte, size uint64, layout VertexLayout, usage wgpu.BufferUsage, dynamic bool) (Handle, error) {
	buf, err := b.newBuffer(fmt.Sprintf("%s %d", h.Kind, h.ID), size, usage)
	if err != nil {
		b.recordingBackendImpl.Destroy(h)
		return Handle{}, err
	}
	wb := &wgpuBuffer{buffer: buf, layout: layout}
	if dynamic {
		wb.shadow = make([]byte, align(size, 4))
	}
	if len(data) > 0 {
		padded := append(data[:len(data):len(data)], make([]byte, align(uint64(len(data)), 4)-uint64(len(data)))...)
		b.queue.WriteBuffer(buf, 0, padded)
	}

	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.buffers[h] = wb
	return h, nil
}

func (b *wgpuBackendImpl) CreateVertexBuffer(data []byte, layout VertexLayout) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateVertexBuffer(data, layout)
	if err != nil {
		return h, err
	}
	return b.createBuffer(h, data, uint64(len(data)), layout, wgpu.BufferUsageVertex, false)
}

func (b *wgpuBackendImpl) CreateIndexBuffer(indices []uint16) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateIndexBuffer(indices)
	if err != nil {
		return h, err
	}
	data := indexBytes(indices)
	return b.createBuffer(h, data, uint64(len(data)), VertexLayout{}, wgpu.BufferUsageIndex, false)
}

func (b *wgpuBackendImpl) CreateDynamicVertexBuffer(capacity uint32, layout VertexLayout) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateDynamicVertexBuffer(capacity, layout)
	if err != nil {
		return h, err
	}
	return b.createBuffer(h, nil, uint64(capacity)*uint64(layout.Stride), layout, wgpu.BufferUsageVertex, true)
}

func (b *wgpuBackendImpl) CreateDynamicIndexBuffer(capacity uint32) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateDynamicIndexBuffer(capacity)
	if err != nil {
		return h, err
	}
	return b.createBuffer(h, nil, uint64(capacity)*2, VertexLayout{}, wgpu.BufferUsageIndex, true)
}

func (b *wgpuBackendImpl) UpdateDynamicVertexBuffer(h Handle, startVertex uint32, data []byte) error {
	if err := b.recordingBackendImpl.UpdateDynamicVertexBuffer(h, startVertex, data); err != nil {
		return err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	wb := b.buffers[h]
	b.writeShadow(wb, uint64(startVertex)*uint64(wb.layout.Stride), data)
	return nil
}

func (b *wgpuBackendImpl) UpdateDynamicIndexBuffer(h Handle, startIndex uint32, indices []uint16) error {
	if err := b.recordingBackendImpl.UpdateDynamicIndexBuffer(h, startIndex, indices); err != nil {
		return err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.writeShadow(b.buffers[h], uint64(startIndex)*2, indexBytes(indices))
	return nil
}

// writeShadow copies data into the shadow of a dynamic buffer and uploads the 4 byte aligned
// range around it. Caller must hold gpuMu.
func (b *wgpuBackendImpl) writeShadow(wb *wgpuBuffer, offset uint64, data []byte) {
	copy(wb.shadow[offset:], data)
	start := offset &^ 3
	end := min(align(offset+uint64(len(data)), 4), uint64(len(wb.shadow)))
	if end > start {
		b.queue.WriteBuffer(wb.buffer, start, wb.shadow[start:end])
	}
}

func indexBytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, idx := range indices {
		out = binary.LittleEndian.AppendUint16(out, idx)
	}
	return out
}

func (b *wgpuBackendImpl) CreateTexture(desc TextureDesc, data []byte) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateTexture(desc, data)
	if err != nil {
		return h, err
	}
	tex, err := b.newTexture(desc, data)
	if err != nil {
		b.recordingBackendImpl.Destroy(h)
		return Handle{}, err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.textures[h] = tex
	return h, nil
}

func (b *wgpuBackendImpl) CreateFrameBuffer(attachments ...Handle) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateFrameBuffer(attachments...)
	if err != nil {
		return h, err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.frameBuffers[h] = slices.Clone(attachments)
	return h, nil
}

func (b *wgpuBackendImpl) CreateShader(name string, code []byte) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateShader(name, code)
	if err != nil {
		return h, err
	}
	res, _ := b.resource(h)
	module, err := b.device.CreateShaderModule(res.shader.Module())
	if err != nil {
		b.recordingBackendImpl.Destroy(h)
		return Handle{}, fmt.Errorf("renderer: compile shader %q: %w", name, err)
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.shaders[h] = &wgpuShader{shader: res.shader, module: module}
	return h, nil
}

func (b *wgpuBackendImpl) CreateProgram(vs, fs Handle) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateProgram(vs, fs)
	if err != nil {
		return h, err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()

	p, err := b.newProgram(b.shaders[vs], b.shaders[fs])
	if err != nil {
		b.recordingBackendImpl.Destroy(h)
		return Handle{}, err
	}
	b.programs[h] = p
	return h, nil
}

// newProgram creates the bind group and pipeline layouts of a program. The draw uniform block
// gets a dynamic offset and must be alone in its group. Caller must hold gpuMu.
func (b *wgpuBackendImpl) newProgram(vs, fs *wgpuShader) (*wgpuProgram, error) {
	p := &wgpuProgram{
		name:      vs.shader.Key(),
		vs:        vs,
		fs:        fs,
		pipelines: map[pipelineKey]pipeline.Pipeline{},
	}
	p.bindings = vs.shader.Bindings()
	descs := vs.shader.BindGroupLayoutDescriptors()
	p.draw, p.hasDraw = vs.shader.DrawUniforms()
	if fs != nil && fs != vs {
		p.bindings = mergeBindings(p.bindings, fs.shader.Bindings())
		descs = mergeBindGroupLayouts(descs, fs.shader.BindGroupLayoutDescriptors())
		if !p.hasDraw {
			p.draw, p.hasDraw = fs.shader.DrawUniforms()
		}
	}
	p.groupDescs = descs

	for g, desc := range descs {
		if p.hasDraw && g == p.draw.Group {
			if len(desc.Entries) != 1 {
				return nil, fmt.Errorf("renderer: program %q binds more than the draw block in group %d", p.name, g)
			}
			desc.Entries = slices.Clone(desc.Entries)
			desc.Entries[0].Buffer.HasDynamicOffset = true
			desc.Entries[0].Buffer.MinBindingSize = p.draw.Size
			descs[g] = desc
			continue
		}
		for _, e := range desc.Entries {
			if e.Buffer.Type != wgpu.BufferBindingTypeUndefined {
				return nil, fmt.Errorf("renderer: program %q binds a buffer at group %d binding %d outside the draw block", p.name, g, e.Binding)
			}
		}
	}

	maxGroup := -1
	for g := range descs {
		maxGroup = max(maxGroup, g)
	}
	p.groups = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range p.groups {
		desc, ok := descs[g]
		if !ok {
			p.groups[g] = b.defaults.emptyLayout
			continue
		}
		desc.Label = fmt.Sprintf("%s Group %d", p.name, g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			p.release()
			return nil, fmt.Errorf("renderer: create layout of group %d for %q: %w", g, p.name, err)
		}
		p.groups[g] = layout
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.name,
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("renderer: create pipeline layout for %q: %w", p.name, err)
	}
	p.layout = layout

	if p.hasDraw {
		g := p.draw.Group
		p.drawGroup = bind_group_provider.NewBindGroupProvider(p.name+" Draw", bind_group_provider.WithLayout(g, descs[g], p.groups[g]))
	}
	return p, nil
}

// mergeBindings joins the bindings of two shaders, keeping the first of duplicates.
func mergeBindings(a, b []shader.Binding) []shader.Binding {
	out := slices.Clone(a)
	for _, x := range b {
		if !slices.ContainsFunc(out, func(y shader.Binding) bool { return x.Group == y.Group && x.Binding == y.Binding }) {
			out = append(out, x)
		}
	}
	return out
}

// mergeBindGroupLayouts joins the layouts of a vertex and a fragment shader. Bindings present in
// both are visible to both stages.
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := maps.Clone(vertexLayouts)
	for g, fDesc := range fragmentLayouts {
		vDesc, ok := merged[g]
		if !ok {
			merged[g] = fDesc
			continue
		}
		entries := slices.Clone(vDesc.Entries)
		for _, e := range fDesc.Entries {
			i := slices.IndexFunc(entries, func(x wgpu.BindGroupLayoutEntry) bool { return x.Binding == e.Binding })
			if i >= 0 {
				entries[i].Visibility |= e.Visibility
				continue
			}
			entries = append(entries, e)
		}
		slices.SortFunc(entries, func(x, y wgpu.BindGroupLayoutEntry) int { return int(x.Binding) - int(y.Binding) })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return merged
}

func (b *wgpuBackendImpl) CreateUniform(name string, kind UniformType, num int) (Handle, error) {
	h, err := b.recordingBackendImpl.CreateUniform(name, kind, num)
	if err != nil {
		return h, err
	}
	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	b.uniformNames[h] = name
	return h, nil
}

func (b *wgpuBackendImpl) Destroy(h Handle) {
	b.recordingBackendImpl.Destroy(h)

	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	switch h.Kind {
	case HandleVertexBuffer, HandleIndexBuffer, HandleDynamicVertexBuffer, HandleDynamicIndexBuffer:
		if wb, ok := b.buffers[h]; ok {
			wb.buffer.Release()
			delete(b.buffers, h)
		}
	case HandleTexture:
		if t, ok := b.textures[h]; ok {
			b.dropTextureGroups()
			t.release()
			delete(b.textures, h)
		}
	case HandleFrameBuffer:
		delete(b.frameBuffers, h)
	case HandleShader:
		if s, ok := b.shaders[h]; ok {
			s.module.Release()
			delete(b.shaders, h)
		}
	case HandleProgram:
		if p, ok := b.programs[h]; ok {
			b.dropTextureGroups()
			p.release()
			delete(b.programs, h)
		}
	case HandleUniform:
		delete(b.uniformNames, h)
	}
}

// dropTextureGroups releases every cached texture bind group. Caller must hold gpuMu.
func (b *wgpuBackendImpl) dropTextureGroups() {
	for key, g := range b.textureGroups {
		g.Release()
		delete(b.textureGroups, key)
	}
}

func (b *wgpuBackendImpl) Frame() (uint32, error) {
	n, err := b.recordingBackendImpl.Frame()
	if err != nil {
		return n, err
	}
	rec := b.LastFrame()

	b.gpuMu.Lock()
	defer b.gpuMu.Unlock()
	if err := b.execute(&rec); err != nil {
		return n, fmt.Errorf("renderer: frame %d: %w", n, err)
	}
	return n, nil
}

// execute uploads the frame's transient geometry and draw uniforms, then encodes one render pass
// per view in view id order and presents. Caller must hold gpuMu.
func (b *wgpuBackendImpl) execute(rec *FrameRecord) error {
	transients := layoutTransients(rec.Draws)
	if err := b.uploadTransients(&transients); err != nil {
		return err
	}
	offsets, err := b.stageUniforms(rec)
	if err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer surfaceTexture.Release()
	surfaceView, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer surfaceView.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	orphaned := 0
	di := 0
	for vi := range rec.Views {
		v := &rec.Views[vi]
		for di < len(rec.Draws) && rec.Draws[di].View < v.ID {
			orphaned++
			di++
		}
		start := di
		for di < len(rec.Draws) && rec.Draws[di].View == v.ID {
			di++
		}
		if start == di && !v.Touched {
			continue
		}
		if err := b.executeView(encoder, v, rec.Draws[start:di], offsets[start:di], &transients, surfaceView); err != nil {
			logger.Warningf("View %d %q skipped: %v", v.ID, v.Name, err)
		}
	}
	orphaned += len(rec.Draws) - di
	if orphaned > 0 {
		logger.Warningf("%d draws submitted to views that were never set up.", orphaned)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command encoder: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	b.surface.Present()
	return nil
}

// uploadTransients writes the frame's transient geometry, growing the buffers as needed.
func (b *wgpuBackendImpl) uploadTransients(l *transientLayout) error {
	grow := func(buf **wgpu.Buffer, capacity *uint64, size uint64, label string, usage wgpu.BufferUsage) error {
		if size <= *capacity && *buf != nil {
			return nil
		}
		newCap := max(size, *capacity*2, 1<<16)
		created, err := b.newBuffer(label, newCap, usage)
		if err != nil {
			return err
		}
		if *buf != nil {
			(*buf).Release()
		}
		*buf = created
		*capacity = align(newCap, 4)
		return nil
	}

	if len(l.vertices) > 0 {
		if err := grow(&b.transientVertices, &b.transientVertexBytes, uint64(len(l.vertices)), "Transient Vertices", wgpu.BufferUsageVertex); err != nil {
			return err
		}
		b.queue.WriteBuffer(b.transientVertices, 0, l.vertices)
	}
	if len(l.indices) > 0 {
		if err := grow(&b.transientIndices, &b.transientIndexBytes, uint64(len(l.indices)), "Transient Indices", wgpu.BufferUsageIndex); err != nil {
			return err
		}
		b.queue.WriteBuffer(b.transientIndices, 0, l.indices)
	}
	return nil
}

// stageUniforms packs the draw uniform block of every draw into its program's uniform buffer.
//
// Returns:
//   - []uint32: the dynamic offset of every draw, zero for programs without a draw block
//   - error: an error if a uniform buffer could not be grown
func (b *wgpuBackendImpl) stageUniforms(rec *FrameRecord) ([]uint32, error) {
	views := make(map[uint16]*ViewRecord, len(rec.Views))
	for i := range rec.Views {
		views[rec.Views[i].ID] = &rec.Views[i]
	}
	name := func(h Handle) string { return b.uniformNames[h] }

	offsets := make([]uint32, len(rec.Draws))
	staging := map[*wgpuProgram][]byte{}
	for i := range rec.Draws {
		d := &rec.Draws[i]
		p := b.programs[d.Program]
		if p == nil || !p.hasDraw {
			continue
		}
		slot := int(align(p.draw.Size, uniformAlignment))
		data := staging[p]
		off := len(data)
		data = append(data, make([]byte, slot)...)
		packDrawUniforms(data[off:off+int(p.draw.Size)], p.draw, d, views[d.View], name)
		staging[p] = data
		offsets[i] = uint32(off)
	}

	writes := make([]bind_group_provider.BufferWrite, 0, len(staging))
	for p, data := range staging {
		if err := b.ensureDrawBuffer(p, uint64(len(data))); err != nil {
			return nil, err
		}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: p.drawGroup,
			Binding:  p.draw.Binding,
			Data:     data,
		})
	}
	bind_group_provider.WriteBuffers(b.queue, writes)
	return offsets, nil
}

// ensureDrawBuffer grows the uniform buffer of a program and rebuilds its draw bind group.
func (b *wgpuBackendImpl) ensureDrawBuffer(p *wgpuProgram, size uint64) error {
	if size <= p.drawBytes && p.drawGroup.BindGroup() != nil {
		return nil
	}
	newCap := max(size, p.drawBytes*2, align(p.draw.Size, uniformAlignment)*64)
	buf, err := b.newBuffer(p.name+" Draw Uniforms", newCap, wgpu.BufferUsageUniform)
	if err != nil {
		return err
	}
	p.drawGroup.SetBuffer(p.draw.Binding, buf, p.draw.Size)
	if err := p.drawGroup.Build(b.device); err != nil {
		return err
	}
	p.drawBytes = newCap
	return nil
}

// renderTargetOf resolves the attachments of a view: the back buffer when the view has no frame
// buffer, otherwise the frame buffer's textures.
func (b *wgpuBackendImpl) renderTargetOf(v *ViewRecord, surfaceView *wgpu.TextureView) (renderTarget, error) {
	if !v.FrameBuffer.Valid() {
		t := renderTarget{
			color:       surfaceView,
			colorFormat: b.surfaceFormat,
			depth:       b.depthTextureView,
			depthFormat: wgpu.TextureFormatDepth24Plus,
			width:       b.surfaceWidth,
			height:      b.surfaceHeight,
			samples:     uint32(b.sampleCount),
		}
		if b.msaaTextureView != nil {
			t.color = b.msaaTextureView
			t.resolve = surfaceView
		}
		return t, nil
	}

	attachments, ok := b.frameBuffers[v.FrameBuffer]
	if !ok {
		return renderTarget{}, fmt.Errorf("frame buffer %d: %w", v.FrameBuffer.ID, ErrInvalidHandle)
	}
	t := renderTarget{
		colorFormat: wgpu.TextureFormatUndefined,
		depthFormat: wgpu.TextureFormatUndefined,
		samples:     1,
	}
	for _, a := range attachments {
		tex, ok := b.textures[a]
		if !ok {
			return renderTarget{}, fmt.Errorf("frame buffer attachment %d: %w", a.ID, ErrInvalidHandle)
		}
		if tex.desc.Format.IsDepth() {
			t.depth = tex.view
			t.depthFormat = wgpuTextureFormat(tex.desc.Format)
		} else {
			t.color = tex.view
			t.colorFormat = wgpuTextureFormat(tex.desc.Format)
		}
		t.width = uint32(tex.desc.Width)
		t.height = uint32(tex.desc.Height)
	}
	return t, nil
}

// executeView encodes the render pass of one view.
func (b *wgpuBackendImpl) executeView(encoder *wgpu.CommandEncoder, v *ViewRecord, draws []DrawRecord, offsets []uint32, transients *transientLayout, surfaceView *wgpu.TextureView) error {
	target, err := b.renderTargetOf(v, surfaceView)
	if err != nil {
		return err
	}

	desc := &wgpu.RenderPassDescriptor{Label: v.Name}
	if target.color != nil {
		attachment := wgpu.RenderPassColorAttachment{
			View:          target.color,
			ResolveTarget: target.resolve,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpStore,
		}
		if v.ClearFlags&ClearColor != 0 {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = unpackColor(v.ClearRGBA)
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{attachment}
	}
	if target.depth != nil {
		attachment := &wgpu.RenderPassDepthStencilAttachment{
			View:            target.depth,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		}
		if v.ClearFlags&ClearDepth != 0 {
			attachment.DepthLoadOp = wgpu.LoadOpClear
			attachment.DepthClearValue = v.ClearDepth
		}
		desc.DepthStencilAttachment = attachment
	}

	pass := encoder.BeginRenderPass(desc)
	defer pass.Release()

	x, y, w, h := clampRect(v.Rect, target.width, target.height)
	if w == 0 || h == 0 {
		pass.End()
		return nil
	}
	pass.SetViewport(float32(x), float32(y), float32(w), float32(h), 0, 1)
	if !v.Scissor.IsEmpty() {
		sx, sy, sw, sh := clampRect(v.Scissor, target.width, target.height)
		pass.SetScissorRect(sx, sy, sw, sh)
	} else {
		pass.SetScissorRect(x, y, w, h)
	}

	var firstErr error
	failed := 0
	for i := range draws {
		if err := b.encodeDraw(pass, &draws[i], offsets[i], &target, transients); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed++
		}
	}
	pass.End()

	if failed > 0 {
		logger.Warningf("View %d %q dropped %d of %d draws: %v", v.ID, v.Name, failed, len(draws), firstErr)
	}
	return nil
}

// clampRect clamps a view rectangle to the target. An empty rectangle covers the whole target.
func clampRect(r common.Rect16, width, height uint32) (x, y, w, h uint32) {
	if r.IsEmpty() {
		return 0, 0, width, height
	}
	x = min(uint32(r.X), width)
	y = min(uint32(r.Y), height)
	w = min(uint32(r.W), width-x)
	h = min(uint32(r.H), height-y)
	return x, y, w, h
}

// encodeDraw sets the pipeline, bind groups and buffers of one draw and draws it.
func (b *wgpuBackendImpl) encodeDraw(pass *wgpu.RenderPassEncoder, d *DrawRecord, uniformOffset uint32, target *renderTarget, transients *transientLayout) error {
	p, ok := b.programs[d.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", d.Program.ID, ErrInvalidHandle)
	}

	var (
		layout       VertexLayout
		vertexBuffer *wgpu.Buffer
		vertexOffset uint64
	)
	switch {
	case d.TransientVertices != nil:
		layout = d.TransientVertices.Layout
		vertexBuffer = b.transientVertices
		vertexOffset = transients.vertexOffsets[d.TransientVertices]
	case d.VertexBuffer.Valid():
		wb, ok := b.buffers[d.VertexBuffer]
		if !ok {
			return fmt.Errorf("vertex buffer %d: %w", d.VertexBuffer.ID, ErrInvalidHandle)
		}
		layout = wb.layout
		vertexBuffer = wb.buffer
	default:
		return fmt.Errorf("draw of %q has no vertex stream", p.name)
	}

	pl, err := b.pipelineFor(p, d.State, layout, target)
	if err != nil {
		return err
	}
	pass.SetPipeline(pl.RenderPipeline())

	for g := range p.groups {
		switch {
		case p.hasDraw && g == p.draw.Group:
			pass.SetBindGroup(uint32(g), p.drawGroup.BindGroup(), []uint32{uniformOffset})
		case p.groups[g] == b.defaults.emptyLayout:
			pass.SetBindGroup(uint32(g), b.defaults.emptyGroup, nil)
		default:
			group, err := b.textureGroup(p, g, d)
			if err != nil {
				return err
			}
			pass.SetBindGroup(uint32(g), group.BindGroup(), nil)
		}
	}

	pass.SetVertexBuffer(0, vertexBuffer, vertexOffset, wgpu.WholeSize)
	switch {
	case d.TransientIndices != nil:
		pass.SetIndexBuffer(b.transientIndices, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(d.IndexCount, 1, transients.firstIndex(d), int32(d.VertexStart), 0)
	case d.IndexBuffer.Valid():
		wb, ok := b.buffers[d.IndexBuffer]
		if !ok {
			return fmt.Errorf("index buffer %d: %w", d.IndexBuffer.ID, ErrInvalidHandle)
		}
		pass.SetIndexBuffer(wb.buffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(d.IndexCount, 1, d.StartIndex, int32(d.VertexStart), 0)
	default:
		pass.Draw(d.VertexCount, 1, d.VertexStart, 0)
	}
	return nil
}

// pipelineFor returns the pipeline of a program for a state, a vertex layout and a target,
// creating it on first use. Depth only programs drawn into a color target get the null fragment
// stage with color writes off.
func (b *wgpuBackendImpl) pipelineFor(p *wgpuProgram, state uint64, layout VertexLayout, target *renderTarget) (pipeline.Pipeline, error) {
	key := pipelineKey{
		state:   state,
		layout:  layout.Name,
		stride:  layout.Stride,
		color:   target.colorFormat,
		depth:   target.depthFormat,
		samples: target.samples,
	}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}

	buffers, err := wgpuVertexLayout(layout, p.vs.shader.VertexInputs())
	if err != nil {
		return nil, err
	}
	options := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexStage(p.vs.module, p.vs.shader.VertexEntryPoint(), buffers),
		pipeline.WithDepthFormat(target.depthFormat),
		pipeline.WithSampleCount(target.samples),
	}
	options = append(options, stateOptions(state)...)
	if target.color != nil {
		options = append(options, pipeline.WithColorTargets(target.colorFormat))
		if p.fs != nil {
			options = append(options, pipeline.WithFragmentStage(p.fs.module, p.fs.shader.FragmentEntryPoint()))
		} else {
			options = append(options,
				pipeline.WithFragmentStage(b.defaults.nullFragment, "fs_null"),
				pipeline.WithWriteMask(wgpu.ColorWriteMaskNone),
				pipeline.WithBlendState(nil),
			)
		}
	}

	pl := pipeline.NewPipeline(fmt.Sprintf("%s/%#x/%s", p.name, state, layout.Name), options...)
	if err := pl.Create(b.device, p.layout); err != nil {
		return nil, err
	}
	p.pipelines[key] = pl
	logger.Debugf("Created pipeline %s.", pl.Key())
	return pl, nil
}

// textureGroup returns the bind group of a texture group for the textures of a draw. Stages the
// draw leaves empty get the default white texture, or the far plane depth texture for depth
// bindings.
func (b *wgpuBackendImpl) textureGroup(p *wgpuProgram, g int, d *DrawRecord) (bind_group_provider.BindGroupProvider, error) {
	views := map[int]*wgpuTexture{}
	samplers := map[int]*wgpu.Sampler{}

	var key strings.Builder
	fmt.Fprintf(&key, "%s/%d", p.name, g)

	for _, binding := range p.bindings {
		if binding.Group != g {
			continue
		}
		switch binding.Kind {
		case shader.BindingTexture, shader.BindingDepthTexture:
			tex := b.drawTexture(d, binding)
			if tex == nil || tex.desc.Format.IsDepth() != (binding.Kind == shader.BindingDepthTexture) {
				tex = b.defaults.white
				if binding.Kind == shader.BindingDepthTexture {
					tex = b.defaults.depth
				}
			}
			views[binding.Binding] = tex
			fmt.Fprintf(&key, "/%d:%p", binding.Binding, tex)
		}
	}
	for _, binding := range p.bindings {
		if binding.Group != g {
			continue
		}
		tex := views[binding.Binding-1]
		switch binding.Kind {
		case shader.BindingSampler:
			samplers[binding.Binding] = b.defaults.linear
			if tex != nil && tex.sampler != nil && tex.desc.Flags&TextureCompare == 0 {
				samplers[binding.Binding] = tex.sampler
			}
		case shader.BindingComparisonSampler:
			samplers[binding.Binding] = b.defaults.comparison
			if tex != nil && tex.sampler != nil && tex.desc.Flags&TextureCompare != 0 {
				samplers[binding.Binding] = tex.sampler
			}
		}
	}

	if group, ok := b.textureGroups[key.String()]; ok {
		return group, nil
	}

	group := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s Group %d", p.name, g), bind_group_provider.WithLayout(g, p.groupDescs[g], p.groups[g]))
	for binding, tex := range views {
		group.SetTextureView(binding, tex.view)
	}
	for binding, s := range samplers {
		group.SetSampler(binding, s)
	}
	if err := group.Build(b.device); err != nil {
		group.Release()
		return nil, err
	}
	b.textureGroups[key.String()] = group
	return group, nil
}

// drawTexture returns the live texture a draw binds at the stage of a binding, or nil.
func (b *wgpuBackendImpl) drawTexture(d *DrawRecord, binding shader.Binding) *wgpuTexture {
	stage, ok := shader.TextureStage(binding.Role)
	if !ok {
		return nil
	}
	var h Handle
	for _, t := range d.Textures {
		if t.Stage == stage {
			h = t.Texture
		}
	}
	if !h.Valid() {
		return nil
	}
	return b.textures[h]
}
