package rendergraph

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// PassType categorizes what a pass draws. Values are bit flags so render groups can target
// several pass types at once.
type PassType uint32

const (
	PassZOnly PassType = 1 << iota
	PassOpaque
	PassTransparent
	PassUI
	PassFullscreenQuad
	PassShadowMap
	PassSprites
	PassDebugOverlay
	PassClear
)

var passTypeNames = []string{"zonly", "opaque", "transparent", "ui", "fullscreen", "shadowmap", "sprites", "debug", "clear"}

func (t PassType) String() string {
	var names []string
	for i, name := range passTypeNames {
		if t&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("passtype(%d)", uint32(t))
	}
	return strings.Join(names, "|")
}

// SortMode selects how the draws of a pass are ordered.
type SortMode uint16

const (
	// SortUnsorted lets the backend order draws for state changes.
	SortUnsorted SortMode = iota
	// SortSorted keeps submission order.
	SortSorted
	// SortZGreater draws far to near.
	SortZGreater
	// SortZLess draws near to far by sort depth.
	SortZLess
)

func (s SortMode) String() string {
	switch s {
	case SortSorted:
		return "sorted"
	case SortZGreater:
		return "z-greater"
	case SortZLess:
		return "z-less"
	}
	return "unsorted"
}

// ViewMode maps the sort mode onto the backend view mode.
func (s SortMode) ViewMode() renderer.ViewMode {
	switch s {
	case SortSorted:
		return renderer.ViewModeSequential
	case SortZLess:
		return renderer.ViewModeDepthAscending
	case SortZGreater:
		return renderer.ViewModeDepthDescending
	}
	return renderer.ViewModeDefault
}

// ClearFlags selects what a pass clears. Values match renderer.ClearFlags.
type ClearFlags uint16

const (
	ClearColor   ClearFlags = 1
	ClearDepth   ClearFlags = 2
	ClearStencil ClearFlags = 4
)

// PassFlags are graph side flags that the backend does not see.
type PassFlags uint32

const (
	// PassFlagFlipCulling is set when the projection of the pass was y-flipped, so front faces
	// wind the other way.
	PassFlagFlipCulling PassFlags = 3
	PassFlagCullingMask PassFlags = 3
	// PassFlagRenderToTexture is set when the pass renders into a texture.
	PassFlagRenderToTexture PassFlags = 4
)

// ViewIDUnassigned is the view id of a pass that is not reachable from a primary surface.
const ViewIDUnassigned uint16 = 0xFFFF

// NoIndex is an unset arena index.
const NoIndex = -1

// Target is a texture owned by the graph. Its backend texture is created lazily by PrepareViews
// and recreated when the requested size changes.
type Target struct {
	Label  string
	Format renderer.TextureFormat
	Flags  renderer.TextureFlags
	Width  uint16
	Height uint16

	handle  renderer.Handle
	created [2]uint16
}

// Handle returns the backend texture, invalid until PrepareViews created it.
func (t *Target) Handle() renderer.Handle {
	return t.handle
}

// AutoScale makes a node follow the front buffer size up to MaxSize.
type AutoScale struct {
	MaxSize int
	// Resized is set by PreparePasses on the frame the node changed size.
	Resized bool
}

// Node is a render target plus the passes that draw into it and the nodes it reads from.
type Node struct {
	Name string
	// Color and Depth index Graph.Targets, or NoIndex. A node without targets renders to the
	// front buffer.
	Color int
	Depth int
	// Rect is the size of the node's targets.
	Rect common.Rect16
	// Primary marks a sink: view id assignment starts from primary nodes.
	Primary bool
	// MainView marks the node cameras render into.
	MainView  bool
	AutoScale *AutoScale
	// ShadowLight is the light a shadow map node renders for.
	ShadowLight light.Light

	Dependencies []int
	Passes       []int

	frameBuffer renderer.Handle
}

// HasTexture reports whether the node renders into its own textures.
func (n *Node) HasTexture() bool {
	return n.Color != NoIndex || n.Depth != NoIndex
}

// FrameBuffer returns the backend frame buffer of a textured node.
func (n *Node) FrameBuffer() renderer.Handle {
	return n.frameBuffer
}

// Pass is one view: a target rect, camera-like transforms and clear parameters. Passes are
// rebuilt only with the graph; the links at the bottom are resolved by PreparePasses every frame.
type Pass struct {
	Node   int
	Type   PassType
	Sort   SortMode
	ViewID uint16

	Projection     mgl32.Mat4
	View           mgl32.Mat4
	ViewProjection mgl32.Mat4

	// TargetRect is the size of the target, Viewport the part drawn into. An empty scissor
	// disables scissor testing.
	TargetRect common.Rect16
	Scissor    common.Rect16
	Viewport   common.Rect16

	Clear        ClearFlags
	ClearRGBA    uint32
	ClearDepth   float32
	ClearStencil uint8
	Flags        PassFlags

	Frustum    common.Frustum
	CameraMask uint32
	ShadowMask uint32
	// Cascade is the cascade index of a cascade shadow pass, or NoIndex.
	Cascade int

	AutoSizeToNode       bool
	ClearColorFromBorder bool
	FromCamera           camera.Camera
	UpdateClear          bool
	FromLight            light.Light
	FromCascade          light.Light
	// BlitSource is the target a fullscreen pass blits, used to keep its aspect. NoIndex otherwise.
	BlitSource int
}

func newPass(node int, t PassType, sort SortMode, rect common.Rect16, cameraMask uint32) Pass {
	return Pass{
		Node:           node,
		Type:           t,
		Sort:           sort,
		ViewID:         ViewIDUnassigned,
		Projection:     mgl32.Ident4(),
		View:           mgl32.Ident4(),
		ViewProjection: mgl32.Ident4(),
		TargetRect:     rect,
		Viewport:       rect,
		ClearDepth:     1,
		CameraMask:     cameraMask,
		ShadowMask:     common.AllBits,
		Cascade:        NoIndex,
		BlitSource:     NoIndex,
	}
}

// FlipCulling reports whether draws into this pass must swap their cull winding.
func (p *Pass) FlipCulling() bool {
	return p.Flags&PassFlagCullingMask != 0
}

// RenderToTexture reports whether the pass renders into a texture.
func (p *Pass) RenderToTexture() bool {
	return p.Flags&PassFlagRenderToTexture != 0
}

// ComputeSortDepth converts a world position into a sort key: the normalized device depth,
// biased to stay positive and reinterpreted as an unsigned integer.
//
// Parameters:
//   - pos: the world position with w = 1
//
// Returns:
//   - uint32: the sort key, ascending from near to far
func (p *Pass) ComputeSortDepth(pos mgl32.Vec4) uint32 {
	clip := p.ViewProjection.Mul4x1(pos)
	z := clip.Z()/clip.W() + 1024
	if z < 0 {
		z = 0
	}
	return common.AsUint(z)
}
