package renderer

// Render state is a 64 bit word: color/depth write masks, depth test, blend function and culling.
// The bit layout follows the classic bgfx layout so packed states sort and compare cheaply.
const (
	StateWriteR   uint64 = 0x0000000000000001
	StateWriteG   uint64 = 0x0000000000000002
	StateWriteB   uint64 = 0x0000000000000004
	StateWriteA   uint64 = 0x0000000000000008
	StateWriteZ   uint64 = 0x0000004000000000
	StateWriteRgb        = StateWriteR | StateWriteG | StateWriteB
	StateWriteMask       = StateWriteRgb | StateWriteA | StateWriteZ

	StateDepthTestLess     uint64 = 0x0000000000000010
	StateDepthTestLequal   uint64 = 0x0000000000000020
	StateDepthTestEqual    uint64 = 0x0000000000000030
	StateDepthTestGequal   uint64 = 0x0000000000000040
	StateDepthTestGreater  uint64 = 0x0000000000000050
	StateDepthTestNotequal uint64 = 0x0000000000000060
	StateDepthTestNever    uint64 = 0x0000000000000070
	StateDepthTestAlways   uint64 = 0x0000000000000080
	StateDepthTestMask     uint64 = 0x00000000000000f0

	StateBlendZero        uint64 = 0x0000000000001000
	StateBlendOne         uint64 = 0x0000000000002000
	StateBlendSrcColor    uint64 = 0x0000000000003000
	StateBlendInvSrcColor uint64 = 0x0000000000004000
	StateBlendSrcAlpha    uint64 = 0x0000000000005000
	StateBlendInvSrcAlpha uint64 = 0x0000000000006000
	StateBlendDstAlpha    uint64 = 0x0000000000007000
	StateBlendInvDstAlpha uint64 = 0x0000000000008000
	StateBlendDstColor    uint64 = 0x0000000000009000
	StateBlendInvDstColor uint64 = 0x000000000000a000
	StateBlendMask        uint64 = 0x000000000ffff000

	StateCullCw   uint64 = 0x0000001000000000
	StateCullCcw  uint64 = 0x0000002000000000
	StateCullMask uint64 = 0x0000003000000000

	StateMsaa uint64 = 0x0100000000000000
)

// StateDefault writes color and depth with a less-than depth test and counter clockwise culling.
const StateDefault = StateWriteRgb | StateWriteA | StateWriteZ | StateDepthTestLess | StateCullCw | StateMsaa

// BlendFunc packs the same source and destination factor for color and alpha.
//
// Parameters:
//   - src: one of the StateBlend factors for the source
//   - dst: one of the StateBlend factors for the destination
//
// Returns:
//   - uint64: the blend bits to OR into a state
func BlendFunc(src, dst uint64) uint64 {
	return BlendFuncSeparate(src, dst, src, dst)
}

// BlendFuncSeparate packs distinct color and alpha blend factors.
func BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA uint64) uint64 {
	return (srcRGB | dstRGB<<4) | (srcA|dstA<<4)<<8
}

// BlendFactors unpacks the color factors of a blend function. Both are zero when blending is off.
func BlendFactors(state uint64) (src, dst uint64) {
	b := state & StateBlendMask
	if b == 0 {
		return 0, 0
	}
	return b & 0xf000, (b >> 4) & 0xf000
}

// FlipCulling swaps clockwise and counter clockwise culling. States that cull both or neither are returned unchanged.
func FlipCulling(state uint64) uint64 {
	switch state & StateCullMask {
	case StateCullCw:
		return state&^StateCullMask | StateCullCcw
	case StateCullCcw:
		return state&^StateCullMask | StateCullCw
	}
	return state
}

// DepthOnlyState is used by depth prepasses and shadow casters. Shadow passes apply it with the
// inverse of the pass culling flip so back faces end up in the map.
const DepthOnlyState = StateWriteZ | StateDepthTestLess | StateCullCcw

// LineState is the state of gizmo lines: alpha blended on top of opaque geometry without writing depth.
var LineState = StateWriteRgb | StateDepthTestLess | BlendFunc(StateBlendOne, StateBlendInvSrcAlpha)

// BlitState copies color only.
const BlitState = StateWriteRgb | StateWriteA
