package rendergraph

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Mode selects how the main view reaches the front buffer.
type Mode int

const (
	// ModeFixed renders into a buffer of the configured resolution and blits it to the front
	// buffer, preserving aspect. Border color fills the bars.
	ModeFixed Mode = 1
	// ModeScaled renders into a buffer that follows the front buffer aspect and is capped at
	// RenderBufferMaxSize in both dimensions.
	ModeScaled Mode = 2
	// ModeDirect renders straight into the front buffer. Only correct with a gamma display.
	ModeDirect Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeScaled:
		return "scaled"
	case ModeDirect:
		return "direct"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name as printed by String back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return ModeFixed, nil
	case "scaled":
		return ModeScaled, nil
	case "direct":
		return ModeDirect, nil
	}
	return 0, fmt.Errorf("rendergraph: unknown mode %q (expected fixed, scaled or direct)", s)
}

// Config is the render graph configuration. It is diffed once per frame and any change
// rebuilds the whole graph.
type Config struct {
	Mode Mode
	// RenderBufferWidth and RenderBufferHeight are ignored in ModeDirect.
	RenderBufferWidth  int
	RenderBufferHeight int
	// RenderBufferMaxSize is only used by ModeScaled.
	RenderBufferMaxSize int
}

// DefaultConfig returns a fixed 1920x1080 configuration.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeFixed,
		RenderBufferWidth:   1920,
		RenderBufferHeight:  1080,
		RenderBufferMaxSize: 2048,
	}
}

// Equal compares two configurations. RenderBufferMaxSize is not part of the comparison.
func (c Config) Equal(o Config) bool {
	return c.Mode == o.Mode && c.RenderBufferWidth == o.RenderBufferWidth && c.RenderBufferHeight == o.RenderBufferHeight
}

// DisplayInfo describes the front buffer. It is read every frame.
type DisplayInfo struct {
	// Width and Height are the window size in points.
	Width  int
	Height int
	// FramebufferWidth and FramebufferHeight are the front buffer size in pixels.
	// Zero means the same as the size in points.
	FramebufferWidth  int
	FramebufferHeight int
	ColorSpace        common.ColorSpace
	// BorderColor is the linear color of the bars around a fixed render buffer.
	BorderColor mgl32.Vec4
}

// Framebuffer returns the front buffer size in pixels.
func (d DisplayInfo) Framebuffer() (int, int) {
	return common.Coalesce(d.FramebufferWidth, d.Width), common.Coalesce(d.FramebufferHeight, d.Height)
}

// displayColor packs a linear color for the display, converting to sRGB on gamma displays.
func (d DisplayInfo) displayColor(c mgl32.Vec4) uint32 {
	if d.ColorSpace == common.ColorSpaceGamma {
		c = common.LinearToSRGB(c)
	}
	return common.PackRGBA(c)
}
