package window

import "github.com/Carmen-Shannon/oxy-render/common"

// WindowBuilderOption is a functional option for NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSizeLimits bounds the window size in screen points. Zero keeps a default limit.
//
// Parameters:
//   - minWidth, minHeight: the smallest size the window can be resized to
//   - maxWidth, maxHeight: the largest size the window can be resized to
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = common.Coalesce(minWidth, w.minWidth)
		w.minHeight = common.Coalesce(minHeight, w.minHeight)
		w.maxWidth = common.Coalesce(maxWidth, w.maxWidth)
		w.maxHeight = common.Coalesce(maxHeight, w.maxHeight)
	}
}

// WithWidth sets the initial window width, clamped to the size limits.
//
// Parameters:
//   - width: initial width in screen points
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the initial window height, clamped to the size limits.
//
// Parameters:
//   - height: initial height in screen points
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}

// WithResizable sets whether the user can resize the window. A fixed size window still reports
// framebuffer changes when it moves between displays of different scale.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}
