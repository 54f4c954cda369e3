package mesh

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// TextureStatus is the load state of a texture.
type TextureStatus int

const (
	TextureLoading TextureStatus = iota
	TextureLoaded
	TextureFailed
)

// Texture is a texture referenced by materials. Pixels are provided by an external loader; the
// GPU handle is created on first use once the texture is loaded.
type Texture struct {
	mu *sync.Mutex

	desc   renderer.TextureDesc
	pixels []byte
	status TextureStatus
	handle renderer.Handle
}

// NewTexture creates a texture that is still loading.
func NewTexture(desc renderer.TextureDesc) *Texture {
	return &Texture{mu: &sync.Mutex{}, desc: desc}
}

// NewLoadedTexture creates a texture with its pixels already available.
func NewLoadedTexture(desc renderer.TextureDesc, pixels []byte) *Texture {
	t := NewTexture(desc)
	t.SetLoaded(pixels)
	return t
}

// SetLoaded hands the decoded pixels to the texture.
func (t *Texture) SetLoaded(pixels []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pixels = pixels
	t.status = TextureLoaded
}

// SetFailed marks the texture as failed. Materials keep using their placeholder.
func (t *Texture) SetFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TextureFailed
}

// Status returns the load state.
func (t *Texture) Status() TextureStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Resolve returns the GPU handle of the texture, creating it on first use.
//
// Parameters:
//   - b: the backend
//   - placeholder: the handle to use while the texture is unavailable
//
// Returns:
//   - renderer.Handle: the texture handle or the placeholder
//   - bool: true while the texture is still loading
func (t *Texture) Resolve(b renderer.Backend, placeholder renderer.Handle) (renderer.Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case TextureLoading:
		return placeholder, true
	case TextureFailed:
		return placeholder, false
	}
	if !t.handle.Valid() {
		h, err := b.CreateTexture(t.desc, t.pixels)
		if err != nil {
			logger.Warningf("Texture %q could not be created, using placeholder: %v", t.desc.Label, err)
			t.status = TextureFailed
			return placeholder, false
		}
		t.handle = h
		t.pixels = nil
	}
	return t.handle, false
}

// Destroy releases the GPU texture. The texture can be resolved again only after a new SetLoaded.
func (t *Texture) Destroy(b renderer.Backend) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle.Valid() {
		b.Destroy(t.handle)
		t.handle = renderer.Handle{}
		if t.pixels == nil {
			t.status = TextureLoading
		}
	}
}
