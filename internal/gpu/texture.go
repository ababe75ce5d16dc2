package gpu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// Texture-related errors.
var (
	// ErrTextureReleased is returned when operating on a released texture.
	ErrTextureReleased = errors.New("gpu: texture has been released")

	// ErrSizeMismatch is returned when pixel data doesn't match the texture size.
	ErrSizeMismatch = errors.New("gpu: pixel data does not match texture size")

	// ErrNoPixels is returned when pixel data is nil or empty.
	ErrNoPixels = errors.New("gpu: no pixel data")

	// ErrInvalidDimensions is returned for non-positive texture dimensions.
	ErrInvalidDimensions = errors.New("gpu: invalid texture dimensions")
)

// Device is the GPU device handle supplied by the host application.
// tilemap receives the device from the host; it never creates one.
type Device = gpucontext.DeviceProvider

// Creator is the host-side texture factory used to allocate quad layer
// textures. Hosts built on gogpu obtain one from their renderer.
type Creator = gpucontext.TextureCreator

// textureUpdater re-uploads pixel data into an existing host texture.
type textureUpdater interface {
	UpdateData(data []byte) error
}

// textureDestroyer releases a host texture. Matches gogpu.Texture.Destroy.
type textureDestroyer interface {
	Destroy()
}

// Config describes a quad layer texture.
type Config struct {
	// Width and Height are the texture dimensions in pixels.
	Width  int
	Height int

	// Format is the pixel format. Quad layers are RGBA8.
	Format gputypes.TextureFormat

	// Label is an optional debug label.
	Label string
}

// DefaultUsage is the usage for quad layer textures: uploaded from the CPU
// tier and sampled by the compositing shader.
const DefaultUsage = gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// Texture is one GPU texture backing one layer of a resident quad.
//
// The texture owns its GPU resources outright; Close releases them exactly
// once. Write operations (Upload, Close) must stay on the thread owning the
// GPU context; read accessors are safe for concurrent use.
type Texture struct {
	// Host texture created through the gpucontext factory,
	// nil in logical mode.
	host any

	// Raw wgpu identifiers, populated only when the host texture
	// exposes them; zero in logical mode.
	textureID core.TextureID
	viewID    core.TextureViewID

	width     int
	height    int
	format    gputypes.TextureFormat
	sizeBytes uint64
	label     string

	released atomic.Bool
	uploads  atomic.Uint64
}

// Create allocates a texture and uploads the initial pixel data.
//
// With a nil creator the texture is logical: bookkeeping only, no device
// memory. pixels must be Width*Height*4 bytes of RGBA data.
func Create(creator Creator, cfg Config, pixels []byte) (*Texture, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if len(pixels) == 0 {
		return nil, ErrNoPixels
	}
	if len(pixels) != cfg.Width*cfg.Height*4 {
		return nil, fmt.Errorf("%w: want %d bytes, got %d",
			ErrSizeMismatch, cfg.Width*cfg.Height*4, len(pixels))
	}

	format := cfg.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}

	t := &Texture{
		width:     cfg.Width,
		height:    cfg.Height,
		format:    format,
		sizeBytes: uint64(cfg.Width) * uint64(cfg.Height) * 4,
		label:     cfg.Label,
	}

	if creator != nil {
		host, err := creator.NewTextureFromRGBA(cfg.Width, cfg.Height, pixels)
		if err != nil {
			return nil, fmt.Errorf("gpu: create texture %q: %w", cfg.Label, err)
		}
		t.host = host
	}
	t.uploads.Store(1)

	slogger().Debug("gpu: texture created",
		"label", cfg.Label, "size", t.sizeBytes, "logical", t.host == nil)
	return t, nil
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns the texture pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// SizeBytes returns the texture size in bytes.
func (t *Texture) SizeBytes() uint64 { return t.sizeBytes }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Uploads returns how many times pixel data has been written to the
// texture, including the initial upload.
func (t *Texture) Uploads() uint64 { return t.uploads.Load() }

// IsReleased reports whether the texture has been released.
func (t *Texture) IsReleased() bool { return t.released.Load() }

// Host returns the underlying host texture for the compositing renderer,
// or nil in logical mode.
func (t *Texture) Host() any { return t.host }

// TextureID returns the raw wgpu texture identifier; zero in logical mode.
func (t *Texture) TextureID() core.TextureID { return t.textureID }

// ViewID returns the raw wgpu texture view identifier; zero in logical mode.
func (t *Texture) ViewID() core.TextureViewID { return t.viewID }

// Upload replaces the texture contents with new pixel data of the same
// dimensions.
func (t *Texture) Upload(pixels []byte) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	if len(pixels) == 0 {
		return ErrNoPixels
	}
	if len(pixels) != t.width*t.height*4 {
		return fmt.Errorf("%w: want %d bytes, got %d",
			ErrSizeMismatch, t.width*t.height*4, len(pixels))
	}

	if updater, ok := t.host.(textureUpdater); ok {
		if err := updater.UpdateData(pixels); err != nil {
			return fmt.Errorf("gpu: upload %q: %w", t.label, err)
		}
	}
	t.uploads.Add(1)
	return nil
}

// Close releases the texture resources. Close is idempotent.
func (t *Texture) Close() {
	if t.released.Swap(true) {
		return
	}
	if destroyer, ok := t.host.(textureDestroyer); ok {
		destroyer.Destroy()
	}
	t.host = nil
	t.textureID = core.TextureID{}
	t.viewID = core.TextureViewID{}
	slogger().Debug("gpu: texture released", "label", t.label)
}

// String returns a string representation of the texture.
func (t *Texture) String() string {
	status := "active"
	if t.released.Load() {
		status = "released"
	}
	return fmt.Sprintf("Texture[%s %dx%d %d bytes %s]",
		t.label, t.width, t.height, t.sizeBytes, status)
}
