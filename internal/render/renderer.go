// Package render turns an element snapshot and a time into a pixel buffer.
// Rendering is deterministic and has no side effects: identical inputs yield
// byte-identical RGBA buffers, so frames may be rendered concurrently across
// export jobs.
package render

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"motioncanvas/internal/asset"
	"motioncanvas/internal/element"
)

// ErrBufferAllocation is returned when the output pixel buffer cannot be
// allocated. It is the only error Render produces: anything else degrades to
// a visible placeholder inside the frame.
var ErrBufferAllocation = errors.New("render: output buffer allocation failed")

// maxPixels caps the output buffer at ~256 MiB of RGBA.
const maxPixels = 1 << 26

// FrameExtractor supplies a time-indexed frame of a video asset. Provided by
// a collaborator; without one, video elements render as a placeholder fill.
type FrameExtractor func(ref string, at float64) (image.Image, error)

// background is the fixed frame fill; placeholderFill marks degraded
// elements (undecodable assets, video without an extractor).
var (
	background      = element.Color{R: 1, G: 1, B: 1, A: 1}
	placeholderFill = element.Color{R: 0.78, G: 0.78, B: 0.78, A: 1}
)

const placeholderLabelSize = 13

// Renderer rasterizes element snapshots. It is stateless apart from an
// internally synchronized font face cache and is safe for concurrent use.
type Renderer struct {
	assets       *asset.Store
	extractFrame FrameExtractor

	fontMu sync.Mutex
	font   *opentype.Font
	faces  map[float64]font.Face
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFrameExtractor installs the collaborator hook for video elements.
func WithFrameExtractor(fn FrameExtractor) Option {
	return func(r *Renderer) { r.extractFrame = fn }
}

// New creates a renderer reading image assets from the given store.
func New(assets *asset.Store, opts ...Option) *Renderer {
	r := &Renderer{
		assets: assets,
		faces:  make(map[float64]font.Face),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render rasterizes the snapshot at time `at` into a fresh RGBA buffer of
// outW x outH pixels. Elements paint in list order over a fixed background;
// the canvas maps into the output through a uniform scale and centering
// offset.
func (r *Renderer) Render(elements []element.Element, canvas element.Size, outW, outH int, at float64) (*image.RGBA, error) {
	if outW <= 0 || outH <= 0 || int64(outW)*int64(outH) > maxPixels {
		return nil, ErrBufferAllocation
	}
	buf := image.NewRGBA(image.Rect(0, 0, outW, outH))
	if buf == nil || len(buf.Pix) == 0 {
		return nil, ErrBufferAllocation
	}
	dc := gg.NewContextForRGBA(buf)
	dc.SetRGBA(background.R, background.G, background.B, background.A)
	dc.Clear()

	scale := 1.0
	offX, offY := 0.0, 0.0
	if canvas.Width > 0 && canvas.Height > 0 {
		scale = min(float64(outW)/canvas.Width, float64(outH)/canvas.Height)
		offX = (float64(outW) - canvas.Width*scale) / 2
		offY = (float64(outH) - canvas.Height*scale) / 2
	}

	for _, el := range elements {
		r.drawElement(dc, el, scale, offX, offY, at)
	}
	return buf, nil
}

func (r *Renderer) drawElement(dc *gg.Context, el element.Element, scale, offX, offY, at float64) {
	alpha := element.Clamp01(el.Opacity)
	if alpha == 0 {
		return
	}
	center := el.Center()
	cx := offX + center.X*scale
	cy := offY + center.Y*scale
	w := el.Size.Width * scale
	h := el.Size.Height * scale

	dc.Push()
	defer dc.Pop()
	if el.Rotation != 0 {
		dc.RotateAbout(gg.Radians(el.Rotation), cx, cy)
	}

	switch el.Kind {
	case element.KindRectangle:
		r.setFill(dc, el.Fill, alpha)
		dc.DrawRectangle(cx-w/2, cy-h/2, w, h)
		dc.Fill()
	case element.KindEllipse:
		r.setFill(dc, el.Fill, alpha)
		dc.DrawEllipse(cx, cy, w/2, h/2)
		dc.Fill()
	case element.KindText:
		r.drawText(dc, el, cx, cy, w, scale, alpha)
	case element.KindImage:
		img, err := r.assets.Image(el.AssetRef)
		if err != nil {
			r.drawPlaceholder(dc, cx, cy, w, h, alpha, "missing asset")
			return
		}
		r.drawImage(dc, img, cx, cy, w, h, alpha)
	case element.KindVideo:
		if r.extractFrame == nil {
			r.drawPlaceholder(dc, cx, cy, w, h, alpha, "")
			return
		}
		frame, err := r.extractFrame(el.AssetRef, at)
		if err != nil {
			r.drawPlaceholder(dc, cx, cy, w, h, alpha, "frame unavailable")
			return
		}
		r.drawImage(dc, frame, cx, cy, w, h, alpha)
	case element.KindPath:
		r.drawPath(dc, el, scale, offX, offY, alpha)
	}
}

func (r *Renderer) setFill(dc *gg.Context, c element.Color, alpha float64) {
	dc.SetRGBA(c.R, c.G, c.B, c.A*alpha)
}

func (r *Renderer) drawText(dc *gg.Context, el element.Element, cx, cy, w, scale, alpha float64) {
	if el.Text == "" {
		return
	}
	size := el.FontSize * scale
	if size <= 0 {
		size = placeholderLabelSize
	}
	face, err := r.face(size)
	if err != nil {
		r.drawPlaceholder(dc, cx, cy, w, size*1.5, alpha, "font unavailable")
		return
	}
	dc.SetFontFace(face)
	r.setFill(dc, el.Fill, alpha)
	dc.DrawStringWrapped(el.Text, cx, cy, 0.5, 0.5, w, 1.2, textAlign(el.TextAlign))
}

func textAlign(a element.Alignment) gg.Align {
	switch a {
	case element.AlignCenter:
		return gg.AlignCenter
	case element.AlignTrailing:
		return gg.AlignRight
	default:
		return gg.AlignLeft
	}
}

func (r *Renderer) drawImage(dc *gg.Context, img image.Image, cx, cy, w, h, alpha float64) {
	bounds := img.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw <= 0 || sh <= 0 || w <= 0 || h <= 0 {
		r.drawPlaceholder(dc, cx, cy, w, h, alpha, "empty image")
		return
	}
	if alpha < 1 {
		img = fadeImage(img, alpha)
	}
	dc.Push()
	dc.Translate(cx-w/2, cy-h/2)
	dc.Scale(w/float64(sw), h/float64(sh))
	dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
	dc.Pop()
}

// drawPlaceholder paints the fixed degradation fill, optionally with a short
// label, instead of failing the frame.
func (r *Renderer) drawPlaceholder(dc *gg.Context, cx, cy, w, h, alpha float64, label string) {
	r.setFill(dc, placeholderFill, alpha)
	dc.DrawRectangle(cx-w/2, cy-h/2, w, h)
	dc.Fill()
	if label == "" {
		return
	}
	face, err := r.face(placeholderLabelSize)
	if err != nil {
		return
	}
	dc.SetFontFace(face)
	dc.SetRGBA(0.25, 0.25, 0.25, alpha)
	dc.DrawStringWrapped(label, cx, cy, 0.5, 0.5, w, 1.2, gg.AlignCenter)
}

func (r *Renderer) drawPath(dc *gg.Context, el element.Element, scale, offX, offY, alpha float64) {
	if len(el.Points) < 2 {
		return
	}
	r.setFill(dc, el.Fill, alpha)
	first := el.Points[0]
	dc.MoveTo(offX+first.X*scale, offY+first.Y*scale)
	for _, p := range el.Points[1:] {
		dc.LineTo(offX+p.X*scale, offY+p.Y*scale)
	}
	if len(el.Points) == 2 {
		dc.SetLineWidth(2 * scale)
		dc.Stroke()
		return
	}
	dc.ClosePath()
	dc.Fill()
}

// face returns a cached font face of the embedded default typeface at the
// given pixel size. Text layout depends only on inputs, never on installed
// system fonts.
func (r *Renderer) face(size float64) (font.Face, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	if r.font == nil {
		parsed, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, err
		}
		r.font = parsed
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = face
	return face, nil
}

// fadeImage returns a copy of img with every alpha value scaled by alpha,
// implementing per-element opacity for raster content.
func fadeImage(img image.Image, alpha float64) image.Image {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			var c color.NRGBA
			if a > 0 {
				c.R = uint8((r * 0xffff / a) >> 8)
				c.G = uint8((g * 0xffff / a) >> 8)
				c.B = uint8((b * 0xffff / a) >> 8)
				c.A = uint8(float64(a>>8) * alpha)
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}
