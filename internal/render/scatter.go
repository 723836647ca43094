package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/timmy/dialogbot/internal/reduce"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	// 72 dpi makes one vg.Point one pixel, so Width and Height are pixels.
	dpi = 72

	goTypeface font.Typeface = "Go"
)

var pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

var (
	goFontOnce sync.Once
	goFontOK   bool
)

// registerGoFont adds the Go regular face to the plot font cache.
// Plots keep the default Liberation faces when it cannot be parsed.
func registerGoFont() bool {
	goFontOnce.Do(func() {
		face, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return
		}
		font.DefaultCache.Add(font.Collection{{Font: font.Font{Typeface: goTypeface}, Face: face}})
		goFontOK = true
	})
	return goFontOK
}

// Options controls scatterplot rendering.
type Options struct {
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// NewPlot builds the scatterplot of points with labelled component axes.
func NewPlot(points []reduce.Point, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "component 1"
	p.Y.Label.Text = "component 2"
	p.Add(plotter.NewGrid())

	if registerGoFont() {
		for _, st := range []*font.Font{
			&p.Title.TextStyle.Font,
			&p.X.Label.TextStyle.Font, &p.Y.Label.TextStyle.Font,
			&p.X.Tick.Label.Font, &p.Y.Tick.Label.Font,
		} {
			st.Typeface, st.Variant = goTypeface, ""
		}
	}

	if len(points) == 0 {
		return p, nil
	}
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X, xys[i].Y = pt.X, pt.Y
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Color = pointColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)
	return p, nil
}

func drawCanvas(points []reduce.Point, opts Options) (*vgimg.Canvas, error) {
	opts = opts.withDefaults()
	p, err := NewPlot(points, opts.Title)
	if err != nil {
		return nil, err
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width), vg.Length(opts.Height)),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(color.White),
	)
	p.Draw(draw.New(c))
	return c, nil
}

// Scatter renders points into an image of opts.Width by opts.Height pixels.
func Scatter(points []reduce.Point, opts Options) (image.Image, error) {
	c, err := drawCanvas(points, opts)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// EncodePNG renders points and encodes the image as PNG.
func EncodePNG(points []reduce.Point, opts Options) ([]byte, error) {
	c, err := drawCanvas(points, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
