package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/storage"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "embedding_tsne.png", FileName(reduce.MethodTSNE))
	assert.Equal(t, "embedding_pca.png", FileName(reduce.MethodPCA))
}

func TestEncodePNG(t *testing.T) {
	points := []reduce.Point{{X: -1, Y: 2}, {X: 0, Y: 0}, {X: 3, Y: -1}}
	data, err := EncodePNG(points, Options{Width: 200, Height: 100, Title: "pca"})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func countColor(img image.Image, c color.Color) int {
	want := color.RGBAModel.Convert(c)
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) == want {
				n++
			}
		}
	}
	return n
}

func TestScatter_Defaults(t *testing.T) {
	img, err := Scatter(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Equal(t, DefaultHeight, img.Bounds().Dy())
	assert.Zero(t, countColor(img, pointColor), "empty plot has point pixels")
}

func TestScatter_DrawsPoints(t *testing.T) {
	one, err := Scatter([]reduce.Point{{X: 5, Y: 5}}, Options{Width: 300, Height: 200})
	require.NoError(t, err)
	assert.Positive(t, countColor(one, pointColor))

	spread := []reduce.Point{{X: -10, Y: -10}, {X: 10, Y: 10}, {X: -10, Y: 10}}
	many, err := Scatter(spread, Options{Width: 300, Height: 200})
	require.NoError(t, err)
	assert.Greater(t, countColor(many, pointColor), countColor(one, pointColor))
}

func TestScatter_RejectsNonFinite(t *testing.T) {
	_, err := Scatter([]reduce.Point{{X: math.NaN(), Y: 0}}, Options{})
	assert.Error(t, err)
}

func TestPNGSink_Publish(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	sink := NewPNGSink(store, &PNGSinkConfig{Width: 120, Height: 120})
	ctx := context.Background()

	url, err := sink.Publish(ctx, reduce.MethodTSNE, []reduce.Point{{X: 0, Y: 1}, {X: 1, Y: 0}})
	require.NoError(t, err)
	assert.Contains(t, url, "embedding_tsne.png")

	rc, err := store.Download(ctx, "embedding_tsne.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}
