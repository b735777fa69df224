package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOfSize(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareLeavesNonImagesAlone(t *testing.T) {
	data := []byte("quarterly report")
	out, err := Prepare("report.txt", data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	data := pngOfSize(t, 64, 32)
	out, err := Prepare("small.png", data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPrepareDownscalesLargeImages(t *testing.T) {
	data := pngOfSize(t, 4000, 1000)
	out, err := Prepare("wide.PNG", data)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestPrepareRejectsCorruptImage(t *testing.T) {
	_, err := Prepare("broken.jpg", []byte("not an image"))
	assert.Error(t, err)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.5 KB", HumanSize(1536))
	assert.Equal(t, "2.0 MB", HumanSize(2*1024*1024))
}
