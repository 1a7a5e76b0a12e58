package collage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"time"

	"golang.org/x/image/draw"
)

const (
	// DefaultCellSize is the edge length of one cell in pixels
	DefaultCellSize = 150

	// ArtifactFilename is the download name of the collage
	ArtifactFilename = "youtube-collage.png"

	// ArtifactContentType is the media type of the encoded collage
	ArtifactContentType = "image/png"
)

// Artifact is one encoded collage
type Artifact struct {
	PNG       []byte
	CellSize  int
	Cycle     uint64
	CreatedAt time.Time
}

// DataURI returns the artifact as a data: URI for opening in a new tab
func (a *Artifact) DataURI() string {
	return "data:" + ArtifactContentType + ";base64," + base64.StdEncoding.EncodeToString(a.PNG)
}

// Compositor draws a SlotSet into a 3x3 grid
type Compositor struct {
	cellSize int
	scaler   draw.Scaler
	encoder  png.Encoder
}

// NewCompositor creates a compositor with a fixed cell size
func NewCompositor(cellSize int) *Compositor {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Compositor{
		cellSize: cellSize,
		scaler:   draw.BiLinear,
		encoder:  png.Encoder{CompressionLevel: png.DefaultCompression},
	}
}

// CellSize returns the configured cell edge length
func (c *Compositor) CellSize() int {
	return c.cellSize
}

// Render draws every slot's thumbnail scaled to one cell, slot 0 top-left
// through slot 8 bottom-right
func (c *Compositor) Render(set *SlotSet) (*image.RGBA, error) {
	if !set.AllLoaded() {
		return nil, ErrNotReady
	}

	size := GridSize * c.cellSize
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	for i := range set {
		col, row := CellOrigin(i)
		x, y := col*c.cellSize, row*c.cellSize
		cell := image.Rect(x, y, x+c.cellSize, y+c.cellSize)

		src := set[i].Image
		c.scaler.Scale(dst, cell, src, src.Bounds(), draw.Src, nil)
	}

	return dst, nil
}

// Encode writes img as PNG
func (c *Compositor) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

// Composite renders and encodes set as the artifact of cycle
func (c *Compositor) Composite(set *SlotSet, cycle uint64) (*Artifact, error) {
	img, err := c.Render(set)
	if err != nil {
		return nil, err
	}

	data, err := c.Encode(img)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		PNG:       data,
		CellSize:  c.cellSize,
		Cycle:     cycle,
		CreatedAt: time.Now().UTC(),
	}, nil
}
