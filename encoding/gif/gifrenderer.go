// Package gif renders the gate activations of scored derivations as an
// animated GIF, one frame per sentence.
package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/neuralccg/syntax"
	"github.com/gorgonia/neuralccg/treelstm"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi        = 72.0
	fontsize   = 12.0
	lineheight = 1.4
	cellW      = 36
)

// columns of the heatmap
var columns = []string{"in", "left", "right", "infl"}

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// globPalette is black to white. Darker cells are more open gates.
var globPalette = func() color.Palette {
	retVal := make(color.Palette, 256)
	for i := range retVal {
		retVal[i] = color.Gray{uint8(i)}
	}
	return retVal
}()

// Encoder draws one heatmap per sentence. Every node is a row holding the
// mean of its input, left forget and right forget gates, and its influence on
// the last node of the sentence.
type Encoder struct {
	font.Drawer
	io.Writer

	out  *gif.GIF
	face font.Face

	maxH, maxW int // frames are clipped to this size
	padH, padW int
	Delay      int // per frame, in 100ths of a second
}

// NewGifEncoder creates an encoder whose frames are at most h by w pixels.
func NewGifEncoder(h, w int) *Encoder {
	face := truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	return &Encoder{
		Drawer: font.Drawer{
			Src:  image.Black,
			Face: face,
		},
		out:   &gif.GIF{LoopCount: -1},
		face:  face,
		maxH:  h,
		maxW:  w,
		padH:  10,
		padW:  10,
		Delay: 100,
	}
}

// Encode adds a frame for a sentence. gates are indexed like nodes.
func (enc *Encoder) Encode(sent syntax.Sentence, nodes []syntax.Parse, gates []treelstm.Gates) error {
	if len(nodes) != len(gates) {
		return errors.Errorf("%d nodes but %d gate snapshots", len(nodes), len(gates))
	}
	labels := make([]string, len(nodes))
	labelW := 0
	for i, n := range nodes {
		labels[i] = fmt.Sprintf("%d %v [%d,%d]", i, n.Category, n.Start, n.End)
		labelW = maxInt(labelW, font.MeasureString(enc.Face, labels[i]).Ceil())
	}
	title := strings.Join(sent.Words, " ")
	header := strings.Join(columns, " ")

	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	w := maxInt(labelW+len(columns)*cellW, font.MeasureString(enc.Face, title).Ceil()) + 2*enc.padW
	h := (len(nodes)+2)*dy + 2*enc.padH
	w = minInt(w, enc.maxW)
	h = minInt(h, enc.maxH)

	im := image.NewPaletted(image.Rect(0, 0, w, h), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	enc.Dst = im

	y := enc.padH + dy
	enc.Dot = fixed.P(enc.padW, y)
	enc.DrawString(title)
	y += dy
	enc.Dot = fixed.P(enc.padW+labelW, y)
	enc.DrawString(header)

	infl := influence(nodes, gates)
	for i, l := range labels {
		top := y + 2
		y += dy
		enc.Dot = fixed.P(enc.padW, y)
		enc.DrawString(l)

		in, left, right := gates[i].Means()
		for j, v := range []float32{in, left, right, infl[i]} {
			x := enc.padW + labelW + j*cellW
			cell := image.Rect(x+2, top+2, x+cellW-2, top+dy-2)
			draw.Draw(im, cell, image.NewUniform(shade(v)), image.Point{}, draw.Src)
		}
	}

	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.Delay)
	return nil
}

// Frames returns the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer.
func (enc *Encoder) Flush() error {
	if enc.Writer == nil {
		return errors.New("gif encoder has no writer")
	}
	if len(enc.out.Image) == 0 {
		return errors.New("nothing to encode")
	}
	var w, h int
	for _, im := range enc.out.Image {
		w = maxInt(w, im.Bounds().Dx())
		h = maxInt(h, im.Bounds().Dy())
	}
	enc.out.Config = image.Config{ColorModel: globPalette, Width: w, Height: h}
	return gif.EncodeAll(enc.Writer, enc.out)
}

// influence is treelstm.Influence over the last node, or zeroes when the
// snapshots are not all of the same width.
func influence(nodes []syntax.Parse, gates []treelstm.Gates) []float32 {
	retVal := make([]float32, len(nodes))
	if len(gates) == 0 {
		return retVal
	}
	width := len(gates[0].Input)
	for _, g := range gates {
		if width == 0 || len(g.Input) != width || len(g.LeftForget) != width || len(g.RightForget) != width {
			return retVal
		}
	}
	for i, v := range treelstm.Influence(len(nodes)-1, nodes, gates) {
		retVal[i] = v
	}
	return retVal
}

// shade maps a gate value in [0, 1] to a gray; 1 is black.
func shade(v float32) color.Gray {
	switch {
	case v != v || v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return color.Gray{uint8(math.Round(float64(1-v) * 255))}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
