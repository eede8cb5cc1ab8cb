package notify

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// ChartPoint is one OHLC bar the renderer plots.
type ChartPoint struct {
	Open, High, Low, Close float64
}

const (
	chartWidth  = 640
	chartHeight = 320
	chartMargin = 20
)

var (
	colorBackground = color.RGBA{24, 26, 32, 255}
	colorAxis       = color.RGBA{70, 74, 84, 255}
	colorUp         = color.RGBA{220, 70, 70, 255}  // Korean convention: red = up
	colorDown       = color.RGBA{60, 110, 220, 255} // blue = down
)

// RenderCandlestick draws points as a simple OHLC candlestick raster and
// returns the encoded PNG bytes, the chart-image supplement for C14's
// photo-send path (SPEC_FULL.md supplemented feature 1). No third-party
// charting library is used — no pack example ships one, and a fixed-size
// sparkline/candlestick raster needs nothing image/png doesn't offer.
func RenderCandlestick(points []ChartPoint) []byte {
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorBackground}, image.Point{}, draw.Src)

	if len(points) == 0 {
		return encodePNG(img)
	}

	lo, hi := points[0].Low, points[0].High
	for _, p := range points {
		if p.Low < lo {
			lo = p.Low
		}
		if p.High > hi {
			hi = p.High
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := chartWidth - 2*chartMargin
	plotH := chartHeight - 2*chartMargin
	candleW := plotW / len(points)
	if candleW < 1 {
		candleW = 1
	}

	yFor := func(v float64) int {
		ratio := (v - lo) / (hi - lo)
		return chartHeight - chartMargin - int(ratio*float64(plotH))
	}

	drawHLine(img, chartMargin, chartHeight-chartMargin, chartWidth-chartMargin, colorAxis)

	for i, p := range points {
		x0 := chartMargin + i*candleW
		x1 := x0 + candleW - 2
		if x1 <= x0 {
			x1 = x0 + 1
		}
		c := colorUp
		if p.Close < p.Open {
			c = colorDown
		}

		wickX := (x0 + x1) / 2
		drawVLine(img, wickX, yFor(p.High), yFor(p.Low), c)

		bodyTop, bodyBottom := yFor(p.Open), yFor(p.Close)
		if bodyTop > bodyBottom {
			bodyTop, bodyBottom = bodyBottom, bodyTop
		}
		if bodyBottom == bodyTop {
			bodyBottom = bodyTop + 1
		}
		fillRect(img, x0, bodyTop, x1, bodyBottom, c)
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func drawHLine(img *image.RGBA, x0, y, x1 int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, c color.Color) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.Set(x, y, c)
		}
	}
}
