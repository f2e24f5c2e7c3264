package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.0

	// Each sweep is stretched vertically so short runs still produce a
	// readable image.
	minPlotHeight = 64

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the waterfall
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for trace visualization
type RenderConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location

	FontFile   string // TTF font used for annotations
	FontSize   float64
	ColorTheme ColorTheme

	Annotations bool
	Borders     BorderConfig
}

// Renderer draws accumulated trace sweeps as a waterfall image.
type Renderer struct {
	config RenderConfig
}

// NewRenderer creates a renderer, filling in defaults for zero values.
func NewRenderer(config RenderConfig) *Renderer {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.Borders.Top == 0 {
		config.Borders.Top = defaultTopBorder
	}
	if config.Borders.Left == 0 {
		config.Borders.Left = defaultLeftBorder
	}
	if config.Borders.Bottom == 0 {
		config.Borders.Bottom = defaultBottomBorder
	}
	if config.Borders.Right == 0 {
		config.Borders.Right = defaultRightBorder
	}

	return &Renderer{config: config}
}

// Render creates an image of the trace data, annotated with frequency
// and time scales unless annotations are disabled.
func (r *Renderer) Render(plot *PlotData, bounds PowerBounds) (*image.RGBA, error) {
	rowScale := 1
	if plot.Height > 0 && plot.Height < minPlotHeight {
		rowScale = minPlotHeight / plot.Height
	}
	plotHeight := plot.Height * rowScale

	fullWidth := plot.Width + r.config.Borders.Left + r.config.Borders.Right
	fullHeight := plotHeight + r.config.Borders.Top + r.config.Borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		r.config.Borders.Left,
		r.config.Borders.Top,
		r.config.Borders.Left+plot.Width,
		r.config.Borders.Top+plotHeight,
	)

	if r.config.Annotations {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, plot, rowScale); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	mapper := NewColorMapper(r.config.ColorTheme, bounds)
	r.renderWaterfall(img, area, plot, mapper, rowScale)

	return img, nil
}

func (r *Renderer) renderWaterfall(img *image.RGBA, area image.Rectangle, plot *PlotData, mapper *ColorMapper, rowScale int) {
	for row, powers := range plot.Rows {
		for x, power := range powers {
			if power == nil {
				continue
			}

			c := mapper.GetColor(power)
			imgX := area.Min.X + x
			for dy := 0; dy < rowScale; dy++ {
				img.Set(imgX, area.Min.Y+row*rowScale+dy, c)
			}
		}
	}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontFile)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, plot *PlotData, rowScale int) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, plot); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawTimeScale(img, plot, rowScale); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, plot); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, plot *PlotData) error {
	freqRange := plot.FrequencyMax - plot.FrequencyMin
	if freqRange <= 0 || plot.Width == 0 {
		return nil
	}

	freqStep := niceFrequencyStep(freqRange, plot.Width)
	startFreq := math.Floor(plot.FrequencyMin/freqStep) * freqStep

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for freq := startFreq; freq <= plot.FrequencyMax; freq += freqStep {
		if freq < plot.FrequencyMin {
			continue
		}

		xRatio := (freq - plot.FrequencyMin) / freqRange
		x := a.config.Borders.Left + int(xRatio*float64(plot.Width))

		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := humanize.SI(freq, "Hz")
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-(width.Round()/2), textY)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, plot *PlotData, rowScale int) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// Skip rows so adjacent labels never overlap.
	rowStep := 1
	if rowScale < fontHeight+2 {
		rowStep = (fontHeight + 2 + rowScale - 1) / rowScale
	}

	for row := 0; row < len(plot.Timestamps); row += rowStep {
		imgY := a.config.Borders.Top + row*rowScale

		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		label := plot.Timestamps[row].In(a.config.Location).Format(a.config.TimeFormat)
		if _, err := a.context.DrawString(label, freetype.Pt(10, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, plot *PlotData) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Freq: %s - %s",
		humanize.SI(plot.FrequencyMin, "Hz"),
		humanize.SI(plot.FrequencyMax, "Hz")))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		plot.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		plot.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))

	if plot.Width > 0 {
		freqPerPixel := (plot.FrequencyMax - plot.FrequencyMin) / float64(plot.Width)
		sb.WriteString("; ")
		sb.WriteString(fmt.Sprintf("1px = %s", humanize.SI(freqPerPixel, "Hz")))
	}

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

func niceFrequencyStep(freqRange float64, width int) float64 {
	steps := []float64{
		1,
		10,
		100,
		1_000,
		10_000,
		100_000,
		1_000_000,
		10_000_000,
		100_000_000,
		1_000_000_000,
	}

	desiredSteps := float64(width) / pixelsPerLabel
	targetStep := freqRange / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			if freqRange/step >= 2 {
				return step
			}
			break
		}
	}

	// Too few points at any standard step, show at least the center.
	return freqRange / 2
}
