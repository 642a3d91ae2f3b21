package graph

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/werf/cmondog/pkg/config"
)

// LabelWidth is the width of the Y axis label column on the left of every row.
const LabelWidth = 6

const (
	fullBlock  = "█"
	emptyCell  = " "
	dottedCell = "."
)

// Sub-block glyphs indexed by the tenth of the row band the value reaches.
var fractionGlyphs = [10]string{"▁", "▁", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "▇"}

// Graph renders a numeric series as a textual bar chart of Width columns and
// Height+1 rows. Setters only record data; Realize computes the resampled
// series and the rows, which the accessors then return unchanged.
type Graph struct {
	aggregate Aggregate
	width     int
	height    int
	title     string

	rawData []float64

	values []float64
	lines  []string
}

func New() *Graph {
	return &Graph{
		aggregate: Average,
		width:     config.DefaultGraphWidth,
		height:    config.DefaultGraphHeight,
	}
}

// NewFromOptions builds a graph sized by the graph section of the options.
func NewFromOptions(opts config.GraphOptions) (*Graph, error) {
	aggregate, err := ParseAggregate(opts.Aggregate)
	if err != nil {
		return nil, err
	}

	g := New()
	g.SetAggregate(aggregate)
	g.SetWidth(opts.Width)
	g.SetHeight(opts.Height)

	return g, nil
}

func (g *Graph) SetAggregate(aggregate Aggregate) {
	g.aggregate = aggregate
}

// SetWidth and SetHeight ignore sizes below 1.
func (g *Graph) SetWidth(width int) {
	if width > 0 {
		g.width = width
	}
}

func (g *Graph) SetHeight(height int) {
	if height > 0 {
		g.height = height
	}
}

func (g *Graph) SetTitle(title string) {
	g.title = title
}

func (g *Graph) AppendValue(value float64) {
	g.rawData = append(g.rawData, value)
}

func (g *Graph) AppendValues(values ...float64) {
	g.rawData = append(g.rawData, values...)
}

// NValues is the number of raw samples collected so far.
func (g *Graph) NValues() int {
	return len(g.rawData)
}

// Max is the biggest raw sample, 0 without samples.
func (g *Graph) Max() float64 {
	if len(g.rawData) == 0 {
		return 0
	}
	return lo.Max(g.rawData)
}

// Realize resamples the raw data and draws the rows.
func (g *Graph) Realize() {
	g.values = Resample(g.rawData, g.width, g.aggregate)
	g.lines = g.createLines()
}

// Values is the resampled series of the last Realize.
func (g *Graph) Values() []float64 {
	return append([]float64(nil), g.values...)
}

func (g *Graph) NColumns() int {
	return g.width + LabelWidth
}

func (g *Graph) NRows() int {
	return len(g.lines)
}

// Line returns the row idx, or an empty string when idx is out of range.
func (g *Graph) Line(idx int) string {
	if idx < 0 || idx >= len(g.lines) {
		return ""
	}
	return g.lines[idx]
}

func (g *Graph) Lines() []string {
	return append([]string(nil), g.lines...)
}

// Print realizes the graph and writes one row per line.
func (g *Graph) Print(w io.Writer) error {
	g.Realize()

	for _, line := range g.lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

func (g *Graph) createLines() []string {
	var lines []string

	if g.title != "" {
		indent := LabelWidth
		if extra := g.width - utf8.RuneCountInString(g.title); extra > 0 {
			indent += extra / 2
		}
		lines = append(lines, strings.Repeat(" ", indent)+g.title)
	}

	biggest := 0.0
	if len(g.values) > 0 {
		biggest = lo.Max(g.values)
	}
	labelFormat := yLabelFormat(biggest)
	if biggest <= 0 {
		biggest = 1
	}
	mult := float64(g.height) / biggest

	for y := g.height; y >= 0; y-- {
		baseLine := float64(y) / mult
		topLine := float64(y+1) / mult

		var line strings.Builder
		if y%5 == 0 {
			line.WriteString(yLabel(labelFormat, baseLine))
		} else {
			line.WriteString(strings.Repeat(" ", LabelWidth))
		}

		for x := 0; x < g.width; x++ {
			if x >= len(g.values) {
				line.WriteString(emptyCell)
				continue
			}
			line.WriteString(glyph(g.values[x], y, baseLine, topLine))
		}

		lines = append(lines, line.String())
	}

	return lines
}

func yLabelFormat(biggest float64) string {
	if biggest < 10 {
		return "%5.2f "
	}
	return "%5.1f "
}

// yLabel keeps the label LabelWidth wide, switching to SI prefixes for values
// too large for the fixed point format.
func yLabel(format string, value float64) string {
	label := fmt.Sprintf(format, value)
	if utf8.RuneCountInString(label) <= LabelWidth {
		return label
	}

	for digits := 1; digits >= 0; digits-- {
		label = strings.ReplaceAll(humanize.SIWithDigits(value, digits, ""), " ", "")
		if len(label) < LabelWidth {
			return fmt.Sprintf("%*s ", LabelWidth-1, label)
		}
	}

	return fmt.Sprintf("%.*s ", LabelWidth-1, label)
}

// glyph picks the cell for value in the row y covering [baseLine, topLine).
func glyph(value float64, y int, baseLine, topLine float64) string {
	switch {
	case value >= topLine:
		return fullBlock
	case value > baseLine:
		remainder := (value - baseLine) / (topLine - baseLine) * 10
		fraction := int(remainder)
		if remainder <= 0 || fraction > 9 {
			return emptyCell
		}
		return fractionGlyphs[fraction]
	case y == 0:
		return fractionGlyphs[0]
	case y%5 == 0:
		return dottedCell
	default:
		return emptyCell
	}
}
