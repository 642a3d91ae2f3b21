package indicators

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/werf/cmondog/pkg/utils"
)

type FormatOptions struct {
	// SyntaxHighlight enables colors; without it every element is plain text.
	SyntaxHighlight bool
}

// StringEqualConditionIndicator is ready once Value reaches TargetValue and
// failed once Value is one of FailedValues.
type StringEqualConditionIndicator struct {
	Value        string
	TargetValue  string
	FailedValues []string
}

func (indicator *StringEqualConditionIndicator) IsReady() bool {
	return indicator.Value == indicator.TargetValue
}

func (indicator *StringEqualConditionIndicator) IsFailed() bool {
	return lo.Contains(indicator.FailedValues, indicator.Value)
}

func (indicator *StringEqualConditionIndicator) FormatElem(opts FormatOptions) string {
	if !opts.SyntaxHighlight {
		return indicator.Value
	}

	switch {
	case indicator.IsReady():
		return utils.GreenString("%s", indicator.Value)
	case indicator.IsFailed():
		return utils.RedString("%s", indicator.Value)
	default:
		return utils.YellowString("%s", indicator.Value)
	}
}

// PercentIndicator renders a completion percentage as a fixed-width bar.
type PercentIndicator struct {
	Value    float64
	BarWidth int
}

func (indicator *PercentIndicator) IsReady() bool {
	return indicator.Value >= 100
}

func (indicator *PercentIndicator) clamped() float64 {
	return math.Max(0, math.Min(100, indicator.Value))
}

func (indicator *PercentIndicator) FormatElem(opts FormatOptions) string {
	width := indicator.BarWidth
	if width <= 0 {
		width = 20
	}

	value := indicator.clamped()
	filled := int(math.Round(value / 100 * float64(width)))

	done := strings.Repeat("#", filled)
	rest := strings.Repeat(".", width-filled)
	if opts.SyntaxHighlight {
		if indicator.IsReady() {
			done = utils.GreenString("%s", done)
		} else {
			done = utils.YellowString("%s", done)
		}
		rest = utils.GrayString("%s", rest)
	}

	return fmt.Sprintf("[%s%s] %3.0f%%", done, rest, value)
}
