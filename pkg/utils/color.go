package utils

import (
	"github.com/gookit/color"
	"github.com/werf/logboek"
)

func BoldString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.OpBold), format, a...)
}

func BlueString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.FgBlue), format, a...)
}

func YellowString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.FgYellow), format, a...)
}

func GreenString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.FgGreen), format, a...)
}

func RedString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.FgRed), format, a...)
}

func GrayString(format string, a ...interface{}) string {
	return colorString(colorStyle(color.FgDarkGray), format, a...)
}

func colorStyle(attrs ...color.Color) color.Style {
	return color.Style(attrs)
}

func colorString(style color.Style, format string, a ...interface{}) string {
	return logboek.ColorizeF(style, format, a...)
}
