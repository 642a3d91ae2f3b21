package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRender(t *testing.T) {
	table := NewTable(.5, .5)
	table.SetWidth(30)
	table.Header("NAME", "STAT")
	table.Rows(
		[]interface{}{"cpuload", "cpustat"},
		[]interface{}{"memfree", "memorystat"},
	)

	assert.Equal(t, "NAME           STAT\ncpuload        cpustat\nmemfree        memorystat\n", table.Render())
}

func TestTableExtraColumns(t *testing.T) {
	table := NewTable(.5, .5)
	table.SetWidth(30)
	table.Header("NAME", "STAT")
	table.Row("cpuload", "cpustat", "one minute load")

	assert.Equal(t, "NAME           STAT\ncpuload        cpustat\n└── one minute load\n", table.Render())
}

func TestPadValueIgnoresColors(t *testing.T) {
	assert.Equal(t, "\033[32mok\033[0m   ", padValue("\033[32mok\033[0m", 5))
	assert.Equal(t, "toolong", padValue("toolong", 3))
}
