package debug

import (
	"fmt"
	"os"
)

func YesNo(v bool) string {
	if v {
		return "YES"
	}
	return " no"
}

func Debug() bool {
	return os.Getenv("CMONDOG_DEBUG") == "1"
}

func Enable() {
	os.Setenv("CMONDOG_DEBUG", "1")
}

// Printf writes a trace line to stderr when debugging is enabled.
func Printf(format string, a ...interface{}) {
	if Debug() {
		fmt.Fprintf(os.Stderr, "  debug: "+format, a...)
	}
}
