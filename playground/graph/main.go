package main

import (
	"math"
	"os"

	"github.com/werf/cmondog/pkg/graph"
)

func main() {
	template, err := graph.LookupTemplate("cpuload")
	if err != nil {
		panic(err.Error())
	}

	g := graph.New()
	g.SetTitle(template.Title)
	g.SetWidth(60)
	g.SetHeight(15)

	for i := 0; i < 500; i++ {
		g.AppendValue(2 + 1.5*math.Sin(float64(i)/40))
	}

	if err := g.Print(os.Stdout); err != nil {
		panic(err.Error())
	}
}
