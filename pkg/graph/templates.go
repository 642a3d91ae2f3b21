package graph

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/werf/cmondog/pkg/config"
	"github.com/werf/cmondog/pkg/rpc"
)

//go:embed templates.schema.json
var templatesSchema string

//go:embed templates.yaml
var templatesData []byte

// Template describes which statistic a named graph draws and how.
type Template struct {
	Name        string  `yaml:"name"`
	Stat        string  `yaml:"stat"`
	Field       string  `yaml:"field"`
	Title       string  `yaml:"title"`
	Aggregate   string  `yaml:"aggregate"`
	Divisor     float64 `yaml:"divisor"`
	Description string  `yaml:"description"`
}

type templateCatalogue struct {
	Templates []Template `yaml:"templates"`
}

var templates = buildTemplates()

func buildTemplates() []Template {
	var document interface{}
	if err := yaml.Unmarshal(templatesData, &document); err != nil {
		panic(fmt.Sprintf("parse graph templates: %s", err))
	}

	schemaLoader := gojsonschema.NewStringLoader(templatesSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	if result, err := gojsonschema.Validate(schemaLoader, documentLoader); err != nil {
		panic(fmt.Sprintf("validate graph templates: %s", err))
	} else if !result.Valid() {
		msg := "Graph templates are not valid:\n"
		for _, err := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", err)
		}
		panic(msg)
	}

	catalogue := &templateCatalogue{}
	if err := yaml.Unmarshal(templatesData, catalogue); err != nil {
		panic(fmt.Sprintf("unmarshal graph templates: %s", err))
	}

	sort.SliceStable(catalogue.Templates, func(i, j int) bool {
		return catalogue.Templates[i].Name < catalogue.Templates[j].Name
	})

	return catalogue.Templates
}

// Templates lists the known templates ordered by name.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

func TemplateNames() []string {
	return lo.Map(templates, func(t Template, _ int) string {
		return t.Name
	})
}

// LookupTemplate finds a template by name regardless of letter case. An
// unknown name is a configuration error.
func LookupTemplate(name string) (Template, error) {
	folded := foldName(name)

	template, found := lo.Find(templates, func(t Template) bool {
		return foldName(t.Name) == folded
	})
	if !found {
		return Template{}, config.Errorf("graph type %q is invalid", name)
	}

	return template, nil
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Values extracts the template's field from the reply, scaled by its
// divisor.
func (t Template) Values(reply *rpc.StatsReply) []float64 {
	values := reply.Values(t.Field)
	if t.Divisor == 0 || t.Divisor == 1 {
		return values
	}

	return lo.Map(values, func(v float64, _ int) float64 {
		return v / t.Divisor
	})
}

// NewGraph builds a titled graph for the template. A non-empty aggregate
// overrides the template's own.
func (t Template) NewGraph(opts config.GraphOptions) (*Graph, error) {
	if opts.Aggregate == "" {
		opts.Aggregate = t.Aggregate
	}

	g, err := NewFromOptions(opts)
	if err != nil {
		return nil, err
	}
	g.SetTitle(t.Title)

	return g, nil
}
