package graph

import (
	"strings"

	"github.com/samber/lo"

	"github.com/werf/cmondog/pkg/config"
)

// Aggregate reduces the samples of one bucket into a single value.
type Aggregate int

const (
	Average Aggregate = iota
	Max
	Min
)

var aggregateNames = map[Aggregate]string{
	Average: "average",
	Max:     "max",
	Min:     "min",
}

func (a Aggregate) String() string {
	if name, ok := aggregateNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAggregate accepts the aggregate names case-insensitively; an empty
// string selects Average.
func ParseAggregate(name string) (Aggregate, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "avg" {
		return Average, nil
	}

	for aggregate, aggregateName := range aggregateNames {
		if aggregateName == name {
			return aggregate, nil
		}
	}

	return Average, config.Errorf("unknown aggregate %q, supported values: %s", name, strings.Join(AggregateNames(), ", "))
}

func AggregateNames() []string {
	return []string{Average.String(), Max.String(), Min.String()}
}

// Apply must only be called with a non-empty bucket.
func (a Aggregate) Apply(values []float64) float64 {
	switch a {
	case Max:
		return lo.Max(values)
	case Min:
		return lo.Min(values)
	default:
		return lo.Sum(values) / float64(len(values))
	}
}
