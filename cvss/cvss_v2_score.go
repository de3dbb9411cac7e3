package cvss

import (
	"fmt"
	"math"
	"strings"
)

// Base metric positions for scoring: AV, AC, Au, C, I, A.
var v2Base = [...]string{"AV", "AC", "Au", "C", "I", "A"}

// Weights are indexed by the position of the value in the value-order
// string for each base metric.
var v2Weights = [len(v2Base)]struct {
	values string
	weight [3]float64
}{
	{"LAN", [3]float64{0.395, 0.646, 1}},
	{"HML", [3]float64{0.35, 0.61, 0.71}},
	{"MSN", [3]float64{0.45, 0.56, 0.704}},
	{"NPC", [3]float64{0, 0.275, 0.660}},
	{"NPC", [3]float64{0, 0.275, 0.660}},
	{"NPC", [3]float64{0, 0.275, 0.660}},
}

// Score implements [Vector].
//
// The equations are as published in the v2 specification, section 3.2.1.
func (v *V2) Score() (float64, error) {
	var w [len(v2Base)]float64
	var ok [len(v2Base)]bool
	for _, m := range v.metrics {
		var i int
		switch strings.ToLower(m.Name) {
		case "av":
			i = 0
		case "ac":
			i = 1
		case "au":
			i = 2
		case "c":
			i = 3
		case "i":
			i = 4
		case "a":
			i = 5
		default:
			continue
		}
		if len(m.Value) != 1 {
			return 0, fmt.Errorf("cvss v2: score: %w for %q: %q", ErrUnknownValue, m.Name, m.Value)
		}
		p := strings.IndexByte(v2Weights[i].values, m.Value[0])
		if p == -1 {
			return 0, fmt.Errorf("cvss v2: score: %w for %q: %q", ErrUnknownValue, m.Name, m.Value)
		}
		w[i], ok[i] = v2Weights[i].weight[p], true
	}
	for i := range ok {
		if !ok[i] {
			return 0, fmt.Errorf("cvss v2: score: %w: missing metric %q", ErrMalformedVector, v2Base[i])
		}
	}
	impact := 10.41 * (1 - (1-w[3])*(1-w[4])*(1-w[5]))
	exploitability := 20 * w[0] * w[1] * w[2]
	fImpact := 1.176
	if impact == 0 {
		fImpact = 0
	}
	return round1(((0.6 * impact) + (0.4 * exploitability) - 1.5) * fImpact), nil
}

// Round1 rounds to one decimal place, as the v2 equations call for.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
