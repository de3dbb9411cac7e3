package cvss

import (
	"fmt"
	"math"
	"strings"
)

// Base metric positions for scoring: AV, AC, PR, UI, S, C, I, A.
var v3Base = [...]string{"AV", "AC", "PR", "UI", "S", "C", "I", "A"}

// Weights are indexed by the position of the value in the value-order
// string for each base metric. Scope has no weight of its own; it alters
// the equations and the Privileges Required weights.
var v3Weights = [len(v3Base)]struct {
	values string
	weight [4]float64
}{
	{"NALP", [4]float64{0.85, 0.62, 0.55, 0.2}},
	{"LH", [4]float64{0.77, 0.44}},
	{"NLH", [4]float64{0.85, 0.62, 0.27}},
	{"NR", [4]float64{0.85, 0.62}},
	{"UC", [4]float64{}},
	{"HLN", [4]float64{0.56, 0.22, 0}},
	{"HLN", [4]float64{0.56, 0.22, 0}},
	{"HLN", [4]float64{0.56, 0.22, 0}},
}

// Privileges Required weights when Scope is Changed, in "NLH" order.
var v3ChangedPR = [3]float64{0.85, 0.68, 0.5}

// Score implements [Vector].
//
// The equations are as published in the v3.1 specification, section 7.1.
// Vectors labeled 3.0 round up to the next tenth; any other label uses the
// v3.1 Roundup function.
func (v *V3) Score() (float64, error) {
	var w [len(v3Base)]float64
	var ok [len(v3Base)]bool
	var changed bool
	// Scope first: it picks the Privileges Required weight set.
	for _, m := range v.metrics {
		if strings.ToLower(m.Name) != "s" {
			continue
		}
		p := valuePos(4, m)
		if p == -1 {
			return 0, fmt.Errorf("cvss v3: score: %w for %q: %q", ErrUnknownValue, m.Name, m.Value)
		}
		changed, ok[4] = p == 1, true
	}
	for _, m := range v.metrics {
		var i int
		switch strings.ToLower(m.Name) {
		case "av":
			i = 0
		case "ac":
			i = 1
		case "pr":
			i = 2
		case "ui":
			i = 3
		case "c":
			i = 5
		case "i":
			i = 6
		case "a":
			i = 7
		default:
			continue
		}
		p := valuePos(i, m)
		if p == -1 {
			return 0, fmt.Errorf("cvss v3: score: %w for %q: %q", ErrUnknownValue, m.Name, m.Value)
		}
		w[i] = v3Weights[i].weight[p]
		if i == 2 && changed {
			w[i] = v3ChangedPR[p]
		}
		ok[i] = true
	}
	for i := range ok {
		if !ok[i] {
			return 0, fmt.Errorf("cvss v3: score: %w: missing metric %q", ErrMalformedVector, v3Base[i])
		}
	}
	iss := 1 - (1-w[5])*(1-w[6])*(1-w[7])
	var impact float64
	if changed {
		impact = 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
	} else {
		impact = 6.42 * iss
	}
	if impact <= 0 {
		return 0, nil
	}
	exploitability := 8.22 * w[0] * w[1] * w[2] * w[3]
	score := impact + exploitability
	if changed {
		score *= 1.08
	}
	return v.roundup(math.Min(score, 10)), nil
}

// ValuePos reports the position of the metric's value in the value-order
// string for base metric i, or -1.
func valuePos(i int, m Metric) int {
	if len(m.Value) != 1 {
		return -1
	}
	return strings.IndexByte(v3Weights[i].values, m.Value[0])
}

// Roundup implements the two rounding behaviors the 3.x revisions specify.
//
// Under 3.0 the score rounds up to the next tenth directly. That turned out
// to be unstable across floating point implementations, so 3.1 respecified
// it over an integer representation (appendix A).
func (v *V3) roundup(f float64) float64 {
	if strings.Contains(v.label, "3.0") {
		return math.Ceil(f*10) / 10
	}
	i := int(math.Round(f * 100000))
	if i%10000 == 0 {
		return float64(i) / 100000
	}
	return float64(i/10000+1) / 10
}
