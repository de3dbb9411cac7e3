// Package cvss decodes Common Vulnerability Scoring System vector strings.
//
// Two families of vectors are handled: version 2, labeled like
// "CVSS2#AV:N/AC:L/Au:N/C:C/I:C/A:C", and version 3.x, labeled like
// "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:L/I:L/A:N". Decoding splits a vector
// into its metrics and resolves every metric to the prose definition of its
// value. The base score equations are implemented for both versions.
//
// Parsing is permissive in the same places the vector formats are loose in
// the wild: any identifier may appear, a repeated identifier is overwritten
// by its last occurrence, and identifiers outside the known set resolve
// against the availability tables. Structural damage is reported at parse
// time, unknown values at resolution time.
package cvss

import (
	"encoding"
	"errors"
	"fmt"
	"strings"
)

//go:generate go tool stringer -type=Qualitative

// ErrMalformedVector is reported when a vector is structurally damaged,
// meaning the version label is missing or a segment has no colon, or when a
// score is requested and a base metric is absent.
var ErrMalformedVector = errors.New("malformed vector")

// ErrUnknownValue is reported when a metric's value has no entry in the
// table selected for its identifier.
var ErrUnknownValue = errors.New("unknown metric value")

// Metric is a single metric as it appeared in a vector: an identifier and
// the value code assigned to it.
type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Definition is the resolved definition of one metric's value.
type Definition struct {
	// Name is the metric identifier as it appeared in the vector.
	Name string `json:"name"`
	// Label is the display name of the value, e.g. "Adjacent Network".
	Label string `json:"label"`
	// Value is the value code, e.g. "A".
	Value string `json:"value"`
	// Explanation is the prose definition of the value.
	Explanation string `json:"explanation"`
}

// String renders the definition the way the scoring documents print them:
// display label, parenthesized code, explanation.
func (d Definition) String() string {
	return d.Label + " (" + d.Value + "): " + d.Explanation
}

// Vector is a decoded CVSS vector of any supported version.
type Vector interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
	fmt.Stringer
	// Version reports the CVSS major version, 2 or 3.
	Version() int
	// Metrics reports the vector's metrics in order of first appearance.
	Metrics() []Metric
	// Definitions resolves every metric to its definition.
	Definitions() ([]Definition, error)
	// Score computes the base score. The full base metric set must be
	// present with values the scoring equations define.
	Score() (float64, error)
}

var (
	_ Vector = (*V2)(nil)
	_ Vector = (*V3)(nil)
)

// Version guesses the CVSS version of the provided vector string.
//
// A "2" anywhere in the first six bytes selects version 2, anything else
// selects version 3. Six bytes covers the "CVSS2#" label; the guess misfires
// on a hand-built v3 label carrying a "2" in that window. Callers that know
// the version should use [ParseV2] or [ParseV3] directly.
func Version(vector string) int {
	pre := vector
	if len(pre) > 6 {
		pre = pre[:6]
	}
	if strings.ContainsRune(pre, '2') {
		return 2
	}
	return 3
}

// Parse decodes a vector string of any supported version, guessing the
// version from the label.
func Parse(vector string) (Vector, error) {
	vector = strings.TrimSpace(vector)
	switch Version(vector) {
	case 2:
		return ParseV2(vector)
	default:
		return ParseV3(vector)
	}
}

// parsePairs splits a vector body on "/" and every segment on its last
// colon. The last colon guards against values that contain a colon
// themselves, which no standard value does. A repeated identifier keeps the
// position of its first occurrence and the value of its last.
func parsePairs(body string) ([]Metric, error) {
	segs := strings.Split(body, "/")
	ms := make([]Metric, 0, len(segs))
	pos := make(map[string]int, len(segs))
	for _, seg := range segs {
		i := strings.LastIndexByte(seg, ':')
		if i == -1 {
			return nil, fmt.Errorf("%w: no colon in segment %q", ErrMalformedVector, seg)
		}
		m := Metric{Name: seg[:i], Value: seg[i+1:]}
		if at, ok := pos[m.Name]; ok {
			ms[at] = m
			continue
		}
		pos[m.Name] = len(ms)
		ms = append(ms, m)
	}
	return ms, nil
}

// resolve maps every metric through the table reported by pick for its
// lowercased identifier. The first missing value aborts the whole
// resolution.
func resolve(ms []Metric, pick func(string) map[string]Definition, pre string) ([]Definition, error) {
	ds := make([]Definition, len(ms))
	for i, m := range ms {
		tbl := pick(strings.ToLower(m.Name))
		d, ok := tbl[m.Value]
		if !ok {
			return nil, fmt.Errorf("%s: %w for %q: %q", pre, ErrUnknownValue, m.Name, m.Value)
		}
		d.Name = m.Name
		ds[i] = d
	}
	return ds, nil
}

// unparse reassembles a vector body from its metrics.
func unparse(b *strings.Builder, ms []Metric) {
	for i, m := range ms {
		if i != 0 {
			b.WriteByte('/')
		}
		b.WriteString(m.Name)
		b.WriteByte(':')
		b.WriteString(m.Value)
	}
}

// Access vector definitions are shared between versions. Version 3 renamed
// the metric "Attack Vector" and added the Physical value, which resolves
// here regardless of version.
//
// Definition wording throughout the package follows the FIRST specification
// documents, with the shorter study-guide phrasings kept where the longer
// official text adds nothing.
var accessVector = map[string]Definition{
	"L": {Label: "Local", Value: "L", Explanation: "The attacker must have physical or logical access to the affected system."},
	"A": {Label: "Adjacent Network", Value: "A", Explanation: "The attacker must have access to the local network that the affected system is connected to."},
	"N": {Label: "Network", Value: "N", Explanation: "The attacker can remotely exploit the vulnerability."},
	"P": {Label: "Physical", Value: "P", Explanation: "The attack requires the attacker to physically touch or manipulate the vulnerable component."},
}

// Qualitative is the qualitative severity rating of a score.
type Qualitative int

// Severity ratings, least to most severe.
const (
	None Qualitative = iota
	Low
	Medium
	High
	Critical
)

// QualitativeScore reports the qualitative severity rating for the vector's
// base score.
//
// Version 2 has no rating scale of its own; the v3.x scale is applied to v2
// scores as well.
func QualitativeScore(v Vector) (Qualitative, error) {
	s, err := v.Score()
	if err != nil {
		return None, err
	}
	switch {
	case s == 0:
		return None, nil
	case s < 4:
		return Low, nil
	case s < 7:
		return Medium, nil
	case s < 9:
		return High, nil
	}
	return Critical, nil
}
