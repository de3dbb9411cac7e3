package cvss

import (
	"fmt"
	"slices"
	"strings"
)

// V2 is a CVSS version 2 vector.
//
// The label the vector was parsed with is retained, so a decoded vector
// re-serializes to its input except for collapsed duplicate identifiers.
type V2 struct {
	label   string
	metrics []Metric
}

// ParseV2 decodes a version 2 vector, e.g.
// "CVSS2#AV:N/AC:L/Au:N/C:C/I:C/A:C".
func ParseV2(s string) (*V2, error) {
	v := new(V2)
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
//
// The first six bytes are taken to be the version label ("CVSS2#") and are
// not otherwise inspected.
func (v *V2) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < 6 {
		return fmt.Errorf("cvss v2: %w: missing version label", ErrMalformedVector)
	}
	ms, err := parsePairs(s[6:])
	if err != nil {
		return fmt.Errorf("cvss v2: %w", err)
	}
	v.label, v.metrics = s[:6], ms
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (v *V2) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// String implements [fmt.Stringer].
func (v *V2) String() string {
	var b strings.Builder
	b.WriteString(v.label)
	unparse(&b, v.metrics)
	return b.String()
}

// Version implements [Vector].
func (v *V2) Version() int { return 2 }

// Metrics implements [Vector].
func (v *V2) Metrics() []Metric { return slices.Clone(v.metrics) }

// Definitions implements [Vector].
//
// Identifiers outside the v2 base set resolve against the availability
// table, so a vector like "CVSS2#A:C" decodes and anything availability
// rejects reports an unknown value.
func (v *V2) Definitions() ([]Definition, error) {
	return resolve(v.metrics, v2Table, "cvss v2")
}

func v2Table(name string) map[string]Definition {
	switch name {
	case "av":
		return accessVector
	case "ac":
		return v2AccessComplexity
	case "au":
		return authentication
	case "c":
		return v2Confidentiality
	case "i":
		return v2Integrity
	}
	return v2Availability
}

var v2AccessComplexity = map[string]Definition{
	"L": {Label: "Low", Value: "L", Explanation: "Exploiting the vulnerability does not require specialized conditions."},
	"M": {Label: "Medium", Value: "M", Explanation: `Exploiting the vulnerability requires "somewhat specialized" conditions.`},
	"H": {Label: "High", Value: "H", Explanation: `Exploiting the vulnerability requires "specialized" conditions that would be difficult to find.`},
}

var authentication = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "Attackers do not need to authenticate to exploit the vulnerability."},
	"S": {Label: "Single", Value: "S", Explanation: "Attackers would need to authenticate once to exploit the vulnerability."},
	"M": {Label: "Multiple", Value: "M", Explanation: "Attackers would need to authenticate two or more times to exploit the vulnerability."},
}

var v2Confidentiality = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "There is no confidentiality impact."},
	"P": {Label: "Partial", Value: "P", Explanation: "Access to some information is possible, but the attacker does not have control over what information is compromised."},
	"C": {Label: "Complete", Value: "C", Explanation: "All information on the system is compromised."},
}

var v2Integrity = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "There is no integrity impact."},
	"P": {Label: "Partial", Value: "P", Explanation: "Modification of some information is possible, but the attacker does not have control over what information is modified."},
	"C": {Label: "Complete", Value: "C", Explanation: "The integrity of the system is totally compromised, and the attacker may change any information at will."},
}

var v2Availability = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "There is no availability impact."},
	"P": {Label: "Partial", Value: "P", Explanation: "The performance of the system is degraded."},
	"C": {Label: "Complete", Value: "C", Explanation: "The system is completely shut down."},
}
