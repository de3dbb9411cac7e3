package cvss

import (
	"fmt"
	"slices"
	"strings"
)

// V3 is a CVSS version 3.x vector.
//
// The version label the vector was parsed with is retained, so a decoded
// vector re-serializes to its input except for collapsed duplicate
// identifiers. The minor version is only consulted for score rounding.
type V3 struct {
	label   string
	metrics []Metric
}

// ParseV3 decodes a version 3.x vector, e.g.
// "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:L/I:L/A:N".
func ParseV3(s string) (*V3, error) {
	v := new(V3)
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
//
// Everything up to the first "/" is taken to be the version label
// ("CVSS:3.1") and is not otherwise inspected. A vector with no "/" at all
// is decoded as a single segment with no label.
func (v *V3) UnmarshalText(text []byte) error {
	s := string(text)
	var label string
	if i := strings.IndexByte(s, '/'); i != -1 {
		label, s = s[:i], s[i+1:]
	}
	ms, err := parsePairs(s)
	if err != nil {
		return fmt.Errorf("cvss v3: %w", err)
	}
	v.label, v.metrics = label, ms
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (v *V3) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// String implements [fmt.Stringer].
func (v *V3) String() string {
	var b strings.Builder
	if v.label != "" {
		b.WriteString(v.label)
		b.WriteByte('/')
	}
	unparse(&b, v.metrics)
	return b.String()
}

// Version implements [Vector].
func (v *V3) Version() int { return 3 }

// Metrics implements [Vector].
func (v *V3) Metrics() []Metric { return slices.Clone(v.metrics) }

// Definitions implements [Vector].
//
// Identifiers outside the v3 base set resolve against the availability
// table, the same fallback the v2 type uses.
func (v *V3) Definitions() ([]Definition, error) {
	return resolve(v.metrics, v3Table, "cvss v3")
}

func v3Table(name string) map[string]Definition {
	switch name {
	case "av":
		return accessVector
	case "ac":
		return v3AttackComplexity
	case "pr":
		return privilegesRequired
	case "ui":
		return userInteraction
	case "s":
		return scope
	case "c":
		return v3Confidentiality
	case "i":
		return v3Integrity
	}
	return v3Availability
}

var v3AttackComplexity = map[string]Definition{
	"H": {Label: "High", Value: "H", Explanation: "A successful attack depends on conditions beyond the attacker's control. That is, a successful attack cannot be accomplished at will, but requires the attacker to invest in some measurable amount of effort in preparation or execution against the vulnerable component before a successful attack can be expected."},
	"L": {Label: "Low", Value: "L", Explanation: "Specialized access conditions or extenuating circumstances do not exist. An attacker can expect repeatable success against the vulnerable component."},
}

var privilegesRequired = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "The attacker is unauthorized prior to attack, and therefore does not require any access to settings or files of the vulnerable system to carry out an attack."},
	"L": {Label: "Low", Value: "L", Explanation: "The attacker requires privileges that provide basic user capabilities that could normally affect only settings and files owned by a user. Alternatively, an attacker with Low privileges has the ability to access only non-sensitive resources."},
	"H": {Label: "High", Value: "H", Explanation: "The attacker requires privileges that provide significant (e.g., administrative) control over the vulnerable component allowing access to component-wide settings and files."},
}

var userInteraction = map[string]Definition{
	"N": {Label: "None", Value: "N", Explanation: "The vulnerable system can be exploited without interaction from any user."},
	"R": {Label: "Required", Value: "R", Explanation: "Successful exploitation of this vulnerability requires a user to take some action before the vulnerability can be exploited. For example, a successful exploit may only be possible during the installation of an application by a system administrator."},
}

var scope = map[string]Definition{
	"U": {Label: "Unchanged", Value: "U", Explanation: "An exploited vulnerability can only affect resources managed by the same security authority. In this case, the vulnerable component and the impacted component are either the same, or both are managed by the same security authority."},
	"C": {Label: "Changed", Value: "C", Explanation: "An exploited vulnerability can affect resources beyond the security scope managed by the security authority of the vulnerable component. In this case, the vulnerable component and the impacted component are different and managed by different security authorities."},
}

var v3Confidentiality = map[string]Definition{
	"H": {Label: "High", Value: "H", Explanation: "There is total loss of confidentiality, resulting in all resources within the impacted component being divulged to the attacker."},
	"L": {Label: "Low", Value: "L", Explanation: "There is some loss of confidentiality. Access to some restricted information is obtained, but the attacker does not have control over what information is obtained, or the amount or kind of loss is constrained."},
	"N": {Label: "None", Value: "N", Explanation: "There is no loss of confidentiality within the impacted component."},
}

var v3Integrity = map[string]Definition{
	"H": {Label: "High", Value: "H", Explanation: "There is a total loss of integrity, or a complete loss of protection."},
	"L": {Label: "Low", Value: "L", Explanation: "Modification of data is possible, but the attacker does not have control over the consequence of a modification, or the amount of modification is constrained."},
	"N": {Label: "None", Value: "N", Explanation: "There is no loss of integrity within the impacted component."},
}

var v3Availability = map[string]Definition{
	"H": {Label: "High", Value: "H", Explanation: "There is total loss of availability, resulting in the attacker being able to fully deny access to resources in the impacted component; this loss is either sustained (while the attacker continues to deliver the attack) or persistent (the condition persists even after the attack has completed)."},
	"L": {Label: "Low", Value: "L", Explanation: "There is reduced performance or interruptions in resource availability."},
	"N": {Label: "None", Value: "N", Explanation: "There is no impact to availability within the impacted component."},
}
