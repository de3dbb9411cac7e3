// Package cvssinfo holds the data types shared by the cvssinfo packages.
//
// The decoding logic for vector strings lives in the cvss package, NVD
// access in the nvd package, and persistence in the datastore packages.
package cvssinfo

// Record is one scored CVSS vector for one CVE, as published by NVD.
//
// A CVE commonly has more than one Record: NVD publishes a v2 vector and
// one or more v3.x vectors side by side.
type Record struct {
	// CVE is the CVE identifier, e.g. "CVE-2021-44228".
	CVE string `json:"cve"`
	// Version is the CVSS version the vector was scored under, as
	// reported by NVD: "2.0", "3.0" or "3.1".
	Version string `json:"version"`
	// Vector is the vector string as published.
	Vector string `json:"vector"`
	// BaseScore is the base score as published.
	BaseScore float64 `json:"base_score"`
}
