// Package nvd fetches CVSS vector data from the National Vulnerability
// Database, per-CVE through the CVE API and in bulk through the yearly data
// feeds. Both surfaces serve the same JSON shapes, so one schema covers
// them.
package nvd

import (
	"net/url"
	"regexp"
)

const (
	// DefaultAPIRoot is the default CVE API endpoint.
	DefaultAPIRoot = `https://services.nvd.nist.gov/rest/json/cves/2.0`
	// DefaultFeedRoot is the default place to look for the data feeds.
	//
	// The Fetcher expects the structure found here: files organized by
	// year, prefixed with `nvdcve-2.0-` and with `.meta` and `.json.gz`
	// extensions.
	DefaultFeedRoot = `https://nvd.nist.gov/feeds/json/cve/2.0/`

	// First year for the yearly CVE feeds: https://nvd.nist.gov/vuln/data-feeds
	firstYear = 2002
)

var (
	defaultAPIRoot  *url.URL
	defaultFeedRoot *url.URL
)

func init() {
	var err error
	defaultAPIRoot, err = url.Parse(DefaultAPIRoot)
	if err != nil {
		panic(err)
	}
	defaultFeedRoot, err = url.Parse(DefaultFeedRoot)
	if err != nil {
		panic(err)
	}
}

// This is a slightly more relaxed version of the validation pattern in the
// NVD JSON schema: "CVE" is case insensitive.
var cveRegexp = regexp.MustCompile(`^(?i:cve)-[0-9]{4}-[0-9]{4,}$`)

// ValidID reports whether the string looks like a CVE ID.
func ValidID(id string) bool {
	return cveRegexp.MatchString(id)
}
