package nvd

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/quay/cvssinfo"
)

// VulnPage is the envelope the CVE API and the yearly feeds share.
type vulnPage struct {
	ResultsPerPage int             `json:"resultsPerPage"`
	StartIndex     int             `json:"startIndex"`
	Total          int             `json:"totalResults"`
	Vulns          json.RawMessage `json:"vulnerabilities"`
}

type metric struct {
	Type string `json:"type"`
	CVSS struct {
		Version      string  `json:"version"`
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
	} `json:"cvssData"`
}

type vuln struct {
	CVE struct {
		ID         string `json:"id"`
		VulnStatus string `json:"vulnStatus"`
		Metrics    struct {
			V2  []metric `json:"cvssMetricV2"`
			V30 []metric `json:"cvssMetricV30"`
			V31 []metric `json:"cvssMetricV31"`
		} `json:"metrics"`
	} `json:"cve"`
}

func decodePage(r io.Reader) ([]vuln, error) {
	var page vulnPage
	if err := json.NewDecoder(r).Decode(&page); err != nil {
		return nil, err
	}
	items := make([]vuln, 0, page.Total)
	if err := json.Unmarshal(page.Vulns, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Records converts one vulnerability into records, one per CVSS version.
// Only metrics from the primary source are kept, 3.1 is preferred over 3.0,
// and rejected CVEs yield nothing.
func (v *vuln) records() []cvssinfo.Record {
	if strings.EqualFold(v.CVE.VulnStatus, "Rejected") {
		return nil
	}
	var out []cvssinfo.Record
	add := func(ms []metric) bool {
		for _, m := range ms {
			if m.Type != "Primary" {
				continue
			}
			out = append(out, cvssinfo.Record{
				CVE:       v.CVE.ID,
				Version:   m.CVSS.Version,
				Vector:    m.CVSS.VectorString,
				BaseScore: m.CVSS.BaseScore,
			})
			return true
		}
		return false
	}
	add(v.CVE.Metrics.V2)
	if !add(v.CVE.Metrics.V31) {
		add(v.CVE.Metrics.V30)
	}
	return out
}
