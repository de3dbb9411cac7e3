package nvd

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Metafile is the information contained in a ".meta" file.
//
// One is published next to every yearly feed and is used to detect changes
// without downloading the feed body.
type metafile struct {
	SHA256       string
	LastModified time.Time
	Size         int64
	ZipSize      int64
	GZSize       int64
}

func (m *metafile) Parse(r io.Reader) error {
	var err error
	s := bufio.NewScanner(r)
	for s.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(s.Text()), ":")
		if !ok {
			continue
		}
		switch k {
		case "lastModifiedDate":
			m.LastModified, err = time.Parse(time.RFC3339, v)
		case "size":
			m.Size, err = strconv.ParseInt(v, 10, 64)
		case "zipSize":
			m.ZipSize, err = strconv.ParseInt(v, 10, 64)
		case "gzSize":
			m.GZSize, err = strconv.ParseInt(v, 10, 64)
		case "sha256":
			m.SHA256 = v
		default: // ignore
		}
		if err != nil {
			return err
		}
	}
	return s.Err()
}
