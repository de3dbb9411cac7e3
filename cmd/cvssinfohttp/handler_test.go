package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quay/zlog"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/datastore"
	"github.com/quay/cvssinfo/datastore/sqlite"
	"github.com/quay/cvssinfo/nvd"
	"github.com/quay/cvssinfo/updates"
)

const apiPage = `{"resultsPerPage":1,"startIndex":0,"totalResults":1,"format":"NVD_CVE","version":"2.0","vulnerabilities":[{"cve":{"id":%q,"vulnStatus":"Analyzed","metrics":{"cvssMetricV31":[{"source":"nvd@nist.gov","type":"Primary","cvssData":{"version":"3.1","vectorString":"CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N","baseScore":5.9}}]}}}]}`

type gateFetcher struct {
	gate chan struct{}
	fp   datastore.Fingerprint
}

func (f *gateFetcher) Fetch(ctx context.Context, hint datastore.Fingerprint) ([]cvssinfo.Record, datastore.Fingerprint, error) {
	select {
	case <-f.gate:
	case <-ctx.Done():
		return nil, hint, ctx.Err()
	}
	if hint == f.fp {
		return nil, hint, nvd.ErrUnchanged
	}
	return []cvssinfo.Record{
		{CVE: "CVE-2024-0001", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", BaseScore: 9.8},
	}, f.fp, nil
}

func TestHandler(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "cvssinfo.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Error(err)
		}
	})
	seed := []cvssinfo.Record{
		{CVE: "CVE-2021-44228", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", BaseScore: 10},
		{CVE: "CVE-2021-44228", Version: "2.0", Vector: "AV:N/AC:M/Au:N/C:C/I:C/A:C", BaseScore: 9.3},
	}
	if _, err := store.UpdateVectors(ctx, updates.UpdaterName, "seed", seed); err != nil {
		t.Fatal(err)
	}

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch id := r.URL.Query().Get("cveId"); id {
		case "CVE-2000-0001":
			fmt.Fprintf(w, apiPage, id)
		default:
			io.WriteString(w, `{"resultsPerPage":0,"startIndex":0,"totalResults":0,"format":"NVD_CVE","version":"2.0","vulnerabilities":[]}`)
		}
	}))
	t.Cleanup(apiSrv.Close)
	client, err := nvd.NewClient(apiSrv.Client(), nvd.WithRoot(apiSrv.URL))
	if err != nil {
		t.Fatal(err)
	}

	f := &gateFetcher{gate: make(chan struct{}), fp: "kicked"}
	mgr, err := updates.NewManager(store, f, updates.WithRetention(2))
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewHandler(ctx, store, client, mgr))
	t.Cleanup(srv.Close)
	c := srv.Client()

	get := func(t *testing.T, path string, want int) *http.Response {
		t.Helper()
		res, err := c.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { res.Body.Close() })
		if res.StatusCode != want {
			b, _ := io.ReadAll(res.Body)
			t.Fatalf("got: %s, want: %d (body: %s)", res.Status, want, string(b))
		}
		return res
	}

	t.Run("Vector", func(t *testing.T) {
		res := get(t, "/vector?vector="+"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", http.StatusOK)
		var rep vectorReport
		if err := json.NewDecoder(res.Body).Decode(&rep); err != nil {
			t.Fatal(err)
		}
		if rep.Version != 3 || len(rep.Definitions) != 8 {
			t.Errorf("unexpected report: %+v", rep)
		}
		if rep.BaseScore == nil || *rep.BaseScore != 10 || rep.Qualitative != "Critical" {
			t.Errorf("unexpected score: %+v", rep)
		}

		get(t, "/vector", http.StatusBadRequest)
		get(t, "/vector?vector=CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:Z/I:N/A:N", http.StatusBadRequest)
		res, err := c.Post(srv.URL+"/vector", "text/plain", strings.NewReader("nope"))
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("got: %s, want: %d", res.Status, http.StatusMethodNotAllowed)
		}
	})

	t.Run("CVE", func(t *testing.T) {
		res := get(t, "/cve?cve=cve-2021-44228", http.StatusOK)
		var rep cveReport
		if err := json.NewDecoder(res.Body).Decode(&rep); err != nil {
			t.Fatal(err)
		}
		if rep.CVE != "CVE-2021-44228" || rep.Source != "feeds" || len(rep.Records) != 2 {
			t.Fatalf("unexpected report: %+v", rep)
		}
		for _, rec := range rep.Records {
			if rec.Report == nil {
				t.Errorf("%s %s: no decoded report", rec.CVE, rec.Version)
			}
		}
	})

	t.Run("CVEFallback", func(t *testing.T) {
		res := get(t, "/cve?cve=CVE-2000-0001", http.StatusOK)
		var rep cveReport
		if err := json.NewDecoder(res.Body).Decode(&rep); err != nil {
			t.Fatal(err)
		}
		if rep.Source != "api" || len(rep.Records) != 1 {
			t.Fatalf("unexpected report: %+v", rep)
		}
		if got, want := rep.Records[0].Vector, "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N"; got != want {
			t.Errorf("got: %q, want: %q", got, want)
		}
	})

	t.Run("CVENotFound", func(t *testing.T) {
		get(t, "/cve?cve=CVE-1999-9999", http.StatusNotFound)
		get(t, "/cve?cve=log4shell", http.StatusBadRequest)
		get(t, "/cve", http.StatusBadRequest)
	})

	t.Run("Update", func(t *testing.T) {
		post := func(t *testing.T) *http.Response {
			t.Helper()
			res, err := c.Post(srv.URL+"/update", "", nil)
			if err != nil {
				t.Fatal(err)
			}
			res.Body.Close()
			return res
		}
		if res := post(t); res.StatusCode != http.StatusAccepted {
			t.Fatalf("got: %s, want: %d", res.Status, http.StatusAccepted)
		}
		// The first pass is parked on the gate.
		if res := post(t); res.StatusCode != http.StatusConflict {
			t.Fatalf("got: %s, want: %d", res.Status, http.StatusConflict)
		}
		close(f.gate)
		deadline := time.Now().Add(5 * time.Second)
		for {
			ops, err := store.GetUpdateOperations(ctx, updates.UpdaterName)
			if err != nil {
				t.Fatal(err)
			}
			if len(ops) == 2 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("update never landed, have %d operations", len(ops))
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("UpdateOperations", func(t *testing.T) {
		res := get(t, "/update_operations", http.StatusOK)
		var ops []datastore.UpdateOperation
		if err := json.NewDecoder(res.Body).Decode(&ops); err != nil {
			t.Fatal(err)
		}
		if len(ops) != 2 {
			t.Fatalf("got: %d operations, want: 2", len(ops))
		}

		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/update_operations/"+ops[0].Ref.String(), nil)
		if err != nil {
			t.Fatal(err)
		}
		del, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		del.Body.Close()
		if del.StatusCode != http.StatusNoContent {
			t.Errorf("got: %s, want: %d", del.Status, http.StatusNoContent)
		}
		del, err = c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		del.Body.Close()
		if del.StatusCode != http.StatusNotFound {
			t.Errorf("got: %s, want: %d", del.Status, http.StatusNotFound)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		res := get(t, "/metrics", http.StatusOK)
		b, err := io.ReadAll(res.Body)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{
			"cvssinfo_http_request_total",
			"cvssinfo_sqlite_query_total",
		} {
			if !strings.Contains(string(b), want) {
				t.Errorf("metrics output missing %q", want)
			}
		}
	})
}
