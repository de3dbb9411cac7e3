package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/quay/zlog"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/datastore"
)

func TestReopen(t *testing.T) {
	t.Parallel()
	ctx := zlog.Test(context.Background(), t)
	name := filepath.Join(t.TempDir(), "cvssinfo.sqlite")
	for i := 0; i < 2; i++ {
		s, err := Open(ctx, name)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	}
}

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := zlog.Test(context.Background(), t)
	s, err := Open(ctx, filepath.Join(t.TempDir(), "cvssinfo.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})

	const updater = `nvd-feeds`
	initial := []cvssinfo.Record{
		{CVE: "CVE-2021-44228", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", BaseScore: 10},
		{CVE: "CVE-2021-44228", Version: "2.0", Vector: "AV:N/AC:M/Au:N/C:C/I:C/A:C", BaseScore: 9.3},
		{CVE: "CVE-2014-0160", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N", BaseScore: 7.5},
	}
	revised := []cvssinfo.Record{
		{CVE: "CVE-2021-44228", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", BaseScore: 10},
		{CVE: "CVE-2014-0160", Version: "3.1", Vector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N", BaseScore: 7.5},
		{CVE: "CVE-2014-0160", Version: "2.0", Vector: "AV:N/AC:L/Au:N/C:P/I:N/A:N", BaseScore: 5},
	}

	var refs []uuid.UUID
	t.Run("Update", func(t *testing.T) {
		ref, err := s.UpdateVectors(ctx, updater, "fp-1", initial)
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
	})

	t.Run("GetVectors", func(t *testing.T) {
		got, err := s.GetVectors(ctx, []string{"cve-2021-44228", "CVE-2014-0160", "CVE-1999-0001"})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string][]cvssinfo.Record{
			"CVE-2021-44228": {initial[1], initial[0]},
			"CVE-2014-0160":  {initial[2]},
		}
		if !cmp.Equal(got, want) {
			t.Error(cmp.Diff(got, want))
		}
	})

	t.Run("LatestWins", func(t *testing.T) {
		ref, err := s.UpdateVectors(ctx, updater, "fp-2", revised)
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
		got, err := s.GetVectors(ctx, []string{"CVE-2021-44228", "CVE-2014-0160"})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string][]cvssinfo.Record{
			"CVE-2021-44228": {revised[0]},
			"CVE-2014-0160":  {revised[2], revised[1]},
		}
		if !cmp.Equal(got, want) {
			t.Error(cmp.Diff(got, want))
		}
	})

	t.Run("Fingerprint", func(t *testing.T) {
		got, err := s.GetLatestFingerprint(ctx, updater)
		if err != nil {
			t.Fatal(err)
		}
		if want := datastore.Fingerprint("fp-2"); got != want {
			t.Errorf("got: %q, want: %q", got, want)
		}
		got, err = s.GetLatestFingerprint(ctx, "never-ran")
		if err != nil {
			t.Fatal(err)
		}
		if got != "" {
			t.Errorf("got: %q, want empty fingerprint", got)
		}
	})

	t.Run("Operations", func(t *testing.T) {
		ops, err := s.GetUpdateOperations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 2 {
			t.Fatalf("got: %d operations, want: 2", len(ops))
		}
		if ops[0].Ref != refs[1] || ops[1].Ref != refs[0] {
			t.Errorf("unexpected order: %v", ops)
		}
		for _, op := range ops {
			if op.Updater != updater {
				t.Errorf("got: %q, want: %q", op.Updater, updater)
			}
			if op.Date.IsZero() {
				t.Error("zero date")
			}
		}
		ops, err = s.GetUpdateOperations(ctx, "never-ran")
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 0 {
			t.Errorf("got: %d operations, want: 0", len(ops))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		n, err := s.DeleteUpdateOperations(ctx, refs[1])
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("got: %d, want: 1", n)
		}
		fp, err := s.GetLatestFingerprint(ctx, updater)
		if err != nil {
			t.Fatal(err)
		}
		if want := datastore.Fingerprint("fp-1"); fp != want {
			t.Errorf("got: %q, want: %q", fp, want)
		}
		got, err := s.GetVectors(ctx, []string{"CVE-2014-0160"})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string][]cvssinfo.Record{
			"CVE-2014-0160": {initial[2]},
		}
		if !cmp.Equal(got, want) {
			t.Error(cmp.Diff(got, want))
		}
	})

	t.Run("GC", func(t *testing.T) {
		for _, fp := range []datastore.Fingerprint{"fp-3", "fp-4"} {
			if _, err := s.UpdateVectors(ctx, updater, fp, revised); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := s.GC(ctx, -1); err == nil {
			t.Error("got: <nil>, want: error")
		}
		n, err := s.GC(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("got: %d, want: 2", n)
		}
		ops, err := s.GetUpdateOperations(ctx, updater)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 1 {
			t.Fatalf("got: %d operations, want: 1", len(ops))
		}
		if got, want := ops[0].Fingerprint, datastore.Fingerprint("fp-4"); got != want {
			t.Errorf("got: %q, want: %q", got, want)
		}
	})
}
