package main

import (
	"context"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("V2", func(t *testing.T) {
		var b strings.Builder
		if err := run(ctx, &b, "CVSS2#AV:N/AC:L/Au:N/C:C/I:C/A:C", false); err != nil {
			t.Fatal(err)
		}
		got := b.String()
		t.Logf("output:\n%s", got)
		for _, want := range []string{
			"AV: Network (N): ",
			"Au: None (N): ",
			"A: Complete (C): ",
			"Base score: 10.0 (Critical)",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q", want)
			}
		}
		if strings.Contains(got, "\x1b[") {
			t.Error("unexpected escape sequence in uncolored output")
		}
	})

	t.Run("V3", func(t *testing.T) {
		var b strings.Builder
		if err := run(ctx, &b, "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:L/I:L/A:N", false); err != nil {
			t.Fatal(err)
		}
		got := b.String()
		t.Logf("output:\n%s", got)
		for _, want := range []string{
			"PR: High (H): ",
			"S: Unchanged (U): ",
			"Base score: 3.8 (Low)",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("Color", func(t *testing.T) {
		var b strings.Builder
		if err := run(ctx, &b, "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:L/I:L/A:N", true); err != nil {
			t.Fatal(err)
		}
		got := b.String()
		for _, want := range []string{
			ansiBoldRed + "AV" + ansiReset,
			ansiBrightYellow + "Network " + ansiYellow + "(N):" + ansiReset,
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("Error", func(t *testing.T) {
		for _, vector := range []string{
			"",
			"CVSS2#AV",
			"CVSS2#AV:N/AC:L/Au:N/C:Z/I:C/A:C",
			"CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:Z/I:L/A:N",
		} {
			var b strings.Builder
			if err := run(ctx, &b, vector, false); err == nil {
				t.Errorf("%q: got: <nil>, want: error", vector)
			}
			if b.Len() != 0 {
				t.Errorf("%q: output written on error: %q", vector, b.String())
			}
		}
	})
}
