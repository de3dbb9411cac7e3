// Command cvssinfo prints human-readable definitions for a CVSS vector.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/quay/cvssinfo/cvss"
)

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()
	ctx, done := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	fs := flag.NewFlagSet("cvssinfo", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(out, "\t%s [-no-color] vector\n\n", os.Args[0])
		fmt.Fprintln(out, "Prints the definition of every metric in the provided CVSS vector,")
		fmt.Fprintln(out, "v2 and v3 both understood:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "\t%s 'CVSS2#AV:N/AC:L/Au:N/C:C/I:C/A:C'\n", os.Args[0])
		fmt.Fprintf(out, "\t%s 'CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:L/I:L/A:N'\n\n", os.Args[0])
		fs.PrintDefaults()
	}
	noColor := fs.Bool("no-color", false, "disable colored output")
	fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		exit = 1
		return
	}
	color := !*noColor &&
		os.Getenv("NO_COLOR") == "" &&
		isatty.IsTerminal(os.Stdout.Fd())

	var cmdErr error
	cmdctx, cmddone := context.WithCancel(ctx)
	go func() {
		defer cmddone()
		cmdErr = run(cmdctx, os.Stdout, fs.Arg(0), color)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, ctx.Err())
		exit = 1
	case <-cmdctx.Done():
		if cmdErr != nil {
			fmt.Fprintln(os.Stderr, cmdErr)
			exit = 1
		}
	}
}

// Run parses the vector and writes the report in one shot, so an error
// can't leave half a report behind.
func run(_ context.Context, w io.Writer, vector string, color bool) error {
	v, err := cvss.Parse(vector)
	if err != nil {
		return err
	}
	ds, err := v.Definitions()
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, d := range ds {
		writeDefinition(&b, d, color)
	}
	if s, err := v.Score(); err == nil {
		q, err := cvss.QualitativeScore(v)
		if err == nil {
			fmt.Fprintf(&b, "\nBase score: %.1f (%s)\n", s, q)
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

const (
	ansiReset        = "\x1b[0m"
	ansiBoldRed      = "\x1b[1;31m"
	ansiYellow       = "\x1b[0;33m"
	ansiBrightYellow = "\x1b[1;33m"
)

func writeDefinition(b *strings.Builder, d cvss.Definition, color bool) {
	if !color {
		fmt.Fprintf(b, "%s: %s\n", d.Name, d)
		return
	}
	fmt.Fprintf(b, "%s%s%s: %s%s %s(%s):%s %s\n",
		ansiBoldRed, d.Name, ansiReset,
		ansiBrightYellow, d.Label,
		ansiYellow, d.Value, ansiReset,
		d.Explanation)
}
