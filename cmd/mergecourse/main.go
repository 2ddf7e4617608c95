// Command mergecourse collapses consecutive course-change entries in a
// directory of daily log files.
//
//	mergecourse <dir> [-inplace] [-out-dir DIR] [-fix-maxima-pos]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"voyagelog/pkg/logbook"
)

const (
	exitOK     = 0
	exitUsage  = 1
	exitFailed = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mergecourse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inplace := fs.Bool("inplace", false, "Replace the input files")
	outDir := fs.String("out-dir", "", "Output directory (default <dir>/merged)")
	fixMaxima := fs.Bool("fix-maxima-pos", false, "Give position-less max entries the last known position")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: mergecourse <dir> [-inplace] [-out-dir DIR] [-fix-maxima-pos]")
		fs.PrintDefaults()
	}

	// The directory may come before or after the flags.
	var dir string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		dir, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if dir == "" {
		dir = fs.Arg(0)
	}

	info, err := os.Stat(dir)
	if dir == "" || err != nil || !info.IsDir() {
		fmt.Fprintf(stderr, "Error: %q is not a directory\n", dir)
		fs.Usage()
		return exitUsage
	}

	dst := *outDir
	if dst == "" {
		dst = filepath.Join(dir, "merged")
	}

	files, err := logbook.Files(dir, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	opts := logbook.MergeOptions{FixMaximaPositions: *fixMaxima}
	processed, failed := 0, 0
	for _, src := range files {
		target := filepath.Join(dst, filepath.Base(src))
		if *inplace {
			target = src
		}
		if err := logbook.MergeFile(src, target, opts); err != nil {
			fmt.Fprintf(stderr, "Failed: %s: %v\n", src, err)
			failed++
			continue
		}
		processed++
	}

	fmt.Fprintf(stdout, "Processed: %d; Failed: %d\n", processed, failed)
	if failed > 0 {
		return exitFailed
	}
	return exitOK
}
