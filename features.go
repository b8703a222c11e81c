package main

import (
	"fmt"
	"io"
	"runtime"
	"sort"
)

// Version is stamped by the build via -ldflags "-X main.Version=...".
var Version = "dev"

// compiledFeatures collects one tag per optional backend, registered by
// init() in whichever backend file the build constraints compiled in.
var compiledFeatures []string

// featureList returns the registered tags sorted and deduplicated.
func featureList() []string {
	list := make([]string, len(compiledFeatures))
	copy(list, compiledFeatures)
	sort.Strings(list)
	out := list[:0]
	for i, f := range list {
		if i == 0 || f != list[i-1] {
			out = append(out, f)
		}
	}
	return out
}

func printFeatures(w io.Writer) {
	fmt.Fprintf(w, "Iron Engine %s\n", Version)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compiled features:")

	list := featureList()
	for _, f := range list {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
}
