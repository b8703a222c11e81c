package main

import (
	"bytes"
	"sort"
	"strings"
	"testing"
)

func hasFeature(name string) bool {
	for _, f := range featureList() {
		if f == name {
			return true
		}
	}
	return false
}

func TestFeatureListSortedUnique(t *testing.T) {
	list := featureList()
	if !sort.StringsAreSorted(list) {
		t.Errorf("featureList not sorted: %v", list)
	}
	for i := 1; i < len(list); i++ {
		if list[i] == list[i-1] {
			t.Errorf("featureList has duplicate %q", list[i])
		}
	}
}

func TestFeatureBackendsRegistered(t *testing.T) {
	// Each backend pair is a build-constraint split; exactly one side of
	// each pair compiles into any given binary.
	pairs := [][2]string{
		{"panel:ebiten", "panel:headless"},
		{"alarm:oto", "alarm:headless"},
		{"priority:native", "priority:none"},
	}
	for _, p := range pairs {
		if hasFeature(p[0]) == hasFeature(p[1]) {
			t.Errorf("want exactly one of %q and %q, have %v", p[0], p[1], featureList())
		}
	}
	if !hasFeature("scripting:lua") {
		t.Errorf("scripting:lua not registered")
	}
}

func TestPrintFeatures(t *testing.T) {
	var buf bytes.Buffer
	printFeatures(&buf)
	out := buf.String()
	if !strings.Contains(out, "Iron Engine "+Version) {
		t.Errorf("missing version line:\n%s", out)
	}
	if !strings.Contains(out, "Compiled features:") {
		t.Errorf("missing features header:\n%s", out)
	}
	for _, f := range featureList() {
		if !strings.Contains(out, "  "+f+"\n") {
			t.Errorf("feature %q not printed:\n%s", f, out)
		}
	}
}
