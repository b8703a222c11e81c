// todcalc converts between TOD clock words, wall-clock timestamps and
// interval timer units. Given two values it also prints their distance.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	from := flag.String("from", "tod", "input format: tod, unix or date")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-from tod|unix|date] <value> [value2]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Converts a value to a TOD clock word and prints every view of it.\n")
		fmt.Fprintf(os.Stderr, "With two values, also prints the distance between them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s 0xe20588edce0000\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -from unix 1767225600\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -from date \"2026-01-01 00:00:00\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s 0xe20588edce0000 0xe20588eec22400\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(1)
	}

	tod, err := ParseInput(flag.Arg(0), *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, line := range FormatConversion(tod) {
		fmt.Println(line)
	}

	if flag.NArg() == 2 {
		tod2, err := ParseInput(flag.Arg(1), *from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		for _, line := range FormatConversion(tod2) {
			fmt.Println(line)
		}
		fmt.Println()
		for _, line := range FormatDelta(tod, tod2) {
			fmt.Println(line)
		}
	}
}
