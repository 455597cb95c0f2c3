// Command peakinfo prints properties of peak shape models and can run a
// demo analysis on a synthetic curve.
//
// Usage:
//
//	peakinfo [flags] [shape-name ...]
//
// Without arguments it prints info for all known shape models.
//
// Examples:
//
//	peakinfo gaussian
//	peakinfo -width 0.8 emg bi-gaussian
//	peakinfo -all
//	peakinfo -list
//	peakinfo -demo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/shape"
	"github.com/cwbudde/algo-peaks/workflow"
)

type shapeEntry struct {
	name string
	kind shape.Kind
}

var registry = []shapeEntry{
	{"gaussian", shape.Gaussian},
	{"lorentzian", shape.Lorentzian},
	{"pseudo-voigt", shape.PseudoVoigt},
	{"emg", shape.EMG},
	{"bi-gaussian", shape.BiGaussian},
	{"voigt-tail", shape.VoigtTail},
	{"pearson-iv", shape.PearsonIV},
	{"non-linear-curve", shape.NonLinearCurve},
}

func main() {
	amp := flag.Float64("amp", 100, "sample amplitude for the shape table")
	center := flag.Float64("center", 5, "sample center for the shape table")
	width := flag.Float64("width", 0.5, "sample width estimate for the shape table")
	all := flag.Bool("all", false, "show all shape models")
	list := flag.Bool("list", false, "list available shape names")
	demo := flag.Bool("demo", false, "run a full analysis on a synthetic two-peak curve")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: peakinfo [flags] [shape-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints properties of peak shape models.\n")
		fmt.Fprintf(os.Stderr, "Without arguments or with -all, prints info for all shapes.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  peakinfo gaussian emg\n")
		fmt.Fprintf(os.Stderr, "  peakinfo -width 0.8 bi-gaussian\n")
		fmt.Fprintf(os.Stderr, "  peakinfo -all\n")
		fmt.Fprintf(os.Stderr, "  peakinfo -demo\n")
	}
	flag.Parse()

	if *list {
		printList()
		return
	}

	if *demo {
		if err := runDemo(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	names := flag.Args()
	if len(names) == 0 || *all {
		names = nil
		for _, e := range registry {
			names = append(names, e.name)
		}
	}

	entries := resolveEntries(names)
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching shape models\n")
		os.Exit(1)
	}

	printTable(entries, *amp, *center, *width)
}

func printList() {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func resolveEntries(names []string) []shapeEntry {
	byName := make(map[string]shapeEntry, len(registry))
	for _, e := range registry {
		byName[e.name] = e
	}

	var result []shapeEntry
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		e, ok := byName[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: unknown shape %q (use -list to see available)\n", name)
			continue
		}
		result = append(result, e)
	}
	return result
}

func printTable(entries []shapeEntry, amp, center, width float64) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Shape\tParams\tParameter Names\tFWHM\tArea\tMode\n")
	fmt.Fprintf(tw, "-----\t------\t---------------\t----\t----\t----\n")

	ext := shape.Extent{XMin: center - 10*width, XMax: center + 10*width, YMax: amp}
	for _, e := range entries {
		p := shape.Seed(e.kind, amp, center, width, ext)

		fmt.Fprintf(tw, "%s\t%d\t%s\t%.4f\t%.4f\t%.4f\n",
			e.name,
			len(p.Values),
			strings.Join(p.Names(), ", "),
			shape.FWHM(p),
			shape.Area(p),
			shape.Mode(p),
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

// runDemo analyzes a synthetic curve of two overlapping Gaussians plus
// noise and prints the resolved peaks and per-stage results.
func runDemo() error {
	gen := curve.NewGenerator(curve.WithSeed(42))

	c, err := gen.Gaussians(0, 10, 0.02,
		curve.GaussianSpec{Center: 4.0, Amplitude: 100, Sigma: 0.5},
		curve.GaussianSpec{Center: 6.2, Amplitude: 70, Sigma: 0.6},
	)
	if err != nil {
		return err
	}

	c, err = gen.AddNoise(c, 0.5)
	if err != nil {
		return err
	}

	wc, err := workflow.NewController(workflow.Config{})
	if err != nil {
		return err
	}

	res, err := wc.Run(context.Background(), c, nil)
	if err != nil {
		return err
	}

	fmt.Printf("strategy: %s (detector=%s overlap=%s shape=%s optimizer=%s)\n",
		res.Strategy.Name, res.Strategy.Detector, res.Strategy.Overlap,
		res.Strategy.Shape, res.Strategy.Optimizer)
	fmt.Printf("overlap ratio: %.3f  SNR: %.1f  quality: %.4f  passed: %v\n\n",
		res.Context.OverlapRatio, res.Context.SNR, res.Quality, res.Passed)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Peak\tCenter\tAmplitude\tFWHM\tArea\tR2\tShape\n")
	for i, p := range res.Peaks {
		fmt.Fprintf(tw, "%d\t%.4f\t%.2f\t%.4f\t%.2f\t%.5f\t%s\n",
			i+1, p.Center, p.Amplitude, p.FWHM, p.Area, p.R2, p.Shape)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Println()

	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stage\tOK\tQuality\tDuration\n")
	for _, s := range res.Stages {
		fmt.Fprintf(tw, "%s\t%v\t%.3f\t%s\n", s.Stage, s.Success, s.Quality, s.Duration)
	}

	return tw.Flush()
}
