// Copyright 2021 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hetcall/hetcall"
	"v.io/x/lib/cmdline"
)

// floatList is a repeatable flag; each use may also carry a comma-separated
// list.
type floatList []float64

func (l *floatList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (l *floatList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return err
		}
		*l = append(*l, v)
	}
	return nil
}

type runFlags struct {
	config        string
	thresholds    floatList
	thresholdList string
	rohMins       floatList
	rohMinList    string
	sampleList    string
	prefix        string

	format            string
	outDir            string
	outFormat         string
	windowSize        int
	stepSize          int
	cols              string
	minorFreq         bool
	minDepth          int
	contigs           string
	contigsList       string
	parallelism       int
	sampleParallelism int
}

func (f *runFlags) register(fs *flag.FlagSet) {
	d := hetcall.DefaultOpts
	fs.StringVar(&f.config, "config", "", "TOML file overriding the defaults; flags given explicitly take precedence")
	fs.Var(&f.thresholds, "t", "Calling threshold; may be repeated or comma-separated (default 0.05)")
	fs.StringVar(&f.thresholdList, "T", "", "File listing calling thresholds, one per line; this xor -t")
	fs.Var(&f.rohMins, "roh-min", "ROH minimum proportion; may be repeated or comma-separated (default 0.2)")
	fs.Var(&f.rohMins, "R", "Shorthand for -roh-min")
	fs.StringVar(&f.rohMinList, "roh-min-list", "", "File listing ROH minimums, one per line; this xor -roh-min")
	fs.StringVar(&f.rohMinList, "L", "", "Shorthand for -roh-min-list")
	fs.StringVar(&f.sampleList, "samples", "", `File listing "path [prefix]" per line; replaces positional arguments`)
	fs.StringVar(&f.sampleList, "l", "", "Shorthand for -samples")
	fs.StringVar(&f.prefix, "o", "", "Output prefix; only valid with a single input.  Defaults to the input basename")
	fs.StringVar(&f.format, "format", d.Format, "Input format; 'counts', 'basestrand-tsv', and 'basestrand-rio' supported")
	fs.StringVar(&f.outDir, "outdir", d.OutDir, "Output directory")
	fs.StringVar(&f.outFormat, "out-format", d.OutFormat, "Output format; 'tsv', 'tsv-gz', and 'tsv-bgz' supported")
	fs.IntVar(&f.windowSize, "window", d.WindowSize, "Window size, in sites")
	fs.IntVar(&f.stepSize, "step", d.StepSize, "Window step, in sites; at most -window")
	fs.StringVar(&f.cols, "cols", d.Cols, "Optional basecalls column sets, e.g. '+props' or 'pos,props'.  Supported sets are 'pos', 'counts', and 'props'; default is \"pos,counts\"")
	fs.IntVar(&f.minDepth, "min-depth", d.MinDepth, "Sites with fewer reads are dropped before classification")
	fs.StringVar(&f.contigs, "contigs", "", "Comma-separated contigs to restrict the analysis to; requires a basestrand format")
	fs.StringVar(&f.contigsList, "contigs-list", "", "File listing contigs to restrict the analysis to, one per line; this xor -contigs")
	fs.BoolVar(&f.minorFreq, "minor-freq", d.MinorFreq, "Write the minor allele frequency table")
	fs.IntVar(&f.parallelism, "parallelism", d.Parallelism, "Maximum number of thresholds analysed at once per sample; 0 = runtime.NumCPU()")
	fs.IntVar(&f.sampleParallelism, "sample-parallelism", d.SampleParallelism, "Maximum number of samples analysed at once")
}

// resolve builds the run configuration: defaults, then -config, then any
// flag set on the command line.
func (f *runFlags) resolve(ctx context.Context, fs *flag.FlagSet, argv []string) (opts hetcall.Opts, samples []hetcall.Sample, err error) {
	opts = hetcall.DefaultOpts
	if f.config != "" {
		if err = hetcall.LoadConfig(f.config, &opts); err != nil {
			return
		}
	}
	overrides := map[string]func(){
		"format":             func() { opts.Format = f.format },
		"outdir":             func() { opts.OutDir = f.outDir },
		"out-format":         func() { opts.OutFormat = f.outFormat },
		"window":             func() { opts.WindowSize = f.windowSize },
		"step":               func() { opts.StepSize = f.stepSize },
		"cols":               func() { opts.Cols = f.cols },
		"minor-freq":         func() { opts.MinorFreq = f.minorFreq },
		"min-depth":          func() { opts.MinDepth = f.minDepth },
		"contigs":            func() { opts.Contigs = splitList(f.contigs) },
		"parallelism":        func() { opts.Parallelism = f.parallelism },
		"sample-parallelism": func() { opts.SampleParallelism = f.sampleParallelism },
	}
	fs.Visit(func(fl *flag.Flag) {
		if apply, ok := overrides[fl.Name]; ok {
			apply()
		}
	})

	if f.contigsList != "" {
		if f.contigs != "" {
			err = fmt.Errorf("-contigs and -contigs-list are mutually exclusive")
			return
		}
		if opts.Contigs, err = hetcall.ReadStringList(ctx, f.contigsList); err != nil {
			return
		}
	}
	if opts.Thresholds, err = floatsFromFlags(ctx, f.thresholds, f.thresholdList, "-t", "-T", opts.Thresholds); err != nil {
		return
	}
	if opts.RohMins, err = floatsFromFlags(ctx, f.rohMins, f.rohMinList, "-roh-min", "-roh-min-list", opts.RohMins); err != nil {
		return
	}

	if f.sampleList != "" {
		if len(argv) > 0 {
			err = fmt.Errorf("-samples cannot be combined with positional input paths %v", argv)
			return
		}
		if samples, err = hetcall.ReadSampleList(ctx, f.sampleList); err != nil {
			return
		}
	} else {
		if len(argv) == 0 {
			err = fmt.Errorf("at least one input path (or -samples) required")
			return
		}
		for _, path := range argv {
			samples = append(samples, hetcall.Sample{Path: path, Prefix: hetcall.DefaultPrefix(path)})
		}
	}
	if f.prefix != "" {
		if len(samples) != 1 {
			err = fmt.Errorf("-o requires exactly one input, got %d", len(samples))
			return
		}
		samples[0].Prefix = f.prefix
	}
	return
}

// splitList splits a comma-separated flag value, skipping empty terms.
func splitList(s string) []string {
	var terms []string
	for _, term := range strings.Split(s, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// floatsFromFlags returns the values given by a repeatable flag or a list
// file, or def if neither was given.
func floatsFromFlags(ctx context.Context, vals floatList, listPath, flagName, listFlagName string, def []float64) ([]float64, error) {
	switch {
	case len(vals) > 0 && listPath != "":
		return nil, fmt.Errorf("%s and %s are mutually exclusive", flagName, listFlagName)
	case len(vals) > 0:
		return vals, nil
	case listPath != "":
		return hetcall.ReadFloatList(ctx, listPath)
	}
	return def, nil
}

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run",
		Short: "Classify sites and detect runs of homozygosity",
		Long: `
Run classifies every site of each input at each calling threshold, then
reports runs of homozygosity for every ROH minimum, in both the all-het and
transversion-only modes.  Each (sample, threshold) pair is analysed
independently; a malformed input fails only its own jobs.`,
		ArgsName: "counts-path...",
	}
	f := &runFlags{}
	f.register(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		ctx := vcontext.Background()
		opts, samples, err := f.resolve(ctx, &cmd.Flags, argv)
		if err != nil {
			return err
		}
		return hetcall.Run(ctx, samples, opts)
	})
	return cmd
}
