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
package hetcall

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hetcall/pileup"
	"github.com/grailbio/hetcall/pileup/basecall"
	"github.com/grailbio/hetcall/pileup/counts"
	"github.com/grailbio/hetcall/roh"
	"golang.org/x/sync/errgroup"
)

// progressInterval is the number of sites between progress log lines and
// context checks.
const progressInterval = 10000000

// Sinks receives the streaming output of Analyze.  Nil fields are skipped.
type Sinks struct {
	// OnSite is called once per input site, in input order.
	OnSite func(rec *counts.Record, site *basecall.Site) error
	// OnRun is called as each run closes.  rohIdx indexes the rohMins passed
	// to Analyze.
	OnRun func(mode roh.Mode, rohIdx int, r roh.Run) error
}

// Result holds the per-mode reductions of one Analyze pass.
type Result struct {
	// Tracks has one entry per roh.Modes, in the same order.
	Tracks    []*roh.Track
	MinorFreq basecall.MinorFreqTable
	NSite     int64
}

// Analyze classifies every site read from sc and feeds the calls to one
// window track per roh.Modes.  Each track serves every element of rohMins
// from the same windows.  Analyze does not close sc.
func Analyze(ctx context.Context, sc counts.Scanner, classifier basecall.Classifier, wopts roh.WindowOpts, rohMins []float64, sinks Sinks) (*Result, error) {
	res := &Result{}
	for _, mode := range roh.Modes {
		var onRun roh.RunFunc
		if sinks.OnRun != nil {
			mode := mode
			onRun = func(rohIdx int, r roh.Run) error {
				return sinks.OnRun(mode, rohIdx, r)
			}
		}
		t, err := roh.NewTrack(mode, wopts, rohMins, onRun)
		if err != nil {
			return nil, err
		}
		res.Tracks = append(res.Tracks, t)
	}
	startTime := time.Now()
	for sc.Scan() {
		rec := sc.Record()
		site := classifier.Site(rec.Counts)
		if sinks.OnSite != nil {
			if err := sinks.OnSite(rec, &site); err != nil {
				return nil, err
			}
		}
		res.MinorFreq.Add(&site)
		for _, t := range res.Tracks {
			if err := t.Add(site.Call); err != nil {
				return nil, err
			}
		}
		res.NSite++
		if res.NSite%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Debug.Printf("hetcall: t=%v: %d sites processed (%v)", classifier.Threshold(), res.NSite, time.Since(startTime))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for _, t := range res.Tracks {
		if err := t.Finish(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Sample is one input counts file and the prefix its outputs are named with.
type Sample struct {
	Path   string
	Prefix string
}

// outputPrefix returns the path prefix shared by all of a (sample,
// threshold) job's output files.
func outputPrefix(opts *Opts, sample Sample, threshold float64) string {
	return file.Join(opts.OutDir, fmt.Sprintf("%s.t%s", sample.Prefix, formatFloat(threshold)))
}

func runsPath(prefix string, mode roh.Mode, rohMin float64, outFormat string) string {
	return fmt.Sprintf("%s.%s.roh%s.runs%s", prefix, mode.Name, formatFloat(rohMin), outSuffix(outFormat))
}

func summaryPath(prefix string, mode roh.Mode, rohMin float64, outFormat string) string {
	return fmt.Sprintf("%s.%s.roh%s.summary%s", prefix, mode.Name, formatFloat(rohMin), outSuffix(outFormat))
}

// analyzeThreshold runs one (sample, threshold) job and writes all of its
// output files.
func analyzeThreshold(ctx context.Context, sample Sample, opts *Opts, threshold float64) (err error) {
	classifier, err := basecall.NewClassifier(threshold)
	if err != nil {
		return err
	}
	colBitset, err := pileup.ParseCols(opts.Cols, colNameMap, colBitsetDefault)
	if err != nil {
		return errors.E(errors.Invalid, "config", err)
	}
	sc, err := counts.Open(ctx, sample.Path, opts.Format)
	if err != nil {
		return err
	}
	if f := opts.filter(); f.Active() {
		sc = counts.NewFilterScanner(sc, f)
	}
	defer func() {
		if e := sc.Close(); e != nil && err == nil {
			err = e
		}
	}()

	// A failed job leaves no output behind.
	var outs []*outFile
	defer func() {
		for _, o := range outs {
			if err != nil {
				o.discard(ctx)
				continue
			}
			if e := o.close(ctx); e != nil {
				err = e
			}
		}
	}()
	create := func(path string) (*outFile, error) {
		o, err := createOutFile(ctx, path, opts.OutFormat, opts.parallelism())
		if err != nil {
			return nil, err
		}
		outs = append(outs, o)
		return o, nil
	}

	prefix := outputPrefix(opts, sample, threshold)
	basecalls, err := create(prefix + ".basecalls" + outSuffix(opts.OutFormat))
	if err != nil {
		return err
	}
	if err = writeBasecallHeader(basecalls.tsvw, colBitset); err != nil {
		return err
	}
	// runFiles[mode.Name][rohIdx]
	runFiles := make(map[string][]*outFile, len(roh.Modes))
	for _, mode := range roh.Modes {
		for _, m := range opts.RohMins {
			o, err := create(runsPath(prefix, mode, m, opts.OutFormat))
			if err != nil {
				return err
			}
			if err = writeRunHeader(o.tsvw); err != nil {
				return err
			}
			runFiles[mode.Name] = append(runFiles[mode.Name], o)
		}
	}

	res, err := Analyze(ctx, sc, classifier, opts.WindowOpts(), opts.RohMins, Sinks{
		OnSite: func(rec *counts.Record, site *basecall.Site) error {
			return writeBasecall(basecalls.tsvw, colBitset, rec, site)
		},
		OnRun: func(mode roh.Mode, rohIdx int, r roh.Run) error {
			return writeRun(runFiles[mode.Name][rohIdx].tsvw, r)
		},
	})
	if err != nil {
		return errors.E(err, fmt.Sprintf("sample %s, threshold %v", sample.Path, threshold))
	}

	if n := counts.NDropped(sc); n > 0 {
		log.Printf("hetcall: %s t=%v: %d sites filtered out", sample.Prefix, threshold, n)
	}
	for _, t := range res.Tracks {
		for i, s := range t.Summaries {
			o, err := create(summaryPath(prefix, t.Mode, opts.RohMins[i], opts.OutFormat))
			if err != nil {
				return err
			}
			if err = writeSummary(o.tsvw, t.Mode, threshold, s); err != nil {
				return err
			}
			log.Printf("hetcall: %s t=%v %s roh<%v: %d sites, heterozygosity %v, %d windows, %d runs",
				sample.Prefix, threshold, t.Mode.Name, s.MinProportion, s.TotalSites,
				s.GenomeWideHeterozygosity(), s.NWindow, s.NRun())
		}
	}
	if opts.MinorFreq {
		o, err := create(prefix + ".minorfreq" + outSuffix(opts.OutFormat))
		if err != nil {
			return err
		}
		if err = res.MinorFreq.WriteTSV(o.raw); err != nil {
			return err
		}
	}
	return nil
}

// analyzeSample runs every threshold of opts against sample, at most
// opts.Parallelism at a time.  All thresholds run even if some fail.
func analyzeSample(ctx context.Context, sample Sample, opts *Opts) error {
	nJob := len(opts.Thresholds)
	parallelism := opts.parallelism()
	if parallelism > nJob {
		parallelism = nJob
	}
	errs := multierror.NewMultiError(nJob)
	_ = traverse.Each(parallelism, func(worker int) error {
		for jobIdx := worker; jobIdx < nJob; jobIdx += parallelism {
			if err := analyzeThreshold(ctx, sample, opts, opts.Thresholds[jobIdx]); err != nil {
				log.Error.Printf("hetcall: %s t=%v: %v", sample.Prefix, opts.Thresholds[jobIdx], err)
				errs.Add(err)
			}
		}
		return nil
	})
	return errs.Err()
}

// Run analyzes every sample at every threshold in opts.  A failure is fatal
// only to its own (sample, threshold) job.  Run waits for all jobs, then
// returns the error of whichever sample failed first, if any.
func Run(ctx context.Context, samples []Sample, opts Opts) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.E(errors.Invalid, "config: no samples given")
	}
	seen := make(map[string]string, len(samples))
	for _, s := range samples {
		if prev, ok := seen[s.Prefix]; ok {
			return errors.E(errors.Invalid, fmt.Sprintf("config: samples %s and %s share output prefix %q", prev, s.Path, s.Prefix))
		}
		seen[s.Prefix] = s.Path
	}
	if !strings.Contains(opts.OutDir, "://") {
		if err := os.MkdirAll(opts.OutDir, 0777); err != nil {
			return err
		}
	}
	log.Printf("hetcall: %d samples, thresholds %v, ROH minimums %v, windows %d/%d",
		len(samples), opts.Thresholds, opts.RohMins, opts.WindowSize, opts.StepSize)
	startTime := time.Now()
	var g errgroup.Group
	g.SetLimit(opts.sampleParallelism())
	for _, s := range samples {
		s := s
		g.Go(func() error {
			return analyzeSample(ctx, s, &opts)
		})
	}
	err := g.Wait()
	log.Printf("hetcall: done (%v)", time.Since(startTime))
	return err
}
