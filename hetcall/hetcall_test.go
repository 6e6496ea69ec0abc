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
package hetcall_test

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hetcall/hetcall"
	"github.com/grailbio/hetcall/pileup/basecall"
	"github.com/grailbio/hetcall/pileup/counts"
	"github.com/grailbio/hetcall/roh"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	tassert "github.com/stretchr/testify/assert"
)

// With tumbling 4-site windows at t=0.05:
//   window 0 = A, AC, AG, N  -> all 2/4, tv 1/4
//   window 1 = A, A, C, GT   -> all 1/4, tv 1/4
const testCounts = "totA\ttotC\ttotG\ttotT\t\n" +
	"10\t0\t0\t0\t\n" +
	"5\t5\t0\t0\t\n" +
	"5\t0\t5\t0\t\n" +
	"0\t0\t0\t0\t\n" +
	"10\t0\t0\t0\t\n" +
	"10\t0\t0\t0\t\n" +
	"0\t10\t0\t0\t\n" +
	"0\t0\t5\t5\t\n"

var testWindowOpts = roh.WindowOpts{Size: 4, Step: 4}

type modeRun struct {
	mode   string
	rohIdx int
	run    roh.Run
}

func TestAnalyze(t *testing.T) {
	ctx := vcontext.Background()
	sc, err := counts.NewScanner(strings.NewReader(testCounts), counts.FormatCounts)
	assert.NoError(t, err)
	classifier, err := basecall.NewClassifier(0.05)
	assert.NoError(t, err)

	var calls []string
	var runs []modeRun
	res, err := hetcall.Analyze(ctx, sc, classifier, testWindowOpts, []float64{0.3}, hetcall.Sinks{
		OnSite: func(rec *counts.Record, site *basecall.Site) error {
			calls = append(calls, site.Call.String())
			return nil
		},
		OnRun: func(mode roh.Mode, rohIdx int, r roh.Run) error {
			runs = append(runs, modeRun{mode.Name, rohIdx, r})
			return nil
		},
	})
	assert.NoError(t, err)
	assert.NoError(t, sc.Close())

	expect.EQ(t, calls, []string{"A", "AC", "AG", "N", "A", "A", "C", "GT"})
	expect.EQ(t, res.NSite, int64(8))
	expect.EQ(t, res.MinorFreq.Total(), uint64(3))
	expect.EQ(t, res.MinorFreq.Count(50, basecall.PairAC), uint64(1))
	// Both runs stay open until the end of input; tracks finish in mode order.
	expect.EQ(t, runs, []modeRun{
		{"all", 0, roh.Run{FirstWindow: 1, WindowCount: 1, TerminalProportion: 0.25}},
		{"tv", 0, roh.Run{FirstWindow: 0, WindowCount: 2, TerminalProportion: 0.25}},
	})

	assert.EQ(t, len(res.Tracks), 2)
	all, tv := res.Tracks[0].Summaries[0], res.Tracks[1].Summaries[0]
	expect.EQ(t, res.Tracks[0].Mode.Name, "all")
	expect.EQ(t, all.TotalSites, uint64(8))
	expect.EQ(t, all.HetSites, uint64(3))
	tassert.InDelta(t, 3.0/7, all.GenomeWideHeterozygosity(), 1e-12)
	expect.EQ(t, all.BpInROH(0), int64(4))
	expect.EQ(t, all.BpAnalysed(), int64(8))
	expect.EQ(t, tv.HetSites, uint64(2))
	tassert.InDelta(t, 2.0/7, tv.GenomeWideHeterozygosity(), 1e-12)
	expect.EQ(t, tv.BpInROH(0), int64(8))
	tassert.InDelta(t, 0.375, all.MeanWindowProportion(), 1e-12)
}

func TestAnalyzeShortInput(t *testing.T) {
	ctx := vcontext.Background()
	sc, err := counts.NewScanner(strings.NewReader("1\t0\t0\t0\n"), counts.FormatCounts)
	assert.NoError(t, err)
	classifier, err := basecall.NewClassifier(0.05)
	assert.NoError(t, err)
	res, err := hetcall.Analyze(ctx, sc, classifier, testWindowOpts, []float64{0.2, 0.5}, hetcall.Sinks{})
	assert.NoError(t, err)
	for _, track := range res.Tracks {
		for _, s := range track.Summaries {
			expect.EQ(t, s.NWindow, 0)
			expect.EQ(t, s.NRun(), 0)
			expect.True(t, math.IsNaN(s.GenomeWideHeterozygosity()))
		}
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	ctx := vcontext.Background()
	sc, err := counts.NewScanner(strings.NewReader("1\t0\t0\t0\n1\t0\t0\n"), counts.FormatCounts)
	assert.NoError(t, err)
	classifier, err := basecall.NewClassifier(0.05)
	assert.NoError(t, err)
	_, err = hetcall.Analyze(ctx, sc, classifier, testWindowOpts, []float64{0.2}, hetcall.Sinks{})
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "line 2")
}

func readOutput(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

func readGzipOutput(t *testing.T, path string) string {
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close() // nolint: errcheck
	r, err := gzip.NewReader(f)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(r)
	assert.NoError(t, err)
	return string(data)
}

func testOpts(outDir string) hetcall.Opts {
	opts := hetcall.DefaultOpts
	opts.OutDir = outDir
	opts.WindowSize = testWindowOpts.Size
	opts.StepSize = testWindowOpts.Step
	opts.RohMins = []float64{0.3}
	opts.Parallelism = 2
	return opts
}

const expectedBasecalls = "#CHROM\tPOS\tA\tC\tG\tT\tCALL\tTYPE\n" +
	".\t.\t10\t0\t0\t0\tA\thom\n" +
	".\t.\t5\t5\t0\t0\tAC\ttv\n" +
	".\t.\t5\t0\t5\t0\tAG\tts\n" +
	".\t.\t0\t0\t0\t0\tN\t.\n" +
	".\t.\t10\t0\t0\t0\tA\thom\n" +
	".\t.\t10\t0\t0\t0\tA\thom\n" +
	".\t.\t0\t10\t0\t0\tC\thom\n" +
	".\t.\t0\t0\t5\t5\tGT\ttv\n"

func TestRun(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	input := filepath.Join(tmpdir, "s1.counts")
	assert.NoError(t, ioutil.WriteFile(input, []byte(testCounts), 0644))
	outDir := filepath.Join(tmpdir, "out")
	opts := testOpts(outDir)
	opts.Thresholds = []float64{0.05, 0.6}
	assert.NoError(t, hetcall.Run(ctx, []hetcall.Sample{{Path: input, Prefix: "s1"}}, opts))

	expect.EQ(t, readOutput(t, filepath.Join(outDir, "s1.t0.05.basecalls.tsv")), expectedBasecalls)
	expect.EQ(t, readOutput(t, filepath.Join(outDir, "s1.t0.05.all.roh0.3.runs.tsv")),
		"#FIRST_WINDOW\tWINDOW_COUNT\tTERMINAL_PROPORTION\n1\t1\t0.25\n")
	expect.EQ(t, readOutput(t, filepath.Join(outDir, "s1.t0.05.tv.roh0.3.runs.tsv")),
		"#FIRST_WINDOW\tWINDOW_COUNT\tTERMINAL_PROPORTION\n0\t2\t0.25\n")

	summary := readOutput(t, filepath.Join(outDir, "s1.t0.05.all.roh0.3.summary.tsv"))
	for _, line := range []string{
		"mode\tall\n",
		"threshold\t0.05\n",
		"roh_min\t0.3\n",
		"sites_total\t8\n",
		"sites_het\t3\n",
		"windows\t2\n",
		"bp_analysed\t8\n",
		"runs\t1\n",
		"bp_in_roh_min1\t4\n",
		"bp_in_roh_min10\t0\n",
		"bp_in_roh_min50\t0\n",
	} {
		expect.HasSubstr(t, summary, line)
	}
	expect.EQ(t, readOutput(t, filepath.Join(outDir, "s1.t0.05.minorfreq.tsv")),
		"#FREQ\tPAIR\tKIND\tCOUNT\n0.50\tAC\ttv\t1\n0.50\tAG\tts\t1\n0.50\tGT\ttv\t1\n")

	// At t=0.6 the homozygous cutoff is 0.4, so every covered site is
	// homozygous and both modes are one run over all windows.
	calls := readOutput(t, filepath.Join(outDir, "s1.t0.6.basecalls.tsv"))
	expect.EQ(t, strings.Count(calls, "\thom\n"), 7)
	expect.EQ(t, readOutput(t, filepath.Join(outDir, "s1.t0.6.all.roh0.3.runs.tsv")),
		"#FIRST_WINDOW\tWINDOW_COUNT\tTERMINAL_PROPORTION\n0\t2\t0\n")
}

func TestRunCompressed(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	input := filepath.Join(tmpdir, "s1.counts")
	assert.NoError(t, ioutil.WriteFile(input, []byte(testCounts), 0644))
	for _, format := range []string{"tsv-gz", "tsv-bgz"} {
		outDir := filepath.Join(tmpdir, format)
		opts := testOpts(outDir)
		opts.OutFormat = format
		opts.MinorFreq = false
		assert.NoError(t, hetcall.Run(ctx, []hetcall.Sample{{Path: input, Prefix: "s1"}}, opts))
		expect.EQ(t, readGzipOutput(t, filepath.Join(outDir, "s1.t0.05.basecalls.tsv.gz")), expectedBasecalls)
		_, err := os.Stat(filepath.Join(outDir, "s1.t0.05.minorfreq.tsv.gz"))
		expect.True(t, os.IsNotExist(err))
	}
}

func TestRunCols(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	input := filepath.Join(tmpdir, "s1.counts")
	assert.NoError(t, ioutil.WriteFile(input, []byte("totA\ttotC\ttotG\ttotT\t\n3\t1\t0\t0\t\n"), 0644))
	opts := testOpts(tmpdir)
	opts.Cols = "-pos,+props"
	assert.NoError(t, hetcall.Run(ctx, []hetcall.Sample{{Path: input, Prefix: "s1"}}, opts))
	expect.EQ(t, readOutput(t, filepath.Join(tmpdir, "s1.t0.05.basecalls.tsv")),
		"A\tC\tG\tT\tA_FRAC\tC_FRAC\tG_FRAC\tT_FRAC\tCALL\tTYPE\n"+
			"3\t1\t0\t0\t0.7500\t0.2500\t0.0000\t0.0000\tAC\ttv\n")
}

func TestRunSampleFailure(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	good := filepath.Join(tmpdir, "good.counts")
	bad := filepath.Join(tmpdir, "bad.counts")
	assert.NoError(t, ioutil.WriteFile(good, []byte(testCounts), 0644))
	assert.NoError(t, ioutil.WriteFile(bad, []byte("1\t2\t3\t4\n1\t-2\t3\t4\n"), 0644))
	opts := testOpts(tmpdir)
	opts.SampleParallelism = 2
	err := hetcall.Run(ctx, []hetcall.Sample{{Path: bad, Prefix: "bad"}, {Path: good, Prefix: "good"}}, opts)
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "negative count")
	// The other sample's job still completes.
	expect.EQ(t, readOutput(t, filepath.Join(tmpdir, "good.t0.05.basecalls.tsv")), expectedBasecalls)
	// The failed job leaves no partial outputs.
	partial, err := filepath.Glob(filepath.Join(tmpdir, "bad.t*"))
	assert.NoError(t, err)
	expect.EQ(t, len(partial), 0, "partial=%v", partial)
}

func TestRunConfigErrors(t *testing.T) {
	ctx := vcontext.Background()
	opts := testOpts("/nonexistent")
	samples := []hetcall.Sample{{Path: "a", Prefix: "x"}, {Path: "b", Prefix: "x"}}
	for _, test := range []struct {
		samples  []hetcall.Sample
		stepSize int
		substr   string
	}{
		{samples, 4, "share output prefix"},
		{nil, 4, "no samples"},
		{samples[:1], 5, "step size 5 exceeds window size 4"},
	} {
		opts.StepSize = test.stepSize
		err := hetcall.Run(ctx, test.samples, opts)
		assert.NotNil(t, err)
		expect.HasSubstr(t, err.Error(), test.substr)
	}
}

func TestWriteBasecalls(t *testing.T) {
	ctx := vcontext.Background()
	sc, err := counts.NewScanner(strings.NewReader(testCounts), counts.FormatCounts)
	assert.NoError(t, err)
	classifier, err := basecall.NewClassifier(0.05)
	assert.NoError(t, err)
	var buf strings.Builder
	n, err := hetcall.WriteBasecalls(ctx, sc, classifier, "", &buf)
	assert.NoError(t, err)
	expect.EQ(t, n, int64(8))
	expect.EQ(t, buf.String(), expectedBasecalls)

	_, err = hetcall.WriteBasecalls(ctx, sc, classifier, "+bogus", &buf)
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "bogus not found")
}

func TestRunMinDepth(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	input := filepath.Join(tmpdir, "s1.counts")
	assert.NoError(t, ioutil.WriteFile(input, []byte(testCounts), 0644))
	opts := testOpts(tmpdir)
	opts.MinDepth = 10
	opts.MinorFreq = false
	assert.NoError(t, hetcall.Run(ctx, []hetcall.Sample{{Path: input, Prefix: "s1"}}, opts))
	expect.EQ(t, readOutput(t, filepath.Join(tmpdir, "s1.t0.05.basecalls.tsv")),
		strings.Replace(expectedBasecalls, ".\t.\t0\t0\t0\t0\tN\t.\n", "", 1))
	summary := readOutput(t, filepath.Join(tmpdir, "s1.t0.05.all.roh0.3.summary.tsv"))
	expect.HasSubstr(t, summary, "sites_total\t7\n")
	expect.HasSubstr(t, summary, "windows\t1\n")
}
