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
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hetcall/pileup"
	"github.com/grailbio/hetcall/pileup/basecall"
	"github.com/grailbio/hetcall/pileup/counts"
	"github.com/grailbio/hetcall/roh"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

// outFile is one output TSV, optionally gzip- or bgzf-compressed.
type outFile struct {
	path  string
	f     file.File
	compr io.WriteCloser
	// raw is the (possibly compressing) writer under tsvw.
	raw  io.Writer
	tsvw *tsv.Writer
}

func outSuffix(outFormat string) string {
	if outFormat == outFormatTSV {
		return ".tsv"
	}
	return ".tsv.gz"
}

func createOutFile(ctx context.Context, path, outFormat string, parallelism int) (*outFile, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "hetcall: create %s", path)
	}
	o := &outFile{path: path, f: f, raw: f.Writer(ctx)}
	switch outFormat {
	case outFormatTSVGz:
		o.compr = gzip.NewWriter(o.raw)
	case outFormatTSVBgz:
		o.compr = bgzf.NewWriter(o.raw, parallelism)
	}
	if o.compr != nil {
		o.raw = o.compr
	}
	o.tsvw = tsv.NewWriter(o.raw)
	return o, nil
}

// close flushes and closes every layer, reporting the first error.
func (o *outFile) close(ctx context.Context) (err error) {
	err = o.tsvw.Flush()
	if o.compr != nil {
		if e := o.compr.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := o.f.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		err = pkgerrors.Wrapf(err, "hetcall: write %s", o.path)
	}
	return
}

// discard abandons the file, leaving nothing at o.path.
func (o *outFile) discard(ctx context.Context) {
	if o.compr != nil {
		_ = o.compr.Close()
	}
	o.f.Discard(ctx)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// callTypeString renders the TYPE column: "hom", "ts", "tv", or ".".
func callTypeString(c basecall.Call) string {
	if c.Type == basecall.Homozygous {
		return "hom"
	}
	return c.Kind().String()
}

func writeBasecallHeader(w *tsv.Writer, colBitset int) error {
	if colBitset&colBitPos != 0 {
		w.WriteString("#CHROM\tPOS")
	}
	if colBitset&colBitCounts != 0 {
		w.WriteString("A\tC\tG\tT")
	}
	if colBitset&colBitProps != 0 {
		w.WriteString("A_FRAC\tC_FRAC\tG_FRAC\tT_FRAC")
	}
	w.WriteString("CALL\tTYPE")
	return w.EndLine()
}

// writeBasecall writes one basecalls line.  Input order is preserved by the
// caller.
func writeBasecall(w *tsv.Writer, colBitset int, rec *counts.Record, site *basecall.Site) error {
	if colBitset&colBitPos != 0 {
		if rec.RefName == "" {
			w.WriteByte('.')
		} else {
			w.WriteString(rec.RefName)
		}
		if rec.Pos < 0 {
			w.WriteByte('.')
		} else {
			w.WriteString(strconv.FormatInt(rec.Pos, 10))
		}
	}
	if colBitset&colBitCounts != 0 {
		for _, n := range site.Counts {
			w.WriteUint32(n)
		}
	}
	if colBitset&colBitProps != 0 {
		for _, p := range site.Proportions {
			w.WriteString(strconv.FormatFloat(p, 'f', 4, 64))
		}
	}
	w.WriteString(site.Call.String())
	w.WriteString(callTypeString(site.Call))
	return w.EndLine()
}

func writeRunHeader(w *tsv.Writer) error {
	w.WriteString("#FIRST_WINDOW\tWINDOW_COUNT\tTERMINAL_PROPORTION")
	return w.EndLine()
}

func writeRun(w *tsv.Writer, r roh.Run) error {
	w.WriteString(strconv.Itoa(r.FirstWindow))
	w.WriteString(strconv.Itoa(r.WindowCount))
	w.WriteString(formatFloat(r.TerminalProportion))
	return w.EndLine()
}

// writeSummary writes s as FIELD/VALUE lines.  Undefined ratios are written
// as NaN.
func writeSummary(w *tsv.Writer, mode roh.Mode, threshold float64, s *roh.Summary) error {
	mean, median, max := s.RunLengthStats()
	fields := []struct {
		name, value string
	}{
		{"mode", mode.Name},
		{"threshold", formatFloat(threshold)},
		{"roh_min", formatFloat(s.MinProportion)},
		{"window_size", strconv.Itoa(s.WindowSize)},
		{"sites_total", strconv.FormatUint(s.TotalSites, 10)},
		{"sites_het", strconv.FormatUint(s.HetSites, 10)},
		{"genome_wide_heterozygosity", formatFloat(s.GenomeWideHeterozygosity())},
		{"windows", strconv.Itoa(s.NWindow)},
		{"bp_analysed", strconv.FormatInt(s.BpAnalysed(), 10)},
		{"mean_window_proportion", formatFloat(s.MeanWindowProportion())},
		{"runs", strconv.Itoa(s.NRun())},
		{"run_windows_mean", formatFloat(mean)},
		{"run_windows_median", formatFloat(median)},
		{"run_windows_max", formatFloat(max)},
	}
	w.WriteString("#FIELD\tVALUE")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, f := range fields {
		w.WriteString(f.name)
		w.WriteString(f.value)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	for i, tier := range roh.Tiers {
		w.WriteString("bp_in_roh_min" + strconv.Itoa(tier))
		w.WriteString(strconv.FormatInt(s.BpInROH(i), 10))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

// WriteBasecalls classifies every site read from sc and writes the basecalls
// TSV to w.  cols selects the optional column sets, as in Opts.Cols.  It
// returns the number of sites written.
func WriteBasecalls(ctx context.Context, sc counts.Scanner, classifier basecall.Classifier, cols string, w io.Writer) (int64, error) {
	colBitset, err := pileup.ParseCols(cols, colNameMap, colBitsetDefault)
	if err != nil {
		return 0, errors.E(errors.Invalid, "config", err)
	}
	tsvw := tsv.NewWriter(w)
	if err := writeBasecallHeader(tsvw, colBitset); err != nil {
		return 0, err
	}
	var n int64
	for sc.Scan() {
		rec := sc.Record()
		site := classifier.Site(rec.Counts)
		if err := writeBasecall(tsvw, colBitset, rec, &site); err != nil {
			return n, err
		}
		n++
		if n%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return n, err
	}
	return n, tsvw.Flush()
}
