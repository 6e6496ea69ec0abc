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
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/hetcall/pileup"
	"github.com/grailbio/hetcall/pileup/basecall"
	"github.com/grailbio/hetcall/pileup/counts"
	"github.com/grailbio/hetcall/roh"
)

// Opts configures a hetcall run.  All parameters are explicit; nothing is
// read from the environment.
type Opts struct {
	// Format is the input format; one of counts.Formats.
	Format string `toml:"format"`
	// Thresholds are the heterozygosity calling thresholds.  Each is analysed
	// independently.
	Thresholds []float64 `toml:"thresholds"`
	// RohMins are the ROH minimum proportions.  All are served from the same
	// windows.
	RohMins []float64 `toml:"roh_min"`
	// MinDepth drops sites with fewer reads before classification; 0 keeps
	// all sites.
	MinDepth int `toml:"min_depth"`
	// Contigs, when non-empty, restricts the analysis to these contigs.  Not
	// supported for FormatCounts, which carries no positions.
	Contigs []string `toml:"contigs"`
	// WindowSize and StepSize are in sites.
	WindowSize int `toml:"window_size"`
	StepSize   int `toml:"step_size"`
	// OutDir is the output directory; any path supported by
	// grailbio/base/file.
	OutDir string `toml:"outdir"`
	// OutFormat is the output framing: "tsv", "tsv-gz", or "tsv-bgz".
	OutFormat string `toml:"out_format"`
	// Cols selects the optional basecalls column sets; see ParseCols.
	Cols string `toml:"cols"`
	// MinorFreq enables the minor allele frequency table.
	MinorFreq bool `toml:"minor_freq"`
	// Parallelism bounds the number of thresholds analysed at once per
	// sample; 0 = runtime.NumCPU().
	Parallelism int `toml:"parallelism"`
	// SampleParallelism bounds the number of samples analysed at once.
	SampleParallelism int `toml:"sample_parallelism"`
}

// DefaultOpts are the options used when none are specified.
var DefaultOpts = Opts{
	Format:            counts.FormatCounts,
	Thresholds:        []float64{basecall.DefaultThreshold},
	RohMins:           []float64{roh.DefaultMinProportion},
	WindowSize:        roh.DefaultWindowSize,
	StepSize:          roh.DefaultStepSize,
	OutDir:            "results",
	OutFormat:         outFormatTSV,
	MinorFreq:         true,
	Parallelism:       0,
	SampleParallelism: 1,
}

const (
	outFormatTSV    = "tsv"
	outFormatTSVGz  = "tsv-gz"
	outFormatTSVBgz = "tsv-bgz"
)

// These constants refer to the optional basecalls column-sets.
//   Pos    = CHROM and POS, when the input carries them ('.' otherwise).
//   Counts = raw A/C/G/T depths.
//   Props  = A/C/G/T proportions.
// CALL and TYPE are always present.
const (
	colBitPos = 1 << iota
	colBitCounts
	colBitProps
)

const colBitsetDefault = colBitPos | colBitCounts

var colNameMap = map[string]int{
	"pos":    colBitPos,
	"counts": colBitCounts,
	"props":  colBitProps,
}

// WindowOpts returns the window geometry.
func (o *Opts) WindowOpts() roh.WindowOpts {
	return roh.WindowOpts{Size: o.WindowSize, Step: o.StepSize}
}

// Validate checks every parameter, so that configuration errors are reported
// before any input is read.
func (o *Opts) Validate() error {
	switch o.Format {
	case counts.FormatCounts, counts.FormatBasestrandTSV, counts.FormatBasestrandRio:
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("config: unrecognized input format %q", o.Format))
	}
	switch o.OutFormat {
	case outFormatTSV, outFormatTSVGz, outFormatTSVBgz:
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("config: unrecognized output format %q", o.OutFormat))
	}
	if o.MinDepth < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("config: minimum depth cannot be negative, got %d", o.MinDepth))
	}
	if len(o.Contigs) > 0 && o.Format == counts.FormatCounts {
		return errors.E(errors.Invalid, "config: contig restriction requires a format with positions, not "+o.Format)
	}
	for _, c := range o.Contigs {
		if c == "" {
			return errors.E(errors.Invalid, "config: empty contig name")
		}
	}
	if len(o.Thresholds) == 0 {
		return errors.E(errors.Invalid, "config: at least one calling threshold required")
	}
	for _, t := range o.Thresholds {
		if _, err := basecall.NewClassifier(t); err != nil {
			return err
		}
	}
	if len(o.RohMins) == 0 {
		return errors.E(errors.Invalid, "config: at least one ROH minimum required")
	}
	for _, m := range o.RohMins {
		if _, err := roh.NewDetector(m); err != nil {
			return err
		}
	}
	if err := o.WindowOpts().Validate(); err != nil {
		return err
	}
	if _, err := pileup.ParseCols(o.Cols, colNameMap, colBitsetDefault); err != nil {
		return errors.E(errors.Invalid, "config", err)
	}
	if o.Parallelism < 0 || o.SampleParallelism < 0 {
		return errors.E(errors.Invalid, "config: parallelism cannot be negative")
	}
	return nil
}

func (o *Opts) filter() counts.Filter {
	return counts.Filter{MinDepth: uint64(o.MinDepth), RefNames: o.Contigs}
}

func (o *Opts) parallelism() int {
	if o.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return o.Parallelism
}

func (o *Opts) sampleParallelism() int {
	if o.SampleParallelism <= 0 {
		return 1
	}
	return o.SampleParallelism
}

// LoadConfig decodes the TOML file at path over opts.  Keys absent from the
// file leave the corresponding fields untouched.
func LoadConfig(path string, opts *Opts) error {
	// The decoder fills slices in place when capacity allows; don't let it
	// write through to slices shared with DefaultOpts.
	opts.Thresholds = append([]float64(nil), opts.Thresholds...)
	opts.RohMins = append([]float64(nil), opts.RohMins...)
	opts.Contigs = append([]string(nil), opts.Contigs...)
	md, err := toml.DecodeFile(path, opts)
	if err != nil {
		return errors.E(errors.Invalid, err, "config: "+path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("config: %s: unrecognized keys %v", path, undecoded))
	}
	return nil
}
