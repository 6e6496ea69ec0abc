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
	"fmt"
	"io"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hetcall/hetcall"
	"github.com/grailbio/hetcall/pileup/basecall"
	"github.com/grailbio/hetcall/pileup/counts"
	"v.io/x/lib/cmdline"
)

type classifyFlags struct {
	threshold float64
	format    string
	cols      string
	out       string
	minDepth  uint64
}

func classify(ctx context.Context, flags classifyFlags, inPath string, stdout io.Writer) (err error) {
	classifier, err := basecall.NewClassifier(flags.threshold)
	if err != nil {
		return err
	}
	sc, err := counts.Open(ctx, inPath, flags.format)
	if err != nil {
		return err
	}
	if flags.minDepth > 0 {
		sc = counts.NewFilterScanner(sc, counts.Filter{MinDepth: flags.minDepth})
	}
	defer func() {
		if e := sc.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w := stdout
	if flags.out != "" {
		out, e := file.Create(ctx, flags.out)
		if e != nil {
			return e
		}
		defer file.CloseAndReport(ctx, out, &err)
		w = out.Writer(ctx)
	}
	n, err := hetcall.WriteBasecalls(ctx, sc, classifier, flags.cols, w)
	if err != nil {
		return err
	}
	log.Printf("classify: %s: %d sites at t=%v", inPath, n, flags.threshold)
	return nil
}

func newCmdClassify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "classify",
		Short:    "Write per-site calls for one input at one threshold",
		ArgsName: "counts-path",
	}
	flags := classifyFlags{}
	d := hetcall.DefaultOpts
	cmd.Flags.Float64Var(&flags.threshold, "t", basecall.DefaultThreshold, "Calling threshold, in (0, 1)")
	cmd.Flags.StringVar(&flags.format, "format", d.Format, "Input format; 'counts', 'basestrand-tsv', and 'basestrand-rio' supported")
	cmd.Flags.StringVar(&flags.cols, "cols", d.Cols, "Optional column sets; see 'bio-hetcall help run'")
	cmd.Flags.Uint64Var(&flags.minDepth, "min-depth", 0, "Sites with fewer reads are dropped")
	cmd.Flags.StringVar(&flags.out, "out", "", "Output path; default stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("classify takes one pathname argument, but got %v", argv)
		}
		return classify(vcontext.Background(), flags, argv[0], env.Stdout)
	})
	return cmd
}
