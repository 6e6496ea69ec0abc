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
	"bufio"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// compressedExts are stripped before the format extension when deriving a
// default sample prefix.
var compressedExts = []string{".gz", ".bgz", ".zst", ".bz2"}

// DefaultPrefix returns the output prefix used for inputPath when none is
// given: its basename with any compression extension and then one more
// extension removed.  E.g. "s3://b/x/sample1.counts.gz" -> "sample1".
func DefaultPrefix(inputPath string) string {
	base := path.Base(inputPath)
	for _, ext := range compressedExts {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// readLines calls fn for each non-blank, non-comment line of the file at
// path.
func readLines(ctx context.Context, path string, fn func(lineno int, fields []string) error) (err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	sc := bufio.NewScanner(f.Reader(ctx))
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err = fn(lineno, strings.Fields(line)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadSampleList reads a sample list: one "path [prefix]" per line.  Blank
// lines and lines starting with '#' are skipped.  A missing prefix defaults
// to DefaultPrefix(path).
func ReadSampleList(ctx context.Context, listPath string) ([]Sample, error) {
	var samples []Sample
	err := readLines(ctx, listPath, func(lineno int, fields []string) error {
		switch len(fields) {
		case 1:
			samples = append(samples, Sample{Path: fields[0], Prefix: DefaultPrefix(fields[0])})
		case 2:
			samples = append(samples, Sample{Path: fields[0], Prefix: fields[1]})
		default:
			return errors.E(errors.Invalid, fmt.Sprintf("config: %s:%d: expected \"path [prefix]\", got %d fields", listPath, lineno, len(fields)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.E(errors.Invalid, "config: empty sample list "+listPath)
	}
	return samples, nil
}

// ReadFloatList reads one number per line, e.g. a list of calling thresholds
// or ROH minimums.
func ReadFloatList(ctx context.Context, listPath string) ([]float64, error) {
	var vals []float64
	err := readLines(ctx, listPath, func(lineno int, fields []string) error {
		if len(fields) != 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("config: %s:%d: expected one value per line", listPath, lineno))
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return errors.E(errors.Invalid, fmt.Sprintf("config: %s:%d: %v", listPath, lineno, err))
		}
		vals = append(vals, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errors.E(errors.Invalid, "config: empty list "+listPath)
	}
	return vals, nil
}

// ReadStringList reads one name per line, e.g. a list of contigs.
func ReadStringList(ctx context.Context, listPath string) ([]string, error) {
	var vals []string
	err := readLines(ctx, listPath, func(lineno int, fields []string) error {
		if len(fields) != 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("config: %s:%d: expected one value per line", listPath, lineno))
		}
		vals = append(vals, fields[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errors.E(errors.Invalid, "config: empty list "+listPath)
	}
	return vals, nil
}
