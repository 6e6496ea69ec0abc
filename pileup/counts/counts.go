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
package counts

import (
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hetcall/pileup/basecall"
)

const (
	// FormatCounts is ANGSD's -dumpCounts per-site total depth format.
	FormatCounts = "counts"
	// FormatBasestrandTSV is bio-pileup's basestrand TSV format.
	FormatBasestrandTSV = "basestrand-tsv"
	// FormatBasestrandRio is bio-pileup's basestrand recordio format.
	FormatBasestrandRio = "basestrand-rio"
)

// Formats lists the supported input formats.
var Formats = []string{FormatCounts, FormatBasestrandTSV, FormatBasestrandRio}

// Record is one site's depth counts.
type Record struct {
	// RefName is the contig name, or "" when the format does not carry it.
	RefName string
	// Pos is the 1-based position, or -1 when the format does not carry it.
	Pos    int64
	Counts basecall.Counts
}

// Scanner iterates over the records of one input.  The *Record returned by
// Record is only valid until the next call to Scan.
type Scanner interface {
	// Scan advances to the next record, returning false at end of input or on
	// error.
	Scan() bool
	// Record returns the current record.
	Record() *Record
	// Err returns the first error encountered, if any.  Malformed input is
	// reported with kind errors.Invalid.
	Err() error
	// Close releases the underlying input.
	Close() error
}

// NewScanner returns a Scanner reading the given text format from r.
// FormatBasestrandRio requires an io.ReadSeeker.
func NewScanner(r io.Reader, format string) (Scanner, error) {
	switch format {
	case FormatCounts:
		return newAngsdScanner(r), nil
	case FormatBasestrandTSV:
		return newBaseStrandTSVScanner(r), nil
	case FormatBasestrandRio:
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, errors.E(errors.NotSupported, "counts: basestrand-rio input must be seekable")
		}
		return newBaseStrandRioScanner(rs)
	}
	return nil, errors.E(errors.Invalid, "config: unrecognized input format", format)
}

// fileScanner closes the file, and the decompressor if any, along with the
// wrapped Scanner.
type fileScanner struct {
	Scanner
	ctx     context.Context
	f       file.File
	decompr io.Closer
}

func (s *fileScanner) Close() (err error) {
	if e := s.Scanner.Close(); e != nil && err == nil {
		err = e
	}
	if s.decompr != nil {
		if e := s.decompr.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := s.f.Close(s.ctx); e != nil && err == nil {
		err = e
	}
	return
}

// Open opens path, which may be any path supported by grailbio/base/file,
// and returns a Scanner over it.  The caller must Close the Scanner.
func Open(ctx context.Context, path, format string) (Scanner, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "counts.Open", path)
	}
	fs := &fileScanner{ctx: ctx, f: f}
	var r io.Reader = f.Reader(ctx)
	if format != FormatBasestrandRio {
		rc, _ := compress.NewReader(r)
		fs.decompr = rc
		r = rc
	}
	if fs.Scanner, err = NewScanner(r, format); err != nil {
		if fs.decompr != nil {
			_ = fs.decompr.Close()
		}
		_ = f.Close(ctx)
		return nil, err
	}
	return fs, nil
}
