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

// Filter drops records before they reach the classifier.  Dropped sites do
// not count toward windows or heterozygosity totals.
type Filter struct {
	// MinDepth drops sites whose total depth is below it; 0 keeps all.
	MinDepth uint64
	// RefNames, when non-empty, keeps only sites on these contigs.  It
	// requires a format that carries contig names.
	RefNames []string
}

// Active returns true if f drops anything.
func (f Filter) Active() bool {
	return f.MinDepth > 0 || len(f.RefNames) > 0
}

type filterScanner struct {
	Scanner
	minDepth uint64
	refNames map[string]bool
	nDropped int64
}

// NewFilterScanner returns a Scanner yielding the records of sc that pass f.
// Closing it closes sc.
func NewFilterScanner(sc Scanner, f Filter) Scanner {
	fs := &filterScanner{Scanner: sc, minDepth: f.MinDepth}
	if len(f.RefNames) > 0 {
		fs.refNames = make(map[string]bool, len(f.RefNames))
		for _, name := range f.RefNames {
			fs.refNames[name] = true
		}
	}
	return fs
}

func (s *filterScanner) Scan() bool {
	for s.Scanner.Scan() {
		rec := s.Scanner.Record()
		if rec.Counts.Sum() < s.minDepth || (s.refNames != nil && !s.refNames[rec.RefName]) {
			s.nDropped++
			continue
		}
		return true
	}
	return false
}

// NDropped returns the number of records dropped by a Scanner returned by
// NewFilterScanner, or 0 for any other Scanner.
func NDropped(sc Scanner) int64 {
	if fs, ok := sc.(*filterScanner); ok {
		return fs.nDropped
	}
	return 0
}
