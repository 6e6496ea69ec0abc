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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/hetcall/pileup"
)

// angsdHeader is the first line of a -dumpCounts 4 file.
var angsdHeader = [pileup.NBase][]byte{[]byte("totA"), []byte("totC"), []byte("totG"), []byte("totT")}

// angsdScanner reads ANGSD -dumpCounts output.  Lines are tokenized by hand:
// ANGSD terminates every field (including the last) with a tab, which a
// strict TSV reader treats as a fifth, empty column.
type angsdScanner struct {
	sc      *bufio.Scanner
	lineIdx int
	tokens  [pileup.NBase + 1][]byte
	rec     Record
	err     error
}

func newAngsdScanner(r io.Reader) *angsdScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return &angsdScanner{sc: sc, rec: Record{Pos: -1}}
}

// getTokens identifies up to the first len(tokens) tokens from line, returning
// the number of tokens saved.  Any (group of) characters <= ' ' is treated as
// a delimiter.  A return value of len(tokens) means there may be more.
func getTokens(tokens [][]byte, line []byte) int {
	posEnd := 0
	lineLen := len(line)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if line[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if line[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = line[pos:posEnd]
	}
	return len(tokens)
}

func isAngsdHeader(tokens [][]byte) bool {
	for i, want := range angsdHeader {
		if !bytes.Equal(tokens[i], want) {
			return false
		}
	}
	return true
}

func (s *angsdScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.lineIdx++
		line := s.sc.Bytes()
		nToken := getTokens(s.tokens[:], line)
		if nToken != pileup.NBase {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("counts: line %d has %s fields, expected %d", s.lineIdx, describeArity(nToken), pileup.NBase))
			return false
		}
		if s.lineIdx == 1 && isAngsdHeader(s.tokens[:pileup.NBase]) {
			continue
		}
		for b := 0; b < pileup.NBase; b++ {
			var n uint32
			if n, s.err = parseCount(s.tokens[b]); s.err != nil {
				s.err = errors.E(errors.Invalid, s.err, fmt.Sprintf("counts: line %d", s.lineIdx))
				return false
			}
			s.rec.Counts[b] = n
		}
		return true
	}
	s.err = s.sc.Err()
	return false
}

func describeArity(nToken int) string {
	if nToken > pileup.NBase {
		return "more than " + strconv.Itoa(pileup.NBase)
	}
	return strconv.Itoa(nToken)
}

// parseCount parses one nonnegative depth.
func parseCount(tok []byte) (uint32, error) {
	if len(tok) > 0 && tok[0] == '-' {
		return 0, errors.E(errors.Invalid, "negative count", string(tok))
	}
	n, err := strconv.ParseUint(gunsafe.BytesToString(tok), 10, 32)
	if err != nil {
		return 0, errors.E(errors.Invalid, "malformed count", string(tok))
	}
	return uint32(n), nil
}

func (s *angsdScanner) Record() *Record {
	return &s.rec
}

func (s *angsdScanner) Err() error {
	return s.err
}

func (s *angsdScanner) Close() error {
	return nil
}
