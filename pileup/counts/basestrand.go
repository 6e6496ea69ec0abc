// Copyright 2020 Grail Inc.
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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hetcall/pileup"
)

const (
	refNamesHeader = "RefNames"
	trailerVersion = 1
)

func init() {
	recordiozstd.Init()
}

// BaseStrandPile represents a single pileup entry with a count for every
// (base, strand) tuple.
//
// - Pos is zero-based; it is necessary to add 1 when converting to most text
//   formats (but not BED).
// - In Counts[][], base is the major dimension, with pileup.BaseA=0, C=1, G=2,
//   T=3.  Strand is the minor dimension, with strandFwd=0 and strandRev=1.
type BaseStrandPile struct {
	RefID  uint32
	Pos    uint32
	Counts [pileup.NBase][2]uint32
}

// WriteBaseStrandsRio writes the given BaseStrand-pileup entries to the given
// writer, using recordio.
func WriteBaseStrandsRio(piles []BaseStrandPile, refNames []string, out io.Writer) error {
	recordWriter := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalBaseStrand,
		Transformers: []string{recordiozstd.Name},
	})
	recordWriter.AddHeader(refNamesHeader, strings.Join(refNames, "\000"))
	recordWriter.AddHeader(recordio.KeyTrailer, true)
	for i := range piles {
		recordWriter.Append(&piles[i])
	}
	recordWriter.SetTrailer(baseStrandsRioTrailer(len(piles)))
	return recordWriter.Finish()
}

func baseStrandsRioTrailer(numPiles int) []byte {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, int64(trailerVersion)); err != nil {
		panic("couldn't write trailer version")
	}
	if err := binary.Write(&buffer, binary.LittleEndian, int64(numPiles)); err != nil {
		panic("couldn't write numPiles to trailer")
	}
	return buffer.Bytes()
}

func parseBaseStrandsTrailer(trailer []byte) (int64, error) {
	r := bytes.NewReader(trailer)
	var version, numPiles int64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	if version != trailerVersion {
		return 0, fmt.Errorf("unrecognized trailer version: got %d, want %d", version, trailerVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &numPiles); err != nil {
		return 0, err
	}
	return numPiles, nil
}

func marshalBaseStrand(scratch []byte, p interface{}) ([]byte, error) {
	t := scratch
	if len(t) < 40 {
		t = make([]byte, 40)
	}
	t = t[:40]

	pile := p.(*BaseStrandPile)
	binary.LittleEndian.PutUint32(t[:4], pile.RefID)
	binary.LittleEndian.PutUint32(t[4:8], pile.Pos)
	binary.LittleEndian.PutUint32(t[8:12], pile.Counts[pileup.BaseA][0])
	binary.LittleEndian.PutUint32(t[12:16], pile.Counts[pileup.BaseA][1])
	binary.LittleEndian.PutUint32(t[16:20], pile.Counts[pileup.BaseC][0])
	binary.LittleEndian.PutUint32(t[20:24], pile.Counts[pileup.BaseC][1])
	binary.LittleEndian.PutUint32(t[24:28], pile.Counts[pileup.BaseG][0])
	binary.LittleEndian.PutUint32(t[28:32], pile.Counts[pileup.BaseG][1])
	binary.LittleEndian.PutUint32(t[32:36], pile.Counts[pileup.BaseT][0])
	binary.LittleEndian.PutUint32(t[36:40], pile.Counts[pileup.BaseT][1])
	return t, nil
}

// baseStrandUnmarshaller decodes every record into the same pile, so that a
// whole-genome scan does not allocate per record.  The pile is only valid
// until the next record is decoded.
type baseStrandUnmarshaller struct {
	pile BaseStrandPile
}

func (b *baseStrandUnmarshaller) unmarshal(in []byte) (out interface{}, err error) {
	if len(in) != 40 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("basestrand record has %d bytes, expected 40", len(in)))
	}
	in = in[:40] // help the bounds-checker
	pile := &b.pile
	pile.RefID = binary.LittleEndian.Uint32(in[:4])
	pile.Pos = binary.LittleEndian.Uint32(in[4:8])
	pile.Counts[pileup.BaseA][0] = binary.LittleEndian.Uint32(in[8:12])
	pile.Counts[pileup.BaseA][1] = binary.LittleEndian.Uint32(in[12:16])
	pile.Counts[pileup.BaseC][0] = binary.LittleEndian.Uint32(in[16:20])
	pile.Counts[pileup.BaseC][1] = binary.LittleEndian.Uint32(in[20:24])
	pile.Counts[pileup.BaseG][0] = binary.LittleEndian.Uint32(in[24:28])
	pile.Counts[pileup.BaseG][1] = binary.LittleEndian.Uint32(in[28:32])
	pile.Counts[pileup.BaseT][0] = binary.LittleEndian.Uint32(in[32:36])
	pile.Counts[pileup.BaseT][1] = binary.LittleEndian.Uint32(in[36:40])
	return pile, nil
}

// sumStrands adds fwd and rev, rejecting totals that do not fit in a uint32.
func sumStrands(fwd, rev uint64) (uint32, bool) {
	total := fwd + rev
	return uint32(total), total <= math.MaxUint32
}

// baseStrandRioScanner streams a .basestrand.rio file.
type baseStrandRioScanner struct {
	scanner     recordio.Scanner
	unmarshal   *baseStrandUnmarshaller
	refNames    []string
	numExpected int64
	numPiles    int64
	rec         Record
	err         error
}

func newBaseStrandRioScanner(rs io.ReadSeeker) (*baseStrandRioScanner, error) {
	s := &baseStrandRioScanner{unmarshal: &baseStrandUnmarshaller{}, numExpected: -1}
	s.scanner = recordio.NewScanner(rs, recordio.ScannerOpts{
		Unmarshal: s.unmarshal.unmarshal,
	})
	if err := s.scanner.Err(); err != nil {
		return nil, errors.E(errors.Invalid, err, "counts: basestrand-rio header")
	}
	if len(s.scanner.Trailer()) != 0 {
		var err error
		if s.numExpected, err = parseBaseStrandsTrailer(s.scanner.Trailer()); err != nil {
			return nil, errors.E(errors.Invalid, err, "counts: basestrand-rio trailer")
		}
	}
	for _, kv := range s.scanner.Header() {
		switch kv.Key {
		case refNamesHeader:
			packedRefNames := kv.Value.(string)
			s.refNames = strings.Split(packedRefNames, "\000")
			// Cannot return an error on unrecognized key since recordio can write its own.
		}
	}
	return s, nil
}

func (s *baseStrandRioScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if !s.scanner.Scan() {
		if s.err = s.scanner.Err(); s.err == nil && s.numExpected >= 0 && s.numExpected != s.numPiles {
			s.err = errors.E(errors.Integrity, fmt.Sprintf("counts: basestrand-rio trailer promised %d piles, found %d", s.numExpected, s.numPiles))
		}
		return false
	}
	pile := s.scanner.Get().(*BaseStrandPile)
	s.numPiles++
	if int(pile.RefID) < len(s.refNames) {
		s.rec.RefName = s.refNames[pile.RefID]
	} else {
		s.err = errors.E(errors.Invalid, fmt.Sprintf("counts: basestrand-rio pile %d has refID %d, but only %d reference names", s.numPiles, pile.RefID, len(s.refNames)))
		return false
	}
	s.rec.Pos = int64(pile.Pos) + 1
	for b := range pile.Counts {
		n, ok := sumStrands(uint64(pile.Counts[b][0]), uint64(pile.Counts[b][1]))
		if !ok {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("counts: %s:%d depth overflows uint32", s.rec.RefName, s.rec.Pos))
			return false
		}
		s.rec.Counts[b] = n
	}
	return true
}

func (s *baseStrandRioScanner) Record() *Record {
	return &s.rec
}

func (s *baseStrandRioScanner) Err() error {
	return s.err
}

func (s *baseStrandRioScanner) Close() error {
	if err := s.scanner.Finish(); err != nil {
		return err
	}
	if s.numPiles > 0 {
		log.Debug.Printf("counts: read %d basestrand piles", s.numPiles)
	}
	return nil
}

// BaseStrandTsvRow represents a single row of a basestrand.tsv file.
type BaseStrandTsvRow struct {
	Chr  string `tsv:"#CHROM"` // Chromosome
	Pos  int64  `tsv:"POS"`    // Position in chromosome
	Ref  string `tsv:"REF"`    // Reference base
	FwdA int64  `tsv:"A+"`     // A count on the forward strand
	RevA int64  `tsv:"A-"`     // A count on the reverse strand
	FwdC int64  `tsv:"C+"`     // C count on the forward strand
	RevC int64  `tsv:"C-"`     // C count on the reverse strand
	FwdG int64  `tsv:"G+"`     // G count on the forward strand
	RevG int64  `tsv:"G-"`     // G count on the reverse strand
	FwdT int64  `tsv:"T+"`     // T count on the forward strand
	RevT int64  `tsv:"T-"`     // T count on the reverse strand
}

// WriteBaseStrandTsv writes a basestrand.tsv file to the given writer.
func WriteBaseStrandTsv(rows []BaseStrandTsvRow, writer io.Writer) error {
	tsvWriter := tsv.NewWriter(writer)
	tsvWriter.WriteString("#CHROM\tPOS\tREF\tA+\tA-\tC+\tC-\tG+\tG-\tT+\tT-")
	if err := tsvWriter.EndLine(); err != nil {
		return err
	}
	for i := range rows {
		row := &rows[i]
		tsvWriter.WriteString(row.Chr)
		tsvWriter.WriteInt64(row.Pos)
		tsvWriter.WriteString(row.Ref)
		for _, n := range [...]int64{row.FwdA, row.RevA, row.FwdC, row.RevC, row.FwdG, row.RevG, row.FwdT, row.RevT} {
			tsvWriter.WriteInt64(n)
		}
		if err := tsvWriter.EndLine(); err != nil {
			return err
		}
	}
	return tsvWriter.Flush()
}

// baseStrandTSVScanner streams a basestrand.tsv file.
type baseStrandTSVScanner struct {
	reader *tsv.Reader
	row    BaseStrandTsvRow
	rowIdx int
	rec    Record
	err    error
}

func newBaseStrandTSVScanner(r io.Reader) *baseStrandTSVScanner {
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	return &baseStrandTSVScanner{reader: tsvReader}
}

func (s *baseStrandTSVScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if err := s.reader.Read(&s.row); err != nil {
		if err != io.EOF {
			s.err = errors.E(errors.Invalid, err, fmt.Sprintf("counts: basestrand-tsv row %d", s.rowIdx+1))
		}
		return false
	}
	s.rowIdx++
	row := &s.row
	s.rec.RefName = row.Chr
	s.rec.Pos = row.Pos
	for b, strands := range [pileup.NBase][2]int64{
		{row.FwdA, row.RevA},
		{row.FwdC, row.RevC},
		{row.FwdG, row.RevG},
		{row.FwdT, row.RevT},
	} {
		if strands[0] < 0 || strands[1] < 0 {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("counts: %s:%d has a negative %c count", row.Chr, row.Pos, pileup.EnumToASCIITable[b]))
			return false
		}
		n, ok := sumStrands(uint64(strands[0]), uint64(strands[1]))
		if !ok {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("counts: %s:%d depth overflows uint32", row.Chr, row.Pos))
			return false
		}
		s.rec.Counts[b] = n
	}
	return true
}

func (s *baseStrandTSVScanner) Record() *Record {
	return &s.rec
}

func (s *baseStrandTSVScanner) Err() error {
	return s.err
}

func (s *baseStrandTSVScanner) Close() error {
	return nil
}
