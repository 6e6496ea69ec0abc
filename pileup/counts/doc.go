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

// Package counts reads per-site A/C/G/T depth records in the formats produced
// by upstream pileup tools.  Records are streamed one at a time, in input
// order; the input is trusted to be sorted and duplicate-free.
//
// Supported formats:
//   counts          ANGSD -dumpCounts output: an optional "totA totC totG totT"
//                   header, then four whitespace-separated depths per line.
//                   Positions are not available.
//   basestrand-tsv  bio-pileup .basestrand.tsv; strand counts are summed.
//   basestrand-rio  bio-pileup .basestrand.rio; strand counts are summed.
//
// Text formats may be compressed; compression is detected from content.
// NewFilterScanner drops sites by depth or contig before they are consumed.
package counts
