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
/*
bio-hetcall classifies each site of a per-site A/C/G/T depth file as
homozygous, heterozygous, or unknown, and scans the calls for runs of
homozygosity (ROH) using sliding windows of sites.  Runs are reported twice:
once counting every heterozygous site, and once counting only
transversion-type heterozygous sites.

The input is ANGSD "-dumpCounts 4" output (-format=counts, the default), or
bio-pileup basestrand output (-format=basestrand-tsv or basestrand-rio).
Inputs and outputs may be local paths or s3:// URLs.

For each sample and calling threshold T, "run" writes the following to
-outdir:

	<prefix>.t<T>.basecalls.tsv              per-site counts and calls
	<prefix>.t<T>.<mode>.roh<M>.runs.tsv     one line per run, per ROH minimum M
	<prefix>.t<T>.<mode>.roh<M>.summary.tsv  heterozygosity and ROH totals
	<prefix>.t<T>.minorfreq.tsv              heterozygous sites by minor allele frequency

where <mode> is "all" or "tv".

Sample usage:
bio-hetcall run \
    -t 0.05 -t 0.1 \
    -roh-min 0.2 \
    -outdir results \
    sample1.counts.gz sample2.counts.gz

bio-hetcall classify -t 0.05 sample1.counts.gz > sample1.basecalls.tsv
*/
package main
