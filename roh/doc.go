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
Package roh scans a stream of classified sites for runs of homozygosity.

Sites are grouped into sliding windows of a fixed number of sites; each
window's heterozygosity proportion is the fraction of its sites accepted by a
basecall.Predicate.  A run is a maximal sequence of consecutive windows whose
proportion falls below a minimum.  All stages are one-pass and use memory
bounded by the window size, so whole-genome streams can be processed without
materializing the site list.

The same machinery is instantiated once per Mode: over all heterozygous
sites, and over transversion-type heterozygous sites only.
*/
package roh
