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
// Package hetcall drives per-sample heterozygosity analysis: it classifies
// every site of a counts file at one or more calling thresholds, scans the
// calls for runs of homozygosity in all-heterozygote and transversion-only
// modes, and writes the per-site calls, runs, and summaries.
//
// Each (sample, threshold) pair is an independent job.  Within a job a single
// pass over the input serves every ROH minimum.
package hetcall
