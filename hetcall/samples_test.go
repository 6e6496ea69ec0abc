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
package hetcall_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hetcall/hetcall"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestDefaultPrefix(t *testing.T) {
	for _, test := range []struct {
		path, prefix string
	}{
		{"sample1.counts.gz", "sample1"},
		{"/data/sample1.counts", "sample1"},
		{"s3://bucket/dir/NA12878.basestrand.rio", "NA12878"},
		{"a.b.c.tsv.zst", "a.b.c"},
		{"plain", "plain"},
		{".hidden", ".hidden"},
	} {
		expect.EQ(t, hetcall.DefaultPrefix(test.path), test.prefix)
	}
}

func TestReadSampleList(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "samples.txt")
	assert.NoError(t, ioutil.WriteFile(path, []byte(`# path [prefix]
/data/s1.counts.gz

/data/s2.counts.gz   second
	s3://b/s3.basestrand.tsv
`), 0644))
	samples, err := hetcall.ReadSampleList(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, samples, []hetcall.Sample{
		{Path: "/data/s1.counts.gz", Prefix: "s1"},
		{Path: "/data/s2.counts.gz", Prefix: "second"},
		{Path: "s3://b/s3.basestrand.tsv", Prefix: "s3"},
	})

	assert.NoError(t, ioutil.WriteFile(path, []byte("a b c\n"), 0644))
	_, err = hetcall.ReadSampleList(ctx, path)
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "samples.txt:1")

	assert.NoError(t, ioutil.WriteFile(path, []byte("# nothing\n"), 0644))
	_, err = hetcall.ReadSampleList(ctx, path)
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "empty sample list")
}

func TestReadFloatList(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "thresholds.txt")
	assert.NoError(t, ioutil.WriteFile(path, []byte("0.01\n0.05\n\n# tuned\n0.1\n"), 0644))
	vals, err := hetcall.ReadFloatList(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, vals, []float64{0.01, 0.05, 0.1})

	for _, test := range []struct {
		data, substr string
	}{
		{"0.1\nabc\n", "thresholds.txt:2"},
		{"0.1 0.2\n", "one value per line"},
		{"\n", "empty list"},
	} {
		assert.NoError(t, ioutil.WriteFile(path, []byte(test.data), 0644))
		_, err := hetcall.ReadFloatList(ctx, path)
		assert.NotNil(t, err)
		expect.True(t, errors.Is(errors.Invalid, err))
		expect.HasSubstr(t, err.Error(), test.substr)
	}
}

func TestReadStringList(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "contigs.txt")
	assert.NoError(t, ioutil.WriteFile(path, []byte("chr1\n\n# autosomes only\n  chr2\n"), 0644))
	vals, err := hetcall.ReadStringList(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, vals, []string{"chr1", "chr2"})

	assert.NoError(t, ioutil.WriteFile(path, []byte("chr1 chr2\n"), 0644))
	_, err = hetcall.ReadStringList(ctx, path)
	assert.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "contigs.txt:1")
}
