package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2017, time.February, 1, 12, 0, 0, 0, time.UTC)

func testProduct() Product {
	return Product{
		Slug:         "developer",
		Title:        "DM Developer Guide",
		DocRepo:      "https://github.com/lsst-dm/dm_dev_guide.git",
		PublishedURL: "https://developer.lsst.io",
		BucketName:   "lsst-the-docs",
		SurrogateKey: "abc123",
	}
}

func TestParseKeeperTime(t *testing.T) {
	t.Parallel()

	got, err := ParseKeeperTime("2017-01-27T20:45:04Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2017, time.January, 27, 20, 45, 4, 0, time.UTC), got)

	for _, bad := range []string{"", "2017-01-27", "2017-01-27 20:45:04", "2017-01-27T20:45:04+00:00"} {
		_, err := ParseKeeperTime(bad)
		require.Error(t, err, bad)
		require.True(t, errors.Is(err, ErrMalformedTimestamp), bad)
	}
}

func TestEnrichProduct_DocHandle(t *testing.T) {
	t.Parallel()

	view := EnrichProduct(Product{Slug: "sqr-000", Title: "SQR-000: This is the real title"})

	require.Equal(t, "SQR-000", view.DocHandle)
	require.Equal(t, "SQuaRE Technical Note", view.SeriesName)
	require.Equal(t, "This is the real title", view.Title)
}

func TestEnrichProduct_NoHandle(t *testing.T) {
	t.Parallel()

	view := EnrichProduct(testProduct())

	require.Empty(t, view.DocHandle)
	require.Empty(t, view.SeriesName)
	require.Equal(t, "DM Developer Guide", view.Title)
	require.Equal(t, "lsst-dm/dm_dev_guide", view.GitHubHandle)
	require.Equal(t, "https://github.com/lsst-dm/dm_dev_guide/actions", view.CIURL)
	require.Equal(t, CIPlatformName, view.CIPlatformName)
}

func TestEnrichProduct_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	p := Product{Slug: "dmtn-042", Title: "DMTN-042: Something"}
	view := EnrichProduct(p)

	require.Equal(t, "Something", view.Title)
	require.Equal(t, "DMTN-042: Something", p.Title)
}

func TestEnrichProduct_Idempotent(t *testing.T) {
	t.Parallel()

	first := EnrichProduct(Product{Slug: "ldm-151", Title: "LDM-151: Science Pipelines Design"})
	second := EnrichProduct(first.Product)

	require.Equal(t, first, second)
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		title  string
		handle string
		want   string
	}{
		{name: "handle prefix removed", title: "SQR-000: Title", handle: "SQR-000", want: "Title"},
		{name: "mismatched handle", title: "SQR-001 Starts with an S", handle: "SQR-000", want: "SQR-001 Starts with an S"},
		{name: "no handle still trims", title: " : Padded title: ", handle: "", want: "Padded title"},
		{name: "handle only", title: "SQR-000", handle: "SQR-000", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeTitle(tc.title, tc.handle))
		})
	}
}

func TestLookupSeries(t *testing.T) {
	t.Parallel()

	for _, s := range KnownSeries {
		got, ok := LookupSeries(s.Prefix + "-12")
		require.True(t, ok, s.Prefix)
		require.Equal(t, s, got)
	}
	for _, slug := range []string{"developer", "sqr", "sqr-", "sqr-1a", "xsqr-000", "SQR-000", "pipelines"} {
		_, ok := LookupSeries(slug)
		require.False(t, ok, slug)
	}
}

func TestEnrichEdition_ReleaseClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug     string
		release  bool
		altTitle string
	}{
		{slug: "main", release: true, altTitle: "Current"},
		{slug: "v1", release: true, altTitle: "v1"},
		{slug: "v2.3", release: true, altTitle: "v2.3"},
		{slug: "v", release: false},
		{slug: "version-a", release: false},
		{slug: "DM-8995", release: false},
		{slug: "master", release: false},
	}
	for _, tc := range tests {
		t.Run(tc.slug, func(t *testing.T) {
			t.Parallel()
			view, err := EnrichEdition(testProduct(), Edition{
				Slug:        tc.slug,
				Title:       tc.slug,
				DateRebuilt: "2017-01-27T20:45:04Z",
			}, testNow)
			require.NoError(t, err)
			require.Equal(t, tc.release, view.IsRelease)
			require.Equal(t, tc.altTitle, view.AltTitle)
		})
	}
}

func TestEnrichEdition_TicketLinks(t *testing.T) {
	t.Parallel()

	view, err := EnrichEdition(testProduct(), Edition{
		Slug:        "DM-8995",
		TrackedRefs: []string{"tickets/DM-8995"},
		DateRebuilt: "2017-01-27T20:45:04Z",
	}, testNow)
	require.NoError(t, err)

	require.Equal(t, "DM-8995", view.JiraTicketName)
	require.Equal(t, "https://jira.lsstcorp.org/browse/DM-8995", view.JiraURL)
	require.Equal(t, "https://github.com/lsst-dm/dm_dev_guide/tree/tickets/DM-8995", view.GitHubRefURL)
	require.Equal(t, time.Date(2017, time.January, 27, 20, 45, 4, 0, time.UTC), view.DatetimeRebuilt)
	require.Equal(t, testNow.Sub(view.DatetimeRebuilt), view.Age)
}

func TestEnrichEdition_AbsentAndEmptyRefs(t *testing.T) {
	t.Parallel()

	for name, refs := range map[string][]string{"absent": nil, "empty": {}} {
		view, err := EnrichEdition(testProduct(), Edition{
			Slug:        "lsst-sqre",
			TrackedRefs: refs,
			DateRebuilt: "2017-01-27T20:45:04Z",
		}, testNow)
		require.NoError(t, err, name)
		require.Equal(t, RefLinks{}, view.RefLinks, name)
	}
}

func TestEnrichEdition_NonTicketBranch(t *testing.T) {
	t.Parallel()

	view, err := EnrichEdition(testProduct(), Edition{
		Slug:        "main",
		TrackedRefs: []string{"main"},
		DateRebuilt: "2017-01-27T20:45:04Z",
	}, testNow)
	require.NoError(t, err)
	require.Empty(t, view.JiraURL)
	require.Empty(t, view.JiraTicketName)
	require.Equal(t, "https://github.com/lsst-dm/dm_dev_guide/tree/main", view.GitHubRefURL)
}

func TestEnrichEdition_MalformedTimestamp(t *testing.T) {
	t.Parallel()

	_, err := EnrichEdition(testProduct(), Edition{Slug: "main", DateRebuilt: "yesterday"}, testNow)
	require.ErrorIs(t, err, ErrMalformedTimestamp)
}

func TestEnrichEdition_Idempotent(t *testing.T) {
	t.Parallel()

	e := Edition{Slug: "DM-1", TrackedRefs: []string{"tickets/DM-1"}, DateRebuilt: "2017-01-30T00:00:00Z"}
	first, err := EnrichEdition(testProduct(), e, testNow)
	require.NoError(t, err)
	second, err := EnrichEdition(testProduct(), first.Edition, testNow)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnrichBuild(t *testing.T) {
	t.Parallel()

	view, err := EnrichBuild(testProduct(), Build{
		Slug:        "1278",
		GitRefs:     []string{"tickets/DM-8995"},
		DateCreated: "2017-01-27T20:43:55Z",
	}, testNow)
	require.NoError(t, err)
	require.Equal(t, "DM-8995", view.JiraTicketName)
	require.Equal(t, testNow.Sub(view.DatetimeCreated), view.Age)

	_, err = EnrichBuild(testProduct(), Build{Slug: "1", DateCreated: "nope"}, testNow)
	require.ErrorIs(t, err, ErrMalformedTimestamp)
}

func TestEnrichEditions_PropagatesError(t *testing.T) {
	t.Parallel()

	_, err := EnrichEditions(testProduct(), map[string]Edition{
		"main": {Slug: "main", DateRebuilt: "2017-01-27T20:45:04Z"},
		"bad":  {Slug: "bad", DateRebuilt: "bad"},
	}, testNow)
	require.ErrorIs(t, err, ErrMalformedTimestamp)
}

func TestPartitionEditions(t *testing.T) {
	t.Parallel()

	editions := map[string]Edition{
		"main":    {Slug: "main", DateRebuilt: "2017-01-31T00:00:00Z"},
		"v1":      {Slug: "v1", DateRebuilt: "2016-06-01T00:00:00Z"},
		"v2":      {Slug: "v2", DateRebuilt: "2016-12-01T00:00:00Z"},
		"DM-1":    {Slug: "DM-1", DateRebuilt: "2017-01-30T00:00:00Z"},
		"DM-2":    {Slug: "DM-2", DateRebuilt: "2017-01-31T06:00:00Z"},
		"DM-old":  {Slug: "DM-old", DateRebuilt: "2016-01-01T00:00:00Z"},
		"feature": {Slug: "feature", DateRebuilt: "2017-01-10T00:00:00Z"},
	}
	views, err := EnrichEditions(testProduct(), editions, testNow)
	require.NoError(t, err)

	groups := PartitionEditions(views)

	require.Equal(t, []string{"main", "v2", "v1"}, editionSlugs(groups.Releases))
	require.Equal(t, []string{"DM-2", "DM-1", "feature", "DM-old"}, editionSlugs(groups.Development))
	require.Equal(t, []string{"DM-2", "DM-1"}, editionSlugs(groups.Recents))
	require.Equal(t, []string{"feature", "DM-old"}, editionSlugs(groups.Stales))
}

func TestSortedBuilds(t *testing.T) {
	t.Parallel()

	builds := map[string]Build{
		"1": {Slug: "1", DateCreated: "2017-01-01T00:00:00Z"},
		"3": {Slug: "3", DateCreated: "2017-01-30T00:00:00Z"},
		"2": {Slug: "2", DateCreated: "2017-01-15T00:00:00Z"},
	}
	views, err := EnrichBuilds(testProduct(), builds, testNow)
	require.NoError(t, err)

	sorted := SortedBuilds(views)
	slugs := make([]string, 0, len(sorted))
	for _, b := range sorted {
		slugs = append(slugs, b.Slug)
	}
	require.Equal(t, []string{"3", "2", "1"}, slugs)
}

func editionSlugs(views []EditionView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Slug)
	}
	return out
}
