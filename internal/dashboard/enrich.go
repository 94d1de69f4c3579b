package dashboard

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// KeeperTimeLayout is the timestamp format used by the Keeper API.
	KeeperTimeLayout = "2006-01-02T15:04:05Z"

	// JiraBrowseURL prefixes ticket names to form a JIRA link.
	JiraBrowseURL = "https://jira.lsstcorp.org/browse/"

	// CIPlatformName is the display name of the CI service linked from the dashboards.
	CIPlatformName = "GitHub Actions"

	// MainEditionSlug is the slug of the default edition, always shown as a release.
	MainEditionSlug = "main"

	// MainEditionTitle labels the main edition in the releases list.
	MainEditionTitle = "Current"

	// RecentThreshold separates recently updated development editions from stale ones.
	RecentThreshold = 7 * 24 * time.Hour

	githubURLPrefix = "https://github.com/"
	ciURLTemplate   = "https://github.com/%s/actions"
)

// ErrMalformedTimestamp is returned when a Keeper timestamp cannot be parsed.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

var (
	releasePattern = regexp.MustCompile(`^v\d`)
	ticketPattern  = regexp.MustCompile(`^tickets/([A-Z]+-[0-9]+)`)
)

// ParseKeeperTime parses a Keeper API timestamp into a UTC instant.
func ParseKeeperTime(value string) (time.Time, error) {
	t, err := time.Parse(KeeperTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	return t.UTC(), nil
}

// EnrichProduct returns the product decorated with its GitHub, CI and
// document-handle fields and a normalized title.
func EnrichProduct(p Product) ProductView {
	view := ProductView{Product: p}
	view.GitHubHandle = GitHubHandle(p.DocRepo)
	if view.GitHubHandle != "" {
		view.CIURL = fmt.Sprintf(ciURLTemplate, view.GitHubHandle)
		view.CIPlatformName = CIPlatformName
	}
	if series, ok := LookupSeries(p.Slug); ok {
		view.DocHandle = strings.ToUpper(p.Slug)
		view.SeriesName = series.Name
	}
	view.Title = NormalizeTitle(p.Title, view.DocHandle)
	return view
}

// GitHubHandle converts a GitHub repository URL into an owner/repo handle.
// URLs outside github.com yield an empty handle.
func GitHubHandle(repoURL string) string {
	handle, ok := strings.CutPrefix(repoURL, githubURLPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSuffix(handle, ".git")
}

// NormalizeTitle drops a leading document handle from title, then trims
// colons and spaces from both ends.
func NormalizeTitle(title, docHandle string) string {
	if docHandle != "" && strings.HasPrefix(title, docHandle) {
		title = strings.TrimPrefix(title, docHandle)
	}
	return strings.Trim(title, ": ")
}

// IsReleaseSlug reports whether an edition slug names a release.
func IsReleaseSlug(slug string) bool {
	return slug == MainEditionSlug || releasePattern.MatchString(slug)
}

// ResolveRefLinks derives source and ticket links from the first ref in refs.
// Absent or empty refs produce zero links.
func ResolveRefLinks(repoURL string, refs []string) RefLinks {
	if len(refs) == 0 {
		return RefLinks{}
	}
	ref := refs[0]
	links := RefLinks{}
	if repoURL != "" && ref != "" {
		links.GitHubRefURL = strings.TrimSuffix(repoURL, ".git") + "/tree/" + ref
	}
	if m := ticketPattern.FindStringSubmatch(ref); m != nil {
		links.JiraTicketName = m[1]
		links.JiraURL = JiraBrowseURL + m[1]
	}
	return links
}

// EnrichEdition decorates a single edition relative to now.
func EnrichEdition(product Product, e Edition, now time.Time) (EditionView, error) {
	rebuilt, err := ParseKeeperTime(e.DateRebuilt)
	if err != nil {
		return EditionView{}, fmt.Errorf("edition %s date_rebuilt: %w", e.Slug, err)
	}
	view := EditionView{
		Edition:         e,
		RefLinks:        ResolveRefLinks(product.DocRepo, e.TrackedRefs),
		DatetimeRebuilt: rebuilt,
		Age:             now.Sub(rebuilt),
		IsRelease:       IsReleaseSlug(e.Slug),
	}
	switch {
	case e.Slug == MainEditionSlug:
		view.AltTitle = MainEditionTitle
	case view.IsRelease:
		view.AltTitle = e.Slug
	}
	return view, nil
}

// EnrichBuild decorates a single build relative to now.
func EnrichBuild(product Product, b Build, now time.Time) (BuildView, error) {
	created, err := ParseKeeperTime(b.DateCreated)
	if err != nil {
		return BuildView{}, fmt.Errorf("build %s date_created: %w", b.Slug, err)
	}
	return BuildView{
		Build:           b,
		RefLinks:        ResolveRefLinks(product.DocRepo, b.GitRefs),
		DatetimeCreated: created,
		Age:             now.Sub(created),
	}, nil
}

// EnrichEditions decorates every edition in the mapping.
func EnrichEditions(product Product, editions map[string]Edition, now time.Time) (map[string]EditionView, error) {
	out := make(map[string]EditionView, len(editions))
	for slug, e := range editions {
		view, err := EnrichEdition(product, e, now)
		if err != nil {
			return nil, err
		}
		out[slug] = view
	}
	return out, nil
}

// EnrichBuilds decorates every build in the mapping.
func EnrichBuilds(product Product, builds map[string]Build, now time.Time) (map[string]BuildView, error) {
	out := make(map[string]BuildView, len(builds))
	for slug, b := range builds {
		view, err := EnrichBuild(product, b, now)
		if err != nil {
			return nil, err
		}
		out[slug] = view
	}
	return out, nil
}

// PartitionEditions splits editions into releases and development editions,
// the latter further bucketed by RecentThreshold.
func PartitionEditions(editions map[string]EditionView) EditionGroups {
	var groups EditionGroups
	for _, e := range editions {
		if e.IsRelease {
			groups.Releases = append(groups.Releases, e)
			continue
		}
		groups.Development = append(groups.Development, e)
		if e.Age <= RecentThreshold {
			groups.Recents = append(groups.Recents, e)
		} else {
			groups.Stales = append(groups.Stales, e)
		}
	}
	sortEditions(groups.Releases)
	sortEditions(groups.Development)
	sortEditions(groups.Recents)
	sortEditions(groups.Stales)
	return groups
}

// SortedBuilds returns the builds ordered youngest first.
func SortedBuilds(builds map[string]BuildView) []BuildView {
	out := make([]BuildView, 0, len(builds))
	for _, b := range builds {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Age != out[j].Age {
			return out[i].Age < out[j].Age
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func sortEditions(editions []EditionView) {
	sort.SliceStable(editions, func(i, j int) bool {
		if editions[i].Age != editions[j].Age {
			return editions[i].Age < editions[j].Age
		}
		return editions[i].Slug < editions[j].Slug
	})
}
