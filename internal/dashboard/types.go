// Package dashboard turns LTD Keeper product, edition and build records into
// the view models and HTML pages of the edition and build dashboards.
package dashboard

import "time"

// Product is a documentation project as served by the Keeper API.
type Product struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	DocRepo      string `json:"doc_repo"`
	PublishedURL string `json:"published_url"`
	BucketName   string `json:"bucket_name"`
	SurrogateKey string `json:"surrogate_key"`
	Domain       string `json:"domain,omitempty"`
	SelfURL      string `json:"self_url,omitempty"`
}

// Edition is a published, named view of a product's documentation.
// A nil TrackedRefs means the edition is not tracked by git ref.
type Edition struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	TrackedRefs  []string `json:"tracked_refs"`
	DateCreated  string   `json:"date_created,omitempty"`
	DateRebuilt  string   `json:"date_rebuilt"`
	PublishedURL string   `json:"published_url,omitempty"`
	SelfURL      string   `json:"self_url,omitempty"`
	BuildURL     string   `json:"build_url,omitempty"`
	SurrogateKey string   `json:"surrogate_key,omitempty"`
}

// Build is a single uploaded documentation build.
type Build struct {
	Slug         string   `json:"slug"`
	GitRefs      []string `json:"git_refs"`
	DateCreated  string   `json:"date_created"`
	PublishedURL string   `json:"published_url,omitempty"`
	SelfURL      string   `json:"self_url,omitempty"`
	SurrogateKey string   `json:"surrogate_key,omitempty"`
	Uploaded     bool     `json:"uploaded,omitempty"`
}

// Dataset bundles everything the dashboards need for one product.
// Editions and Builds are keyed by slug.
type Dataset struct {
	Product  Product
	Editions map[string]Edition
	Builds   map[string]Build
}

// ProductView is a Product decorated with presentation fields. The embedded
// Product carries the normalized title.
type ProductView struct {
	Product
	GitHubHandle   string
	CIURL          string
	CIPlatformName string
	DocHandle      string
	SeriesName     string
}

// RefLinks are the links derived from the first git ref of an edition or build.
type RefLinks struct {
	GitHubRefURL   string
	JiraURL        string
	JiraTicketName string
}

// EditionView is an Edition decorated with presentation fields.
type EditionView struct {
	Edition
	RefLinks
	DatetimeRebuilt time.Time
	Age             time.Duration
	IsRelease       bool
	AltTitle        string
}

// BuildView is a Build decorated with presentation fields.
type BuildView struct {
	Build
	RefLinks
	DatetimeCreated time.Time
	Age             time.Duration
}

// EditionGroups partitions edition views for the edition dashboard.
// Development holds every non-release edition; Recents and Stales split it at
// RecentThreshold. Every group is ordered youngest first.
type EditionGroups struct {
	Releases    []EditionView
	Development []EditionView
	Recents     []EditionView
	Stales      []EditionView
}
