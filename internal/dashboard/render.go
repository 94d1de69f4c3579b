package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"time"
)

// ErrTemplateRender is returned when a dashboard template fails to execute.
var ErrTemplateRender = errors.New("template render failed")

const (
	editionTemplate = "edition_dashboard.html"
	buildTemplate   = "build_dashboard.html"
	indexTemplate   = "dev_index.html"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Assets returns the static assets referenced by the dashboard pages, rooted
// at the assets directory.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(fmt.Sprintf("dashboard assets: %v", err))
	}
	return sub
}

// Renderer executes the dashboard page templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("dashboard").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"simpleDate": SimpleDate,
			"humanAge":   HumanAge,
			"pageHeader": newPageHeader,
		}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

type pageHeader struct {
	Product      ProductView
	AssetBaseURL string
	Title        string
}

func newPageHeader(product ProductView, assetBaseURL, title string) pageHeader {
	return pageHeader{Product: product, AssetBaseURL: assetBaseURL, Title: title}
}

type editionPage struct {
	Product      ProductView
	AssetBaseURL string
	Releases     []EditionView
	Development  []EditionView
	Recents      []EditionView
	Stales       []EditionView
}

type buildPage struct {
	Product      ProductView
	AssetBaseURL string
	Builds       []BuildView
}

// RenderEditionPage renders the editions dashboard.
func (r *Renderer) RenderEditionPage(
	product ProductView,
	editions map[string]EditionView,
	assetBaseURL string,
) (string, error) {
	groups := PartitionEditions(editions)
	return r.execute(editionTemplate, editionPage{
		Product:      product,
		AssetBaseURL: assetBaseURL,
		Releases:     groups.Releases,
		Development:  groups.Development,
		Recents:      groups.Recents,
		Stales:       groups.Stales,
	})
}

// RenderBuildPage renders the builds dashboard.
func (r *Renderer) RenderBuildPage(
	product ProductView,
	builds map[string]BuildView,
	assetBaseURL string,
) (string, error) {
	return r.execute(buildTemplate, buildPage{
		Product:      product,
		AssetBaseURL: assetBaseURL,
		Builds:       SortedBuilds(builds),
	})
}

// RenderIndexPage renders the static index of the development build directory.
func (r *Renderer) RenderIndexPage() (string, error) {
	return r.execute(indexTemplate, nil)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTemplateRender, name, err)
	}
	return buf.String(), nil
}

// SimpleDate formats an instant as YYYY-MM-DD.
func SimpleDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// HumanAge describes an age in the coarsest whole unit.
func HumanAge(age time.Duration) string {
	switch {
	case age < time.Hour:
		return plural(int(age/time.Minute), "minute")
	case age < 24*time.Hour:
		return plural(int(age/time.Hour), "hour")
	default:
		return plural(int(age/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
