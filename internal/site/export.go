// Writes the artifacts consumed by the static site generator.

package site

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ManifestVersion is the format version of Manifest.
const ManifestVersion = 1

// Manifest is the document handed to the static site generator.
type Manifest struct {
	Version int    `json:"version"`
	Site    string `json:"site"`
	BaseURL string `json:"base_url"`
	// Theme is the slug of the active theme, if any.
	Theme string `json:"theme,omitempty"`
	Pages []Page `json:"pages"`
}

// NewManifest expands routes against c and wraps the pages with the site
// metadata.
func NewManifest(name, baseURL, theme string, routes []Route, c Content) (*Manifest, error) {
	pages, err := Expand(routes, c)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Version: ManifestVersion,
		Site:    name,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Theme:   theme,
		Pages:   pages,
	}, nil
}

// ExportJSON writes m as indented JSON.
func ExportJSON(w io.Writer, m *Manifest) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	e.SetEscapeHTML(false)
	return e.Encode(m)
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Sitemap writes a sitemaps.org XML document listing pages.
func Sitemap(w io.Writer, baseURL string, pages []Page) error {
	base := strings.TrimSuffix(baseURL, "/")
	set := urlset{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for i := range pages {
		p := &pages[i]
		u := sitemapURL{
			Loc:        base + p.Path,
			ChangeFreq: p.ChangeFreq,
			Priority:   strconv.FormatFloat(p.Priority, 'f', -1, 64),
		}
		if !p.LastModified.IsZero() {
			u.LastMod = p.LastModified.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	e := xml.NewEncoder(w)
	e.Indent("", "  ")
	if err := e.Encode(set); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Robots writes a robots.txt allowing everything but the back office.
func Robots(w io.Writer, baseURL string) error {
	_, err := fmt.Fprintf(w, "User-agent: *\nDisallow: /admin\nDisallow: /api\n\nSitemap: %s/sitemap.xml\n", strings.TrimSuffix(baseURL, "/"))
	return err
}
