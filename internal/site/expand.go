// Expands the route table into concrete pages.

package site

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/maruel/showroom/internal/content"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Content is the published content routes draw from.
type Content struct {
	Portfolio    []*content.PortfolioItem
	Testimonials []*content.Testimonial
}

// Page is a concrete path the static site generator renders.
type Page struct {
	Path         string         `json:"path"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Component    string         `json:"component"`
	Priority     float64        `json:"priority"`
	ChangeFreq   string         `json:"change_freq"`
	LastModified time.Time      `json:"last_modified,omitzero"`
	Props        map[string]any `json:"props,omitempty"`
}

// PortfolioProps is the props of a portfolio page.
type PortfolioProps struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	HTML     string   `json:"html,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Featured bool     `json:"featured,omitempty"`
}

// TestimonialProps is the props of a testimonial.
type TestimonialProps struct {
	Author    string `json:"author"`
	Role      string `json:"role,omitempty"`
	Company   string `json:"company,omitempty"`
	HTML      string `json:"html"`
	Rating    int    `json:"rating"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Typographer))

// RenderMarkdown converts markdown to HTML. Raw HTML in the input is
// omitted.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Expand turns routes into pages. Drafts are skipped; dynamic routes yield
// one page per published item. Pages are sorted by path and a path produced
// twice is an error.
func Expand(routes []Route, c Content) ([]Page, error) {
	if err := ValidateRoutes(routes); err != nil {
		return nil, err
	}
	portfolio, err := portfolioProps(c.Portfolio)
	if err != nil {
		return nil, err
	}
	testimonials, err := testimonialProps(c.Testimonials)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for i := range routes {
		r := &routes[i]
		base := Page{
			Path:        r.Path,
			Title:       r.Title,
			Description: r.Description,
			Component:   r.Component,
			Priority:    r.Priority,
			ChangeFreq:  r.ChangeFreq,
		}
		if !r.Dynamic() {
			switch r.Source {
			case SourcePortfolio:
				base.Props = map[string]any{"items": summaries(portfolio)}
				base.LastModified = latestPortfolio(c.Portfolio)
			case SourceTestimonials:
				base.Props = map[string]any{"testimonials": testimonials}
			}
			pages = append(pages, base)
			continue
		}
		for j, item := range published(c.Portfolio) {
			p := base
			p.Path = fillParam(r.Path, item.Slug)
			p.Title = item.Title
			if item.Summary != "" {
				p.Description = item.Summary
			}
			p.LastModified = item.Modified
			p.Props = map[string]any{"item": portfolio[j]}
			pages = append(pages, p)
		}
	}
	slices.SortFunc(pages, func(a, b Page) int { return strings.Compare(a.Path, b.Path) })
	for i := 1; i < len(pages); i++ {
		if pages[i].Path == pages[i-1].Path {
			return nil, fmt.Errorf("duplicate page path %s", pages[i].Path)
		}
	}
	return pages, nil
}

func published(items []*content.PortfolioItem) []*content.PortfolioItem {
	var out []*content.PortfolioItem
	for _, p := range items {
		if p.Published {
			out = append(out, p)
		}
	}
	return out
}

func portfolioProps(items []*content.PortfolioItem) ([]PortfolioProps, error) {
	var out []PortfolioProps
	for _, p := range published(items) {
		html, err := RenderMarkdown(p.Body)
		if err != nil {
			return nil, fmt.Errorf("portfolio %s: %w", p.Slug, err)
		}
		out = append(out, PortfolioProps{
			Slug:     p.Slug,
			Title:    p.Title,
			Summary:  p.Summary,
			HTML:     html,
			Tags:     p.Tags,
			ImageURL: p.ImageURL,
			Featured: p.Featured,
		})
	}
	return out, nil
}

// summaries strips the rendered body from listing props.
func summaries(items []PortfolioProps) []PortfolioProps {
	out := slices.Clone(items)
	for i := range out {
		out[i].HTML = ""
	}
	return out
}

func latestPortfolio(items []*content.PortfolioItem) time.Time {
	var t time.Time
	for _, p := range published(items) {
		if p.Modified.After(t) {
			t = p.Modified
		}
	}
	return t
}

func testimonialProps(items []*content.Testimonial) ([]TestimonialProps, error) {
	var out []TestimonialProps
	for _, t := range items {
		if !t.Published {
			continue
		}
		html, err := RenderMarkdown(t.Quote)
		if err != nil {
			return nil, fmt.Errorf("testimonial %s: %w", t.ID, err)
		}
		out = append(out, TestimonialProps{
			Author:    t.Author,
			Role:      t.Role,
			Company:   t.Company,
			HTML:      html,
			Rating:    t.Rating,
			AvatarURL: t.AvatarURL,
		})
	}
	return out, nil
}

func fillParam(pattern, value string) string {
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = value
		}
	}
	return strings.Join(segs, "/")
}
