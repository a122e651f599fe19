// Package opengraph reads title and preview image meta tags from a page.
package opengraph

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	httpclient "wizkid-search/internal/common/http"
)

const maxBody = 512 << 10

// Meta holds the preview fields of a page.
type Meta struct {
	Title string
	Image string
}

type Fetcher struct {
	http *httpclient.Client
}

func NewFetcher(http *httpclient.Client) *Fetcher {
	return &Fetcher{http: http}
}

// Fetch downloads pageURL and parses its head. Non-HTML responses return
// an empty Meta.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Meta, error) {
	body, contentType, err := f.http.GetBody(ctx, pageURL, maxBody)
	if err != nil {
		return nil, err
	}
	if contentType != "" && !strings.Contains(contentType, "html") {
		return &Meta{}, nil
	}
	return Parse(body, pageURL), nil
}

// Parse extracts og:/twitter: title and image. Relative image URLs are
// resolved against base.
func Parse(body []byte, base string) *Meta {
	meta := &Meta{}
	var docTitle string
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			return finish(meta, docTitle, base)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "meta":
				key, content := metaAttrs(tok)
				switch key {
				case "og:title":
					meta.Title = content
				case "twitter:title":
					if meta.Title == "" {
						meta.Title = content
					}
				case "og:image", "og:image:url", "og:image:secure_url":
					if meta.Image == "" {
						meta.Image = content
					}
				case "twitter:image", "twitter:image:src":
					if meta.Image == "" {
						meta.Image = content
					}
				}
			case "title":
				inTitle = true
			case "body":
				return finish(meta, docTitle, base)
			}
		case html.TextToken:
			if inTitle && docTitle == "" {
				docTitle = strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			if tn, _ := z.TagName(); string(tn) == "title" {
				inTitle = false
			}
		}
	}
}

func metaAttrs(tok html.Token) (key, content string) {
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}

func finish(meta *Meta, docTitle, base string) *Meta {
	if meta.Title == "" {
		meta.Title = docTitle
	}
	if meta.Image != "" {
		meta.Image = resolve(base, meta.Image)
	}
	return meta
}

func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
