// Package imgrewrite finds <img src="..."> references in rich text, imports
// the referenced images into the content repository and points the text at
// the stored copies.
package imgrewrite

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// Importer stores the asset behind url and returns its repository path.
// ok is false when nothing was imported.
type Importer interface {
	ImportAsset(ctx context.Context, url string) (path string, ok bool)
}

// Replacement records one rewritten src value.
type Replacement struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Report is the outcome of one rewrite pass.
type Report struct {
	Text         string        `json:"text"`
	Replacements []Replacement `json:"replacements"`
	Skipped      int           `json:"skipped"`
}

// Rewriter rewrites image references using an Importer.
type Rewriter struct {
	importer Importer
	logger   *slog.Logger
}

// NewRewriter builds a Rewriter. A nil logger uses slog.Default().
func NewRewriter(importer Importer, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{importer: importer, logger: logger}
}

// Rewrite returns text with every qualifying image src replaced by the
// imported asset path. Only URLs containing include are imported when
// include is non-empty. Malformed tags are left untouched.
func (rw *Rewriter) Rewrite(ctx context.Context, text, include string) string {
	return rw.RewriteWithReport(ctx, text, include).Text
}

// RewriteWithReport is Rewrite plus the list of replacements made and the
// number of image tags that were seen but not rewritten.
func (rw *Rewriter) RewriteWithReport(ctx context.Context, text, include string) Report {
	report := Report{Replacements: []Replacement{}}

	var out strings.Builder
	copied := 0
	cursor := 0
	for {
		i := indexFold(text, "<img", cursor)
		if i < 0 {
			break
		}
		cursor = i + 1

		ref, ok := locateSrc(text, i)
		if !ok {
			rw.logger.Debug("malformed image tag skipped", "offset", ref.tagStart)
			report.Skipped++
			continue
		}

		url := html.UnescapeString(text[ref.quoteStart+1 : ref.quoteEnd])
		if include != "" && !strings.Contains(url, include) {
			report.Skipped++
			continue
		}

		path, imported := rw.importAsset(ctx, url)
		if !imported {
			report.Skipped++
			continue
		}

		out.WriteString(text[copied : ref.quoteStart+1])
		out.WriteString(path)
		copied = ref.quoteEnd
		cursor = ref.quoteEnd
		report.Replacements = append(report.Replacements, Replacement{URL: url, Path: path})
		rw.logger.Debug("image reference rewritten", "url", url, "path", path)
	}

	if len(report.Replacements) == 0 {
		report.Text = text
		return report
	}
	out.WriteString(text[copied:])
	report.Text = out.String()
	return report
}

func (rw *Rewriter) importAsset(ctx context.Context, url string) (string, bool) {
	if rw.importer == nil {
		return "", false
	}
	return rw.importer.ImportAsset(ctx, url)
}

// imageRef locates the quoted src value of one tag.
type imageRef struct {
	tagStart   int
	quoteStart int
	quoteEnd   int
}

// locateSrc finds the first src=" value at or after tagStart. The opening
// quote must sit before the tag's closing '>'.
func locateSrc(text string, tagStart int) (imageRef, bool) {
	ref := imageRef{tagStart: tagStart}

	end := strings.IndexByte(text[tagStart:], '>')
	if end < 0 {
		return ref, false
	}
	end += tagStart

	src := indexFold(text, "src=", tagStart)
	if src < 0 {
		return ref, false
	}

	q1 := strings.IndexByte(text[src:], '"')
	if q1 < 0 {
		return ref, false
	}
	q1 += src
	if q1 >= end {
		return ref, false
	}

	q2 := strings.IndexByte(text[q1+1:], '"')
	if q2 < 0 {
		return ref, false
	}
	ref.quoteStart = q1
	ref.quoteEnd = q2 + q1 + 1
	return ref, true
}

// indexFold returns the index of the first ASCII case-insensitive match of
// needle in s at or after from, or -1.
func indexFold(s, needle string, from int) int {
	for i := from; i+len(needle) <= len(s); i++ {
		if hasPrefixFold(s[i:], needle) {
			return i
		}
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	for j := 0; j < len(prefix); j++ {
		if lowerASCII(s[j]) != lowerASCII(prefix[j]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
