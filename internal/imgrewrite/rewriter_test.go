package imgrewrite

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type stubImporter struct {
	paths map[string]string
	calls []string
}

func (s *stubImporter) ImportAsset(ctx context.Context, url string) (string, bool) {
	s.calls = append(s.calls, url)
	path, ok := s.paths[url]
	return path, ok
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRewriter(paths map[string]string) (*Rewriter, *stubImporter) {
	stub := &stubImporter{paths: paths}
	return NewRewriter(stub, quietLogger()), stub
}

func TestRewriteWithoutImageTagsIsIdentity(t *testing.T) {
	rw, stub := newTestRewriter(nil)
	inputs := []string{"", "plain text", "<p>no images <a href=\"x\">here</a></p>", "<im src=\"x\">"}
	for _, in := range inputs {
		if got := rw.Rewrite(context.Background(), in, ""); got != in {
			t.Fatalf("expected identity for %q, got %q", in, got)
		}
	}
	if len(stub.calls) != 0 {
		t.Fatalf("expected no import calls, got %v", stub.calls)
	}
}

func TestRewriteEndToEndExample(t *testing.T) {
	rw, _ := newTestRewriter(map[string]string{
		"http://x/a.png": "/content/usergenerated/tmp/social/images/ID.png",
	})
	got := rw.Rewrite(context.Background(), `The pic <img src="http://x/a.png"> end`, "")
	want := `The pic <img src="/content/usergenerated/tmp/social/images/ID.png"> end`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRewriteSkipsMalformedTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{name: "missing closing quote", in: `a <img src="http://x/a.png> b`},
		{name: "opening quote after tag end", in: `a <img alt=x> src="http://x/a.png" b`},
		{name: "no closing bracket", in: `a <img src="http://x/a.png" b`},
		{name: "no src attribute", in: `a <img alt="x"> b`},
		{name: "unquoted src", in: `a <img src=http://x/a.png> b`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw, stub := newTestRewriter(map[string]string{"http://x/a.png": "/new"})
			report := rw.RewriteWithReport(context.Background(), tc.in, "")
			if report.Text != tc.in {
				t.Fatalf("expected unchanged text, got %q", report.Text)
			}
			if len(stub.calls) != 0 {
				t.Fatalf("expected no import calls, got %v", stub.calls)
			}
			if report.Skipped != 1 {
				t.Fatalf("expected one skipped tag, got %d", report.Skipped)
			}
		})
	}
}

func TestRewriteIncludeFilter(t *testing.T) {
	rw, stub := newTestRewriter(map[string]string{
		"http://cdn.example/a.png":   "/new/a.png",
		"http://other.example/b.png": "/new/b.png",
	})
	in := `<img src="http://cdn.example/a.png"><img src="http://other.example/b.png">`
	got := rw.Rewrite(context.Background(), in, "cdn.example")
	want := `<img src="/new/a.png"><img src="http://other.example/b.png">`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "http://cdn.example/a.png" {
		t.Fatalf("expected only the filtered url to be imported, got %v", stub.calls)
	}
}

func TestRewriteIsCaseInsensitive(t *testing.T) {
	rw, _ := newTestRewriter(map[string]string{"http://x/a.gif": "/new/a.gif"})
	got := rw.Rewrite(context.Background(), `<IMG SRC="http://x/a.gif">`, "")
	if got != `<IMG SRC="/new/a.gif">` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRewriteUnescapesEntities(t *testing.T) {
	rw, stub := newTestRewriter(map[string]string{"http://x/a.png?w=1&h=2": "/new/a.png"})
	got := rw.Rewrite(context.Background(), `<img src="http://x/a.png?w=1&amp;h=2">`, "")
	if got != `<img src="/new/a.png">` {
		t.Fatalf("unexpected output %q", got)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "http://x/a.png?w=1&h=2" {
		t.Fatalf("expected unescaped url, got %v", stub.calls)
	}
}

func TestRewriteMultipleTagsWithLengthChanges(t *testing.T) {
	rw, _ := newTestRewriter(map[string]string{
		"http://example.com/very/long/path/one.png": "/s/1.png",
		"h": "/content/usergenerated/tmp/social/images/two.gif",
	})
	in := `x<img src="http://example.com/very/long/path/one.png" alt="1">y<img class="c" src="h">z`
	want := `x<img src="/s/1.png" alt="1">y<img class="c" src="/content/usergenerated/tmp/social/images/two.gif">z`
	report := rw.RewriteWithReport(context.Background(), in, "")
	if report.Text != want {
		t.Fatalf("expected %q, got %q", want, report.Text)
	}
	if len(report.Replacements) != 2 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if report.Replacements[0].Path != "/s/1.png" || report.Replacements[1].URL != "h" {
		t.Fatalf("unexpected replacement order: %#v", report.Replacements)
	}
}

func TestRewriteLeavesTagWhenImportFails(t *testing.T) {
	rw, stub := newTestRewriter(nil)
	in := `<img src="http://x/missing.png"> after`
	report := rw.RewriteWithReport(context.Background(), in, "")
	if report.Text != in {
		t.Fatalf("expected unchanged text, got %q", report.Text)
	}
	if len(stub.calls) != 1 || report.Skipped != 1 {
		t.Fatalf("expected one failed import, got calls=%v skipped=%d", stub.calls, report.Skipped)
	}
}

func TestRewritePreservesSurroundingBytes(t *testing.T) {
	rw, _ := newTestRewriter(map[string]string{"u": "/p"})
	in := "héllo <img  data-x=\"1\" src=\"u\" /> wörld <img"
	got := rw.Rewrite(context.Background(), in, "")
	want := "héllo <img  data-x=\"1\" src=\"/p\" /> wörld <img"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRewriteTerminatesOnManyUnterminatedTags(t *testing.T) {
	rw, _ := newTestRewriter(nil)
	in := strings.Repeat(`<img src="`, 200)
	if got := rw.Rewrite(context.Background(), in, ""); got != in {
		t.Fatal("expected unchanged text")
	}
}

func TestNilImporterNeverReplaces(t *testing.T) {
	rw := NewRewriter(nil, nil)
	in := `<img src="http://x/a.png">`
	if got := rw.Rewrite(context.Background(), in, ""); got != in {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestIndexFold(t *testing.T) {
	cases := []struct {
		s      string
		needle string
		from   int
		want   int
	}{
		{s: "abc<IMG", needle: "<img", from: 0, want: 3},
		{s: "<img<img", needle: "<img", from: 1, want: 4},
		{s: "<im", needle: "<img", from: 0, want: -1},
		{s: "SrC=", needle: "src=", from: 0, want: 0},
		{s: "src=", needle: "src=", from: 10, want: -1},
	}
	for _, tc := range cases {
		if got := indexFold(tc.s, tc.needle, tc.from); got != tc.want {
			t.Fatalf("indexFold(%q, %q, %d) = %d, want %d", tc.s, tc.needle, tc.from, got, tc.want)
		}
	}
}
