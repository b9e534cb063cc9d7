package preview

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"bookview/common"
	"bookview/kvstore"
	"bookview/session"
)

type file struct {
	name, content string
}

func makePackage(t *testing.T, files ...file) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(f.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func xhtml(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>T</title><style>p{}</style></head><body>` + body + `</body></html>`
}

// tinyMetrics make every surface pixel a glyph.
func tinyMetrics() Metrics {
	return Metrics{CharWidth: 1, LineHeight: 1, SpreadMinWidth: 20}
}

func renderBook(t *testing.T, surface session.Surface, files ...file) *Book {
	t.Helper()
	doc := &session.Document{Name: "test.epub", Hash: "h", Data: makePackage(t, files...)}
	r, err := NewRenderer(tinyMetrics(), zaptest.NewLogger(t)).Render(context.Background(), doc, surface, common.FlowModePaginated)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return r.(*Book)
}

// twoChapters has 25 and 5 runes of text.
func twoChapters() []file {
	return []file{
		{"mimetype", "application/epub+zip"},
		{"OEBPS/ch10.xhtml", xhtml("<p>vwxyz</p>")},
		{"OEBPS/ch2.xhtml", xhtml("<p>abcdefghij<em>klmnopqrst</em>uvwxy</p><script>var x = 1;</script>")},
		{"OEBPS/styles.css", "p { margin: 0 }"},
		{"OEBPS/empty.xhtml", xhtml("<p>   </p>")},
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", xhtml("<p>Hello</p><p>world</p>"), "Hello world"},
		{"whitespace", xhtml("<p>  a \n\t b  </p>"), "a b"},
		{"entities", xhtml("<p>Tom &amp; Jerry</p>"), "Tom & Jerry"},
		{"decomposed", xhtml("<p>Cafe\u0301</p>"), "Caf\u00e9"},
		{"script and style", xhtml("<p>a</p><script>alert(1)</script><style>p{}</style><p>b</p>"), "a b"},
		{"line breaks", xhtml("one<br/>two"), "one two"},
		{"inline", xhtml("<p>in<em>line</em></p>"), "inline"},
		{"title dropped", xhtml(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText([]byte(tt.in))
			if err != nil {
				t.Fatalf("extractText() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("extractText() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestExtractText_LegacyEncoding(t *testing.T) {
	// "Привет" in windows-1251
	in := []byte(`<html><head><meta charset="windows-1251"></head><body><p>` + "\xcf\xf0\xe8\xe2\xe5\xf2" + `</p></body></html>`)
	got, err := extractText(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Привет" {
		t.Errorf("extractText() = %q", string(got))
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text")},
		{"no content", makePackage(t, file{"mimetype", "application/epub+zip"}, file{"a.css", "p{}"})},
		{"only empty content", makePackage(t, file{"a.xhtml", xhtml("")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &session.Document{Name: "x.epub", Data: tt.data}
			_, err := NewRenderer(DefaultMetrics(), zaptest.NewLogger(t)).Render(context.Background(), doc, session.Surface{}, common.FlowModePaginated)
			if !errors.Is(err, session.ErrDecode) {
				t.Errorf("Render() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestBook_GenerateLocations(t *testing.T) {
	ctx := context.Background()
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)

	want := []session.Locator{"OEBPS/ch2.xhtml#0", "OEBPS/ch2.xhtml#10", "OEBPS/ch2.xhtml#20", "OEBPS/ch10.xhtml#0"}
	got, err := b.GenerateLocations(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("GenerateLocations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GenerateLocations()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// surface does not matter
	if err := b.Resize(3, 3); err != nil {
		t.Fatal(err)
	}
	again, _ := b.GenerateLocations(ctx, 10)
	if strings.Join(locStrings(again), ",") != strings.Join(locStrings(got), ",") {
		t.Errorf("locations depend on surface: %v", again)
	}

	if _, err := b.GenerateLocations(ctx, 0); err == nil {
		t.Error("GenerateLocations(0) succeeded")
	}
}

func TestRender_SpineOrder(t *testing.T) {
	container := `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`
	opf := `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="a" href="ch10.xhtml" media-type="application/xhtml+xml"/>
    <item id="b" href="ch2.xhtml#start" media-type="application/xhtml+xml"/>
    <item id="gone" href="missing.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="a"/><itemref idref="gone"/><itemref idref="b"/></spine>
</package>`

	tests := []struct {
		name  string
		extra []file
		want  []session.Locator
	}{
		{
			name:  "spine",
			extra: []file{{"META-INF/container.xml", container}, {"OEBPS/content.opf", opf}},
			want:  []session.Locator{"OEBPS/ch10.xhtml#0", "OEBPS/ch2.xhtml#0", "OEBPS/ch2.xhtml#10", "OEBPS/ch2.xhtml#20"},
		},
		{
			name:  "missing package document",
			extra: []file{{"META-INF/container.xml", container}},
			want:  []session.Locator{"OEBPS/ch2.xhtml#0", "OEBPS/ch2.xhtml#10", "OEBPS/ch2.xhtml#20", "OEBPS/ch10.xhtml#0"},
		},
		{
			name:  "broken container",
			extra: []file{{"META-INF/container.xml", "<container"}, {"OEBPS/content.opf", opf}},
			want:  []session.Locator{"OEBPS/ch2.xhtml#0", "OEBPS/ch2.xhtml#10", "OEBPS/ch2.xhtml#20", "OEBPS/ch10.xhtml#0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := renderBook(t, session.Surface{Width: 10, Height: 1}, append(twoChapters(), tt.extra...)...)
			got, err := b.GenerateLocations(context.Background(), 10)
			if err != nil {
				t.Fatal(err)
			}
			if g, w := strings.Join(locStrings(got), ","), strings.Join(locStrings(tt.want), ","); g != w {
				t.Errorf("GenerateLocations() = %s, want %s", g, w)
			}
		})
	}
}

func TestBook_TOC(t *testing.T) {
	container := file{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf"/></rootfiles>
</container>`}
	opf := func(manifest string) file {
		return file{"OEBPS/content.opf", `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="c2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c10" href="ch10.xhtml" media-type="application/xhtml+xml"/>
    ` + manifest + `
  </manifest>
  <spine toc="ncx"><itemref idref="c2"/><itemref idref="c10"/></spine>
</package>`}
	}
	nav := file{"OEBPS/nav/nav.xhtml", `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="landmarks"><ol><li><a href="../ch10.xhtml">Landmark</a></li></ol></nav>
  <nav epub:type="toc"><ol>
    <li><a href="../ch2.xhtml#p1">Part <span>one</span></a>
      <ol><li><a href="../ch10.xhtml">Chapter
        ten</a></li></ol>
    </li>
    <li><a href="../styles.css">Not readable</a></li>
  </ol></nav>
</body></html>`}
	ncx := file{"OEBPS/toc.ncx", `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>
  <navPoint id="a"><navLabel><text>First</text></navLabel><content src="ch2.xhtml"/>
    <navPoint id="b"><navLabel><text>Nested</text></navLabel><content src="ch10.xhtml#x"/></navPoint>
  </navPoint>
  <navPoint id="c"><navLabel><text>Gone</text></navLabel><content src="missing.xhtml"/></navPoint>
</navMap></ncx>`}

	tests := []struct {
		name  string
		extra []file
		want  []session.TOCEntry
	}{
		{
			name:  "nav document",
			extra: []file{container, opf(`<item id="nav" href="nav/nav.xhtml" properties="nav" media-type="application/xhtml+xml"/><item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`), nav, ncx},
			want: []session.TOCEntry{
				{Label: "Part one", Locator: "OEBPS/ch2.xhtml#0", Level: 0},
				{Label: "Chapter ten", Locator: "OEBPS/ch10.xhtml#0", Level: 1},
			},
		},
		{
			name:  "ncx",
			extra: []file{container, opf(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`), ncx},
			want: []session.TOCEntry{
				{Label: "First", Locator: "OEBPS/ch2.xhtml#0", Level: 0},
				{Label: "Nested", Locator: "OEBPS/ch10.xhtml#0", Level: 1},
			},
		},
		{
			name:  "nav missing falls back to ncx",
			extra: []file{container, opf(`<item id="nav" href="nav/nav.xhtml" properties="nav"/><item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`), ncx},
			want: []session.TOCEntry{
				{Label: "First", Locator: "OEBPS/ch2.xhtml#0", Level: 0},
				{Label: "Nested", Locator: "OEBPS/ch10.xhtml#0", Level: 1},
			},
		},
		{
			name:  "no package document",
			extra: nil,
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := renderBook(t, session.Surface{Width: 10, Height: 1}, append(twoChapters(), tt.extra...)...)
			got := b.TOC()
			if len(got) != len(tt.want) {
				t.Fatalf("TOC() = %+v, want %+v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("TOC()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func locStrings(locs []session.Locator) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = string(l)
	}
	return out
}

func TestBook_Paging(t *testing.T) {
	ctx := context.Background()
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)

	var relocations []session.Locator
	cancel := b.OnRelocated(func(l session.Locator) { relocations = append(relocations, l) })
	defer cancel()

	if err := b.Display(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if loc, text := b.Screen(); loc != "OEBPS/ch2.xhtml#0" || text != "abcdefghij" {
		t.Errorf("Screen() = %s %q", loc, text)
	}

	for range 5 {
		if err := b.Next(ctx); err != nil {
			t.Fatal(err)
		}
	}
	for range 2 {
		if err := b.Prev(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Prev(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Prev(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Prev(ctx); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"OEBPS/ch2.xhtml#0",
		"OEBPS/ch2.xhtml#10",
		"OEBPS/ch2.xhtml#20",
		"OEBPS/ch10.xhtml#0",
		// next on the last screen and prev on the first one do not relocate
		"OEBPS/ch2.xhtml#20",
		"OEBPS/ch2.xhtml#10",
		"OEBPS/ch2.xhtml#0",
	}
	if got := strings.Join(locStrings(relocations), ","); got != strings.Join(want, ",") {
		t.Errorf("relocations = %s\nwant %s", got, strings.Join(want, ","))
	}
}

func TestBook_DisplayExact(t *testing.T) {
	ctx := context.Background()
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)

	if err := b.Display(ctx, "OEBPS/ch2.xhtml#13"); err != nil {
		t.Fatal(err)
	}
	if loc, text := b.Screen(); loc != "OEBPS/ch2.xhtml#13" || text != "nopqrstuvw" {
		t.Errorf("Screen() = %s %q", loc, text)
	}

	for _, bad := range []session.Locator{"nowhere", "OEBPS/none.xhtml#0", "OEBPS/ch2.xhtml#99", "OEBPS/ch2.xhtml#-1", "OEBPS/ch2.xhtml#x"} {
		if err := b.Display(ctx, bad); err == nil {
			t.Errorf("Display(%s) succeeded", bad)
		}
	}
	if loc, _ := b.Screen(); loc != "OEBPS/ch2.xhtml#13" {
		t.Errorf("failed display moved position to %s", loc)
	}
}

func TestBook_SpreadDoublesScreen(t *testing.T) {
	ctx := context.Background()
	b := renderBook(t, session.Surface{Width: 20, Height: 1}, file{"a.xhtml", xhtml("<p>" + strings.Repeat("x", 100) + "</p>")})

	if err := b.Spread(common.SpreadModeAuto); err != nil {
		t.Fatal(err)
	}
	_ = b.Display(ctx, "")
	_ = b.Next(ctx)
	if loc, _ := b.Screen(); loc != "a.xhtml#40" {
		t.Errorf("paginated spread: %s, want a.xhtml#40", loc)
	}

	if err := b.Flow(common.FlowModeScrolled); err != nil {
		t.Fatal(err)
	}
	_ = b.Next(ctx)
	if loc, _ := b.Screen(); loc != "a.xhtml#60" {
		t.Errorf("scrolled: %s, want a.xhtml#60", loc)
	}

	if err := b.Flow("sideways"); err == nil {
		t.Error("Flow(sideways) succeeded")
	}
	if err := b.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) succeeded")
	}
}

func TestBook_Compare(t *testing.T) {
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)
	tests := []struct {
		x, y session.Locator
		sign int
	}{
		{"OEBPS/ch2.xhtml#0", "OEBPS/ch2.xhtml#10", -1},
		{"OEBPS/ch2.xhtml#20", "OEBPS/ch10.xhtml#0", -1},
		{"OEBPS/ch10.xhtml#3", "OEBPS/ch10.xhtml#3", 0},
		{"OEBPS/ch10.xhtml#0", "OEBPS/ch2.xhtml#24", 1},
		{"broken", "OEBPS/ch2.xhtml#0", 1},
	}
	for _, tt := range tests {
		got := b.Compare(tt.x, tt.y)
		if (got < 0 && tt.sign >= 0) || (got > 0 && tt.sign <= 0) || (got == 0 && tt.sign != 0) {
			t.Errorf("Compare(%s, %s) = %d, want sign %d", tt.x, tt.y, got, tt.sign)
		}
	}
}

func TestBook_ForeignLocators(t *testing.T) {
	ctx := context.Background()
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)
	x := session.NewLocationIndex("", 5, b, kvstore.NewMemory(), zaptest.NewLogger(t))
	if total, err := x.Ensure(ctx); err != nil || total != 6 {
		t.Fatalf("Ensure() = %d, %v", total, err)
	}

	for _, loc := range []session.Locator{"not-in-this-book#0", "OEBPS/ch2.xhtml#999", "OEBPS/ch2.xhtml", "OEBPS/ch3.xhtml#0"} {
		if b.Contains(loc) {
			t.Errorf("Contains(%s) = true", loc)
		}
		if p, ok := x.PageOf(loc); ok {
			t.Errorf("PageOf(%s) = %d, want unresolved", loc, p)
		}
	}
	if p, ok := x.PageOf("OEBPS/ch2.xhtml#7"); !ok || p != 1 {
		t.Errorf("PageOf(OEBPS/ch2.xhtml#7) = %d, %v, want 1", p, ok)
	}
}

func TestBook_Destroy(t *testing.T) {
	b := renderBook(t, session.Surface{Width: 10, Height: 1}, twoChapters()...)
	if err := b.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := b.Display(context.Background(), ""); err == nil {
		t.Error("Display() after Destroy() succeeded")
	}
	if err := b.Destroy(); err == nil {
		t.Error("second Destroy() succeeded")
	}
}

func TestSessionOverPreview(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	doc := &session.Document{Name: "test.epub", Hash: "preview", Data: makePackage(t, twoChapters()...)}
	opts := session.DefaultOptions()
	opts.Budget = 10
	opts.Surface = session.Surface{Width: 10, Height: 1}

	s, err := session.Open(ctx, doc, NewRenderer(tinyMetrics(), zaptest.NewLogger(t)), store, opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	total, err := s.WaitIndexed(ctx)
	if err != nil || total != 4 {
		t.Fatalf("WaitIndexed() = %d, %v", total, err)
	}
	if err := s.Dispatch(ctx, session.GotoLocatorIntent("OEBPS/ch2.xhtml#15")); err != nil {
		t.Fatal(err)
	}
	// inside second page
	if s.TopBar().Current() != 2 {
		t.Errorf("Current() = %d, want 2", s.TopBar().Current())
	}
	if err := s.Dispatch(ctx, session.GotoPageIntent(4)); err != nil {
		t.Fatal(err)
	}
	if s.Position() != "OEBPS/ch10.xhtml#0" {
		t.Errorf("Position() = %s", s.Position())
	}
	if v, _, _ := store.Get(ctx, kvstore.CurrentLocationKey("preview")); v != "OEBPS/ch10.xhtml#0" {
		t.Errorf("persisted position = %q", v)
	}
}
