package preview

import (
	"archive/zip"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"golang.org/x/net/html/charset"

	"bookview/archive"
	"bookview/session"
)

const containerPath = "META-INF/container.xml"

// packageDoc is what preview needs from OPF package document.
type packageDoc struct {
	spine []string
	// navigation documents, EPUB 3 nav and EPUB 2 NCX, full archive paths
	nav string
	ncx string
}

func readXML(f *zip.File) (*etree.Document, error) {
	data, err := archive.ReadEntry(f)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", f.FileHeader.Name, err)
	}
	return doc, nil
}

// resolveHref returns archive path of href relative to base directory.
// Fragments and queries do not name files and are dropped.
func resolveHref(base, href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if len(href) == 0 {
		return ""
	}
	return path.Join(base, href)
}

// readPackage locates package document through container and reads its
// manifest and spine. Spine entries missing from the archive are skipped.
func readPackage(files map[string]*zip.File) (*packageDoc, error) {
	cf, ok := files[containerPath]
	if !ok {
		return nil, errors.New("no container")
	}
	container, err := readXML(cf)
	if err != nil {
		return nil, err
	}
	rootfile := container.FindElement("//rootfile")
	if rootfile == nil {
		return nil, errors.New("container has no rootfile")
	}
	opfPath := rootfile.SelectAttrValue("full-path", "")
	of, ok := files[opfPath]
	if !ok {
		return nil, fmt.Errorf("package document %q is missing", opfPath)
	}
	opf, err := readXML(of)
	if err != nil {
		return nil, err
	}

	var (
		pkg   packageDoc
		base  = path.Dir(opfPath)
		hrefs = make(map[string]string)
	)
	for _, item := range opf.FindElements("//manifest/item") {
		id, href := item.SelectAttrValue("id", ""), resolveHref(base, item.SelectAttrValue("href", ""))
		if len(id) == 0 || len(href) == 0 {
			continue
		}
		hrefs[id] = href
		if slices.Contains(strings.Fields(item.SelectAttrValue("properties", "")), "nav") {
			pkg.nav = href
		}
		if item.SelectAttrValue("media-type", "") == "application/x-dtbncx+xml" && len(pkg.ncx) == 0 {
			pkg.ncx = href
		}
	}

	if spine := opf.FindElement("//spine"); spine != nil {
		if href, ok := hrefs[spine.SelectAttrValue("toc", "")]; ok {
			pkg.ncx = href
		}
	}
	for _, ref := range opf.FindElements("//spine/itemref") {
		name, ok := hrefs[ref.SelectAttrValue("idref", "")]
		if !ok {
			continue
		}
		if _, ok := files[name]; ok {
			pkg.spine = append(pkg.spine, name)
		}
	}
	return &pkg, nil
}

// spineOrder returns content documents in the order package spine lists
// them.
func spineOrder(pkg *packageDoc) ([]string, error) {
	if pkg == nil || len(pkg.spine) == 0 {
		return nil, errors.New("spine is empty")
	}
	return pkg.spine, nil
}

// elementText returns all character data under element with whitespace
// collapsed.
func elementText(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
				sb.WriteByte(' ')
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(e)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// tocTarget turns navigation href into locator of the content document
// start. Targets outside of readable content are dropped.
type tocTarget func(base, href string) (session.Locator, bool)

// navTOC reads EPUB 3 navigation document. Nav marked as toc wins, first
// nav otherwise.
func navTOC(f *zip.File, target tocTarget) ([]session.TOCEntry, error) {
	doc, err := readXML(f)
	if err != nil {
		return nil, err
	}
	navs := doc.FindElements("//nav")
	if len(navs) == 0 {
		return nil, errors.New("navigation document has no nav")
	}
	nav := navs[0]
	for _, n := range navs {
		if slices.Contains(strings.Fields(n.SelectAttrValue("epub:type", "")), "toc") {
			nav = n
			break
		}
	}

	base := path.Dir(f.FileHeader.Name)
	var toc []session.TOCEntry
	var walk func(ol *etree.Element, level int)
	walk = func(ol *etree.Element, level int) {
		for _, li := range ol.SelectElements("li") {
			if a := li.SelectElement("a"); a != nil {
				if loc, ok := target(base, a.SelectAttrValue("href", "")); ok {
					toc = append(toc, session.TOCEntry{Label: elementText(a), Locator: loc, Level: level})
				}
			}
			if sub := li.SelectElement("ol"); sub != nil {
				walk(sub, level+1)
			}
		}
	}
	if ol := nav.SelectElement("ol"); ol != nil {
		walk(ol, 0)
	}
	return toc, nil
}

// ncxTOC reads EPUB 2 navigation map.
func ncxTOC(f *zip.File, target tocTarget) ([]session.TOCEntry, error) {
	doc, err := readXML(f)
	if err != nil {
		return nil, err
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return nil, errors.New("ncx has no navMap")
	}

	base := path.Dir(f.FileHeader.Name)
	var toc []session.TOCEntry
	var walk func(parent *etree.Element, level int)
	walk = func(parent *etree.Element, level int) {
		for _, np := range parent.SelectElements("navPoint") {
			if content := np.SelectElement("content"); content != nil {
				if loc, ok := target(base, content.SelectAttrValue("src", "")); ok {
					label := ""
					if text := np.FindElement("navLabel/text"); text != nil {
						label = elementText(text)
					}
					toc = append(toc, session.TOCEntry{Label: label, Locator: loc, Level: level})
				}
			}
			walk(np, level+1)
		}
	}
	walk(navMap, 0)
	return toc, nil
}

// tableOfContents prefers EPUB 3 navigation over NCX.
func tableOfContents(files map[string]*zip.File, pkg *packageDoc, target tocTarget) ([]session.TOCEntry, error) {
	if pkg == nil {
		return nil, errors.New("no package document")
	}
	var errs []error
	for _, src := range []struct {
		name string
		read func(*zip.File, tocTarget) ([]session.TOCEntry, error)
	}{
		{pkg.nav, navTOC},
		{pkg.ncx, ncxTOC},
	} {
		if len(src.name) == 0 {
			continue
		}
		f, ok := files[src.name]
		if !ok {
			errs = append(errs, fmt.Errorf("navigation document %q is missing", src.name))
			continue
		}
		toc, err := src.read(f, target)
		if err == nil && len(toc) > 0 {
			return toc, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, multierr.Combine(errs...)
	}
	return nil, errors.New("package has no table of contents")
}
