package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Deck is a mutable working copy of a Template. All mutation happens on the
// in-memory part map; the template bytes on disk are never touched.
type Deck struct {
	parts  map[string][]byte
	slides []string // slide part names in presentation order
}

// NewDeck instantiates an independently mutable copy of the template.
func NewDeck(t *Template) *Deck {
	parts := make(map[string][]byte, len(t.parts))
	for name, content := range t.parts {
		cp := make([]byte, len(content))
		copy(cp, content)
		parts[name] = cp
	}
	return &Deck{parts: parts, slides: slideParts(parts)}
}

// SlideCount reports how many slides the deck currently has.
func (d *Deck) SlideCount() int {
	return len(d.slides)
}

var (
	relIDPattern   = regexp.MustCompile(`Id="rId(\d+)"`)
	sldIDPattern   = regexp.MustCompile(`<p:sldId id="(\d+)"`)
	shapeIDPattern = regexp.MustCompile(`\bid="(\d+)"`)
)

// CloneSlide duplicates the template slide (slide 1) and appends it to the
// presentation, returning the new slide's index. The copy carries the shape
// tree verbatim, so the shape names that field binding keys on survive
// exactly. The clone must also be registered in three places or the file is
// corrupt: the content-type manifest, the presentation relationships, and
// the slide id list.
func (d *Deck) CloneSlide() (int, error) {
	source := "ppt/slides/slide1.xml"
	maxNum := 0
	for _, s := range d.slides {
		if n := slideNumber(s); n > maxNum {
			maxNum = n
		}
	}
	newNum := maxNum + 1
	newPart := fmt.Sprintf("ppt/slides/slide%d.xml", newNum)

	d.parts[newPart] = append([]byte(nil), d.parts[source]...)

	// Slide relationships (layout, images) are addressed per part, so a
	// verbatim copy stays valid.
	if rels, ok := d.parts["ppt/slides/_rels/slide1.xml.rels"]; ok {
		d.parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", newNum)] = append([]byte(nil), rels...)
	}

	// Content types manifest.
	ct := string(d.parts[contentTypesPart])
	override := fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, newPart, slideContentType)
	if !strings.Contains(ct, `PartName="/`+newPart+`"`) {
		ct = strings.Replace(ct, "</Types>", override+"</Types>", 1)
		d.parts[contentTypesPart] = []byte(ct)
	}

	// Presentation relationships.
	presRels := string(d.parts[presentationRelsPart])
	relID := fmt.Sprintf("rId%d", maxID(relIDPattern, presRels)+1)
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="slides/slide%d.xml"/>`, relID, slideRelType, newNum)
	presRels = strings.Replace(presRels, "</Relationships>", rel+"</Relationships>", 1)
	d.parts[presentationRelsPart] = []byte(presRels)

	// Slide id list.
	pres := string(d.parts[presentationPart])
	sldID := maxID(sldIDPattern, pres) + 1
	if sldID < 256 {
		sldID = 256
	}
	entry := fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, sldID, relID)
	if !strings.Contains(pres, "</p:sldIdLst>") {
		return 0, fmt.Errorf("presentation has no slide id list")
	}
	pres = strings.Replace(pres, "</p:sldIdLst>", entry+"</p:sldIdLst>", 1)
	d.parts[presentationPart] = []byte(pres)

	d.slides = append(d.slides, newPart)
	return len(d.slides) - 1, nil
}

// Save assembles the deck into PPTX bytes. Parts are written in sorted order
// with fixed timestamps, so merging the same record twice yields identical
// bytes.
func (d *Deck) Save() ([]byte, error) {
	names := make([]string, 0, len(d.parts))
	for name := range d.parts {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	modified := time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range names {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
		if _, err := f.Write(d.parts[name]); err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize deck: %w", err)
	}
	return buf.Bytes(), nil
}

func maxID(pattern *regexp.Regexp, s string) int {
	max := 0
	for _, m := range pattern.FindAllStringSubmatch(s, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}
