package pptx

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// SetText overwrites the text of the named shape on the given slide. Binding
// is name-keyed: the first text-bearing shape with that exact name wins,
// whether top-level or one level inside a group. An absent name is a no-op.
func (d *Deck) SetText(slide int, name, text string) bool {
	if slide < 0 || slide >= len(d.slides) {
		return false
	}
	part := d.slides[slide]
	xml := string(d.parts[part])

	for _, loc := range shapeLocations(xml, name) {
		if loc.closeTag != "</p:sp>" {
			continue
		}
		block := xml[loc.start:loc.end]
		replaced, ok := setBlockText(block, text)
		if !ok {
			continue
		}
		d.parts[part] = []byte(xml[:loc.start] + replaced + xml[loc.end:])
		return true
	}
	return false
}

// RemoveShape deletes the named shape from the slide outright.
func (d *Deck) RemoveShape(slide int, name string) bool {
	if slide < 0 || slide >= len(d.slides) {
		return false
	}
	part := d.slides[slide]
	xml := string(d.parts[part])

	locs := shapeLocations(xml, name)
	if len(locs) == 0 {
		return false
	}
	loc := locs[0]
	d.parts[part] = []byte(xml[:loc.start] + xml[loc.end:])
	return true
}

// ReplaceImage swaps the named placeholder shape for a picture of the given
// bytes at the placeholder's exact position and size, so the layout is
// preserved. Returns false when the shape, its bounding box, or the image
// bytes are missing.
func (d *Deck) ReplaceImage(slide int, name string, img []byte) bool {
	if slide < 0 || slide >= len(d.slides) || len(img) == 0 {
		return false
	}
	part := d.slides[slide]
	xml := string(d.parts[part])

	locs := shapeLocations(xml, name)
	if len(locs) == 0 {
		return false
	}
	loc := locs[0]
	b, ok := parseBox(xml[loc.start:loc.end])
	if !ok {
		return false
	}

	relID, err := d.addImagePart(part, img)
	if err != nil {
		return false
	}

	shapeID := maxID(shapeIDPattern, xml) + 1
	pic := picXML(shapeID, name, relID, b)

	// Delete the placeholder, then insert the picture at the tree's end;
	// position comes from the box, not document order.
	xml = xml[:loc.start] + xml[loc.end:]
	xml = strings.Replace(xml, "</p:spTree>", pic+"</p:spTree>", 1)
	d.parts[part] = []byte(xml)
	return true
}

type shapeLocation struct {
	start, end int
	closeTag   string
}

var shapeOpeners = []string{"<p:sp>", "<p:sp ", "<p:pic>", "<p:pic "}

// shapeLocations finds every p:sp / p:pic block whose non-visual properties
// carry the given name, in document order. A shape inside a group resolves
// to the inner block, which is exactly the one-level group search the
// binding contract asks for.
func shapeLocations(xml, name string) []shapeLocation {
	namePattern := regexp.MustCompile(`<p:cNvPr[^>]*\sname="` + regexp.QuoteMeta(xmlEscaper.Replace(name)) + `"`)
	var locs []shapeLocation
	for _, idx := range namePattern.FindAllStringIndex(xml, -1) {
		start, closeTag := enclosingShapeStart(xml, idx[0])
		if start < 0 {
			continue
		}
		// The opener must still be open at the name's position, otherwise
		// the name sits on something that is not a plain shape.
		if strings.Contains(xml[start:idx[0]], closeTag) {
			continue
		}
		end := strings.Index(xml[idx[0]:], closeTag)
		if end < 0 {
			continue
		}
		locs = append(locs, shapeLocation{
			start:    start,
			end:      idx[0] + end + len(closeTag),
			closeTag: closeTag,
		})
	}
	return locs
}

func enclosingShapeStart(xml string, pos int) (int, string) {
	best := -1
	closeTag := ""
	for _, opener := range shapeOpeners {
		if i := strings.LastIndex(xml[:pos], opener); i > best {
			best = i
			if strings.HasPrefix(opener, "<p:sp") {
				closeTag = "</p:sp>"
			} else {
				closeTag = "</p:pic>"
			}
		}
	}
	return best, closeTag
}

// setBlockText rewrites a shape block so its text body holds exactly one
// paragraph with one run carrying the new text. The first run's formatting
// is kept; everything after it goes.
func setBlockText(block, text string) (string, bool) {
	bodyStart := strings.Index(block, "<p:txBody>")
	bodyEnd := strings.Index(block, "</p:txBody>")
	if bodyStart < 0 || bodyEnd < 0 {
		return "", false // not a text-bearing shape
	}
	body := block[bodyStart:bodyEnd]

	pStart := strings.Index(body, "<a:p>")
	if pStart < 0 {
		return "", false
	}
	pEnd := strings.Index(body[pStart:], "</a:p>")
	if pEnd < 0 {
		return "", false
	}
	para := body[pStart : pStart+pEnd+len("</a:p>")]

	escaped := xmlEscaper.Replace(text)
	var newPara string
	if rStart := strings.Index(para, "<a:r>"); rStart >= 0 {
		rEnd := strings.Index(para[rStart:], "</a:r>")
		if rEnd < 0 {
			return "", false
		}
		run := para[rStart : rStart+rEnd+len("</a:r>")]
		newPara = para[:rStart] + setRunText(run, escaped) + "</a:p>"
	} else {
		newPara = strings.TrimSuffix(para, "</a:p>") + "<a:r><a:t>" + escaped + "</a:t></a:r></a:p>"
	}

	newBody := body[:pStart] + newPara
	return block[:bodyStart] + newBody + block[bodyEnd:], true
}

func setRunText(run, escaped string) string {
	tStart := strings.Index(run, "<a:t>")
	tEnd := strings.Index(run, "</a:t>")
	if tStart < 0 || tEnd < 0 {
		return strings.TrimSuffix(run, "</a:r>") + "<a:t>" + escaped + "</a:t></a:r>"
	}
	return run[:tStart] + "<a:t>" + escaped + run[tEnd:]
}

// box is a shape's bounding rectangle in EMUs.
type box struct {
	x, y, cx, cy int64
}

var (
	offTagPattern = regexp.MustCompile(`<a:off [^>]*/?>`)
	extTagPattern = regexp.MustCompile(`<a:ext [^>]*/?>`)
)

func parseBox(block string) (box, bool) {
	off := offTagPattern.FindString(block)
	ext := extTagPattern.FindString(block)
	if off == "" || ext == "" {
		return box{}, false
	}
	var b box
	var ok bool
	if b.x, ok = attrInt(off, "x"); !ok {
		return box{}, false
	}
	if b.y, ok = attrInt(off, "y"); !ok {
		return box{}, false
	}
	if b.cx, ok = attrInt(ext, "cx"); !ok {
		return box{}, false
	}
	if b.cy, ok = attrInt(ext, "cy"); !ok {
		return box{}, false
	}
	return b, true
}

func attrInt(tag, attr string) (int64, bool) {
	re := regexp.MustCompile(`\b` + attr + `="(-?\d+)"`)
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var mediaPartPattern = regexp.MustCompile(`^ppt/media/image(\d+)\.`)

// addImagePart stores the image bytes as a media part, registers its content
// type and a relationship from the slide, and returns the relationship id.
func (d *Deck) addImagePart(slidePart string, img []byte) (string, error) {
	ext, contentType := sniffImage(img)

	num := 0
	for name := range d.parts {
		if m := mediaPartPattern.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > num {
				num = n
			}
		}
	}
	mediaPart := fmt.Sprintf("ppt/media/image%d.%s", num+1, ext)
	d.parts[mediaPart] = img

	ct := string(d.parts[contentTypesPart])
	if !strings.Contains(ct, `Extension="`+ext+`"`) {
		def := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, contentType)
		ct = strings.Replace(ct, "</Types>", def+"</Types>", 1)
		d.parts[contentTypesPart] = []byte(ct)
	}

	relsPart := strings.Replace(slidePart, "ppt/slides/", "ppt/slides/_rels/", 1) + ".rels"
	rels, ok := d.parts[relsPart]
	if !ok {
		rels = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`)
	}
	relID := fmt.Sprintf("rId%d", maxID(relIDPattern, string(rels))+1)
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="../media/image%d.%s"/>`, relID, imageRelType, num+1, ext)
	d.parts[relsPart] = []byte(strings.Replace(string(rels), "</Relationships>", rel+"</Relationships>", 1))

	return relID, nil
}

func sniffImage(img []byte) (ext, contentType string) {
	if bytes.HasPrefix(img, []byte("\x89PNG")) {
		return "png", "image/png"
	}
	return "jpeg", "image/jpeg"
}

func picXML(shapeID int, name, relID string, b box) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		shapeID, xmlEscaper.Replace(name), relID, b.x, b.y, b.cx, b.cy)
}
