package corpus

import (
	"text2phenotype.com/anneval/types"
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// only the first segment of a discontinuous "a~b,c~d" span is used
var spansRegex = regexp.MustCompile(`^(\d+)~(\d+)`)

type medTatorFile struct {
	XMLName xml.Name
	Text    *string `xml:"TEXT"`
	Tags    struct {
		Items []medTatorTag `xml:",any"`
	} `xml:"TAGS"`
}

type medTatorTag struct {
	XMLName   xml.Name
	ID        string `xml:"id,attr"`
	Spans     string `xml:"spans,attr"`
	Text      string `xml:"text,attr"`
	Certainty string `xml:"certainty,attr"`
}

// ParseMedTatorXML reads a MedTator annotation file. The document is named
// after the file without its extension.
func ParseMedTatorXML(name string, data []byte) (Document, error) {
	var file medTatorFile
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&file); err != nil {
		return Document{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	// a file without TEXT is an empty document, its spans are all invalid
	text := ""
	if file.Text != nil {
		text = *file.Text
	}

	doc := Document{
		Name: DocumentName(name),
		Text: types.NewText(text),
	}
	for _, item := range file.Tags.Items {
		if strings.TrimSpace(item.Spans) == "" {
			// relations and document level tags carry no span
			continue
		}
		doc.addGold(item.XMLName.Local, item.Spans, item.Certainty)
	}
	return doc, nil
}

// addGold appends one gold annotation given as tag name, "a~b" spans and
// certainty label, or counts it as skipped or invalid.
func (doc *Document) addGold(tagName string, spans string, certainty string) {
	tag, ok := types.ParseTag(tagName)
	if !ok {
		doc.SkippedTags++
		return
	}
	match := spansRegex.FindStringSubmatch(strings.TrimSpace(spans))
	if match == nil {
		doc.InvalidSpans++
		return
	}
	start, startErr := strconv.Atoi(match[1])
	end, endErr := strconv.Atoi(match[2])
	span := types.Span{Tag: tag, Start: start, End: end}
	if startErr != nil || endErr != nil || !span.Valid(doc.Text.Len()) {
		doc.InvalidSpans++
		return
	}
	doc.Gold = append(doc.Gold, types.GoldAnnotation{
		Span:      span,
		Certainty: types.ParseCertainty(certainty),
	})
}

// DocumentName strips the directory and extension of a file name or key.
func DocumentName(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}
