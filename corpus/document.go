package corpus

import (
	"text2phenotype.com/anneval/types"
)

// Document is one annotated note of the corpus.
type Document struct {
	Name string
	Text types.Text
	Gold []types.GoldAnnotation
	// SkippedTags counts gold elements whose name is outside the vocabulary.
	SkippedTags int
	// InvalidSpans counts gold elements whose span is missing or does not fit the text.
	InvalidSpans int
}

func (doc Document) GoldPositive() []types.Span {
	positive, _ := types.SplitGold(doc.Gold)
	return positive
}

func (doc Document) GoldNegated() []types.Span {
	_, negated := types.SplitGold(doc.Gold)
	return negated
}

// GoldRecord is a gold annotation in the corpus boundary format.
type GoldRecord struct {
	Tag       string `json:"tag"`
	Spans     string `json:"spans"`
	Certainty string `json:"certainty,omitempty"`
}

// NewDocument builds a document from inline gold records, applying the same
// checks as the MedTator reader.
func NewDocument(name string, text string, records []GoldRecord) Document {
	doc := Document{
		Name: name,
		Text: types.NewText(text),
	}
	for _, record := range records {
		doc.addGold(record.Tag, record.Spans, record.Certainty)
	}
	return doc
}
