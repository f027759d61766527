package scoring

type Counts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

func (c Counts) Add(other Counts) Counts {
	return Counts{
		TP: c.TP + other.TP,
		FP: c.FP + other.FP,
		FN: c.FN + other.FN,
	}
}

func (c Counts) Metrics() Metrics {
	return PRF(c.TP, c.FP, c.FN)
}

func (c Counts) Score() Score {
	return Score{Counts: c, Metrics: c.Metrics()}
}

type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// PRF computes precision, recall and F1; each is 0 when its denominator is 0.
func PRF(tp int, fp int, fn int) Metrics {
	var m Metrics
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Score is the per-document (or per-corpus) scoring record.
type Score struct {
	Counts
	Metrics
}

// Corpus accumulates document counts for micro-averaged scoring.
type Corpus struct {
	Documents int                 `json:"documents"`
	Counts    Counts              `json:"counts"`
	Negation  NegationDiagnostics `json:"negation"`
}

func (c *Corpus) Add(counts Counts, negation NegationDiagnostics) {
	c.Documents++
	c.Counts = c.Counts.Add(counts)
	c.Negation = c.Negation.Add(negation)
}

func (c Corpus) Merge(other Corpus) Corpus {
	return Corpus{
		Documents: c.Documents + other.Documents,
		Counts:    c.Counts.Add(other.Counts),
		Negation:  c.Negation.Add(other.Negation),
	}
}

// Score computes precision, recall and F1 from the summed counts.
func (c Corpus) Score() Score {
	return c.Counts.Score()
}
