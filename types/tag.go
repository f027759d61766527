package types

import "fmt"

// Tag is a concept label of the annotation schema. The set is closed: values
// outside Tags() are never constructed by this service.
type Tag int8

const (
	TagUnknown          Tag = 0
	TagVaccine          Tag = 1
	TagFever            Tag = 2
	TagPain             Tag = 3
	TagHeadache         Tag = 4
	TagMyalgia          Tag = 5
	TagFatigue          Tag = 6
	TagNasalObstruction Tag = 7
	TagDiarrhea         Tag = 8
	TagNausea           Tag = 9
	TagVomiting         Tag = 10
	TagSoreThroat       Tag = 11
	TagDyspnea          Tag = 12
	TagCough            Tag = 13
	TagChill            Tag = 14
	TagDelirium         Tag = 15
	TagHypersomnia      Tag = 16
	TagOther            Tag = 17
)

type tagInfo struct {
	name        string
	description string
}

var tagTable = [...]tagInfo{
	TagUnknown:          {"Unknown", ""},
	TagVaccine:          {"Vaccine", "COVID-19 vaccine name or identifier (e.g., BNT162b2, Pfizer-BioNTech, Moderna, mRNA-1273, Janssen, J&J, AstraZeneca, vaccine dose)"},
	TagFever:            {"Fever", "fever, high temperature, pyrexia, febrile, temperature elevation"},
	TagPain:             {"Pain", "pain, painful, ache, sore, soreness, discomfort, hurts, tenderness"},
	TagHeadache:         {"Headache", "headache, head pain, migraine, cephalalgia"},
	TagMyalgia:          {"Myalgia", "muscle pain, myalgia, muscle soreness, muscle ache, body aches, swollen, swelling, inflammation, stiffness"},
	TagFatigue:          {"Fatigue", "fatigue, tired, tiredness, exhaustion, weakness, lethargy, malaise, low energy"},
	TagNasalObstruction: {"Nasal_obstruction", "nasal obstruction, stuffy nose, nasal congestion, blocked nose, runny nose, rhinorrhea"},
	TagDiarrhea:         {"Diarrhea", "diarrhea, loose stool, loose bowel movements, watery stool"},
	TagNausea:           {"Nausea", "nausea, nauseated, stomach upset, queasy, feel sick"},
	TagVomiting:         {"Vomiting", "vomiting, vomited, threw up, emesis, retching"},
	TagSoreThroat:       {"Sore_throat", "sore throat, throat pain, pharyngitis, throat irritation, scratchy throat"},
	TagDyspnea:          {"Dyspnea", "dyspnea, shortness of breath, difficulty breathing, breathlessness, SOB, can't breathe"},
	TagCough:            {"Cough", "cough, coughing, dry cough, productive cough, hacking cough"},
	TagChill:            {"Chill", "chills, rigors, shivering, cold sensation, feeling cold"},
	TagDelirium:         {"Delirium", "delirium, confusion, disorientation, altered mental status, cognitive impairment, hallucination"},
	TagHypersomnia:      {"Hypersomnia", "hypersomnia, excessive sleepiness, drowsiness, somnolence, oversleeping, hard to stay awake"},
	TagOther:            {"Other", "any other adverse event or medical concept not covered by the above tags"},
}

var tagsByName = func() map[string]Tag {
	result := make(map[string]Tag, len(tagTable))
	for _, tag := range Tags() {
		result[tag.Name()] = tag
	}
	return result
}()

// Tags returns the vocabulary in schema order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(tagTable)-1)
	for i := TagVaccine; i <= TagOther; i++ {
		tags = append(tags, i)
	}
	return tags
}

// TagNames returns the schema names of all tags in schema order.
func TagNames() []string {
	tags := Tags()
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name()
	}
	return names
}

// ParseTag looks a tag up by its exact schema name.
func ParseTag(name string) (Tag, bool) {
	tag, ok := tagsByName[name]
	return tag, ok
}

func (t Tag) Valid() bool {
	return t >= TagVaccine && t <= TagOther
}

func (t Tag) Name() string {
	if !t.Valid() {
		return tagTable[TagUnknown].name
	}
	return tagTable[t].name
}

func (t Tag) Description() string {
	if !t.Valid() {
		return ""
	}
	return tagTable[t].description
}

func (t Tag) String() string {
	return t.Name()
}

func (t Tag) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tag %d", int8(t))
	}
	return []byte(t.Name()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	tag, ok := ParseTag(string(b))
	if !ok {
		return fmt.Errorf("unknown tag %q", string(b))
	}
	*t = tag
	return nil
}
