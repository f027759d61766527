package corpus

import (
	"text2phenotype.com/anneval/logger"
	"os"
	"path"
	"sort"
	"strings"
)

const annotationExt = ".xml"

var sourceLogger = logger.NewLogger("Corpus")

// Source lists and loads the annotation files of a corpus. Names returned by
// List are accepted by Load.
type Source interface {
	List() ([]string, error)
	Load(name string) (Document, error)
}

// LoadAll loads every document of source in List order. Files that fail to
// parse are logged and skipped.
func LoadAll(source Source) ([]Document, error) {
	names, err := source.List()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(names))
	for _, name := range names {
		doc, err := source.Load(name)
		if err != nil {
			sourceLogger.Err(err).Str("file", name).Msg("Skipping document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DirSource reads *.xml files from a local directory.
type DirSource struct {
	Dir string
}

func (source DirSource) List() ([]string, error) {
	entries, err := os.ReadDir(source.Dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), annotationExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (source DirSource) Load(name string) (Document, error) {
	data, err := os.ReadFile(path.Join(source.Dir, name))
	if err != nil {
		return Document{}, err
	}
	return ParseMedTatorXML(name, data)
}

// ObjectStore is the part of the storage client a corpus needs.
type ObjectStore interface {
	List(prefix string) ([]string, error)
	Download(key string) ([]byte, error)
}

// S3Source reads *.xml objects under a key prefix of a bucket.
type S3Source struct {
	Store  ObjectStore
	Prefix string
}

func (source S3Source) List() ([]string, error) {
	keys, err := source.Store.List(source.Prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, annotationExt) {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (source S3Source) Load(key string) (Document, error) {
	data, err := source.Store.Download(key)
	if err != nil {
		return Document{}, err
	}
	return ParseMedTatorXML(key, data)
}
