package searchdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/meghashyamc/searchbox/logger"
)

const indexingBatchSize = 100

// Documents carry a "type" field of their own, so bleve must not use it to
// pick a document mapping.
const typeField = "_searchbox_type"

type BleveIndex struct {
	logger     logger.Logger
	index      bleve.Index
	maxResults int
	docCount   uint64
}

// New builds a memory-only bleve index from doc. Either every document is
// indexed or an error is returned; a partial index is never handed out.
// maxResults caps the matches returned per query, 0 means all matches.
func New(logger logger.Logger, doc *IndexDocument, maxResults int) (*BleveIndex, error) {
	documents, err := prepareDocuments(doc)
	if err != nil {
		logger.Error("could not prepare index documents", "err", err.Error())
		return nil, err
	}

	index, err := bleve.NewMemOnly(createIndexMapping(doc.Fields))
	if err != nil {
		logger.Error("could not create index", "err", err.Error())
		return nil, err
	}

	b := &BleveIndex{logger: logger, index: index, maxResults: maxResults}
	start := time.Now()
	if err := b.buildIndex(documents); err != nil {
		index.Close()
		return nil, err
	}

	if b.docCount, err = index.DocCount(); err != nil {
		index.Close()
		return nil, fmt.Errorf("could not count indexed documents: %w", err)
	}
	logger.Info("search index built", "documents", b.docCount, "fields", doc.Fields, "took", time.Since(start).String())

	return b, nil
}

type preparedDocument struct {
	ref    string
	fields map[string]string
}

func prepareDocuments(doc *IndexDocument) ([]preparedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrInvalidDocument)
	}

	seen := make(map[string]struct{}, len(doc.Documents))
	prepared := make([]preparedDocument, 0, len(doc.Documents))

	for i, raw := range doc.Documents {
		ref, ok := raw[doc.Ref].(string)
		if !ok || ref == "" {
			return nil, fmt.Errorf("%w: document %d has no %q ref", ErrInvalidDocument, i, doc.Ref)
		}
		if _, exists := seen[ref]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRef, ref)
		}
		seen[ref] = struct{}{}

		fields := make(map[string]string, len(doc.Fields))
		for _, field := range doc.Fields {
			if text, ok := fieldText(raw[field]); ok {
				fields[field] = text
			}
		}
		prepared = append(prepared, preparedDocument{ref: ref, fields: fields})
	}

	return prepared, nil
}

// fieldText flattens a decoded JSON value into indexable text.
func fieldText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if text, ok := fieldText(item); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " "), len(parts) > 0
	default:
		return "", false
	}
}

func (b *BleveIndex) buildIndex(documents []preparedDocument) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		if err := batch.Index(doc.ref, doc.fields); err != nil {
			b.logger.Error("could not index document", "ref", doc.ref, "err", err.Error())
			return err
		}

		// Execute batch when it reaches the batch size
		if (i+1)%indexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not index batch", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index batch", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping(fields []string) mapping.IndexMapping {

	indexMapping := bleve.NewIndexMapping()
	indexMapping.TypeField = typeField

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	for _, field := range fields {
		// Analyzed for full-text search and folded into _all, which is the
		// default field for unqualified query terms
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = standard.Name
		fieldMapping.Store = false
		fieldMapping.IncludeInAll = true
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// Search ranks queryText with bleve's query string syntax. The text is passed
// through untouched and hits keep bleve's order.
func (b *BleveIndex) Search(queryText string) ([]Match, error) {

	parsedQuery, err := bleve.NewQueryStringQuery(queryText).Parse()
	if err != nil {
		b.logger.Warn("could not parse query", "query", queryText, "err", err.Error())
		return nil, fmt.Errorf("%w: %s", ErrMalformedQuery, err.Error())
	}

	size := int(b.docCount)
	if b.maxResults > 0 && b.maxResults < size {
		size = b.maxResults
	}
	if size == 0 {
		return []Match{}, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(parsedQuery, size, 0, false)
	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "query", queryText, "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		matches = append(matches, Match{Ref: hit.ID, Score: hit.Score})
	}

	return matches, nil
}

func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveIndex) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
