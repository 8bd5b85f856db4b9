package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/meghashyamc/searchbox/db/searchdb"
	"github.com/meghashyamc/searchbox/logger"
)

type JSONFetcher interface {
	GetJSON(ctx context.Context, path string, v any) error
}

type Validator interface {
	Validate(i any) error
}

// Loader fetches the serialized index document and builds the search index
// from it.
type Loader struct {
	logger     logger.Logger
	fetcher    JSONFetcher
	validator  Validator
	indexPath  string
	maxResults int
}

func NewLoader(logger logger.Logger, fetcher JSONFetcher, validator Validator, indexPath string, maxResults int) *Loader {
	if !strings.HasPrefix(indexPath, "/") {
		indexPath = "/" + indexPath
	}
	return &Loader{
		logger:     logger,
		fetcher:    fetcher,
		validator:  validator,
		indexPath:  indexPath,
		maxResults: maxResults,
	}
}

func (l *Loader) Load(ctx context.Context) (searchdb.Index, error) {
	l.logger.Info("loading search index", "path", l.indexPath)

	var doc searchdb.IndexDocument
	if err := l.fetcher.GetJSON(ctx, l.indexPath, &doc); err != nil {
		l.logger.Error("failed to fetch search index", "path", l.indexPath, "err", err.Error())
		return nil, fmt.Errorf("failed to fetch search index: %w", err)
	}

	if err := l.validator.Validate(doc); err != nil {
		l.logger.Error("search index document is invalid", "path", l.indexPath, "err", err.Error())
		return nil, fmt.Errorf("%w: %w", searchdb.ErrInvalidDocument, err)
	}

	index, err := searchdb.New(l.logger, &doc, l.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}

	return index, nil
}
