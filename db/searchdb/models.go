package searchdb

// IndexDocument is the serialized search index published by the site build.
// Ref names the key holding each document's reference id and Fields names the
// text fields that are indexed.
type IndexDocument struct {
	Version   string           `json:"version"`
	Ref       string           `json:"ref" validate:"required"`
	Fields    []string         `json:"fields" validate:"required,min=1,dive,required"`
	Documents []map[string]any `json:"documents" validate:"required"`
}

// Match is a single scored hit. Ref doubles as the document's URL path segment.
type Match struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}
