package backend

import (
	"fmt"
	"strings"
)

// Payload is the document returned by the analysis service for an upload or
// the sample dataset.
type Payload struct {
	Columns     []string                  `json:"columns"`
	Data        []map[string]any          `json:"data"`
	Analysis    map[string]ColumnAnalysis `json:"analysis"`
	DataQuality DataQuality               `json:"data_quality"`
	Insights    []Insight                 `json:"insights,omitempty"`
	Metadata    *Metadata                 `json:"metadata,omitempty"`
}

// ColumnAnalysis is the service's per-column summary. DType is the raw
// dataframe type string, e.g. "int64" or "object".
type ColumnAnalysis struct {
	DType          string   `json:"dtype"`
	Unique         int      `json:"unique"`
	Missing        int      `json:"missing"`
	MissingPercent float64  `json:"missing_percent"`
	Mean           *float64 `json:"mean,omitempty"`
	Median         *float64 `json:"median,omitempty"`
	Std            *float64 `json:"std,omitempty"`
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
}

// DataQuality scores a dataset between 0 and 1.
type DataQuality struct {
	QualityScore   float64  `json:"quality_score"`
	MissingCount   int      `json:"missing_count"`
	DuplicateCount int      `json:"duplicate_count"`
	Completeness   float64  `json:"completeness"`
	Issues         []string `json:"issues"`
}

type InsightType string

const (
	InsightGeneral InsightType = "general"
	InsightTrend   InsightType = "trend"
	InsightAlert   InsightType = "alert"
)

// Insight is a narrative finding. Only Type is always set.
type Insight struct {
	Type           InsightType        `json:"type"`
	Title          string             `json:"title,omitempty"`
	Message        string             `json:"message,omitempty"`
	Description    string             `json:"description,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// Text returns the first non-empty of Message, Description and Summary.
func (i Insight) Text() string {
	for _, s := range []string{i.Message, i.Description, i.Summary} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Metadata describes the uploaded file.
type Metadata struct {
	Filename   string `json:"filename"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	UploadedAt string `json:"uploaded_at"`
}

// Validate checks the minimum shape needed to render a payload.
func (p *Payload) Validate() error {
	if p == nil {
		return fmt.Errorf("payload is nil")
	}
	if len(p.Data) == 0 {
		return fmt.Errorf("dataset is empty: no rows found")
	}
	if len(p.Columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}
	seen := make(map[string]bool, len(p.Columns))
	for _, c := range p.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	return nil
}

// DTypeKind is the display class of a backend dtype string.
type DTypeKind int

const (
	KindOther DTypeKind = iota
	KindInteger
	KindDecimal
	KindText
	KindBoolean
	KindDate
)

func (k DTypeKind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindDecimal:
		return "Decimal"
	case KindText:
		return "Text"
	case KindBoolean:
		return "Boolean"
	case KindDate:
		return "Date"
	}
	return "Other"
}

// Numeric reports whether the kind holds numbers.
func (k DTypeKind) Numeric() bool { return k == KindInteger || k == KindDecimal }

// dtypeRules are checked in order; the first substring hit wins. Date comes
// first so "datetime64[ns]" is not read as anything else.
var dtypeRules = []struct {
	sub  string
	kind DTypeKind
}{
	{"date", KindDate},
	{"bool", KindBoolean},
	{"int", KindInteger},
	{"float", KindDecimal},
	{"double", KindDecimal},
	{"decimal", KindDecimal},
	{"object", KindText},
	{"str", KindText},
	{"category", KindText},
}

// ClassifyDType maps a dtype string such as "Int64", "float32" or
// "datetime64[ns]" to a DTypeKind. Unknown strings are KindOther.
func ClassifyDType(s string) DTypeKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindOther
	}
	for _, r := range dtypeRules {
		if strings.Contains(s, r.sub) {
			return r.kind
		}
	}
	return KindOther
}
