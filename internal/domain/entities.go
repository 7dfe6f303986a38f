package domain

// FeatureRecord is one entry of the knowledge base as it appears in the
// source document.
type FeatureRecord struct {
	FeatureID   string   `json:"feature_id,omitempty"`
	FeatureName string   `json:"feature_name"`
	Category    []string `json:"category,omitempty"`
	Description []string `json:"description,omitempty"`
	HowItHelps  string   `json:"how_it_helps,omitempty"`
	UseCases    []string `json:"use_cases,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// EmbeddedRecord is a FeatureRecord enriched with its identifier and
// embedding vector. Its JSON form is one line of the intermediate JSONL file.
type EmbeddedRecord struct {
	ID          string    `json:"id"`
	FeatureName string    `json:"feature_name"`
	Category    []string  `json:"category"`
	Description []string  `json:"description"`
	HowItHelps  string    `json:"how_it_helps"`
	UseCases    []string  `json:"use_cases"`
	Keywords    []string  `json:"keywords"`
	Vector      []float32 `json:"vector"`
}

// Properties returns the metadata stored alongside the vector in the index.
func (r EmbeddedRecord) Properties() FeatureProperties {
	return FeatureProperties{
		FeatureID:   r.ID,
		FeatureName: r.FeatureName,
		Category:    nonNil(r.Category),
		Description: nonNil(r.Description),
		HowItHelps:  r.HowItHelps,
		UseCases:    nonNil(r.UseCases),
		Keywords:    nonNil(r.Keywords),
	}
}

// FeatureProperties is the metadata of one object in a feature collection.
type FeatureProperties struct {
	FeatureID   string   `json:"feature_id"`
	FeatureName string   `json:"feature_name"`
	Category    []string `json:"category"`
	Description []string `json:"description"`
	HowItHelps  string   `json:"how_it_helps"`
	UseCases    []string `json:"use_cases"`
	Keywords    []string `json:"keywords"`
}

// QueryResult is one nearest-neighbour match.
type QueryResult struct {
	Properties FeatureProperties `json:"properties"`
	Distance   float64           `json:"distance"` // cosine distance, 0 is identical
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
