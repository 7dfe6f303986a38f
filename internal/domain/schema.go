package domain

// DataType is the type of a collection property.
type DataType string

const (
	DataTypeText      DataType = "text"
	DataTypeTextArray DataType = "text[]"
)

// Distance is the vector similarity metric of a collection.
type Distance string

const DistanceCosine Distance = "cosine"

// Property describes one metadata field of a collection.
type Property struct {
	Name       string   `json:"name"`
	DataType   DataType `json:"data_type"`
	Indexed    bool     `json:"indexed"`
	PrimaryKey bool     `json:"primary_key,omitempty"`
}

// BM25 holds the inverted index parameters of a collection.
type BM25 struct {
	B  float64 `json:"b"`
	K1 float64 `json:"k1"`
}

// CollectionSchema is the fixed layout of a feature collection.
// Vectors are always supplied by the caller; no backend computes them.
type CollectionSchema struct {
	Properties []Property `json:"properties"`
	Distance   Distance   `json:"distance"`
	BM25       BM25       `json:"bm25"`
	Dimension  int        `json:"dimension,omitempty"` // 0 accepts any length
}

// PrimaryKey returns the name of the primary-key property.
func (s CollectionSchema) PrimaryKey() string {
	for _, p := range s.Properties {
		if p.PrimaryKey {
			return p.Name
		}
	}
	return ""
}

// FeatureSchema returns the schema every feature collection is created with.
func FeatureSchema(dimension int) CollectionSchema {
	return CollectionSchema{
		Properties: []Property{
			{Name: "feature_id", DataType: DataTypeText, Indexed: true, PrimaryKey: true},
			{Name: "feature_name", DataType: DataTypeText, Indexed: true},
			{Name: "category", DataType: DataTypeTextArray, Indexed: true},
			{Name: "description", DataType: DataTypeTextArray, Indexed: true},
			{Name: "how_it_helps", DataType: DataTypeText, Indexed: true},
			{Name: "use_cases", DataType: DataTypeTextArray, Indexed: true},
			{Name: "keywords", DataType: DataTypeTextArray, Indexed: true},
		},
		Distance:  DistanceCosine,
		BM25:      BM25{B: 0.75, K1: 1.2},
		Dimension: dimension,
	}
}
