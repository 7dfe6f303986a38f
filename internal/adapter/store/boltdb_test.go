package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"featurerag/internal/domain"
)

func openTestIndex(t *testing.T) *BoltIndex {
	t.Helper()
	idx, err := OpenBoltIndex(filepath.Join(t.TempDir(), "nested", "index.db"), 0)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func props(id, name string) domain.FeatureProperties {
	return domain.FeatureProperties{
		FeatureID:   id,
		FeatureName: name,
		Category:    []string{"Automation"},
		Description: []string{},
		UseCases:    []string{},
		Keywords:    []string{},
	}
}

func TestCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)

	if _, err := idx.GetCollection(ctx, "Features"); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema for absent collection, got %v", err)
	}

	// deleting an absent collection is not an error
	if err := idx.DeleteCollection(ctx, "Features"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(3)); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema for duplicate create, got %v", err)
	}

	names, err := idx.Collections()
	if err != nil || len(names) != 1 || names[0] != "Features" {
		t.Fatalf("unexpected collections %v (err %v)", names, err)
	}

	col, err := idx.GetCollection(ctx, "Features")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := col.Insert(ctx, props("a", "A"), []float32{1, 0, 0}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := idx.DeleteCollection(ctx, "Features"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := col.Insert(ctx, props("b", "B"), []float32{0, 1, 0}); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema inserting into deleted collection, got %v", err)
	}
}

func TestCreateCollection_RequiresPrimaryKey(t *testing.T) {
	idx := openTestIndex(t)
	err := idx.CreateCollection(context.Background(), "NoKey", domain.CollectionSchema{Distance: domain.DistanceCosine})
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestNearVector_OrdersByDistance(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(0)); err != nil {
		t.Fatal(err)
	}
	col, err := idx.GetCollection(ctx, "Features")
	if err != nil {
		t.Fatal(err)
	}

	vectors := map[string][]float32{
		"exact":   {1, 0, 0},
		"near":    {0.9, 0.1, 0},
		"far":     {0, 0, 1},
		"reverse": {-1, 0, 0},
	}
	for id, v := range vectors {
		if err := col.Insert(ctx, props(id, id), v); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	results, err := col.NearVector(ctx, []float32{2, 0, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	expected := []string{"exact", "near", "far", "reverse"}
	for i, id := range expected {
		if results[i].Properties.FeatureID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, results[i].Properties.FeatureID)
		}
	}
	if results[0].Distance != 0 {
		t.Errorf("expected distance 0 for identical direction, got %f", results[0].Distance)
	}
	if math.Abs(results[3].Distance-2) > 1e-9 {
		t.Errorf("expected distance 2 for opposite vector, got %f", results[3].Distance)
	}

	top, err := col.NearVector(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Errorf("expected limit 2 to be honoured, got %d", len(top))
	}
}

func TestInsert_ReplacesSameFeatureID(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)); err != nil {
		t.Fatal(err)
	}
	col, _ := idx.GetCollection(ctx, "Features")

	if err := col.Insert(ctx, props("dup", "Old"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := col.Insert(ctx, props("dup", "New"), []float32{0, 1}); err != nil {
		t.Fatal(err)
	}

	results, err := col.NearVector(ctx, []float32{0, 1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Properties.FeatureName != "New" {
		t.Errorf("expected single replaced object, got %+v", results)
	}
}

func TestInsert_Validation(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)); err != nil {
		t.Fatal(err)
	}
	col, _ := idx.GetCollection(ctx, "Features")

	if err := col.Insert(ctx, props("", "No ID"), []float32{1, 0}); !errors.Is(err, domain.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if err := col.Insert(ctx, props("a", "A"), []float32{1, 0, 0}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if _, err := col.NearVector(ctx, []float32{1, 0}, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero limit, got %v", err)
	}
}

func TestPersistsAcrossConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	dialer := NewBoltDialer(path)

	idx, err := dialer.Connect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)); err != nil {
		t.Fatal(err)
	}
	col, _ := idx.GetCollection(ctx, "Features")
	if err := col.Insert(ctx, props("a", "A"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = dialer.Connect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	col, err = idx.GetCollection(ctx, "Features")
	if err != nil {
		t.Fatal(err)
	}
	if n, err := col.(*boltCollection).Count(); err != nil || n != 1 {
		t.Errorf("expected 1 object after reopen, got %d (err %v)", n, err)
	}
}

func TestCosineDistance(t *testing.T) {
	if d := cosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 1, got %f", d)
	}
	if d := cosineDistance([]float32{0, 0}, []float32{1, 1}); d != 1 {
		t.Errorf("zero vector: expected 1, got %f", d)
	}
	if d := cosineDistance([]float32{1}, []float32{1, 1}); d != 1 {
		t.Errorf("length mismatch: expected 1, got %f", d)
	}
}
