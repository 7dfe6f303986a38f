package chromemdb

import (
	"context"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurerag/internal/domain"
)

func feature(id, name string, category ...string) domain.FeatureProperties {
	return domain.FeatureProperties{
		FeatureID:   id,
		FeatureName: name,
		Category:    category,
		Description: []string{"does " + name},
		HowItHelps:  "helps with " + name,
		UseCases:    []string{},
		Keywords:    []string{name},
	}
}

func TestIndex_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	idx, err := NewDialer("").Connect(ctx)
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.GetCollection(ctx, "Features")
	assert.ErrorIs(t, err, domain.ErrSchema)

	require.NoError(t, idx.DeleteCollection(ctx, "Features"), "deleting an absent collection")
	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(3)))
	assert.ErrorIs(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(3)), domain.ErrSchema)

	_, err = idx.GetCollection(ctx, "Features")
	require.NoError(t, err)

	require.NoError(t, idx.DeleteCollection(ctx, "Features"))
	_, err = idx.GetCollection(ctx, "Features")
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestIndex_SharedAcrossConnections(t *testing.T) {
	ctx := context.Background()
	dialer := NewDialer("")

	first, err := dialer.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, first.CreateCollection(ctx, "Features", domain.FeatureSchema(2)))
	col, err := first.GetCollection(ctx, "Features")
	require.NoError(t, err)
	require.NoError(t, col.Insert(ctx, feature("a", "A"), []float32{1, 0}))
	require.NoError(t, first.Close())

	second, err := dialer.Connect(ctx)
	require.NoError(t, err)
	col, err = second.GetCollection(ctx, "Features")
	require.NoError(t, err)

	results, err := col.NearVector(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Properties.FeatureID)
}

func TestCollection_NearVector(t *testing.T) {
	ctx := context.Background()
	idx := mustIndex(t)
	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(3)))
	col, err := idx.GetCollection(ctx, "Features")
	require.NoError(t, err)

	require.NoError(t, col.Insert(ctx, feature("tag", "Auto Tagging", "Automation"), []float32{1, 0, 0}))
	require.NoError(t, col.Insert(ctx, feature("route", "Smart Routing", "Automation"), []float32{0.7, 0.7, 0}))
	require.NoError(t, col.Insert(ctx, feature("report", "Reports"), []float32{0, 0, 1}))

	results, err := col.NearVector(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3, "limit is clamped to the collection size")

	assert.Equal(t, "tag", results[0].Properties.FeatureID)
	assert.Equal(t, "route", results[1].Properties.FeatureID)
	assert.Equal(t, "report", results[2].Properties.FeatureID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1, results[2].Distance, 1e-6)

	top := results[0].Properties
	assert.Equal(t, "Auto Tagging", top.FeatureName)
	assert.Equal(t, []string{"Automation"}, top.Category)
	assert.Equal(t, []string{"does Auto Tagging"}, top.Description)
	assert.Equal(t, "helps with Auto Tagging", top.HowItHelps)
	assert.Equal(t, []string{}, top.UseCases)

	limited, err := col.NearVector(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCollection_InsertReplacesAndValidates(t *testing.T) {
	ctx := context.Background()
	idx := mustIndex(t)
	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)))
	col, err := idx.GetCollection(ctx, "Features")
	require.NoError(t, err)

	require.NoError(t, col.Insert(ctx, feature("dup", "Old"), []float32{1, 0}))
	require.NoError(t, col.Insert(ctx, feature("dup", "New"), []float32{0, 1}))

	results, err := col.NearVector(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "New", results[0].Properties.FeatureName)

	assert.ErrorIs(t, col.Insert(ctx, feature("", "No ID"), []float32{1, 0}), domain.ErrMissingField)
	assert.ErrorIs(t, col.Insert(ctx, feature("x", "X"), nil), domain.ErrInvalidVector)
	assert.Error(t, col.Insert(ctx, feature("x", "X"), []float32{1, 0, 0}))

	_, err = col.NearVector(ctx, []float32{0, 1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCollection_EmptyReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	idx := mustIndex(t)
	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(0)))
	col, err := idx.GetCollection(ctx, "Features")
	require.NoError(t, err)

	results, err := col.NearVector(ctx, []float32{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPersistentDialer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewDialer(dir).Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)))
	col, err := idx.GetCollection(ctx, "Features")
	require.NoError(t, err)
	require.NoError(t, col.Insert(ctx, feature("a", "A", "Cat"), []float32{0, 1}))

	reopened, err := NewDialer(dir).Connect(ctx)
	require.NoError(t, err)
	col, err = reopened.GetCollection(ctx, "Features")
	require.NoError(t, err)

	results, err := col.NearVector(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Cat"}, results[0].Properties.Category)
}

func TestNewIndex_UsesCallerDatabase(t *testing.T) {
	ctx := context.Background()
	db := chromem.NewDB()
	idx := NewIndex(db)

	require.NoError(t, idx.CreateCollection(ctx, "Features", domain.FeatureSchema(2)))
	col, err := idx.GetCollection(ctx, "Features")
	require.NoError(t, err)
	require.NoError(t, col.Insert(ctx, feature("a", "A"), []float32{1, 0}))

	raw := db.GetCollection("Features", nil)
	require.NotNil(t, raw)
	assert.Equal(t, 1, raw.Count())

	err = col.Insert(ctx, feature("b", "B"), []float32{1, 0, 0})
	assert.Error(t, err, "schema dimension is enforced")
}

func TestMetadataRoundTrip(t *testing.T) {
	in := feature("id-1", "Name", "A", "B")
	in.UseCases = nil

	meta, err := encodeMetadata(in)
	require.NoError(t, err)
	assert.Equal(t, "[]", meta["use_cases"])

	out, err := decodeMetadata("id-1", meta)
	require.NoError(t, err)
	in.UseCases = []string{}
	assert.Equal(t, in, out)

	_, err = decodeMetadata("bad", map[string]string{"category": "not json"})
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func mustIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewDialer("").Connect(context.Background())
	require.NoError(t, err)
	return idx.(*Index)
}
