// Package qdrant implements the vector index on a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"featurerag/internal/domain"
	"featurerag/internal/port"
)

// pointIDNamespace derives stable point UUIDs from feature ids, so that
// re-inserting a feature replaces its point.
var pointIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("featurerag/feature_id"))

// PointsAPI is the subset of pb.PointsClient used by the index.
type PointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	CreateFieldIndex(ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// CollectionsAPI is the subset of pb.CollectionsClient used by the index.
type CollectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Dialer connects to a Qdrant gRPC endpoint such as localhost:6334.
type Dialer struct {
	addr string
}

func NewDialer(addr string) *Dialer {
	return &Dialer{addr: addr}
}

func (d *Dialer) Connect(ctx context.Context) (port.VectorIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(d.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial qdrant %s: %v", domain.ErrConnection, d.addr, err)
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// Index implements port.VectorIndex on Qdrant.
type Index struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
}

// NewWithClients builds an index on pre-constructed clients. Close does not
// own any connection.
func NewWithClients(points PointsAPI, collections CollectionsAPI) *Index {
	return &Index{points: points, collections: collections}
}

func (x *Index) Close() error {
	if x.conn == nil {
		return nil
	}
	return x.conn.Close()
}

func (x *Index) exists(ctx context.Context, name string) (bool, error) {
	list, err := x.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("%w: list collections: %v", domain.ErrConnection, err)
	}
	return lo.ContainsBy(list.GetCollections(), func(c *pb.CollectionDescription) bool {
		return c.GetName() == name
	}), nil
}

func (x *Index) CreateCollection(ctx context.Context, name string, schema domain.CollectionSchema) error {
	if name == "" {
		return fmt.Errorf("%w: collection name must not be empty", domain.ErrSchema)
	}
	if schema.PrimaryKey() == "" {
		return fmt.Errorf("%w: collection %s has no primary key", domain.ErrSchema, name)
	}
	if schema.Dimension <= 0 {
		return fmt.Errorf("%w: qdrant collection %s needs a vector dimension", domain.ErrSchema, name)
	}

	found, err := x.exists(ctx, name)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: collection %s already exists", domain.ErrSchema, name)
	}

	_, err = x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(schema.Dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	wait := true
	for _, p := range schema.Properties {
		if !p.Indexed {
			continue
		}
		_, err := x.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: name,
			Wait:           &wait,
			FieldName:      p.Name,
			FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to index %s.%s: %w", name, p.Name, err)
		}
	}
	return nil
}

func (x *Index) DeleteCollection(ctx context.Context, name string) error {
	found, err := x.exists(ctx, name)
	if err != nil || !found {
		return err
	}
	if _, err := x.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

func (x *Index) GetCollection(ctx context.Context, name string) (port.Collection, error) {
	found, err := x.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: collection %s does not exist", domain.ErrSchema, name)
	}
	return &collection{points: x.points, name: name}, nil
}

type collection struct {
	points PointsAPI
	name   string
}

func (c *collection) Insert(ctx context.Context, props domain.FeatureProperties, vector []float32) error {
	if props.FeatureID == "" {
		return fmt.Errorf("%w: feature_id", domain.ErrMissingField)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty", domain.ErrInvalidVector)
	}

	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(props.FeatureID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vector},
				},
			},
			Payload: encodePayload(props),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %s: %w", props.FeatureID, err)
	}
	return nil
}

func (c *collection) NearVector(ctx context.Context, vector []float32, limit int) ([]domain.QueryResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}

	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: c.name,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	// Qdrant reports cosine similarity; convert to distance.
	return lo.Map(resp.GetResult(), func(p *pb.ScoredPoint, _ int) domain.QueryResult {
		d := 1 - float64(p.GetScore())
		if d < 0 {
			d = 0
		}
		return domain.QueryResult{Properties: decodePayload(p.GetPayload()), Distance: d}
	}), nil
}

// PointID maps a feature id to the UUID of its point. Ids that already are
// UUIDs are used as is.
func PointID(featureID string) string {
	if id, err := uuid.Parse(featureID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointIDNamespace, []byte(featureID)).String()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func listValue(items []string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{
		Values: lo.Map(items, func(s string, _ int) *pb.Value { return stringValue(s) }),
	}}}
}

func encodePayload(p domain.FeatureProperties) map[string]*pb.Value {
	return map[string]*pb.Value{
		"feature_id":   stringValue(p.FeatureID),
		"feature_name": stringValue(p.FeatureName),
		"category":     listValue(p.Category),
		"description":  listValue(p.Description),
		"how_it_helps": stringValue(p.HowItHelps),
		"use_cases":    listValue(p.UseCases),
		"keywords":     listValue(p.Keywords),
	}
}

func decodeList(v *pb.Value) []string {
	values := v.GetListValue().GetValues()
	return lo.FilterMap(values, func(e *pb.Value, _ int) (string, bool) {
		s, ok := e.GetKind().(*pb.Value_StringValue)
		if !ok {
			return "", false
		}
		return s.StringValue, true
	})
}

func decodePayload(payload map[string]*pb.Value) domain.FeatureProperties {
	return domain.FeatureProperties{
		FeatureID:   payload["feature_id"].GetStringValue(),
		FeatureName: payload["feature_name"].GetStringValue(),
		Category:    decodeList(payload["category"]),
		Description: decodeList(payload["description"]),
		HowItHelps:  payload["how_it_helps"].GetStringValue(),
		UseCases:    decodeList(payload["use_cases"]),
		Keywords:    decodeList(payload["keywords"]),
	}
}
