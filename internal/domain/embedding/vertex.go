package embedding

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// Default Vertex provider configuration constants.
const (
	defaultVertexLocation = "us-central1"
	defaultVertexModel    = "text-embedding-005"
)

// VertexOption applies a configuration option to the Vertex embedder.
type VertexOption func(*Vertex)

// WithVertexLocation sets the GCP region hosting the model.
func WithVertexLocation(location string) VertexOption {
	return func(v *Vertex) {
		if location != "" {
			v.location = location
		}
	}
}

// WithVertexModel sets the publisher model name.
func WithVertexModel(model string) VertexOption {
	return func(v *Vertex) {
		if model != "" {
			v.model = model
		}
	}
}

// WithVertexCredentialsFile points the client at a service-account key file.
func WithVertexCredentialsFile(path string) VertexOption {
	return func(v *Vertex) {
		if path != "" {
			v.credentialsFile = path
		}
	}
}

// Vertex uses a Vertex AI publisher text-embedding model to generate
// embeddings through the prediction API.
type Vertex struct {
	client          *aiplatform.PredictionClient
	projectID       string
	location        string
	model           string
	credentialsFile string
	endpoint        string
}

// NewVertex creates an embedder backed by Vertex AI. The client holds a
// gRPC connection; call Close when done.
func NewVertex(ctx context.Context, projectID string, opts ...VertexOption) (*Vertex, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", ErrUnavailable)
	}

	v := &Vertex{
		projectID: projectID,
		location:  defaultVertexLocation,
		model:     defaultVertexModel,
	}

	// Apply all options
	for _, opt := range opts {
		opt(v)
	}

	// Prediction requests must go to the regional API endpoint.
	clientOpts := []option.ClientOption{
		option.WithEndpoint(v.location + "-aiplatform.googleapis.com:443"),
	}
	if v.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(v.credentialsFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create prediction client: %w", ErrUnavailable, err)
	}

	v.client = client
	v.endpoint = fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
		v.projectID, v.location, v.model)
	return v, nil
}

// Embed implements Embedder. It requests a RETRIEVAL_QUERY embedding so
// target and guess vectors live in the same space.
func (v *Vertex) Embed(ctx context.Context, text string) ([]float32, error) {
	instance, err := structpb.NewStruct(map[string]interface{}{
		"content":   text,
		"task_type": "RETRIEVAL_QUERY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrUnavailable, err)
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: []*structpb.Value{structpb.NewStructValue(instance)},
	}

	resp, err := v.client.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", ErrUnavailable, err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("%w: vertex", ErrEmptyResponse)
	}

	prediction := resp.Predictions[0].GetStructValue()
	embeddings := prediction.GetFields()["embeddings"].GetStructValue()
	values := embeddings.GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: vertex", ErrEmptyResponse)
	}

	vec := make([]float32, len(values))
	for i, val := range values {
		vec[i] = float32(val.GetNumberValue())
	}
	return vec, nil
}

// Close releases the underlying client connection.
func (v *Vertex) Close() error {
	return v.client.Close()
}
