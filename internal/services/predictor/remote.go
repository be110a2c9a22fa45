package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/services/features"
	xhttp "SignalForge/pkg/http"
)

// RemoteModel asks an external model service for the probability.
type RemoteModel struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

var _ Model = (*RemoteModel)(nil)

func NewRemoteModel(baseURL string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RemoteModel{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: 2,
	}
}

type predictReq struct {
	Features map[string]float64 `json:"features"`
}

type predictResp struct {
	Probability float64 `json:"probability"`
}

func (r *RemoteModel) Probability(ctx context.Context, x []float64) (float64, error) {
	if len(x) != len(features.Names) {
		return 0, features.ErrShapeMismatch
	}
	req := predictReq{Features: make(map[string]float64, len(x))}
	for i, name := range features.Names {
		req.Features[name] = x[i]
	}

	var resp predictResp
	if err := r.postJSONWithRetry(ctx, "/predict", req, &resp); err != nil {
		return 0, err
	}
	if resp.Probability < 0 || resp.Probability > 1 {
		return 0, fmt.Errorf("model service returned probability %v", resp.Probability)
	}
	return resp.Probability, nil
}

func (r *RemoteModel) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if r.client == nil || r.baseURL == "" {
		return errors.New("model service client not initialized")
	}
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (r *RemoteModel) postJSONWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= r.attempts; i++ {
		if err = r.postJSON(ctx, path, payload, dest); err == nil {
			return nil
		}
		if i == r.attempts || !xhttp.IsRetryable(err) {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
