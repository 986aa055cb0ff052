package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/nutrimatch/pkg/kit"
	"github.com/hazyhaar/nutrimatch/pkg/lookup"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
	"github.com/hazyhaar/nutrimatch/pkg/resolve"
)

// Shared request/response types used by both HTTP and MCP transports.

// MaxBatch bounds resolve batches.
const MaxBatch = 100

var (
	errNotFound = errors.New("no match")
	errInvalid  = errors.New("invalid request")
)

type resolveReq struct {
	Label string
}

type resolveBatchReq struct {
	Labels []string
}

type batchResponse struct {
	Results []*resolve.Entry `json:"results"`
}

type estimateReq struct {
	Label string
}

type estimateResponse struct {
	Label   string           `json:"label"`
	Per100g nutrition.Macros `json:"per100g"`
}

type analyzeReq struct {
	Predictions []lookup.Prediction
}

type endpoints struct {
	resolve      kit.Endpoint
	resolveBatch kit.Endpoint
	estimate     kit.Endpoint
	analyze      kit.Endpoint
}

// newEndpoints builds the endpoints once so HTTP and MCP share them.
func newEndpoints(svc *lookup.Service, logger *slog.Logger) endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logged(logger, name), kit.Live)(ep)
	}
	return endpoints{
		resolve:      wrap("resolve", resolveEndpoint(svc)),
		resolveBatch: wrap("resolve_batch", resolveBatchEndpoint(svc)),
		estimate:     wrap("estimate", estimateEndpoint(svc)),
		analyze:      wrap("analyze", analyzeEndpoint(svc)),
	}
}

func resolveEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		if strings.TrimSpace(req.Label) == "" {
			return nil, fmt.Errorf("%w: missing label", errInvalid)
		}
		e := svc.Resolve(req.Label)
		if e == nil {
			return nil, fmt.Errorf("%w for %q", errNotFound, req.Label)
		}
		return e, nil
	}
}

func resolveBatchEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveBatchReq)
		if len(req.Labels) == 0 {
			return nil, fmt.Errorf("%w: labels array is empty", errInvalid)
		}
		if len(req.Labels) > MaxBatch {
			return nil, fmt.Errorf("%w: too many labels (max %d, got %d)", errInvalid, MaxBatch, len(req.Labels))
		}
		results := make([]*resolve.Entry, len(req.Labels))
		for i, label := range req.Labels {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = svc.Resolve(label)
		}
		return batchResponse{Results: results}, nil
	}
}

func estimateEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*estimateReq)
		if strings.TrimSpace(req.Label) == "" {
			return nil, fmt.Errorf("%w: missing label", errInvalid)
		}
		m := svc.Estimate(req.Label)
		if m == nil {
			return nil, fmt.Errorf("%w for %q", errNotFound, req.Label)
		}
		return estimateResponse{Label: req.Label, Per100g: *m}, nil
	}
}

func analyzeEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*analyzeReq)
		if len(req.Predictions) > MaxBatch {
			return nil, fmt.Errorf("%w: too many predictions (max %d, got %d)", errInvalid, MaxBatch, len(req.Predictions))
		}
		a, err := svc.Analyze(ctx, req.Predictions)
		if errors.Is(err, lookup.ErrNoPredictions) {
			return nil, fmt.Errorf("%w: %v", errInvalid, err)
		}
		return a, err
	}
}
