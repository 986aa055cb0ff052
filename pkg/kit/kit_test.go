package kit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				calls = append(calls, name)
				return next(ctx, req)
			}
		}
	}
	ep := Chain(mw("a"), mw("b"), mw("c"))(func(context.Context, any) (any, error) {
		calls = append(calls, "endpoint")
		return "ok", nil
	})

	resp, err := ep(context.Background(), nil)
	if err != nil || resp != "ok" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
	want := []string{"a", "b", "c", "endpoint"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestLoggedPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := errors.New("boom")
	ep := Logged(logger, "test")(func(context.Context, any) (any, error) {
		return nil, boom
	})
	if _, err := ep(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestLiveCanceled(t *testing.T) {
	called := false
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ep := Chain(Logged(logger, "test"), Live)(func(context.Context, any) (any, error) {
		called = true
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ep(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("endpoint ran on a canceled context")
	}
	if resp, err := ep(context.Background(), nil); err != nil || resp != "ok" {
		t.Errorf("resp=%v err=%v", resp, err)
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("default transport = %q, want http", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("default request id = %q", got)
	}

	ctx = WithRequestID(WithTransport(ctx, "mcp"), "abc")
	if GetTransport(ctx) != "mcp" || GetRequestID(ctx) != "abc" {
		t.Errorf("transport=%q request_id=%q", GetTransport(ctx), GetRequestID(ctx))
	}
}
