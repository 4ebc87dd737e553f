package ctxutil

import "context"

type traceDataKey struct{}
type clientDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

// ClientData describes the caller of an unauthenticated public endpoint.
type ClientData struct {
	IP        string
	UserAgent string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

func WithClientData(ctx context.Context, cd *ClientData) context.Context {
	return context.WithValue(ctx, clientDataKey{}, cd)
}

func GetClientData(ctx context.Context) *ClientData {
	if cd, ok := ctx.Value(clientDataKey{}).(*ClientData); ok {
		return cd
	}
	return nil
}
