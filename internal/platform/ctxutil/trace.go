package ctxutil

import "context"

type traceDataKey struct{}

// TraceData travels with a request so downstream logs and spans can be correlated.
type TraceData struct {
	TraceID      string
	RequestID    string
	GenerationID uint
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty trace fields as logger key/values.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	if td.GenerationID != 0 {
		kv = append(kv, "generation_id", td.GenerationID)
	}
	return kv
}
