package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/chipper/pkg/log"
)

// WithTracing wraps a tool handler with an OpenTelemetry span and structured
// logging. Errors are recorded on the span.
func WithTracing[In, Out any](tracer trace.Tracer, handler mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		var name string
		if req != nil && req.Params != nil {
			name = req.Params.Name
		}

		ctx, span := tracer.Start(ctx, name)
		defer span.End()

		logger := log.WithContext(ctx)
		logger.DebugContext(ctx, "handling tool call",
			slog.String("name", name),
			slog.Any("args", in),
		)

		result, out, err := handler(ctx, req, in)
		if err != nil {
			logger.ErrorContext(ctx, "tool call failed",
				slog.String("name", name),
				slog.Any("error", err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			logger.DebugContext(ctx, "tool call completed", slog.String("name", name))
		}

		return result, out, err
	}
}
