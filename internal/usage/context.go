package usage

import "context"

type operationKey struct{}

// ContextWithOperation labels ctx with the operation being performed so the
// LLM client can attribute token counts without threading extra arguments.
func ContextWithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFromContext returns the operation label, defaulting to chat.
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return OperationChat
}
