package auditlog

import "context"

type operatorKey struct{}

// Operator identifies who performed a change.
type Operator struct {
	ID        string
	Name      string
	RequestID string
}

// WithOperator returns a context carrying op.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the operator stored in ctx, or a "system" operator.
func OperatorFrom(ctx context.Context) Operator {
	if op, ok := ctx.Value(operatorKey{}).(Operator); ok {
		return op
	}
	return Operator{ID: "system", Name: "system"}
}

// NewChange builds a ChangeLog for the operator in ctx.
func NewChange(ctx context.Context, objectType, objectID, action string, before, after any) ChangeLog {
	op := OperatorFrom(ctx)
	return ChangeLog{
		OperatorID:   op.ID,
		OperatorName: op.Name,
		ObjectType:   objectType,
		ObjectID:     objectID,
		Action:       action,
		Before:       marshalOrNil(before),
		After:        marshalOrNil(after),
		RequestID:    op.RequestID,
	}
}
