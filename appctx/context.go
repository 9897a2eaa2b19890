package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> utils).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyBranch        = ContextKey("Branch")
	ContextKeyCashierName   = ContextKey("CashierName")
	ContextKeyCorrelationId = ContextKey("CorrelationId")

	// ContextKeySkipBranchScope disables branch scoping for the request.
	// Used by maintenance tools that work across every store.
	ContextKeySkipBranchScope = ContextKey("SkipBranchScope")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	v, ok := ctx.Value(key).(bool)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
