package utils

import (
	"context"

	"github.com/huastex/huastex_backend/appctx"
)

var (
	ContextKeyBranch          = appctx.ContextKeyBranch
	ContextKeyCashierName     = appctx.ContextKeyCashierName
	ContextKeyCorrelationId   = appctx.ContextKeyCorrelationId
	ContextKeySkipBranchScope = appctx.ContextKeySkipBranchScope
)

func GetBranchFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBranch)
}

func SetBranchInContext(ctx context.Context, branch string) context.Context {
	return appctx.Set(ctx, ContextKeyBranch, branch)
}

func GetCashierNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCashierName)
}

func SetCashierNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyCashierName, name)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSkipBranchScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipBranchScope, skip)
}
