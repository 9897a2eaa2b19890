package config

import (
	"context"
	"strings"

	"github.com/huastex/huastex_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const locationColumn = "location"

// BranchGuardPlugin scopes queries, updates and deletes of models that carry a
// location column to the store the request was made from.
//
// NOTE:
// - Raw SQL is not scoped.
// - Requests without a branch (or with "all") see every store.
type BranchGuardPlugin struct{}

func NewBranchGuardPlugin() *BranchGuardPlugin { return &BranchGuardPlugin{} }

func (p *BranchGuardPlugin) Name() string { return "branch_guard" }

func (p *BranchGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("branch_guard:query", branchGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("branch_guard:row", branchGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("branch_guard:update", branchGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("branch_guard:delete", branchGuardCallback); err != nil {
		return err
	}
	return nil
}

func branchGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if skip, ok := appctx.GetBool(ctx, appctx.ContextKeySkipBranchScope); ok && skip {
		return
	}
	branch := branchFromContext(ctx)
	if branch == "" {
		return
	}
	if db.Statement.Schema == nil || db.Statement.Schema.LookUpField(locationColumn) == nil {
		return
	}
	if whereHasLocation(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: locationColumn},
				Value:  branch,
			},
		},
	})
}

func branchFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyBranch)
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return ""
	}
	return v
}

func whereHasLocation(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasLocation(e) {
			return true
		}
	}
	return false
}

func exprHasLocation(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isLocationColumn(v.Column)
	case clause.Neq:
		return isLocationColumn(v.Column)
	case clause.IN:
		return isLocationColumn(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasLocation(x) {
				return true
			}
		}
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasLocation(x) {
				return true
			}
		}
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), locationColumn)
	}
	return false
}

func isLocationColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, locationColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, locationColumn)
	}
	return false
}
