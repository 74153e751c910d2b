package commands

import (
	"context"

	"musync/internal/cui"
	"musync/internal/reconcile"
)

// Check resolves discrepancies between the library, the DAP and the DB.
type Check struct {
	Path             string // empty checks everything
	IgnoreDAPContent bool
}

func (Check) Kind() Kind { return KindCheck }

func (k Check) Label() string {
	label := withPath("check", k.Path)
	if k.IgnoreDAPContent {
		label += " -i"
	}
	return label
}

func (Check) sealed() {}

func (k Check) Run(ctx context.Context, env *Env, c cui.Cui) error {
	_, err := reconcile.Check(ctx, c, reconcile.Sources{
		PC:  env.Library,
		DAP: env.DAP,
		DB:  env.Store,
	}, reconcile.CheckOptions{
		Prefix:           k.Path,
		IgnoreDAPContent: k.IgnoreDAPContent,
	})
	return err
}
