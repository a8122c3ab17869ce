package assignment

import "go.uber.org/fx"

// Module exposes the assignment service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
