package checkin

import "go.uber.org/fx"

// Module exposes the check-in processor via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
