// Package catalog serves pack templates from configuration.
package catalog

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/fatflowers/packledger/internal/app/service/packerr"
	"github.com/fatflowers/packledger/pkg/config"
	"github.com/fatflowers/packledger/pkg/types"
)

type Catalog interface {
	GetTemplate(ctx context.Context, id string) (*types.PackTemplate, error)
	ListTemplates(ctx context.Context) []*types.PackTemplate
}

type ConfigCatalog struct {
	cfg *config.Config
}

func NewConfigCatalog(cfg *config.Config) *ConfigCatalog {
	return &ConfigCatalog{cfg: cfg}
}

// GetTemplate returns a copy of the template so callers may snapshot it freely.
func (c *ConfigCatalog) GetTemplate(_ context.Context, id string) (*types.PackTemplate, error) {
	t := c.cfg.GetPackTemplateByID(id)
	if t == nil {
		return nil, packerr.NotFound("pack_template", id)
	}
	return clone(t), nil
}

func (c *ConfigCatalog) ListTemplates(_ context.Context) []*types.PackTemplate {
	return lo.Map(c.cfg.PackTemplates, func(t *types.PackTemplate, _ int) *types.PackTemplate {
		return clone(t)
	})
}

func clone(t *types.PackTemplate) *types.PackTemplate {
	out := *t
	if t.ValidityDays != nil {
		out.ValidityDays = lo.ToPtr(*t.ValidityDays)
	}
	return &out
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewConfigCatalog, fx.As(new(Catalog)))),
)
