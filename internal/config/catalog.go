package config

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/dealdates/internal/model"
)

// Catalog returns the default milestone catalog with the [milestones.<key>]
// overrides applied. Unknown keys are an error.
func (c Config) Catalog() (model.Catalog, error) {
	cat := model.DefaultCatalog()
	if len(c.Milestones) == 0 {
		return cat, nil
	}

	keys := make([]string, 0, len(c.Milestones))
	for k := range c.Milestones {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		o := c.Milestones[key]
		idx := -1
		for i, d := range cat {
			if d.Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("config: milestones.%s: %w", key, model.ErrUnknownMilestone)
		}
		def := &cat[idx]
		if def.IsRoot() && (o.OffsetDays != nil || o.BusinessDays != nil) {
			return nil, fmt.Errorf("config: milestones.%s: root milestone takes no offset", key)
		}
		if o.OffsetDays != nil {
			n := *o.OffsetDays
			def.DefaultOffset = &n
		}
		if o.BusinessDays != nil {
			def.BusinessDays = *o.BusinessDays
		}
		if o.PushOffWeekend != nil {
			def.PushOffWeekend = *o.PushOffWeekend
		}
	}
	return cat, nil
}
