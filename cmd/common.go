package cmd

import "github.com/sunerpy/indexproxy/models"

// modelCategory parses a config-supplied category string, falling back to
// "all" on anything unrecognized rather than failing startup over a seed
// query detail.
func modelCategory(s string) models.Category {
	if s == "" {
		return models.CategoryAll
	}
	c, err := models.ParseCategory(s)
	if err != nil {
		return models.CategoryAll
	}
	return c
}
