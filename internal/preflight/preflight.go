package preflight

import (
	"context"
	"path/filepath"

	"carousel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config. engine and
// templates may be nil, in which case their checks are skipped.
func RunAll(ctx context.Context, cfg *config.Config, engine Engine, templates TemplateLoader) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if engine != nil {
		results = append(results, CheckEngine(ctx, engine))
	}

	results = append(results, CheckDirectoryReadable("Template directory", cfg.Templates.Dir))

	if templates != nil {
		results = append(results, CheckTemplate(templates, cfg.Templates.Default))
	}

	results = append(results, CheckDirectoryAccess("Lock directory", filepath.Dir(cfg.Server.LockPath)))

	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
