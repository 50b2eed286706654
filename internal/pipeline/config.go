package pipeline

import (
	"strings"
	"unicode/utf8"

	"itvetl/internal/config"
	"itvetl/internal/domain"
	"itvetl/internal/reader"
)

// ConfigFrom derives the service configuration from the loaded settings.
// Sources without a location are left out; requesting them fails with
// ErrSourceNotConfigured.
func ConfigFrom(cfg *config.Config) Config {
	out := Config{
		Sources:    make(map[domain.Source]reader.Spec, len(domain.AllSources)),
		Thresholds: cfg.Thresholds(),
		Job:        cfg.Metrics.Job,
	}
	for _, src := range domain.AllSources {
		sc, ok := cfg.Source(src)
		if !ok || strings.TrimSpace(sc.Location) == "" {
			continue
		}
		spec := reader.Spec{
			Location:  sc.Location,
			Format:    reader.Format(strings.ToLower(sc.Format)),
			RecordTag: sc.RecordTag,
		}
		if r, _ := utf8.DecodeRuneInString(sc.Delimiter); r != utf8.RuneError {
			spec.Delimiter = r
		}
		out.Sources[src] = spec
	}
	return out
}
