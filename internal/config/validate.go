package config

import (
	"fmt"
	"net/url"
	"strings"

	"itvetl/internal/domain"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path is a dotted path into the config
// (e.g. "storage.kind", "sources.cat.record_tag").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error so an Issue can be returned on its own.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg without mutating it. Callers decide
// whether warnings are fatal.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	issues = append(issues, validateSources(cfg)...)
	issues = append(issues, validateStorage(cfg.Storage)...)
	issues = append(issues, validateGeocoder(cfg.Geocoder)...)
	issues = append(issues, validateNormalize(cfg.Normalize)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		issues = append(issues, Issue{SeverityWarning, "http.addr", "empty address; serve will listen on :8080"})
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, Issue{SeverityWarning, "log.level", fmt.Sprintf("unknown level %q; falling back to info", cfg.Log.Level)})
	}
	return issues
}

var knownFormats = map[string]struct{}{"json": {}, "xml": {}, "csv": {}}

func validateSources(cfg *Config) []Issue {
	var issues []Issue
	for _, src := range domain.AllSources {
		key := strings.ToLower(string(src))
		path := "sources." + key
		sc, ok := cfg.Source(src)
		if !ok || strings.TrimSpace(sc.Location) == "" {
			issues = append(issues, Issue{SeverityWarning, path + ".location", fmt.Sprintf("no location for %s; loads requesting it will fail", src)})
			continue
		}
		if _, known := knownFormats[sc.Format]; !known {
			issues = append(issues, Issue{SeverityError, path + ".format", fmt.Sprintf("unknown format %q (want json, xml or csv)", sc.Format)})
		}
		if sc.Format == "xml" && strings.TrimSpace(sc.RecordTag) == "" {
			issues = append(issues, Issue{SeverityError, path + ".record_tag", "xml sources require a record tag"})
		}
		if sc.Format == "csv" && len([]rune(sc.Delimiter)) > 1 {
			issues = append(issues, Issue{SeverityError, path + ".delimiter", "csv delimiter must be a single character"})
		}
	}
	return issues
}

func validateStorage(s StorageConfig) []Issue {
	var issues []Issue
	switch s.Kind {
	case "sqlite", "postgres":
	case "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind", fmt.Sprintf("unknown storage kind %q (want sqlite or postgres)", s.Kind)})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "storage.dsn must not be empty"})
	}
	return issues
}

func validateGeocoder(g GeocoderConfig) []Issue {
	if !g.Enabled {
		return nil
	}
	var issues []Issue
	if u, err := url.Parse(g.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, Issue{SeverityError, "geocoder.base_url", "enabled geocoder requires an absolute base_url"})
	}
	if g.Timeout <= 0 {
		issues = append(issues, Issue{SeverityError, "geocoder.timeout", "timeout must be positive"})
	}
	if g.RatePerSecond <= 0 {
		issues = append(issues, Issue{SeverityWarning, "geocoder.rate_per_second", "non-positive rate disables pacing"})
	}
	if g.LatSelector == "" || g.LonSelector == "" {
		issues = append(issues, Issue{SeverityError, "geocoder.lat_selector", "both coordinate selectors are required"})
	}
	return issues
}

func validateNormalize(n NormalizeConfig) []Issue {
	var issues []Issue
	if n.FuzzyThreshold <= 0 || n.FuzzyThreshold > 1 {
		issues = append(issues, Issue{SeverityError, "normalize.fuzzy_threshold", "must be in (0, 1]"})
	}
	if n.NearZero < 0 {
		issues = append(issues, Issue{SeverityError, "normalize.near_zero", "must not be negative"})
	}
	if n.GarbageMagnitude <= 180 {
		issues = append(issues, Issue{SeverityWarning, "normalize.garbage_magnitude", "values at or below 180 reject legitimate longitudes"})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		}
	case "datadog":
		if m.StatsdAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.statsd_addr", "datadog backend requires a statsd address"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown backend %q; metrics disabled", m.Backend)})
	}
	if m.Backend != "" && m.Backend != "none" && strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{SeverityWarning, "metrics.job", "empty job label"})
	}
	return issues
}
