package telemetry

// ExporterSettings identifies the service to the OTLP collector and selects
// the endpoint both signals export to.
type ExporterSettings struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
}

// withDefaults fills in the blanks so zero-value settings still name the
// service sensibly.
func (s ExporterSettings) withDefaults() ExporterSettings {
	if s.ServiceName == "" {
		s.ServiceName = DefaultServiceName
	}
	if s.ServiceVersion == "" {
		s.ServiceVersion = "unknown"
	}
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}
	return s
}

// settingsFromConfig derives the exporter settings from the telemetry
// section of the server configuration.
func settingsFromConfig(cfg *Config) ExporterSettings {
	return ExporterSettings{
		ServiceName:    cfg.GetServiceName(),
		ServiceVersion: cfg.GetServiceVersion(),
		Endpoint:       cfg.GetEndpoint(),
		Insecure:       cfg.GetInsecure(),
	}
}
