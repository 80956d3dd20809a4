package model

// Settings is the per-invocation configuration: credentials, proxy zones and
// the automation gate. It is read-only for the duration of a call.
type Settings struct {
	SerpAPIKey     string
	SerpZone       string
	UnlockerAPIKey string
	UnlockerZone   string
	AutoEnabled    bool
	Extraction     ExtractionSettings
}

// ExtractionSettings names the extraction back ends available to a call.
type ExtractionSettings struct {
	// ProviderOrder controls which back ends are tried and in what order,
	// e.g. ["openai", "anthropic"]. The first one is primary.
	ProviderOrder    []string
	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string // empty means api.openai.com; any OpenAI-compatible endpoint works
	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string
}

// Enabled reports whether at least one extraction back end has a key.
func (e ExtractionSettings) Enabled() bool {
	return e.OpenAIKey != "" || e.AnthropicKey != ""
}
