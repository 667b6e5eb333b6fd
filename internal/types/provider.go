package types

// ProviderID identifies a supported text-generation backend.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "openai"
	ProviderGroq   ProviderID = "groq"
	ProviderGoogle ProviderID = "google"
)

// SupportedProviders lists every provider with an adapter, in declaration order.
func SupportedProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderGroq, ProviderGoogle}
}

// Supported reports whether an adapter exists for the provider.
func (p ProviderID) Supported() bool {
	switch p {
	case ProviderOpenAI, ProviderGroq, ProviderGoogle:
		return true
	default:
		return false
	}
}

// EnvPrefix returns the upper-case prefix used for the provider's environment
// variables, e.g. OPENAI for OPENAI_API_KEY.
func (p ProviderID) EnvPrefix() string {
	b := []byte(p)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
