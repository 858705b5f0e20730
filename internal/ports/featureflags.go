package ports

import "context"

// FlagImportDeduplicate makes import skip quotes whose text is already in
// the collection, the policy sync always applies. Off unless configured.
const FlagImportDeduplicate = "import-deduplicate"

// FeatureFlags answers whether an optional behaviour is switched on. Flags
// come from the features section of the configuration.
type FeatureFlags interface {
	// IsEnabled returns fallback for a flag nobody configured.
	IsEnabled(ctx context.Context, flag string, fallback bool) bool
}
