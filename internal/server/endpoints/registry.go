package endpoints

import (
	"github.com/jackzampolin/lexreview/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Review endpoints
		&AnalyzeEndpoint{},
		&GetReviewEndpoint{},

		// Reference standard endpoints
		&IngestStandardEndpoint{},
		&DeleteStandardEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&SetPromptEndpoint{},
		&ClearPromptEndpoint{},
	}
}
