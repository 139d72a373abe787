package endpoints

import (
	"github.com/podshelf/podshelf/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Book endpoints
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&CreateBookEndpoint{},
		&UpdateBookEndpoint{},
		&DeleteBookEndpoint{},

		// Pipeline endpoints
		&IngestEndpoint{},
		&ExtractEndpoint{},

		// Maintenance endpoints
		&QualityReportEndpoint{},
		&CleanEndpoint{},
		&MergeDuplicatesEndpoint{},
		&EnrichEndpoint{},
	}
}
