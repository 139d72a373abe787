package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/podshelf/podshelf/internal/api"
	"github.com/podshelf/podshelf/internal/extract"
	"github.com/podshelf/podshelf/internal/pipeline"
	"github.com/podshelf/podshelf/internal/svcctx"
)

// IngestRequest controls a feed ingestion run.
type IngestRequest struct {
	// Limit caps how many episodes to process; zero means all.
	Limit int `json:"limit,omitempty"`
}

// IngestEndpoint handles POST /api/ingest: fetch the configured feed and
// run every episode through extraction.
type IngestEndpoint struct{}

func (e *IngestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/ingest", e.handler
}

func (e *IngestEndpoint) RequiresInit() bool { return true }

func (e *IngestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	source := svcctx.FeedFrom(r.Context())
	if source == nil {
		writeError(w, http.StatusServiceUnavailable, "no feed configured")
		return
	}

	episodes, err := source.FetchEpisodes(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if req.Limit > 0 && req.Limit < len(episodes) {
		episodes = episodes[:req.Limit]
	}

	svc := svcctx.PipelineFrom(r.Context())
	result, err := svc.ProcessEpisodes(r.Context(), episodes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *IngestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the podcast feed and extract books from new episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp pipeline.RunResult
			if err := client.Post(cmd.Context(), "/api/ingest", IngestRequest{Limit: limit}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max episodes to process (0 = all)")
	return cmd
}

// ExtractRequest is a one-off extraction request.
type ExtractRequest struct {
	Description string `json:"description"`
	EpisodeID   string `json:"episode_id,omitempty"`
}

// ExtractEndpoint handles POST /api/extract: run extraction on raw text
// without persisting anything. Useful for prompt debugging.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	extractor := svcctx.ExtractorFrom(r.Context())
	result := extractor.ExtractBooksFromEpisode(r.Context(), req.Description, extract.Options{
		EpisodeID:        req.EpisodeID,
		PreservedContext: extractor.PreservedContext(req.EpisodeID),
	})
	writeJSON(w, http.StatusOK, result)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var episodeID string
	cmd := &cobra.Command{
		Use:   "extract <description>",
		Short: "Extract books from raw episode text without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp extract.Result
			req := ExtractRequest{Description: args[0], EpisodeID: episodeID}
			if err := client.Post(cmd.Context(), "/api/extract", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&episodeID, "episode-id", "", "episode id for context preservation")
	return cmd
}
