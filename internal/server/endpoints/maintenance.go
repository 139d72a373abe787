package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/podshelf/podshelf/internal/api"
	"github.com/podshelf/podshelf/internal/audit"
	"github.com/podshelf/podshelf/internal/clean"
	"github.com/podshelf/podshelf/internal/dedupe"
	"github.com/podshelf/podshelf/internal/enrich"
	"github.com/podshelf/podshelf/internal/svcctx"
)

// QualityReportEndpoint handles GET /api/quality/report.
type QualityReportEndpoint struct{}

func (e *QualityReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/quality/report", e.handler
}

func (e *QualityReportEndpoint) RequiresInit() bool { return true }

func (e *QualityReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	auditor := svcctx.AuditorFrom(r.Context())
	report, err := auditor.GenerateReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (e *QualityReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Generate a data quality report for all stored books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp audit.Report
			if err := client.Get(cmd.Context(), "/api/quality/report", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CleanRequest selects the cleaning mode for a bulk run.
type CleanRequest struct {
	// Mode is "low_risk" or "full". Empty means low_risk.
	Mode string `json:"mode,omitempty"`
}

// CleanEndpoint handles POST /api/maintenance/clean.
type CleanEndpoint struct{}

func (e *CleanEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/maintenance/clean", e.handler
}

func (e *CleanEndpoint) RequiresInit() bool { return true }

func (e *CleanEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	mode := clean.ModeLowRisk
	switch req.Mode {
	case "", "low_risk":
	case "full":
		mode = clean.ModeFull
	default:
		writeError(w, http.StatusBadRequest, "mode must be low_risk or full")
		return
	}

	cleaner := svcctx.CleanerFrom(r.Context())
	result, err := cleaner.BulkClean(r.Context(), mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *CleanEndpoint) Command(getServerURL func() string) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run bulk record cleaning",
		Long: `Run bulk record cleaning over all stored books.

By default only low-risk fixes (whitespace trim, URL dedupe) are applied
automatically. Pass --full to also apply casing, ISBN, date, and category
normalization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := "low_risk"
			if full {
				mode = "full"
			}
			client := api.NewClient(getServerURL())
			var resp clean.BulkResult
			if err := client.Post(cmd.Context(), "/api/maintenance/clean", CleanRequest{Mode: mode}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "apply the full rule set")
	return cmd
}

// MergeDuplicatesEndpoint handles POST /api/maintenance/merge. This is a
// destructive operation: duplicate records are folded together and the
// extras deleted.
type MergeDuplicatesEndpoint struct{}

func (e *MergeDuplicatesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/maintenance/merge", e.handler
}

func (e *MergeDuplicatesEndpoint) RequiresInit() bool { return true }

func (e *MergeDuplicatesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	report, err := dedupe.MergeStoredDuplicates(r.Context(), store, logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (e *MergeDuplicatesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge duplicate book records (destructive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp dedupe.MergeReport
			if err := client.Post(cmd.Context(), "/api/maintenance/merge", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// EnrichEndpoint handles POST /api/maintenance/enrich.
type EnrichEndpoint struct{}

func (e *EnrichEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/maintenance/enrich", e.handler
}

func (e *EnrichEndpoint) RequiresInit() bool { return true }

func (e *EnrichEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	enricher := svcctx.EnricherFrom(r.Context())
	if enricher == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment is not enabled")
		return
	}
	store := svcctx.StoreFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	result, err := enrich.EnrichAll(r.Context(), enricher, store, logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *EnrichEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fetch catalog metadata for pending books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp enrich.BatchResult
			if err := client.Post(cmd.Context(), "/api/maintenance/enrich", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
