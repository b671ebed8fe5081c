package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
)

// RegisterRegistryTools adds the tools that read and mutate the local
// registries: jobs, datasets and visualizations.
func RegisterRegistryTools(s *server.MCPServer, tracker *service.Tracker, datasets *store.DatasetStore, jobs *store.JobStore, vizzes *store.VisualizationStore) {
	s.AddTool(listJobsTool(), listJobsHandler(jobs))
	s.AddTool(getJobTool(), getJobHandler(jobs))
	s.AddTool(deleteJobTool(), deleteJobHandler(tracker))
	s.AddTool(listDatasetsTool(), listDatasetsHandler(datasets))
	s.AddTool(getDatasetTool(), getDatasetHandler(datasets))
	s.AddTool(deleteDatasetTool(), deleteDatasetHandler(datasets))
	s.AddTool(createVisualizationTool(), createVisualizationHandler(tracker))
	s.AddTool(listVisualizationsTool(), listVisualizationsHandler(vizzes))
}

// --- list_jobs ---

func listJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription("List tracked analysis jobs, optionally filtered by method, status or dataset."),
		mcp.WithString("method",
			mcp.Description("Only jobs for this analysis method"),
		),
		mcp.WithString("status",
			mcp.Description("Only jobs in this status"),
			mcp.Enum("pending", "completed", "error"),
		),
		mcp.WithString("dataset_id",
			mcp.Description("Only jobs that reference this dataset"),
		),
	)
}

func listJobsHandler(jobs *store.JobStore) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		matches := jobs.Filter(
			req.GetString("method", ""),
			req.GetString("status", ""),
			req.GetString("dataset_id", ""),
		)
		return jsonResult(map[string]interface{}{
			"total":   len(matches),
			"results": matches,
		})
	}
}

// --- get_job ---

func getJobTool() mcp.Tool {
	return mcp.NewTool("get_job",
		mcp.WithDescription("Get a tracked job record, including its cached results when present."),
		mcp.WithString("job_id",
			mcp.Description("Identifier of the tracked job"),
			mcp.Required(),
		),
	)
}

func getJobHandler(jobs *store.JobStore) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("job_id", "")
		job, ok := jobs.Get(id)
		if !ok {
			return toolError(fmt.Errorf("job %s is not tracked", id))
		}
		return jsonResult(job)
	}
}

// --- delete_job ---

func deleteJobTool() mcp.Tool {
	return mcp.NewTool("delete_job",
		mcp.WithDescription("Delete a tracked job and every visualization linked to it."),
		mcp.WithString("job_id",
			mcp.Description("Identifier of the tracked job"),
			mcp.Required(),
		),
	)
}

func deleteJobHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("job_id", "")
		if err := tracker.DeleteJob(id); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Job %s deleted, linked visualizations removed.", id)), nil
	}
}

// --- list_datasets ---

func listDatasetsTool() mcp.Tool {
	return mcp.NewTool("list_datasets",
		mcp.WithDescription("List the registered datasets."),
	)
}

func listDatasetsHandler(datasets *store.DatasetStore) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		all := datasets.GetAll()
		return jsonResult(map[string]interface{}{
			"total":   len(all),
			"results": all,
		})
	}
}

// --- get_dataset ---

func getDatasetTool() mcp.Tool {
	return mcp.NewTool("get_dataset",
		mcp.WithDescription("Get a registered dataset record."),
		mcp.WithString("dataset_id",
			mcp.Description("Identifier of the dataset"),
			mcp.Required(),
		),
	)
}

func getDatasetHandler(datasets *store.DatasetStore) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("dataset_id", "")
		ds, ok := datasets.Get(id)
		if !ok {
			return toolError(fmt.Errorf("dataset %s is not registered", id))
		}
		return jsonResult(ds)
	}
}

// --- delete_dataset ---

func deleteDatasetTool() mcp.Tool {
	return mcp.NewTool("delete_dataset",
		mcp.WithDescription("Delete a registered dataset and its local files. Jobs that reference the dataset are kept."),
		mcp.WithString("dataset_id",
			mcp.Description("Identifier of the dataset"),
			mcp.Required(),
		),
	)
}

func deleteDatasetHandler(datasets *store.DatasetStore) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("dataset_id", "")
		if err := datasets.Delete(id); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Dataset %s deleted.", id)), nil
	}
}

// --- create_visualization ---

func createVisualizationTool() mcp.Tool {
	return mcp.NewTool("create_visualization",
		mcp.WithDescription("Record a visualization for a tracked job. Provide the data inline or extract it from the job's cached results with a JSONPath expression."),
		mcp.WithString("job_id",
			mcp.Description("Identifier of the tracked job the visualization belongs to"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Visualization type, e.g. scatter or heatmap (default: the job's method)"),
		),
		mcp.WithString("title",
			mcp.Description("Display title"),
		),
		mcp.WithString("description",
			mcp.Description("What the visualization shows"),
		),
		mcp.WithString("component",
			mcp.Description("Rendering component hint for the consuming UI"),
		),
		mcp.WithString("data_path",
			mcp.Description("JSONPath expression evaluated against the job's cached results, e.g. $.MLE.content"),
		),
		mcp.WithObject("data",
			mcp.Description("Inline visualization data, used when data_path is not given"),
		),
		mcp.WithObject("config",
			mcp.Description("Rendering configuration, e.g. axis labels"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Free-form annotations"),
		),
	)
}

func createVisualizationHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		res := tracker.CreateVisualization(service.VizRequest{
			JobID:       stringArg(args, "job_id"),
			Type:        stringArg(args, "type"),
			Title:       stringArg(args, "title"),
			Description: stringArg(args, "description"),
			Component:   stringArg(args, "component"),
			DataPath:    stringArg(args, "data_path"),
			Data:        args["data"],
			Config:      mapArg(args, "config"),
			Metadata:    mapArg(args, "metadata"),
		})
		if res.Status == datamonkey.StatusError {
			return mcp.NewToolResultError(res.Error), nil
		}
		return jsonResult(res.Visualization)
	}
}

// --- list_visualizations ---

func listVisualizationsTool() mcp.Tool {
	return mcp.NewTool("list_visualizations",
		mcp.WithDescription("List recorded visualizations, optionally filtered by job or dataset."),
		mcp.WithString("job_id",
			mcp.Description("Only visualizations linked to this job"),
		),
		mcp.WithString("dataset_id",
			mcp.Description("Only visualizations linked to this dataset"),
		),
	)
}

func listVisualizationsHandler(vizzes *store.VisualizationStore) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var matches []model.Visualization
		switch {
		case req.GetString("job_id", "") != "":
			matches = vizzes.GetByJob(req.GetString("job_id", ""))
		case req.GetString("dataset_id", "") != "":
			matches = vizzes.GetByDataset(req.GetString("dataset_id", ""))
		default:
			matches = vizzes.GetAll()
		}
		return jsonResult(map[string]interface{}{
			"total":   len(matches),
			"results": matches,
		})
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// jsonResult renders a value as indented JSON text content.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("failed to encode result: %w", err))
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func mapArg(args map[string]interface{}, key string) map[string]interface{} {
	m, _ := args[key].(map[string]interface{})
	return m
}
