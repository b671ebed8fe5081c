// Package mcptools exposes the tracker over the Model Context Protocol so
// agents can drive analyses through the same service the HTTP layer uses.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
)

// RegisterAnalysisTools adds the remote-API tools to the MCP server: the
// health probe, the upload cache, the method catalog, one start tool per
// analysis method, and the status/result tools.
func RegisterAnalysisTools(s *server.MCPServer, tracker *service.Tracker) {
	s.AddTool(checkAPITool(), checkAPIHandler(tracker))
	s.AddTool(uploadFileTool(), uploadFileHandler(tracker))
	s.AddTool(listMethodsTool(), listMethodsHandler())
	s.AddTool(checkJobStatusTool(), checkJobStatusHandler(tracker))
	s.AddTool(fetchJobResultsTool(), fetchJobResultsHandler(tracker))

	for _, spec := range model.Methods() {
		s.AddTool(startJobTool(spec), startJobHandler(tracker, spec))
	}
}

// --- check_api ---

func checkAPITool() mcp.Tool {
	return mcp.NewTool("check_api",
		mcp.WithDescription("Check whether the Datamonkey API is reachable and report its health and version."),
	)
}

func checkAPIHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(tracker.CheckAPI(ctx))
	}
}

// --- upload_file ---

func uploadFileTool() mcp.Tool {
	return mcp.NewTool("upload_file",
		mcp.WithDescription("Upload a local alignment or tree file to the Datamonkey API. Content already known to the server is not re-uploaded; the returned file handle is its SHA-256."),
		mcp.WithString("file_path",
			mcp.Description("Path of the local file to upload"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("Display name for the dataset (default: file name)"),
		),
		mcp.WithString("description",
			mcp.Description("Dataset description"),
		),
		mcp.WithString("kind",
			mcp.Description("What the file contains"),
			mcp.Enum("alignment", "tree"),
		),
		mcp.WithBoolean("skip_existence_check",
			mcp.Description("Upload unconditionally, without asking the server whether it already has the content"),
		),
	)
}

func uploadFileHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("file_path", "")
		if path == "" {
			return toolError(fmt.Errorf("file_path is required"))
		}

		args := req.GetArguments()
		res := tracker.UploadFile(ctx, path, datamonkey.UploadOptions{
			Name:               req.GetString("name", ""),
			Description:        req.GetString("description", ""),
			Kind:               req.GetString("kind", "alignment"),
			SkipExistenceCheck: boolArg(args, "skip_existence_check"),
		})
		if res.Status == datamonkey.StatusError {
			return mcp.NewToolResultError(res.Error), nil
		}
		return jsonResult(res)
	}
}

// --- list_methods ---

func listMethodsTool() mcp.Tool {
	return mcp.NewTool("list_methods",
		mcp.WithDescription("List the available phylogenetic analysis methods with their input requirements and parameters."),
	)
}

func listMethodsHandler() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		for _, spec := range model.Methods() {
			fmt.Fprintf(&sb, "%s: %s\n", spec.Name, spec.FullName)
			fmt.Fprintf(&sb, "  %s\n", spec.Description)
			fmt.Fprintf(&sb, "  alignment: %s, tree: %s\n", spec.Alignment, spec.Tree)
			for _, p := range spec.Params {
				fmt.Fprintf(&sb, "  - %s (%s): %s\n", p.Name, p.Kind, paramDescription(p))
			}
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- check_job_status ---

func checkJobStatusTool() mcp.Tool {
	return mcp.NewTool("check_job_status",
		mcp.WithDescription("Re-check a tracked job against the Datamonkey API and persist any status transition."),
		mcp.WithString("job_id",
			mcp.Description("Identifier of the tracked job"),
			mcp.Required(),
		),
	)
}

func checkJobStatusHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := req.GetString("job_id", "")
		if jobID == "" {
			return toolError(fmt.Errorf("job_id is required"))
		}

		res := tracker.RefreshJob(ctx, jobID)
		if res.Status == datamonkey.StatusError && res.JobStatus == "" {
			return mcp.NewToolResultError(res.Error), nil
		}
		return jsonResult(res)
	}
}

// --- fetch_job_results ---

func fetchJobResultsTool() mcp.Tool {
	return mcp.NewTool("fetch_job_results",
		mcp.WithDescription("Fetch the results of a completed job. Results are cached on the job record; save_to additionally writes them to a local file."),
		mcp.WithString("job_id",
			mcp.Description("Identifier of the tracked job"),
			mcp.Required(),
		),
		mcp.WithString("save_to",
			mcp.Description("Local path to write the result JSON to"),
		),
	)
}

func fetchJobResultsHandler(tracker *service.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := req.GetString("job_id", "")
		if jobID == "" {
			return toolError(fmt.Errorf("job_id is required"))
		}

		res := tracker.FetchResults(ctx, jobID, req.GetString("save_to", ""))
		if res.Status == datamonkey.StatusError {
			return mcp.NewToolResultError(res.Error), nil
		}
		return jsonResult(res)
	}
}

// --- generated start_<method>_job tools ---

func startJobTool(spec model.MethodSpec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Start a %s job. %s", spec.FullName, spec.Description)),
	}

	if spec.Alignment != model.FileUnused {
		fileOpts := []mcp.PropertyOption{
			mcp.Description("Path of the local alignment file"),
		}
		if spec.Alignment == model.FileRequired {
			fileOpts = append(fileOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString("alignment_file", fileOpts...))
	}
	if spec.Tree != model.FileUnused {
		treeOpts := []mcp.PropertyOption{
			mcp.Description("Path of the local tree file (Newick)"),
		}
		if spec.Tree == model.FileRequired {
			treeOpts = append(treeOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString("tree_file", treeOpts...))
	}

	opts = append(opts,
		mcp.WithString("dataset_id",
			mcp.Description("Identifier of a registered dataset to take the input files from"),
		),
		mcp.WithString("dataset_name",
			mcp.Description("Display name for the dataset registered from the input files"),
		),
	)

	for _, p := range spec.Params {
		opts = append(opts, paramOption(p))
	}

	name := "start_" + strings.ReplaceAll(spec.Name, "-", "_") + "_job"
	return mcp.NewTool(name, opts...)
}

func paramOption(p model.ParamSpec) mcp.ToolOption {
	propOpts := []mcp.PropertyOption{
		mcp.Description(paramDescription(p)),
	}
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}

	switch p.Kind {
	case model.ParamNumber, model.ParamInteger:
		return mcp.WithNumber(p.Name, propOpts...)
	case model.ParamBoolean:
		return mcp.WithBoolean(p.Name, propOpts...)
	case model.ParamStringList, model.ParamObjectList:
		return mcp.WithArray(p.Name, propOpts...)
	default:
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}
		return mcp.WithString(p.Name, propOpts...)
	}
}

// paramDescription folds default and range information into the option
// description text
func paramDescription(p model.ParamSpec) string {
	desc := p.Description
	if p.Default != nil {
		desc = fmt.Sprintf("%s (default: %v)", desc, p.Default)
	}
	if p.Min != nil && p.Max != nil {
		desc = fmt.Sprintf("%s (range: %v-%v)", desc, *p.Min, *p.Max)
	}
	return desc
}

func startJobHandler(tracker *service.Tracker, spec model.MethodSpec) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		sreq := service.SubmitRequest{
			Method:        spec.Name,
			AlignmentPath: stringArg(args, "alignment_file"),
			TreePath:      stringArg(args, "tree_file"),
			DatasetID:     stringArg(args, "dataset_id"),
			DatasetName:   stringArg(args, "dataset_name"),
			Params:        make(map[string]interface{}),
		}
		for _, p := range spec.Params {
			if v, ok := args[p.Name]; ok {
				sreq.Params[p.Name] = v
			}
		}

		res := tracker.SubmitJob(ctx, sreq)
		if res.Status == datamonkey.StatusError && res.JobID == "" && res.JobStatus == "" {
			return mcp.NewToolResultError(res.Error), nil
		}
		return jsonResult(res)
	}
}
