package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChartToolName identifies the chart tool to downstream consumers that
// treat its output specially.
const ChartToolName = "draw_chart"

// ChartResult is the chart tool's JSON output shape.
type ChartResult struct {
	ImageBase64 string `json:"image_base64"`
	Caption     string `json:"caption,omitempty"`
}

// ChartConfig configures the chart renderer.
type ChartConfig struct {
	ServiceURL string
	HTTPClient *http.Client
}

// RegisterChartTool wires chart rendering via the QuickChart service.
func RegisterChartTool(r *Registry, cfg ChartConfig) error {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = "https://quickchart.io/chart"
	}

	return r.Register(Tool{
		Name:        ChartToolName,
		Description: "Render a Chart.js configuration to a PNG image for the user.",
		Parameters: []Parameter{
			{Name: "chart", Type: "object", Description: "Chart.js configuration object", Required: true},
			{Name: "caption", Type: "string", Description: "Caption to show with the chart", Required: false},
		},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			chart, ok := args["chart"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("chart must be an object")
			}
			applyDarkDefaults(chart)

			body, err := json.Marshal(map[string]any{
				"chart":           chart,
				"width":           800,
				"height":          450,
				"backgroundColor": "#1b1b1f",
				"format":          "png",
				"version":         "4",
			})
			if err != nil {
				return nil, fmt.Errorf("failed to encode chart request: %w", err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("chart service request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return nil, fmt.Errorf("chart service returned %d: %s", resp.StatusCode, string(msg))
			}

			// Rendered charts are small; read fully.
			png, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			if err != nil {
				return nil, fmt.Errorf("failed to read chart image: %w", err)
			}

			return ChartResult{
				ImageBase64: base64.StdEncoding.EncodeToString(png),
				Caption:     argString(args, "caption", ""),
			}, nil
		},
	})
}

// applyDarkDefaults fills in legible colors for a dark background
// without overriding anything the model chose.
func applyDarkDefaults(chart map[string]any) {
	options, ok := chart["options"].(map[string]any)
	if !ok {
		options = map[string]any{}
		chart["options"] = options
	}

	plugins, ok := options["plugins"].(map[string]any)
	if !ok {
		plugins = map[string]any{}
		options["plugins"] = plugins
	}
	legend, ok := plugins["legend"].(map[string]any)
	if !ok {
		legend = map[string]any{}
		plugins["legend"] = legend
	}
	labels, ok := legend["labels"].(map[string]any)
	if !ok {
		labels = map[string]any{}
		legend["labels"] = labels
	}
	if _, set := labels["color"]; !set {
		labels["color"] = "#e8e8e8"
	}
}
