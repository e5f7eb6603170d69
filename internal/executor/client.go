package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PipelineClient calls the media-processing microservice over HTTP. The
// service is synchronous per step, so the client reports coarse progress:
// one update when the step is dispatched, the rest on return.
type PipelineClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewPipelineClient creates a client for the processing service.
func NewPipelineClient(baseURL string, timeout time.Duration) *PipelineClient {
	return &PipelineClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type processRequest struct {
	Step      string          `json:"step"`
	Operation json.RawMessage `json:"operation"`
	AssetKind string          `json:"asset_kind"`
	SourceRef string          `json:"source_ref"`
}

type processResponse struct {
	OutputRef string `json:"output_ref"`
	Error     string `json:"error,omitempty"`
}

func (c *PipelineClient) Execute(ctx context.Context, req *Request, progress chan<- Progress) (*Result, error) {
	opData, err := json.Marshal(req.Operation)
	if err != nil {
		return nil, fmt.Errorf("marshal operation: %w", err)
	}

	body, err := json.Marshal(processRequest{
		Step:      req.Step,
		Operation: opData,
		AssetKind: string(req.AssetKind),
		SourceRef: req.SourcePayloadRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build process request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	select {
	case progress <- Progress{Percent: 5, Step: "Dispatching to pipeline..."}:
	default:
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pipeline request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pipeline response: %w", err)
	}

	var out processResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("pipeline returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("pipeline step %s failed: %s", req.Step, msg)
	}
	if out.OutputRef == "" {
		return nil, fmt.Errorf("pipeline step %s returned no output", req.Step)
	}

	select {
	case progress <- Progress{Percent: 100, Step: "Done"}:
	default:
	}

	return &Result{PayloadRef: out.OutputRef}, nil
}
