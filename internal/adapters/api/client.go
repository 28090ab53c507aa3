package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kartoza/cplus-plugin/internal/domain"
)

// LayerCheckResult partitions the checked layer UUIDs by availability.
type LayerCheckResult struct {
	Available   []string `json:"available"`
	Unavailable []string `json:"unavailable"`
	Invalid     []string `json:"invalid"`
}

// UploadStartResponse is the upload session descriptor returned by the
// upload-start endpoint. MultipartUploadID is absent for single-part
// uploads; UploadURLs carries one pre-signed URL per part.
type UploadStartResponse struct {
	UUID              string   `json:"uuid"`
	Name              string   `json:"name"`
	Size              int64    `json:"size"`
	MultipartUploadID string   `json:"multipart_upload_id"`
	UploadURLs        []string `json:"upload_urls"`
	UploadURL         string   `json:"upload_url"`
}

// PartURLs normalizes the session's pre-signed URLs: multipart sessions
// list them, single-part sessions carry one.
func (r UploadStartResponse) PartURLs() []string {
	if len(r.UploadURLs) > 0 {
		return r.UploadURLs
	}
	if r.UploadURL != "" {
		return []string{r.UploadURL}
	}
	return nil
}

// FinishUploadResult describes the stored layer after a finished upload.
type FinishUploadResult struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Client is the single entry point for the CPLUS API: it composes the
// transport, authenticator, URL resolver, and poller factory into the
// domain operations.
type Client struct {
	transport     *Transport
	auth          *Authenticator
	urls          CPLUSURL
	logger        zerolog.Logger
	pluginVersion string
	pollOpts      []PollerOption
}

// ClientConfig wires a Client. Transport and Auth are required.
type ClientConfig struct {
	Transport     *Transport
	Auth          *Authenticator
	BaseURL       string
	PluginVersion string
	Logger        zerolog.Logger
	PollerOptions []PollerOption
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		transport:     cfg.Transport,
		auth:          cfg.Auth,
		urls:          CPLUSURL{Base: cfg.BaseURL},
		logger:        cfg.Logger,
		pluginVersion: cfg.PluginVersion,
		pollOpts:      cfg.PollerOptions,
	}
}

// URLs exposes the resolver bound to this client's base URL.
func (c *Client) URLs() CPLUSURL {
	return c.urls
}

func (c *Client) authHeaders(ctx context.Context) (map[string]string, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}, nil
}

// GetLayerDetail fetches the stored metadata for one layer.
func (c *Client) GetLayerDetail(ctx context.Context, layerUUID string) (Document, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	doc, status, err := c.transport.Get(ctx, c.urls.LayerDetail(layerUUID), headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}
	return doc, nil
}

// CheckLayers partitions the given layer UUIDs into available, unavailable,
// and invalid sets.
func (c *Client) CheckLayers(ctx context.Context, layerUUIDs []string) (LayerCheckResult, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return LayerCheckResult{}, err
	}
	doc, status, err := c.transport.Post(ctx, c.urls.LayerCheck(), layerUUIDs, headers)
	if err != nil {
		return LayerCheckResult{}, err
	}
	if status != http.StatusOK {
		return LayerCheckResult{}, &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}

	var result LayerCheckResult
	if err := decodeDocument(doc, &result); err != nil {
		return LayerCheckResult{}, fmt.Errorf("decode layer check response: %w", err)
	}
	return result, nil
}

// StartUpload opens an upload session for the file at path. The part count
// is derived from the file size and the fixed chunk size; the layer type
// from the file extension.
func (c *Client) StartUpload(ctx context.Context, filePath, componentType string) (UploadStartResponse, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return UploadStartResponse{}, fmt.Errorf("stat layer file: %w", err)
	}

	headers, err := c.authHeaders(ctx)
	if err != nil {
		return UploadStartResponse{}, err
	}

	payload := map[string]any{
		"layer_type":      int(domain.LayerTypeFromPath(filePath)),
		"component_type":  componentType,
		"privacy_type":    "private",
		"name":            filepath.Base(filePath),
		"size":            info.Size(),
		"number_of_parts": domain.NumberOfParts(info.Size()),
	}
	doc, status, err := c.transport.Post(ctx, c.urls.LayerUploadStart(), payload, headers)
	if err != nil {
		return UploadStartResponse{}, err
	}
	if status != http.StatusCreated {
		return UploadStartResponse{}, &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}

	var session UploadStartResponse
	if err := decodeDocument(doc, &session); err != nil {
		return UploadStartResponse{}, fmt.Errorf("decode upload session: %w", err)
	}
	return session, nil
}

// FinishUpload finalizes an upload session. uploadID and items are only
// sent for multipart sessions; once finished the parts list is consumed and
// must not be reused.
func (c *Client) FinishUpload(ctx context.Context, layerUUID, uploadID string, items []domain.PartItem) (FinishUploadResult, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return FinishUploadResult{}, err
	}

	payload := map[string]any{}
	if uploadID != "" {
		payload["multipart_upload_id"] = uploadID
	}
	if len(items) > 0 {
		payload["items"] = items
	}
	doc, status, err := c.transport.Post(ctx, c.urls.LayerUploadFinish(layerUUID), payload, headers)
	if err != nil {
		return FinishUploadResult{}, err
	}
	if status < 200 || status >= 300 {
		return FinishUploadResult{}, &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}

	var result FinishUploadResult
	if err := decodeDocument(doc, &result); err != nil {
		return FinishUploadResult{}, fmt.Errorf("decode finish upload response: %w", err)
	}
	return result, nil
}

// AbortUpload discards an in-progress multipart session. The service
// answers 204 on success.
func (c *Client) AbortUpload(ctx context.Context, layerUUID, uploadID string) error {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"multipart_upload_id": uploadID,
		"items":               []domain.PartItem{},
	}
	doc, status, err := c.transport.Post(ctx, c.urls.LayerUploadAbort(layerUUID), payload, headers)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}
	return nil
}

// SubmitScenario registers a scenario document with the job service and
// returns the assigned scenario UUID.
func (c *Client) SubmitScenario(ctx context.Context, scenarioDetail any) (string, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return "", err
	}

	doc, status, err := c.transport.Post(ctx, c.urls.ScenarioSubmit(c.pluginVersion), scenarioDetail, headers)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}

	scenarioUUID, _ := doc["uuid"].(string)
	if scenarioUUID == "" {
		return "", fmt.Errorf("submit response missing scenario uuid")
	}
	return scenarioUUID, nil
}

// ExecuteScenario starts execution of a submitted scenario.
func (c *Client) ExecuteScenario(ctx context.Context, scenarioUUID string) error {
	return c.getExpecting(ctx, c.urls.ScenarioExecute(scenarioUUID), http.StatusCreated)
}

// CancelScenario asks the service to stop a running scenario.
func (c *Client) CancelScenario(ctx context.Context, scenarioUUID string) error {
	return c.getExpecting(ctx, c.urls.ScenarioCancel(scenarioUUID), http.StatusOK)
}

// FetchScenarioStatus returns a poller bound to the scenario's status
// endpoint, configured with the client's polling defaults.
func (c *Client) FetchScenarioStatus(scenarioUUID string, opts ...PollerOption) *Poller {
	url := c.urls.ScenarioStatus(scenarioUUID)
	fetch := func(ctx context.Context) (Document, int, error) {
		headers, err := c.authHeaders(ctx)
		if err != nil {
			return nil, 0, err
		}
		return c.transport.Get(ctx, url, headers)
	}
	return NewPoller(fetch, c.logger, append(c.pollOpts, opts...)...)
}

// FetchScenarioDetail fetches the full scenario document.
func (c *Client) FetchScenarioDetail(ctx context.Context, scenarioUUID string) (Document, error) {
	return c.getDocument(ctx, c.urls.ScenarioDetail(scenarioUUID))
}

// FetchScenarioOutputs lists the scenario's output files. Only the first
// page (size 100) is fetched; see CPLUSURL.ScenarioOutputList.
func (c *Client) FetchScenarioOutputs(ctx context.Context, scenarioUUID string) ([]domain.ScenarioOutput, error) {
	doc, err := c.getDocument(ctx, c.urls.ScenarioOutputList(scenarioUUID))
	if err != nil {
		return nil, err
	}

	var listing struct {
		Results []domain.ScenarioOutput `json:"results"`
	}
	if err := decodeDocument(doc, &listing); err != nil {
		return nil, fmt.Errorf("decode scenario outputs: %w", err)
	}
	return listing.Results, nil
}

func (c *Client) getDocument(ctx context.Context, url string) (Document, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	doc, status, err := c.transport.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}
	return doc, nil
}

func (c *Client) getExpecting(ctx context.Context, url string, expected int) error {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return err
	}
	doc, status, err := c.transport.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if status != expected {
		return &HTTPStatusError{Status: status, Detail: detailFromDocument(doc)}
	}
	return nil
}

// decodeDocument re-marshals a decoded body into a typed struct.
func decodeDocument(doc Document, target any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
