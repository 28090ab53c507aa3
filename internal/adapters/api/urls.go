package api

import (
	"fmt"
	"strings"
)

const (
	// DefaultBaseURL is the production CPLUS API endpoint. A configured
	// override replaces it only when the debug flag is on.
	DefaultBaseURL = "https://cplus-api.trends.earth/api/v1"

	// DefaultTrendsBaseURL is the Trends.Earth identity service endpoint.
	DefaultTrendsBaseURL = "https://api2.trends.earth"
)

// TrendsURL resolves Trends.Earth identity endpoints.
type TrendsURL struct {
	Base string
}

func (u TrendsURL) Auth() string {
	return trimBase(u.Base, DefaultTrendsBaseURL) + "/auth"
}

// CPLUSURL resolves CPLUS API endpoints from a base URL. Every method is a
// deterministic string template; no state, no network.
type CPLUSURL struct {
	Base string
}

func (u CPLUSURL) base() string {
	return trimBase(u.Base, DefaultBaseURL)
}

func (u CPLUSURL) LayerDetail(layerUUID string) string {
	return fmt.Sprintf("%s/layer/%s/", u.base(), layerUUID)
}

func (u CPLUSURL) LayerCheck() string {
	return u.base() + "/layer/check/?id_type=layer_uuid"
}

func (u CPLUSURL) LayerUploadStart() string {
	return u.base() + "/layer/upload/start/"
}

func (u CPLUSURL) LayerUploadFinish(layerUUID string) string {
	return fmt.Sprintf("%s/layer/upload/%s/finish/", u.base(), layerUUID)
}

func (u CPLUSURL) LayerUploadAbort(layerUUID string) string {
	return fmt.Sprintf("%s/layer/upload/%s/abort/", u.base(), layerUUID)
}

func (u CPLUSURL) ScenarioSubmit(pluginVersion string) string {
	url := u.base() + "/scenario/submit/"
	if pluginVersion != "" {
		url += "?plugin_version=" + pluginVersion
	}
	return url
}

func (u CPLUSURL) ScenarioExecute(scenarioUUID string) string {
	return fmt.Sprintf("%s/scenario/%s/execute/", u.base(), scenarioUUID)
}

func (u CPLUSURL) ScenarioStatus(scenarioUUID string) string {
	return fmt.Sprintf("%s/scenario/%s/status/", u.base(), scenarioUUID)
}

func (u CPLUSURL) ScenarioCancel(scenarioUUID string) string {
	return fmt.Sprintf("%s/scenario/%s/cancel/", u.base(), scenarioUUID)
}

func (u CPLUSURL) ScenarioDetail(scenarioUUID string) string {
	return fmt.Sprintf("%s/scenario/%s/detail/", u.base(), scenarioUUID)
}

// ScenarioOutputList returns the first page of outputs only. The service
// paginates, but the client contract is fixed at page 1 with page size 100;
// callers that need more must treat this as a known limitation.
func (u CPLUSURL) ScenarioOutputList(scenarioUUID string) string {
	return fmt.Sprintf(
		"%s/scenario_output/%s/list/?page=1&page_size=100", u.base(), scenarioUUID,
	)
}

func trimBase(base, fallback string) string {
	if base == "" {
		return fallback
	}
	return strings.TrimRight(base, "/")
}
