package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrendsURLAuth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://api2.trends.earth/auth", TrendsURL{}.Auth())
	assert.Equal(t, "https://staging.example.com/auth", TrendsURL{Base: "https://staging.example.com/"}.Auth())
}

func TestCPLUSURLDefaultsToProductionBase(t *testing.T) {
	t.Parallel()

	urls := CPLUSURL{}
	assert.Equal(t, "https://cplus-api.trends.earth/api/v1/layer/abc/", urls.LayerDetail("abc"))
}

func TestCPLUSURLEndpoints(t *testing.T) {
	t.Parallel()

	urls := CPLUSURL{Base: "https://dev.example.com/api/v1/"}

	assert.Equal(t, "https://dev.example.com/api/v1/layer/l-1/", urls.LayerDetail("l-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/layer/check/?id_type=layer_uuid", urls.LayerCheck())
	assert.Equal(t, "https://dev.example.com/api/v1/layer/upload/start/", urls.LayerUploadStart())
	assert.Equal(t, "https://dev.example.com/api/v1/layer/upload/l-1/finish/", urls.LayerUploadFinish("l-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/layer/upload/l-1/abort/", urls.LayerUploadAbort("l-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/submit/?plugin_version=1.2.3", urls.ScenarioSubmit("1.2.3"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/submit/", urls.ScenarioSubmit(""))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/s-1/execute/", urls.ScenarioExecute("s-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/s-1/status/", urls.ScenarioStatus("s-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/s-1/cancel/", urls.ScenarioCancel("s-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario/s-1/detail/", urls.ScenarioDetail("s-1"))
	assert.Equal(t, "https://dev.example.com/api/v1/scenario_output/s-1/list/?page=1&page_size=100", urls.ScenarioOutputList("s-1"))
}
