package internal

import (
	"rsd/internal/controllers"
	"rsd/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRoutes_RegistersAPIEndpoints(t *testing.T) {
	ac := controllers.NewApiController(&testutil.MockLogger{}, &testutil.MockStatusService{}, testutil.NewMockCache(), nil)

	router := InitRoutes(ac)
	routes := router.GetRoutes()
	require.Len(t, routes, 4)

	urls := make([]string, 0, len(routes))
	for _, route := range routes {
		urls = append(urls, route.Url)
	}
	assert.Contains(t, urls, "/snapshot")
	assert.Contains(t, urls, "/history")
	assert.Contains(t, urls, "/regions")
	assert.Contains(t, urls, "/sources")
}
