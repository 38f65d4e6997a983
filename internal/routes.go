package internal

import (
	"net/http"
	"rsd/internal/controllers"
	"rsd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/snapshot", http.HandlerFunc(apiController.GetSnapshot))
	routers.Get("/history", http.HandlerFunc(apiController.GetHistory))
	routers.Get("/regions", http.HandlerFunc(apiController.GetRegions))
	routers.Get("/sources", http.HandlerFunc(apiController.GetSources))
	return routers
}
