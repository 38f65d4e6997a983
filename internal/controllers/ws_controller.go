package controllers

import (
	"net/http"
	"rsd/internal/gateway"
	"rsd/internal/providers"
	"rsd/internal/services"
	"rsd/internal/structures"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon sits behind the dashboard's own origin or a reverse
		// proxy; origin enforcement happens there.
		return true
	},
}

type WsController struct {
	conf    *structures.Config
	logger  providers.Logger
	service services.StatusServiceInterface
	hub     *gateway.Hub
}

func NewWsController(conf *structures.Config, logger providers.Logger, service services.StatusServiceInterface, hub *gateway.Hub) *WsController {
	return &WsController{
		conf:    conf,
		logger:  logger,
		service: service,
		hub:     hub,
	}
}

func (wc *WsController) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		wc.logger.Warnf(providers.TypeSocket, "Websocket upgrade failed: %s", err)
		return
	}

	client := gateway.NewClient(wc.conf, wc.logger, wc.service, wc.hub, conn)
	go client.Serve()
}
