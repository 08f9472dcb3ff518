package main

import (
	"encoding/json"
	"net/http"

	"github.com/guseggert/captainhook/bridge"
	"github.com/guseggert/captainhook/bridge/command"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	Name      string
	Path      string
	Connected bool
	Commands  []string
}

func newRouter(gatherer prometheus.Gatherer, registry *command.Registry, b *bridge.Bridge) *httprouter.Router {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(statusResponse{
			Name:      b.Name(),
			Path:      b.Path(),
			Connected: b.Connected(),
			Commands:  registry.Names(),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return router
}
