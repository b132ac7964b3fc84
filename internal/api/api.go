package api

import (
	"fmt"
	"net/http"

	"talkative-backend/internal/database"
	"talkative-backend/internal/queue"
	"talkative-backend/internal/realtime"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	notifier            *realtime.Notifier
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, notifier *realtime.Notifier, registrars ...RouteRegistrar) *APIServer {
	return NewAPIServerWithRegisterer(listenAddr, rqm, db, notifier, prometheus.DefaultRegisterer, registrars...)
}

// NewAPIServerWithRegisterer builds a server whose collectors register on the
// given registerer. Collector names are constant per listen address, so two
// servers sharing a registerer would collide; tests building several servers
// pass a fresh prometheus.NewRegistry each.
func NewAPIServerWithRegisterer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, notifier *realtime.Notifier, reg prometheus.Registerer, registrars ...RouteRegistrar) *APIServer {
	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		notifier:            notifier,
		routeRegistrars:     registrars,
		metrics:             newMetrics(reg, listenAddr, rqm),
	}
}

func (s *APIServer) Run() {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	fmt.Printf("Server listening on http://localhost%s\n", s.listenAddr)

	if err := http.ListenAndServe(s.listenAddr, s.metrics.instrument(mux)); err != nil {
		fmt.Printf("server stopped: %v\n", err)
	}
}

func (s *APIServer) Database() *database.Database {
	return s.db
}

// Notifier returns the realtime event bridge, nil when the server runs
// without one (tests, tooling).
func (s *APIServer) Notifier() *realtime.Notifier {
	return s.notifier
}
