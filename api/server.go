package api

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/types"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server answers single-document evaluation requests. Requests start from
// the base configuration and may patch it.
type Server struct {
	classifier *classifier.Classifier
	base       types.Configuration
	gatherer   prometheus.Gatherer
}

// NewServer exposes metrics from gatherer; a nil gatherer means the default
// registry.
func NewServer(clf *classifier.Classifier, base types.Configuration, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		classifier: clf,
		base:       base,
		gatherer:   gatherer,
	}
}

func (server *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/evaluate", server.Evaluate)
	mux.HandleFunc("/healthz", server.Healthz)
	mux.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (server *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
