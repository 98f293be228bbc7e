package transcription

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/metrics"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type jobService interface {
	Enqueue(ctx context.Context, req *EnqueueRequest) (*persistence.Job, error)
	Requeue(ctx context.Context, id string) (*persistence.Job, error)
	GetStatus(ctx context.Context, id string) (*persistence.Job, error)
}

// ServiceData keeps data required for the HTTP service
type ServiceData struct {
	Service jobService
	Trigger Trigger

	Port   int
	health healthcheck.Handler
	dur    *prometheus.HistogramVec
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Methods("POST").Path("/transcription").Handler(instrument(data, "enqueue", enqueueHandler{data: data}))
	router.Methods("GET").Path("/transcription/{id}").Handler(instrument(data, "status", statusHandler{data: data}))
	router.Methods("POST").Path("/transcription/{id}/requeue").Handler(instrument(data, "requeue", requeueHandler{data: data}))
	router.Methods("POST").Path("/process").Handler(processHandler{data: data})
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

func instrument(data *ServiceData, name string, h http.Handler) http.Handler {
	if data.dur == nil {
		return h
	}
	return promhttp.InstrumentHandlerDuration(data.dur.MustCurryWith(prometheus.Labels{"handler": name}), h)
}

type enqueueHandler struct {
	data *ServiceData
}

func (h enqueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Enqueue request from %s", r.RemoteAddr)
	var req EnqueueRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Bad input", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(err, "bad input"))
		return
	}
	job, err := h.data.Service.Enqueue(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job)
}

type statusHandler struct {
	data *ServiceData
}

func (h statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Service.GetStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job)
}

type requeueHandler struct {
	data *ServiceData
}

func (h requeueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Service.Requeue(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job)
}

type processHandler struct {
	data *ServiceData
}

func (h processHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.data.Trigger == nil {
		http.Error(w, "No processor", http.StatusServiceUnavailable)
		return
	}
	h.data.Trigger.Trigger()
	w.WriteHeader(http.StatusAccepted)
}

func writeError(w http.ResponseWriter, err error) {
	switch errors.Cause(err) {
	case transcriber.ErrWrongSource:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case persistence.ErrNotFound:
		http.Error(w, "Not found", http.StatusNotFound)
	case ErrNotFailed:
		http.Error(w, err.Error(), http.StatusConflict)
	case persistence.ErrStoreUnavailable:
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Service error", http.StatusInternalServerError)
	}
	cmdapp.Log.Error(err)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "can't write response"))
	}
}

func initHTTPMetrics(data *ServiceData) error {
	data.dur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_durations_seconds",
			Help:      "Request latency distributions.",
		}, []string{"handler", "method"})
	return metrics.Register(data.dur)
}
