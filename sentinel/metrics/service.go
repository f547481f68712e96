// Package metrics exposes the sentinel's Prometheus metrics and health
// endpoints on a dedicated HTTP port, adapted from the node's standard
// monitoring service.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/l2sentinel/sentinel-node/internal/serviceregistry"
)

var log = logrus.WithField("prefix", "sentinel-metrics")

// Statuser reports the health of every registered service, as
// *serviceregistry.Registry does.
type Statuser interface {
	Statuses() map[string]error
}

// Service serves /metrics, /healthz, and /goroutinez on addr.
type Service struct {
	server     *http.Server
	registry   Statuser
	instanceID uuid.UUID
	failStatus error
}

// New returns a Service bound to addr (e.g. ":9090"), reporting health from
// registry. Each Service is stamped with a random instance ID, logged at
// Start, so operators running more than one sentinel process can tell their
// log lines apart.
func New(addr string, registry Statuser) *Service {
	s := &Service{registry: registry, instanceID: uuid.New()}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	statuses := s.registry.Statuses()
	hasError := false
	var buf bytes.Buffer
	for name, err := range statuses {
		status := "OK"
		if err != nil {
			hasError = true
			status = "ERROR " + err.Error()
		}
		fmt.Fprintf(&buf, "%s: %s\n", name, status)
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
		log.WithField("statuses", buf.String()).Warn("sentinel is unhealthy")
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("failed to write healthz body")
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		log.WithError(err).Error("failed to write pprof goroutines")
	}
}

// Start implements serviceregistry.Service.
func (s *Service) Start() {
	go func() {
		addrParts := strings.Split(s.server.Addr, ":")
		port := addrParts[len(addrParts)-1]
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", port), time.Second)
		if err == nil {
			conn.Close()
			log.WithField("address", s.server.Addr).Warn("port already in use; cannot start metrics service")
			return
		}
		log.WithField("address", s.server.Addr).WithField("instance", s.instanceID).Debug("starting metrics service")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics service stopped unexpectedly")
			s.failStatus = err
		}
	}()
}

// Stop implements serviceregistry.Service.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status implements serviceregistry.Service.
func (s *Service) Status() error {
	return s.failStatus
}

var _ serviceregistry.Service = (*Service)(nil)
