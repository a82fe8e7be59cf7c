// Package metrics exports dispatcher activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// DispatchObserver implements network.Observer with Prometheus collectors.
type DispatchObserver struct {
	receivedTotal prometheus.Counter
	receivedBytes prometheus.Counter
	decodedTotal  *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec
	warningTotal  *prometheus.CounterVec
	sentTotal     *prometheus.CounterVec
}

// NewDispatchObserver registers dispatcher metrics on the registry.
func NewDispatchObserver(reg prometheus.Registerer) *DispatchObserver {
	o := &DispatchObserver{
		receivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xchat_datagrams_received_total",
			Help: "Datagrams read from the backend socket.",
		}),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xchat_datagram_bytes_received_total",
			Help: "Bytes read from the backend socket.",
		}),
		decodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xchat_frames_decoded_total",
			Help: "Frames decoded into user interface events, by code.",
		}, []string{"code"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xchat_frames_dropped_total",
			Help: "Datagrams that produced no event, by reason.",
		}, []string{"reason"}),
		warningTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xchat_frame_warnings_total",
			Help: "Lenient decode warnings, by kind.",
		}, []string{"kind"}),
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xchat_frames_sent_total",
			Help: "Frames sent to the backend, by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		o.receivedTotal,
		o.receivedBytes,
		o.decodedTotal,
		o.droppedTotal,
		o.warningTotal,
		o.sentTotal,
	)
	return o
}

func (o *DispatchObserver) DatagramReceived(size int) {
	o.receivedTotal.Inc()
	o.receivedBytes.Add(float64(size))
}

func (o *DispatchObserver) FrameDropped(reason network.DropReason) {
	o.droppedTotal.WithLabelValues(string(reason)).Inc()
}

func (o *DispatchObserver) FrameWarning(err error) {
	o.warningTotal.WithLabelValues(warningKind(err)).Inc()
}

func (o *DispatchObserver) FrameDecoded(code protocol.Code) {
	o.decodedTotal.WithLabelValues(code.String()).Inc()
}

func (o *DispatchObserver) FrameSent(kind network.SendKind, ok bool) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	o.sentTotal.WithLabelValues(string(kind), result).Inc()
}

func warningKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, protocol.ErrUnknownCode):
		return "unknown_code"
	case errors.Is(err, protocol.ErrSecretUnhandled):
		return "secret"
	case errors.Is(err, protocol.ErrFieldAbsent):
		return "field_absent"
	default:
		return "other"
	}
}

var _ network.Observer = (*DispatchObserver)(nil)
