// Package metrics exporta las métricas del servicio a Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConexionesActivas conexiones push vivas en el registro
	ConexionesActivas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "almacen_ws_conexiones_activas",
			Help: "Current number of live dashboard push connections",
		},
	)

	// MensajesEnviados mensajes entregados por el canal push
	MensajesEnviados = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_ws_mensajes_enviados_total",
			Help: "Total number of push messages delivered",
		},
	)

	// EnviosFallidos envíos que fallaron y provocaron la baja del cliente
	EnviosFallidos = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_ws_envios_fallidos_total",
			Help: "Total number of failed push sends (client dropped)",
		},
	)

	// CiclosDifusion ciclos completados por el difusor periódico
	CiclosDifusion = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_difusion_ciclos_total",
			Help: "Total number of completed broadcast cycles",
		},
	)

	// ErroresDifusion ciclos que fallaron calculando el snapshot
	ErroresDifusion = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_difusion_errores_total",
			Help: "Total number of broadcast cycles that failed",
		},
	)

	// DuracionSnapshot duración del cálculo del snapshot
	DuracionSnapshot = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "almacen_snapshot_duracion_segundos",
			Help:    "Snapshot computation duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// ReportesIngesta reportes de robots procesados por la ruta de ingesta
	ReportesIngesta = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_ingesta_reportes_total",
			Help: "Total number of robot reports ingested",
		},
	)

	// RobotsDesconectados robots marcados offline por el monitor
	RobotsDesconectados = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almacen_robots_desconectados_total",
			Help: "Total number of robots marked offline by the monitor",
		},
	)
)
