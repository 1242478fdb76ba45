package listeners

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"API-ALMACEN/internal/metrics"
	"API-ALMACEN/internal/models"
)

// FuenteDashboard es lo que el frontend HTTP necesita del agregador
type FuenteDashboard interface {
	FuenteSnapshot
	HistorialActividad(ctx context.Context, ahora time.Time) ([]models.SlotActividad, error)
}

// IngestaRobots es la ruta de escritura que alimenta el historial que luego
// lee el agregador
type IngestaRobots interface {
	ProcesarDatosRobot(ctx context.Context, datos models.DatosRobot) error
}

// Verificador chequea la conectividad de la base de datos
type Verificador interface {
	Ping(ctx context.Context) error
}

// CacheSnapshot sirve el último snapshot difundido sin recalcular
type CacheSnapshot interface {
	UltimoSnapshot(ctx context.Context) (*models.Snapshot, string, error)
}

// HTTPFrontend arma el router gin con todas las rutas del servicio
type HTTPFrontend struct {
	router *gin.Engine
	addr   string
}

func NewHTTPFrontend(addr string) *HTTPFrontend {
	router := gin.Default()

	// Configurar CORS para permitir todas las peticiones
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Manejador personalizado para rutas 404
	router.NoRoute(func(c *gin.Context) {
		RespondWithError(c, http.StatusNotFound, ErrCodeNotFound,
			"🤔 La ruta que buscas no existe en este servidor",
			gin.H{
				"available_endpoints": gin.H{
					"dashboard": []string{
						"GET /api/v1/dashboard/current",
						"GET /api/v1/dashboard/activity_history",
						"GET /api/v1/dashboard/ultimo",
					},
					"ingesta": []string{
						"POST /api/v1/robots/data",
					},
					"websocket": []string{
						"GET /ws/dashboard",
						"GET /ws/status",
					},
					"operacion": []string{
						"GET /health",
						"GET /metrics",
					},
				},
			},
			"Revisa la documentación o contacta al equipo de desarrollo")
	})

	return &HTTPFrontend{
		router: router,
		addr:   addr,
	}
}

// Router expone el engine para el http.Server de main
func (h *HTTPFrontend) Router() *gin.Engine {
	return h.router
}

// Addr retorna la dirección host:port configurada
func (h *HTTPFrontend) Addr() string {
	return h.addr
}

// ConfigurarRutas registra todas las rutas del servicio. El cache puede ser
// nil (Redis deshabilitado); el resto de dependencias son obligatorias.
func (h *HTTPFrontend) ConfigurarRutas(
	appCtx context.Context,
	fuente FuenteDashboard,
	registro *Registro,
	ingesta IngestaRobots,
	verificador Verificador,
	cache CacheSnapshot,
	idle time.Duration,
) {
	v1 := h.router.Group("/api/v1")

	// Estado completo del dashboard, siempre recalculado
	v1.GET("/dashboard/current", func(c *gin.Context) {
		snap, err := fuente.Snapshot(c.Request.Context())
		if err != nil {
			SnapshotError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	// Histograma de actividad de la última hora, en el formato del frontend
	v1.GET("/dashboard/activity_history", func(c *gin.Context) {
		historial, err := fuente.HistorialActividad(c.Request.Context(), time.Now())
		if err != nil {
			SnapshotError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"activityHistory": historial})
	})

	// Último snapshot difundido (lectura barata desde el cache, sin tocar la
	// base de datos); 404 si el cache está deshabilitado o aún vacío
	v1.GET("/dashboard/ultimo", func(c *gin.Context) {
		if cache == nil {
			RespondWithError(c, http.StatusNotFound, ErrCodeServiceUnavail,
				"Cache de snapshots deshabilitado", nil,
				"Configura redis.addr para habilitar el cache del último snapshot")
			return
		}
		snap, timestamp, err := cache.UltimoSnapshot(c.Request.Context())
		if err != nil {
			DatabaseError(c, "cache_ultimo_snapshot", err)
			return
		}
		if snap == nil {
			RespondWithError(c, http.StatusNotFound, ErrCodeNotFound,
				"Todavía no se ha difundido ningún snapshot", nil,
				"Espera al primer ciclo de difusión o usa GET /api/v1/dashboard/current")
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshot": snap, "timestamp": timestamp})
	})

	// Ruta de ingesta: los robots reportan batería, posición y lecturas
	v1.POST("/robots/data", func(c *gin.Context) {
		var datos models.DatosRobot
		if err := c.ShouldBindJSON(&datos); err != nil {
			ValidationError(c, "robot_id", err.Error())
			return
		}

		if err := ingesta.ProcesarDatosRobot(c.Request.Context(), datos); err != nil {
			DatabaseError(c, "procesar_datos_robot", err)
			return
		}

		metrics.ReportesIngesta.Inc()
		Success(c, gin.H{
			"robot_id": datos.RobotID,
			"lecturas": len(datos.ScanResults),
		}, "Datos del robot procesados")
	})

	// Canal push del dashboard
	h.router.GET("/ws/dashboard", ManejarConexionDashboard(appCtx, registro, fuente, idle))

	// Estado del canal push
	h.router.GET("/ws/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active_connections": registro.ConexionesActivas(),
			"status":             "operational",
		})
	})

	h.router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := verificador.Ping(ctx); err != nil {
			RespondWithError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavail,
				"Base de datos no disponible",
				gin.H{"error": err.Error()},
				"Verifica la conectividad con PostgreSQL")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":             "ok",
			"active_connections": registro.ConexionesActivas(),
			"cache":              cache != nil,
		})
	})

	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
