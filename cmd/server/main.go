package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"API-ALMACEN/internal/cache"
	"API-ALMACEN/internal/config"
	"API-ALMACEN/internal/dashboard"
	"API-ALMACEN/internal/db"
	"API-ALMACEN/internal/listeners"
	"API-ALMACEN/internal/models"
	"API-ALMACEN/internal/monitoring"
)

func main() {
	// Configurar logger
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime)

	log.Println("🚀 Iniciando servidor de monitoreo - API Almacén")

	// Cargar .env si existe (las variables ya definidas tienen prioridad)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No se encontró archivo .env, usando variables de entorno del sistema")
	}

	// 1. Cargar configuración YAML
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ Error cargando configuración desde %s: %v", configPath, err)
	}
	log.Printf("✅ Configuración cargada desde %s", configPath)

	// Contexto raíz de la aplicación: cancelarlo detiene todas las tareas
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// 2. Inicializar PostgreSQL
	dbManager, err := inicializarPostgres(appCtx, cfg)
	if err != nil {
		log.Fatalf("❌ Error al obtener PostgresManager: %v", err)
	}
	defer dbManager.Close()
	log.Println("✅ Base de datos PostgreSQL inicializada")

	store := db.NewAlmacenStore(dbManager)

	// 3. Inicializar Redis (opcional: addr vacío lo deshabilita)
	var snapshotCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		snapshotCache, err = cache.NuevoRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// el cache es opcional: el servicio arranca igual sin él
			log.Printf("⚠️ Redis no disponible en %s, continuando sin cache: %v", cfg.Redis.Addr, err)
			snapshotCache = nil
		} else {
			defer snapshotCache.Cerrar()
			log.Printf("✅ Cache Redis conectado en %s", cfg.Redis.Addr)
		}
	} else {
		log.Println("⚠️ Cache Redis deshabilitado (sin addr en configuración)")
	}

	// 4. Crear el agregador de snapshots
	agregador := dashboard.NewAgregador(store, cfg.Dashboard.GetRecentScansLimit())

	// 5. Crear el registro de conexiones y el difusor periódico
	registro := listeners.NuevoRegistro()
	difusor := listeners.NuevoDifusor(registro, agregador,
		cfg.Dashboard.GetBroadcastInterval(), cfg.Dashboard.GetWarmupDelay())
	if snapshotCache != nil {
		difusor.AlDifundir = func(snap *models.Snapshot) {
			ctx, cancel := context.WithTimeout(appCtx, 3*time.Second)
			defer cancel()
			if err := snapshotCache.GuardarUltimoSnapshot(ctx, snap); err != nil {
				log.Printf("⚠️ Error guardando snapshot en cache: %v", err)
			}
		}
	}

	difusorDone := make(chan struct{})
	go func() {
		defer close(difusorDone)
		difusor.Run(appCtx)
	}()

	// 6. Iniciar el monitor de robots desconectados
	monitor := monitoring.NewRobotMonitor(store,
		cfg.Monitoring.GetCheckInterval(), cfg.Monitoring.GetOfflineTimeout())
	go monitor.Run(appCtx)

	// 7. Configurar y levantar el servidor HTTP
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	frontend := listeners.NewHTTPFrontend(addr)

	var cacheParaRutas listeners.CacheSnapshot
	if snapshotCache != nil {
		cacheParaRutas = snapshotCache
	}
	frontend.ConfigurarRutas(appCtx, agregador, registro, store, dbManager,
		cacheParaRutas, cfg.Dashboard.GetIdleTimeout())

	srv := &http.Server{
		Addr:    frontend.Addr(),
		Handler: frontend.Router(),
	}

	go func() {
		log.Printf("📡 Servidor HTTP escuchando en %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Error en servidor HTTP: %v", err)
		}
	}()

	// 8. Esperar señal de apagado
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Señal de apagado recibida, deteniendo servicios...")

	// Detener difusor y monitor antes de cerrar las conexiones
	cancelApp()
	select {
	case <-difusorDone:
	case <-time.After(5 * time.Second):
		log.Println("⚠️ El difusor no terminó a tiempo")
	}

	registro.CerrarTodas()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Error durante el apagado del servidor HTTP: %v", err)
	}

	log.Println("✅ Servidor detenido correctamente")
}

// inicializarPostgres arma el pool desde la configuración YAML; si no hay URL
// configurada cae a las variables de entorno del módulo db
func inicializarPostgres(ctx context.Context, cfg *config.Config) (*db.PostgresManager, error) {
	pg := cfg.Database.Postgres
	if pg.URL == "" {
		return db.GetPostgresManager(ctx)
	}

	connectTimeout, err := pg.GetConnectTimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("connect_timeout inválido: %w", err)
	}
	healthcheck, err := pg.GetHealthcheckIntervalDuration()
	if err != nil {
		return nil, fmt.Errorf("healthcheck_interval inválido: %w", err)
	}

	return db.GetPostgresManagerWithURL(ctx, pg.URL,
		int32(pg.MinConns), int32(pg.MaxConns), connectTimeout, healthcheck)
}
