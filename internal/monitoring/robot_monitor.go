package monitoring

import (
	"context"
	"log"
	"time"

	"API-ALMACEN/internal/metrics"
)

// MarcadorRobots marca como offline a los robots sin reportes recientes
type MarcadorRobots interface {
	MarcarRobotsDesconectados(ctx context.Context, limite time.Time) (int, error)
}

// RobotMonitor verifica periódicamente los robots sin actividad y los
// marca como offline
type RobotMonitor struct {
	marcador       MarcadorRobots
	checkInterval  time.Duration
	offlineTimeout time.Duration
}

// NewRobotMonitor crea una nueva instancia del monitor
func NewRobotMonitor(marcador MarcadorRobots, checkInterval, offlineTimeout time.Duration) *RobotMonitor {
	return &RobotMonitor{
		marcador:       marcador,
		checkInterval:  checkInterval,
		offlineTimeout: offlineTimeout,
	}
}

// Run inicia el monitoreo continuo hasta que se cancele el contexto
func (m *RobotMonitor) Run(ctx context.Context) {
	log.Printf("🔄 Iniciando monitoreo de robots (intervalo: %v, timeout: %v)",
		m.checkInterval, m.offlineTimeout)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	// Primer chequeo inmediato
	m.verificar(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Monitoreo de robots detenido")
			return
		case <-ticker.C:
			m.verificar(ctx)
		}
	}
}

// verificar marca como offline a los robots cuyo último reporte quedó fuera
// de la ventana de tolerancia
func (m *RobotMonitor) verificar(ctx context.Context) {
	limite := time.Now().UTC().Add(-m.offlineTimeout)

	marcados, err := m.marcador.MarcarRobotsDesconectados(ctx, limite)
	if err != nil {
		log.Printf("❌ Error verificando robots desconectados: %v", err)
		return
	}

	if marcados > 0 {
		metrics.RobotsDesconectados.Add(float64(marcados))
		log.Printf("⚠️ %d robot(s) marcados como offline por inactividad", marcados)
	}
}
