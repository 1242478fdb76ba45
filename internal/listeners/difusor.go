package listeners

import (
	"context"
	"log"
	"time"

	"API-ALMACEN/internal/metrics"
	"API-ALMACEN/internal/models"
)

// Difusor es la tarea de fondo que calcula un snapshot por ciclo y lo difunde
// a todas las conexiones registradas. Se supervisa desde main: Run corre hasta
// que se cancela el contexto.
type Difusor struct {
	registro  *Registro
	fuente    FuenteSnapshot
	intervalo time.Duration
	arranque  time.Duration

	// AlDifundir se invoca con el snapshot de cada ciclo exitoso (hook
	// opcional, ej: cache Redis del último snapshot difundido)
	AlDifundir func(snap *models.Snapshot)
}

func NuevoDifusor(registro *Registro, fuente FuenteSnapshot, intervalo, arranque time.Duration) *Difusor {
	return &Difusor{
		registro:  registro,
		fuente:    fuente,
		intervalo: intervalo,
		arranque:  arranque,
	}
}

// Run ejecuta el ciclo de difusión hasta que se cancele el contexto. Un ciclo
// fallido se registra y se reintenta recién en el siguiente tick: nunca
// termina la tarea.
func (d *Difusor) Run(ctx context.Context) {
	log.Printf("📡 Difusor del dashboard iniciado (intervalo: %v, arranque: %v)", d.intervalo, d.arranque)

	select {
	case <-ctx.Done():
		return
	case <-time.After(d.arranque):
	}

	ticker := time.NewTicker(d.intervalo)
	defer ticker.Stop()

	for {
		d.difundirCiclo(ctx)

		select {
		case <-ctx.Done():
			log.Println("🛑 Difusor del dashboard detenido")
			return
		case <-ticker.C:
		}
	}
}

// difundirCiclo ejecuta un ciclo: un único snapshot calculado y luego
// difundido, así todos los clientes del ciclo ven exactamente el mismo estado
func (d *Difusor) difundirCiclo(ctx context.Context) {
	if d.registro.ConexionesActivas() == 0 {
		return
	}

	inicio := time.Now()
	snap, err := d.fuente.Snapshot(ctx)
	if err != nil {
		metrics.ErroresDifusion.Inc()
		log.Printf("❌ Difusor: error calculando snapshot: %v", err)
		return
	}
	metrics.DuracionSnapshot.Observe(time.Since(inicio).Seconds())

	entregados := d.registro.Difundir(WebSocketMessage{
		Type:      MensajeDashboardUpdate,
		Data:      snap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	metrics.CiclosDifusion.Inc()
	log.Printf("📤 Difusor: snapshot difundido a %d cliente(s)", entregados)

	if d.AlDifundir != nil {
		d.AlDifundir(snap)
	}
}
