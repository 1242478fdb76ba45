package dashboard

import (
	"context"
	"fmt"
	"time"

	"API-ALMACEN/internal/models"
)

// Parámetros del histograma de actividad: la última hora dividida en seis
// ventanas de 10 minutos
const (
	VentanaActividad = time.Hour
	SlotsActividad   = 6
	DuracionSlot     = 10 * time.Minute
)

// HistorialActividad calcula el histograma de actividad de robots de la última
// hora: siempre 6 ventanas, de la más antigua a la más reciente, contando
// robots distintos por ventana (un robot que escanea cinco productos en la
// misma ventana cuenta una sola vez)
func (a *Agregador) HistorialActividad(ctx context.Context, ahora time.Time) ([]models.SlotActividad, error) {
	ahora = ahora.UTC()
	desde := ahora.Add(-VentanaActividad)

	escaneos, err := a.store.EscaneosEnRango(ctx, desde, ahora)
	if err != nil {
		return nil, fmt.Errorf("dashboard: escaneos de la última hora: %w", err)
	}

	return repartirEnSlots(escaneos, desde, ahora), nil
}

// repartirEnSlots asigna cada escaneo a su ventana y cuenta robots distintos.
// Ventanas semiabiertas [inicio, fin): un escaneo exactamente en el límite
// pertenece a la ventana siguiente. La última ventana se recorta en `ahora` y
// es cerrada por la derecha, así un escaneo exactamente en `ahora` sí cuenta.
func repartirEnSlots(escaneos []models.Escaneo, desde, ahora time.Time) []models.SlotActividad {
	type ventana struct {
		inicio, fin time.Time
	}

	ventanas := make([]ventana, SlotsActividad)
	robotsPorSlot := make([]map[string]bool, SlotsActividad)
	for i := range ventanas {
		inicio := desde.Add(time.Duration(i) * DuracionSlot)
		fin := inicio.Add(DuracionSlot)
		if fin.After(ahora) {
			fin = ahora
		}
		ventanas[i] = ventana{inicio: inicio, fin: fin}
		robotsPorSlot[i] = make(map[string]bool)
	}

	for _, e := range escaneos {
		if e.RobotID == "" || e.ScannedAt.IsZero() {
			continue
		}

		// normalización a UTC: los timestamps sin zona se asumen ya en UTC
		t := e.ScannedAt.UTC()

		for i, v := range ventanas {
			ultima := i == SlotsActividad-1
			if t.Before(v.inicio) {
				break
			}
			if t.Before(v.fin) || (ultima && t.Equal(v.fin)) {
				robotsPorSlot[i][e.RobotID] = true
				break
			}
		}
	}

	slots := make([]models.SlotActividad, SlotsActividad)
	for i, v := range ventanas {
		slots[i] = models.SlotActividad{
			Timestamp:   v.fin.UnixMilli(),
			TimeDisplay: v.fin.Format(models.FormatoSlotActividad),
			Count:       len(robotsPorSlot[i]),
		}
	}

	return slots
}
