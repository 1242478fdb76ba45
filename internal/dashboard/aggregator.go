package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"API-ALMACEN/internal/models"
)

// LimiteEscaneosRecientes es cuántos escaneos recientes lleva cada snapshot
const LimiteEscaneosRecientes = 20

// Agregador calcula el snapshot del dashboard a partir del estado persistido.
// Es de solo lectura: cualquier error de lectura se propaga al llamador y
// nunca se cachea un resultado parcial.
type Agregador struct {
	store  Store
	limite int
	ahora  func() time.Time // inyectable en tests
}

func NewAgregador(store Store, limiteRecientes int) *Agregador {
	if limiteRecientes <= 0 {
		limiteRecientes = LimiteEscaneosRecientes
	}
	return &Agregador{
		store:  store,
		limite: limiteRecientes,
		ahora:  time.Now,
	}
}

// Snapshot calcula una vista consistente del estado actual de la bodega
func (a *Agregador) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	ahora := a.ahora()

	activos, total, err := a.store.ContarRobots(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: contando robots: %w", err)
	}

	promedio, err := a.store.PromedioBateriaActivos(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: promedio de batería: %w", err)
	}

	inicioHoy := inicioDeHoy(ahora)

	escaneadosHoy, err := a.store.ContarEscaneosDesde(ctx, inicioHoy)
	if err != nil {
		return nil, fmt.Errorf("dashboard: escaneos de hoy: %w", err)
	}

	criticosHoy, err := a.store.ContarCriticosDesde(ctx, inicioHoy)
	if err != nil {
		return nil, fmt.Errorf("dashboard: escaneos críticos de hoy: %w", err)
	}

	recientes, err := a.store.EscaneosRecientes(ctx, a.limite)
	if err != nil {
		return nil, fmt.Errorf("dashboard: escaneos recientes: %w", err)
	}

	enriquecidos, err := a.enriquecer(ctx, recientes)
	if err != nil {
		return nil, err
	}

	robots, err := a.store.ListarRobots(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: listado de robots: %w", err)
	}

	historial, err := a.HistorialActividad(ctx, ahora)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Statistics: models.Estadisticas{
			ActiveRobots:   activos,
			TotalRobots:    total,
			ScannedToday:   escaneadosHoy,
			CriticalStocks: criticosHoy,
			AverageBattery: math.Round(promedio*10) / 10,
		},
		Robots:          aRobotsSnapshot(robots),
		RecentScans:     enriquecidos,
		ActivityHistory: historial,
	}, nil
}

// enriquecer agrega a cada escaneo la predicción vigente de su producto.
// Las predicciones se resuelven con una sola consulta por lote y para cada
// producto se usa siempre la de prediction_date máximo.
func (a *Agregador) enriquecer(ctx context.Context, escaneos []models.Escaneo) ([]models.EscaneoEnriquecido, error) {
	productIDs := make([]string, 0, len(escaneos))
	vistos := make(map[string]bool)
	for _, e := range escaneos {
		if e.ProductID != "" && !vistos[e.ProductID] {
			vistos[e.ProductID] = true
			productIDs = append(productIDs, e.ProductID)
		}
	}

	vigentes, err := a.prediccionesVigentes(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	resultado := make([]models.EscaneoEnriquecido, 0, len(escaneos))
	for _, e := range escaneos {
		enriquecido := models.EscaneoEnriquecido{
			ID:          e.ID,
			RobotID:     e.RobotID,
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			Quantity:    e.Quantity,
			Zone:        e.Zone,
			ShelfNumber: e.ShelfNumber,
			Status:      e.Status,
		}
		if !e.ScannedAt.IsZero() {
			enriquecido.ScannedAt = e.ScannedAt.Format(models.FormatoFechaHora)
		}

		if pred, ok := vigentes[e.ProductID]; ok {
			enriquecido.RecommendedOrder = pred.RecommendedOrder
			enriquecido.Discrepancy = abs(e.Quantity - pred.RecommendedOrder)
			enriquecido.PredictionConfidence = pred.Confidence
		} else {
			enriquecido.RecommendedOrder = 0
			enriquecido.Discrepancy = e.Quantity
		}

		resultado = append(resultado, enriquecido)
	}

	return resultado, nil
}

// prediccionesVigentes reduce todas las predicciones de los productos dados a
// la más reciente por producto (prediction_date máximo, nunca la primera vista)
func (a *Agregador) prediccionesVigentes(ctx context.Context, productIDs []string) (map[string]models.Prediccion, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	predicciones, err := a.store.PrediccionesPorProductos(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("dashboard: predicciones: %w", err)
	}

	vigentes := make(map[string]models.Prediccion, len(productIDs))
	for _, p := range predicciones {
		actual, existe := vigentes[p.ProductID]
		if !existe || p.PredictionDate.After(actual.PredictionDate) {
			vigentes[p.ProductID] = p
		}
	}

	return vigentes, nil
}

func aRobotsSnapshot(robots []models.Robot) []models.RobotSnapshot {
	resultado := make([]models.RobotSnapshot, 0, len(robots))
	for _, r := range robots {
		snapshot := models.RobotSnapshot{
			ID:           r.ID,
			Status:       r.Status,
			BatteryLevel: r.BatteryLevel,
			CurrentZone:  r.CurrentZone,
			CurrentRow:   r.CurrentRow,
			CurrentShelf: r.CurrentShelf,
		}
		if r.LastUpdate != nil {
			snapshot.LastUpdate = r.LastUpdate.Format(models.FormatoFechaHora)
		}
		resultado = append(resultado, snapshot)
	}
	return resultado
}

// inicioDeHoy retorna la medianoche local del día de la fecha dada
func inicioDeHoy(ahora time.Time) time.Time {
	y, m, d := ahora.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ahora.Location())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
