package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"API-ALMACEN/internal/models"
)

// AlmacenStore expone las lecturas que necesita el dashboard y las escrituras
// de la ruta de ingesta sobre el pool de PostgreSQL
type AlmacenStore struct {
	mgr *PostgresManager
}

func NewAlmacenStore(mgr *PostgresManager) *AlmacenStore {
	return &AlmacenStore{mgr: mgr}
}

// ContarRobots retorna (robots activos, robots totales)
func (s *AlmacenStore) ContarRobots(ctx context.Context) (int, int, error) {
	var total, activos int
	if err := s.mgr.QueryRow(ctx, SELECT_CONTEO_ROBOTS).Scan(&total, &activos); err != nil {
		return 0, 0, fmt.Errorf("db: error contando robots: %w", err)
	}
	return activos, total, nil
}

// PromedioBateriaActivos retorna el promedio de batería de los robots activos
// (0 si no hay ninguno)
func (s *AlmacenStore) PromedioBateriaActivos(ctx context.Context) (float64, error) {
	var promedio float64
	if err := s.mgr.QueryRow(ctx, SELECT_PROMEDIO_BATERIA_ACTIVOS).Scan(&promedio); err != nil {
		return 0, fmt.Errorf("db: error calculando promedio de batería: %w", err)
	}
	return promedio, nil
}

// ContarEscaneosDesde cuenta los escaneos con scanned_at >= desde
func (s *AlmacenStore) ContarEscaneosDesde(ctx context.Context, desde time.Time) (int, error) {
	var total int
	if err := s.mgr.QueryRow(ctx, SELECT_CONTEO_ESCANEOS_DESDE, desde).Scan(&total); err != nil {
		return 0, fmt.Errorf("db: error contando escaneos: %w", err)
	}
	return total, nil
}

// ContarCriticosDesde cuenta los escaneos con estado CRITICAL desde la fecha dada
func (s *AlmacenStore) ContarCriticosDesde(ctx context.Context, desde time.Time) (int, error) {
	var total int
	if err := s.mgr.QueryRow(ctx, SELECT_CONTEO_CRITICOS_DESDE, desde).Scan(&total); err != nil {
		return 0, fmt.Errorf("db: error contando escaneos críticos: %w", err)
	}
	return total, nil
}

// EscaneosRecientes retorna los últimos N escaneos con el nombre del producto
func (s *AlmacenStore) EscaneosRecientes(ctx context.Context, limite int) ([]models.Escaneo, error) {
	rows, err := s.mgr.Query(ctx, SELECT_ESCANEOS_RECIENTES, limite)
	if err != nil {
		return nil, fmt.Errorf("db: error consultando escaneos recientes: %w", err)
	}
	defer rows.Close()

	var escaneos []models.Escaneo
	for rows.Next() {
		var e models.Escaneo
		if err := rows.Scan(&e.ID, &e.RobotID, &e.ProductID, &e.ProductName,
			&e.Quantity, &e.Zone, &e.RowNumber, &e.ShelfNumber, &e.Status, &e.ScannedAt); err != nil {
			return nil, fmt.Errorf("db: error al escanear fila: %w", err)
		}
		escaneos = append(escaneos, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error al iterar filas: %w", err)
	}

	return escaneos, nil
}

// EscaneosEnRango retorna los escaneos con scanned_at dentro de [desde, hasta]
func (s *AlmacenStore) EscaneosEnRango(ctx context.Context, desde, hasta time.Time) ([]models.Escaneo, error) {
	rows, err := s.mgr.Query(ctx, SELECT_ESCANEOS_EN_RANGO, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("db: error consultando escaneos en rango: %w", err)
	}
	defer rows.Close()

	var escaneos []models.Escaneo
	for rows.Next() {
		var e models.Escaneo
		if err := rows.Scan(&e.ID, &e.RobotID, &e.ProductID,
			&e.Quantity, &e.Zone, &e.RowNumber, &e.ShelfNumber, &e.Status, &e.ScannedAt); err != nil {
			return nil, fmt.Errorf("db: error al escanear fila: %w", err)
		}
		escaneos = append(escaneos, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error al iterar filas: %w", err)
	}

	return escaneos, nil
}

// ListarRobots retorna todas las filas actuales de robots
func (s *AlmacenStore) ListarRobots(ctx context.Context) ([]models.Robot, error) {
	rows, err := s.mgr.Query(ctx, SELECT_ROBOTS)
	if err != nil {
		return nil, fmt.Errorf("db: error consultando robots: %w", err)
	}
	defer rows.Close()

	var robots []models.Robot
	for rows.Next() {
		var r models.Robot
		if err := rows.Scan(&r.ID, &r.Status, &r.BatteryLevel, &r.LastUpdate,
			&r.CurrentZone, &r.CurrentRow, &r.CurrentShelf); err != nil {
			return nil, fmt.Errorf("db: error al escanear fila: %w", err)
		}
		robots = append(robots, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error al iterar filas: %w", err)
	}

	return robots, nil
}

// PrediccionesPorProductos retorna todas las predicciones de los productos
// dados. La selección de la predicción vigente (prediction_date máximo) la
// hace el agregador.
func (s *AlmacenStore) PrediccionesPorProductos(ctx context.Context, productIDs []string) ([]models.Prediccion, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := s.mgr.Query(ctx, SELECT_PREDICCIONES_POR_PRODUCTOS, productIDs)
	if err != nil {
		return nil, fmt.Errorf("db: error consultando predicciones: %w", err)
	}
	defer rows.Close()

	var predicciones []models.Prediccion
	for rows.Next() {
		var p models.Prediccion
		if err := rows.Scan(&p.ID, &p.ProductID, &p.PredictionDate,
			&p.RecommendedOrder, &p.Confidence); err != nil {
			return nil, fmt.Errorf("db: error al escanear fila: %w", err)
		}
		predicciones = append(predicciones, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: error al iterar filas: %w", err)
	}

	return predicciones, nil
}

// ProcesarDatosRobot procesa un reporte de robot: upsert del robot con estado
// derivado de la batería, alta automática de productos desconocidos y una fila
// de inventory_history por cada lectura
func (s *AlmacenStore) ProcesarDatosRobot(ctx context.Context, datos models.DatosRobot) error {
	scannedAt := parseTimestampUTC(datos.Timestamp)
	estado := models.EstadoPorBateria(datos.BatteryLevel)

	var zona string
	var fila, estante *int
	if datos.Location != nil {
		zona = datos.Location.Zone
		if datos.Location.Row != 0 {
			fila = &datos.Location.Row
		}
		if datos.Location.Shelf != 0 {
			estante = &datos.Location.Shelf
		}
	}

	tx, err := s.mgr.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: error al iniciar transacción: %w", err)
	}
	defer tx.Rollback(ctx)

	filaNum := 0
	if fila != nil {
		filaNum = *fila
	}
	estanteNum := 0
	if estante != nil {
		estanteNum = *estante
	}

	if _, err := tx.Exec(ctx, UPSERT_ROBOT,
		datos.RobotID, estado, datos.BatteryLevel, zona, filaNum, estanteNum); err != nil {
		return fmt.Errorf("db: error al actualizar robot %s: %w", datos.RobotID, err)
	}

	for _, lectura := range datos.ScanResults {
		if lectura.ProductID != "" && lectura.ProductName != "" {
			if _, err := tx.Exec(ctx, UPSERT_PRODUCTO, lectura.ProductID, lectura.ProductName); err != nil {
				return fmt.Errorf("db: error al registrar producto %s: %w", lectura.ProductID, err)
			}
		}

		if _, err := tx.Exec(ctx, INSERT_ESCANEO,
			datos.RobotID, lectura.ProductID, lectura.Quantity,
			zona, fila, estante, lectura.Status, scannedAt); err != nil {
			return fmt.Errorf("db: error al insertar escaneo: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: error al confirmar transacción: %w", err)
	}

	log.Printf("🤖 Datos procesados para robot %s (%d lecturas, estado %s)",
		datos.RobotID, len(datos.ScanResults), estado)

	return nil
}

// MarcarRobotsDesconectados marca como offline los robots cuyo last_update es
// anterior al límite. Retorna cuántos cambiaron de estado.
func (s *AlmacenStore) MarcarRobotsDesconectados(ctx context.Context, limite time.Time) (int, error) {
	tag, err := s.mgr.Exec(ctx, UPDATE_ROBOTS_DESCONECTADOS, limite)
	if err != nil {
		return 0, fmt.Errorf("db: error marcando robots desconectados: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// parseTimestampUTC interpreta un timestamp ISO-8601; si viene vacío o
// malformado se usa la hora actual en UTC
func parseTimestampUTC(valor string) time.Time {
	if valor == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, valor); err == nil {
		return t.UTC()
	}
	// sin zona horaria: se asume UTC
	if t, err := time.Parse("2006-01-02T15:04:05", valor); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
