package models

import "time"

// Estados posibles de un escaneo de inventario
const (
	EscaneoOK       = "OK"
	EscaneoLowStock = "LOW_STOCK"
	EscaneoCritical = "CRITICAL"
)

// Estados de robot. "active" es el estado por defecto; los estados de batería
// los deriva la ingesta y "offline" lo marca el monitor de robots.
const (
	RobotActivo       = "active"
	RobotBateriaBaja  = "low_battery"
	RobotInactivo     = "inactive"
	RobotDesconectado = "offline"
)

// Robot representa el estado actual de un robot de inventario (una fila por robot,
// last-write-wins, la actualiza la ingesta)
type Robot struct {
	ID           string
	Status       string
	BatteryLevel int
	LastUpdate   *time.Time
	CurrentZone  string
	CurrentRow   int
	CurrentShelf int
}

// Escaneo es una fila del historial de inventario (append-only, inmutable)
type Escaneo struct {
	ID          int
	RobotID     string
	ProductID   string
	ProductName string
	Quantity    int
	Zone        string
	RowNumber   int
	ShelfNumber int
	Status      string
	ScannedAt   time.Time
}

// Prediccion es una fila de ai_predictions. Puede haber varias por producto;
// solo la de prediction_date más reciente es la predicción vigente.
type Prediccion struct {
	ID               int
	ProductID        string
	PredictionDate   time.Time
	RecommendedOrder int
	Confidence       *float64
}

// DatosRobot es el payload que envían los robots al endpoint de ingesta
type DatosRobot struct {
	RobotID      string             `json:"robot_id" binding:"required"`
	BatteryLevel *int               `json:"battery_level"`
	Timestamp    string             `json:"timestamp"` // ISO-8601, opcional
	Location     *UbicacionRobot    `json:"location"`
	ScanResults  []ResultadoEscaneo `json:"scan_results"`
}

// UbicacionRobot es la posición reportada por el robot
type UbicacionRobot struct {
	Zone  string `json:"zone"`
	Row   int    `json:"row"`
	Shelf int    `json:"shelf"`
}

// ResultadoEscaneo es una lectura individual dentro de un reporte de robot
type ResultadoEscaneo struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Status      string `json:"status"`
}

// EstadoPorBateria deriva el estado del robot a partir del nivel de batería
func EstadoPorBateria(nivel *int) string {
	if nivel == nil {
		return RobotActivo
	}
	switch {
	case *nivel == 0:
		return RobotInactivo
	case *nivel < 20:
		return RobotBateriaBaja
	default:
		return RobotActivo
	}
}
