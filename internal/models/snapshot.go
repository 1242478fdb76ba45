package models

// Formatos de fecha que espera el frontend (formatDateTime)
const (
	FormatoFechaHora     = "15:04:05 02.01.2006"
	FormatoSlotActividad = "02.01.2006 15:04:05"
)

// Snapshot es la vista completa del estado de la bodega que se envía al
// dashboard. No se persiste: se recalcula bajo demanda a partir del estado
// actual de la base de datos.
type Snapshot struct {
	Statistics      Estadisticas         `json:"statistics"`
	Robots          []RobotSnapshot      `json:"robots"`
	RecentScans     []EscaneoEnriquecido `json:"recent_scans"`
	ActivityHistory []SlotActividad      `json:"activity_history"`
}

// Estadisticas resume el estado de la bodega
type Estadisticas struct {
	ActiveRobots   int     `json:"active_robots"`
	TotalRobots    int     `json:"total_robots"`
	ScannedToday   int     `json:"scanned_today"`
	CriticalStocks int     `json:"critical_stocks"`
	AverageBattery float64 `json:"average_battery"` // solo robots activos, 1 decimal
}

// RobotSnapshot es la forma de un robot dentro del Snapshot
type RobotSnapshot struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	BatteryLevel int    `json:"battery_level"`
	LastUpdate   string `json:"last_update"`
	CurrentZone  string `json:"current_zone"`
	CurrentRow   int    `json:"current_row"`
	CurrentShelf int    `json:"current_shelf"`
}

// EscaneoEnriquecido es un escaneo reciente con el nombre del producto y la
// predicción vigente (la de prediction_date máximo) para ese producto
type EscaneoEnriquecido struct {
	ID                   int      `json:"id"`
	RobotID              string   `json:"robot_id"`
	ProductID            string   `json:"product_id"`
	ProductName          string   `json:"product_name"`
	Quantity             int      `json:"quantity"`
	Zone                 string   `json:"zone"`
	ShelfNumber          int      `json:"shelf_number"`
	Status               string   `json:"status"`
	ScannedAt            string   `json:"scanned_at"`
	RecommendedOrder     int      `json:"recommended_order"`
	Discrepancy          int      `json:"discrepancy"`
	PredictionConfidence *float64 `json:"prediction_confidence"`
}

// SlotActividad es una ventana de 10 minutos del histograma de actividad.
// Timestamp es el fin de ventana en milisegundos (estilo JS).
type SlotActividad struct {
	Timestamp   int64  `json:"timestamp"`
	TimeDisplay string `json:"timeDisplay"`
	Count       int    `json:"count"`
}
