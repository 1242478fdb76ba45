package dashboard

import (
	"context"
	"time"

	"API-ALMACEN/internal/models"
)

// Store es la interfaz de lectura que el agregador necesita de la persistencia.
// La implementa db.AlmacenStore; en tests se sustituye por un doble.
type Store interface {
	ContarRobots(ctx context.Context) (activos int, total int, err error)
	PromedioBateriaActivos(ctx context.Context) (float64, error)
	ContarEscaneosDesde(ctx context.Context, desde time.Time) (int, error)
	ContarCriticosDesde(ctx context.Context, desde time.Time) (int, error)
	EscaneosRecientes(ctx context.Context, limite int) ([]models.Escaneo, error)
	EscaneosEnRango(ctx context.Context, desde, hasta time.Time) ([]models.Escaneo, error)
	ListarRobots(ctx context.Context) ([]models.Robot, error)
	PrediccionesPorProductos(ctx context.Context, productIDs []string) ([]models.Prediccion, error)
}
