package db

import (
	"strings"
	"testing"
)

// Las columnas de escaneo que el store lee fila a fila; el orden del SELECT
// debe cubrirlas todas para que los Scan no queden desalineados
var columnasEscaneo = []string{
	"h.id",
	"h.robot_id",
	"h.product_id",
	"h.quantity",
	"h.zone",
	"h.row_number",
	"h.shelf_number",
	"h.status",
	"h.scanned_at",
}

func TestEscaneosRecientes_SeleccionaTodasLasColumnas(t *testing.T) {
	for _, col := range columnasEscaneo {
		if !strings.Contains(SELECT_ESCANEOS_RECIENTES, col) {
			t.Errorf("SELECT_ESCANEOS_RECIENTES no selecciona %s", col)
		}
	}
	if !strings.Contains(SELECT_ESCANEOS_RECIENTES, "p.name") {
		t.Error("SELECT_ESCANEOS_RECIENTES no trae el nombre del producto")
	}
}

func TestEscaneosEnRango_SeleccionaTodasLasColumnas(t *testing.T) {
	for _, col := range columnasEscaneo {
		if !strings.Contains(SELECT_ESCANEOS_EN_RANGO, col) {
			t.Errorf("SELECT_ESCANEOS_EN_RANGO no selecciona %s", col)
		}
	}
}
