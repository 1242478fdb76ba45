package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"API-ALMACEN/internal/models"
)

// fuenteContada cuenta cuántos snapshots se calcularon y puede alternar
// entre fallo y éxito entre ciclos
type fuenteContada struct {
	mu       sync.Mutex
	llamadas int
	err      error
}

func (f *fuenteContada) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.llamadas++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Snapshot{}, nil
}

func (f *fuenteContada) vecesLlamada() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.llamadas
}

func (f *fuenteContada) fijarError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestDifusor_EntregaPorCiclo(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	registro.Registrar(NuevoCliente("c1", conn))

	fuente := &fuenteContada{}
	difusor := NuevoDifusor(registro, fuente, 20*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		difusor.Run(ctx)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()
	<-terminado

	tipos := conn.tipos()
	if len(tipos) == 0 {
		t.Fatal("El cliente registrado no recibió ninguna difusión")
	}
	for i, tipo := range tipos {
		if tipo != MensajeDashboardUpdate {
			t.Errorf("Mensaje %d esperado dashboard_update, llegó %q", i, tipo)
		}
	}
}

func TestDifusor_SinConexionesNoCalcula(t *testing.T) {
	registro := NuevoRegistro()
	fuente := &fuenteContada{}
	difusor := NuevoDifusor(registro, fuente, 15*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		difusor.Run(ctx)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-terminado

	// sin clientes registrados el ciclo se salta el cálculo completo
	if n := fuente.vecesLlamada(); n != 0 {
		t.Errorf("Sin conexiones no debe calcularse ningún snapshot, se calcularon %d", n)
	}
}

func TestDifusor_SigueTrasError(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	registro.Registrar(NuevoCliente("c1", conn))

	fuente := &fuenteContada{}
	fuente.fijarError(errors.New("consulta fallida"))
	difusor := NuevoDifusor(registro, fuente, 20*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		difusor.Run(ctx)
	}()

	// primeros ciclos fallan; el difusor debe seguir vivo y reintentar
	time.Sleep(50 * time.Millisecond)
	fuente.fijarError(nil)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-terminado

	if len(conn.tipos()) == 0 {
		t.Error("Tras recuperarse la fuente el difusor debió volver a entregar")
	}
	if fuente.vecesLlamada() < 2 {
		t.Errorf("El difusor debió reintentar tras el error, llamadas: %d", fuente.vecesLlamada())
	}
}

func TestDifusor_HookRecibeElSnapshot(t *testing.T) {
	registro := NuevoRegistro()
	registro.Registrar(NuevoCliente("c1", &fakeConn{}))

	fuente := &fuenteContada{}
	difusor := NuevoDifusor(registro, fuente, 20*time.Millisecond, 0)

	var mu sync.Mutex
	recibidos := 0
	difusor.AlDifundir = func(snap *models.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap != nil {
			recibidos++
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		difusor.Run(ctx)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()
	<-terminado

	mu.Lock()
	defer mu.Unlock()
	if recibidos == 0 {
		t.Error("El hook AlDifundir no recibió ningún snapshot")
	}
}

func TestDifusor_CancelarDuranteArranque(t *testing.T) {
	registro := NuevoRegistro()
	fuente := &fuenteContada{}
	difusor := NuevoDifusor(registro, fuente, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		difusor.Run(ctx)
	}()

	cancel()

	select {
	case <-terminado:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancelar el contexto durante el arranque debe terminar el difusor")
	}
	if fuente.vecesLlamada() != 0 {
		t.Errorf("Durante el arranque no debe calcularse nada, llamadas: %d", fuente.vecesLlamada())
	}
}
