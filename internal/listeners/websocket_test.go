package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"API-ALMACEN/internal/models"
)

// fakeConn es el doble de transporte: acumula los mensajes escritos y puede
// forzarse a fallar
type fakeConn struct {
	mu       sync.Mutex
	mensajes []WebSocketMessage
	fallo    error
	cierres  int
}

func (f *fakeConn) EscribirJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fallo != nil {
		return f.fallo
	}
	if msg, ok := v.(WebSocketMessage); ok {
		f.mensajes = append(f.mensajes, msg)
	}
	return nil
}

func (f *fakeConn) Cerrar() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cierres++
	return nil
}

func (f *fakeConn) tipos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	resultado := make([]string, len(f.mensajes))
	for i, m := range f.mensajes {
		resultado[i] = m.Type
	}
	return resultado
}

func (f *fakeConn) vecesCerrada() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cierres
}

// fakeFuente devuelve siempre el mismo snapshot (o el mismo error)
type fakeFuente struct {
	snap *models.Snapshot
	err  error
}

func (f *fakeFuente) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	return f.snap, f.err
}

func TestRegistro_RegistrarDuplicadoEsBenigno(t *testing.T) {
	registro := NuevoRegistro()
	cliente := NuevoCliente("c1", &fakeConn{})

	registro.Registrar(cliente)
	registro.Registrar(cliente)

	if n := registro.ConexionesActivas(); n != 1 {
		t.Errorf("Conexiones activas esperadas 1, obtenidas %d", n)
	}
}

func TestRegistro_DesregistrarDosVecesEsBenigno(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)

	registro.Registrar(cliente)
	registro.Desregistrar(cliente)
	registro.Desregistrar(cliente)

	if n := registro.ConexionesActivas(); n != 0 {
		t.Errorf("Conexiones activas esperadas 0, obtenidas %d", n)
	}
	// el transporte se cierra exactamente una vez aunque la baja se repita
	if conn.vecesCerrada() != 1 {
		t.Errorf("Transporte cerrado %d veces, esperado 1", conn.vecesCerrada())
	}
}

func TestRegistro_DifundirConClienteCaido(t *testing.T) {
	registro := NuevoRegistro()

	sanos := make([]*fakeConn, 0, 3)
	for i := 0; i < 3; i++ {
		conn := &fakeConn{}
		sanos = append(sanos, conn)
		registro.Registrar(NuevoCliente("sano", conn))
	}

	caida := &fakeConn{fallo: errors.New("broken pipe")}
	registro.Registrar(NuevoCliente("caido", caida))

	entregados := registro.Difundir(WebSocketMessage{Type: MensajeDashboardUpdate})

	if entregados != 3 {
		t.Errorf("Entregados esperados 3, obtenidos %d", entregados)
	}
	// el cliente caído se da de baja sin interrumpir al resto
	if n := registro.ConexionesActivas(); n != 3 {
		t.Errorf("Tras la difusión deben quedar 3 conexiones, quedan %d", n)
	}
	if caida.vecesCerrada() != 1 {
		t.Errorf("El transporte caído debe cerrarse una vez, se cerró %d", caida.vecesCerrada())
	}
	for i, conn := range sanos {
		if len(conn.tipos()) != 1 {
			t.Errorf("Cliente sano %d recibió %d mensajes, esperado 1", i, len(conn.tipos()))
		}
	}
}

func TestRegistro_CerrarTodas(t *testing.T) {
	registro := NuevoRegistro()
	conns := []*fakeConn{{}, {}, {}}
	for _, conn := range conns {
		registro.Registrar(NuevoCliente("c", conn))
	}

	registro.CerrarTodas()

	if n := registro.ConexionesActivas(); n != 0 {
		t.Errorf("Tras CerrarTodas deben quedar 0 conexiones, quedan %d", n)
	}
	for i, conn := range conns {
		if conn.vecesCerrada() != 1 {
			t.Errorf("Conexión %d cerrada %d veces, esperado 1", i, conn.vecesCerrada())
		}
	}
}

// atender corre la sesión en segundo plano y retorna los canales para
// alimentarla y esperar a que termine
func atender(t *testing.T, s *Sesion, idleCtx context.Context) (chan []byte, chan error, chan struct{}) {
	t.Helper()
	entrantes := make(chan []byte)
	errores := make(chan error, 1)
	terminado := make(chan struct{})
	go func() {
		defer close(terminado)
		s.Atender(idleCtx, entrantes, errores)
	}()
	return entrantes, errores, terminado
}

func TestSesion_SnapshotInicialPrimero(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{snap: &models.Snapshot{}}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	entrantes, _, terminado := atender(t, sesion, ctx)

	// pedir un refresh y luego cerrar la entrada
	entrantes <- []byte(`{"type": "refresh"}`)
	close(entrantes)
	<-terminado
	cancel()

	tipos := conn.tipos()
	if len(tipos) < 2 {
		t.Fatalf("Se esperaban al menos 2 mensajes, llegaron %v", tipos)
	}
	if tipos[0] != MensajeInitialData {
		t.Errorf("El primer mensaje debe ser initial_data, fue %q", tipos[0])
	}
	if tipos[1] != MensajeDashboardUpdate {
		t.Errorf("El refresh debe responder dashboard_update, fue %q", tipos[1])
	}
}

func TestSesion_RefreshEsUnicast(t *testing.T) {
	registro := NuevoRegistro()

	otroConn := &fakeConn{}
	registro.Registrar(NuevoCliente("otro", otroConn))

	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{snap: &models.Snapshot{}}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	entrantes, _, terminado := atender(t, sesion, ctx)

	entrantes <- []byte(`{"type": "refresh"}`)
	close(entrantes)
	<-terminado
	cancel()

	// el otro cliente no recibe nada por un refresh ajeno
	if len(otroConn.tipos()) != 0 {
		t.Errorf("Refresh debe ser unicast, el otro cliente recibió %v", otroConn.tipos())
	}
}

func TestSesion_PingTextoRespondePong(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{snap: &models.Snapshot{}}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	entrantes, _, terminado := atender(t, sesion, ctx)

	entrantes <- []byte("ping")
	entrantes <- []byte(`{"type": "subscribe"}`)
	close(entrantes)
	<-terminado
	cancel()

	tipos := conn.tipos()
	esperados := []string{MensajeInitialData, MensajePong, MensajeSubscribed}
	if len(tipos) != len(esperados) {
		t.Fatalf("Mensajes esperados %v, llegaron %v", esperados, tipos)
	}
	for i := range esperados {
		if tipos[i] != esperados[i] {
			t.Errorf("Mensaje %d esperado %q, llegó %q", i, esperados[i], tipos[i])
		}
	}
}

func TestSesion_EntradaMalformadaNoCierra(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{snap: &models.Snapshot{}}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	entrantes, _, terminado := atender(t, sesion, ctx)

	entrantes <- []byte(`{"type": `) // JSON truncado
	entrantes <- []byte("cualquier cosa")
	entrantes <- []byte("pong")
	entrantes <- []byte("ping") // la sesión sigue viva y responde

	close(entrantes)
	<-terminado
	cancel()

	tipos := conn.tipos()
	if len(tipos) != 2 || tipos[1] != MensajePong {
		t.Errorf("Tras entrada malformada la sesión debe seguir respondiendo, llegaron %v", tipos)
	}
}

func TestSesion_PingPorInactividad(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{snap: &models.Snapshot{}}
	sesion := NuevaSesion(cliente, registro, fuente, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, terminado := atender(t, sesion, ctx)

	// sin tráfico entrante: deben llegar pings de keepalive y la conexión
	// debe seguir registrada
	time.Sleep(100 * time.Millisecond)

	if n := registro.ConexionesActivas(); n != 1 {
		t.Errorf("La inactividad no debe cerrar la conexión, quedan %d", n)
	}

	pings := 0
	for _, tipo := range conn.tipos() {
		if tipo == MensajePing {
			pings++
		}
	}
	if pings == 0 {
		t.Error("Se esperaba al menos un ping de keepalive")
	}

	cancel()
	<-terminado

	if n := registro.ConexionesActivas(); n != 0 {
		t.Errorf("Al terminar la sesión el cliente debe darse de baja, quedan %d", n)
	}
}

// fuenteBloqueante retiene el cálculo del snapshot hasta que el test lo
// libera, y avisa cuando la primera llamada está en curso
type fuenteBloqueante struct {
	llamada chan struct{}
	liberar chan struct{}
	una     sync.Once
}

func (f *fuenteBloqueante) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	f.una.Do(func() { close(f.llamada) })
	<-f.liberar
	return &models.Snapshot{}, nil
}

func TestSesion_DifusionNoSeAdelantaAlInicial(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fuenteBloqueante{
		llamada: make(chan struct{}),
		liberar: make(chan struct{}),
	}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, terminado := atender(t, sesion, ctx)

	// con el snapshot inicial todavía en cálculo, una difusión concurrente
	// no debe alcanzar al cliente nuevo
	<-fuente.llamada
	if n := registro.Difundir(WebSocketMessage{Type: MensajeDashboardUpdate}); n != 0 {
		t.Errorf("La difusión llegó a %d cliente(s) aún sin snapshot inicial", n)
	}

	close(fuente.liberar)

	// tras el initial_data el cliente queda registrado y recibe difusiones
	plazo := time.After(2 * time.Second)
	for registro.ConexionesActivas() == 0 {
		select {
		case <-plazo:
			t.Fatal("El cliente nunca quedó registrado tras el snapshot inicial")
		case <-time.After(time.Millisecond):
		}
	}
	if n := registro.Difundir(WebSocketMessage{Type: MensajeDashboardUpdate}); n != 1 {
		t.Errorf("La difusión posterior debió entregar a 1 cliente, entregó a %d", n)
	}

	cancel()
	<-terminado

	tipos := conn.tipos()
	if len(tipos) == 0 || tipos[0] != MensajeInitialData {
		t.Fatalf("El primer mensaje debe ser initial_data, llegaron %v", tipos)
	}
	iniciales := 0
	for _, tipo := range tipos {
		if tipo == MensajeInitialData {
			iniciales++
		}
	}
	if iniciales != 1 {
		t.Errorf("Debe llegar exactamente un initial_data, llegaron %d", iniciales)
	}
}

func TestSesion_SnapshotInicialFallidoTermina(t *testing.T) {
	registro := NuevoRegistro()
	conn := &fakeConn{}
	cliente := NuevoCliente("c1", conn)
	fuente := &fakeFuente{err: errors.New("db caída")}
	sesion := NuevaSesion(cliente, registro, fuente, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _, terminado := atender(t, sesion, ctx)

	select {
	case <-terminado:
	case <-time.After(2 * time.Second):
		t.Fatal("La sesión debió terminar al fallar el snapshot inicial")
	}

	if n := registro.ConexionesActivas(); n != 0 {
		t.Errorf("El cliente debe quedar dado de baja, quedan %d", n)
	}
}
