package listeners

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"API-ALMACEN/internal/metrics"
	"API-ALMACEN/internal/models"
)

// Tipos de mensaje del canal push del dashboard
const (
	MensajeInitialData     = "initial_data"
	MensajeDashboardUpdate = "dashboard_update"
	MensajePing            = "ping"
	MensajePong            = "pong"
	MensajeSubscribed      = "subscribed"
)

const plazoEscritura = 10 * time.Second

// WebSocketMessage representa un mensaje enviado a través del WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"` // "initial_data", "dashboard_update", "ping", "pong", "subscribed"
	Data      interface{} `json:"data,omitempty"`
	Status    string      `json:"status,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"` // ISO 8601
}

// FuenteSnapshot abstrae al agregador del dashboard
type FuenteSnapshot interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// ConexionPush abstrae el transporte de un cliente (dobles en tests)
type ConexionPush interface {
	EscribirJSON(v interface{}) error
	Cerrar() error
}

// Cliente representa un cliente conectado al canal push del dashboard
type Cliente struct {
	ID string

	conn        ConexionPush
	muEscritura sync.Mutex
	cerrarOnce  sync.Once
}

func NuevoCliente(id string, conn ConexionPush) *Cliente {
	return &Cliente{ID: id, conn: conn}
}

// Escribir serializa las escrituras concurrentes al mismo transporte
func (c *Cliente) Escribir(msg WebSocketMessage) error {
	c.muEscritura.Lock()
	defer c.muEscritura.Unlock()
	return c.conn.EscribirJSON(msg)
}

// Cerrar cierra el transporte una sola vez
func (c *Cliente) Cerrar() {
	c.cerrarOnce.Do(func() {
		c.conn.Cerrar()
	})
}

// Registro mantiene el conjunto de clientes vivos del canal push. Todas las
// mutaciones y la iteración de difusión están protegidas por el mutex: una
// conexión dada de baja a mitad de una difusión ni rompe la difusión ni se
// cierra dos veces.
type Registro struct {
	mu       sync.RWMutex
	clientes map[*Cliente]bool
}

func NuevoRegistro() *Registro {
	return &Registro{clientes: make(map[*Cliente]bool)}
}

// Registrar agrega un cliente; registrar dos veces el mismo es benigno
func (r *Registro) Registrar(c *Cliente) {
	r.mu.Lock()
	if r.clientes[c] {
		r.mu.Unlock()
		return
	}
	r.clientes[c] = true
	total := len(r.clientes)
	r.mu.Unlock()

	metrics.ConexionesActivas.Inc()
	log.Printf("✅ Cliente %s conectado (Total: %d)", c.ID, total)
}

// Desregistrar da de baja un cliente y cierra su transporte; es benigno si el
// cliente ya no está registrado
func (r *Registro) Desregistrar(c *Cliente) {
	r.mu.Lock()
	if !r.clientes[c] {
		r.mu.Unlock()
		c.Cerrar()
		return
	}
	delete(r.clientes, c)
	total := len(r.clientes)
	r.mu.Unlock()

	c.Cerrar()
	metrics.ConexionesActivas.Dec()
	log.Printf("❌ Cliente %s desconectado (Restantes: %d)", c.ID, total)
}

// Enviar intenta entregar un mensaje a un cliente. Cualquier fallo de
// transporte da de baja al cliente; el error se retorna para que los tests
// puedan verificarlo, pero Difundir nunca lo propaga.
func (r *Registro) Enviar(c *Cliente, msg WebSocketMessage) error {
	if err := c.Escribir(msg); err != nil {
		metrics.EnviosFallidos.Inc()
		log.Printf("⚠️  Envío fallido a cliente %s, desconectando: %v", c.ID, err)
		r.Desregistrar(c)
		return fmt.Errorf("listeners: envío fallido a %s: %w", c.ID, err)
	}
	metrics.MensajesEnviados.Inc()
	return nil
}

// Difundir envía el mismo mensaje a todos los clientes registrados. Un cliente
// inalcanzable se da de baja sin abortar la entrega al resto. Retorna cuántos
// clientes recibieron el mensaje.
func (r *Registro) Difundir(msg WebSocketMessage) int {
	r.mu.RLock()
	destinos := make([]*Cliente, 0, len(r.clientes))
	for c := range r.clientes {
		destinos = append(destinos, c)
	}
	r.mu.RUnlock()

	entregados := 0
	for _, c := range destinos {
		if err := r.Enviar(c, msg); err == nil {
			entregados++
		}
	}
	return entregados
}

// ConexionesActivas retorna el número de clientes vivos
func (r *Registro) ConexionesActivas() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clientes)
}

// CerrarTodas da de baja y cierra todas las conexiones (apagado ordenado)
func (r *Registro) CerrarTodas() {
	r.mu.Lock()
	destinos := make([]*Cliente, 0, len(r.clientes))
	for c := range r.clientes {
		destinos = append(destinos, c)
	}
	r.mu.Unlock()

	for _, c := range destinos {
		r.Desregistrar(c)
	}

	if len(destinos) > 0 {
		log.Printf("🛑 %d conexión(es) del dashboard cerradas", len(destinos))
	}
}

// Sesion maneja el ciclo de vida de una conexión del dashboard:
// Connecting → Registered → (Idle ⇄ Processing) → Closed
type Sesion struct {
	cliente  *Cliente
	registro *Registro
	fuente   FuenteSnapshot
	idle     time.Duration
}

func NuevaSesion(cliente *Cliente, registro *Registro, fuente FuenteSnapshot, idle time.Duration) *Sesion {
	return &Sesion{
		cliente:  cliente,
		registro: registro,
		fuente:   fuente,
		idle:     idle,
	}
}

// Atender envía el snapshot inicial, registra al cliente y procesa mensajes
// entrantes con keepalive por inactividad hasta que el cliente se desconecte,
// el transporte falle o se cancele el contexto. Siempre da de baja al cliente
// antes de retornar.
func (s *Sesion) Atender(ctx context.Context, entrantes <-chan []byte, errores <-chan error) {
	defer s.registro.Desregistrar(s.cliente)

	// initial_data se envía antes de registrar: mientras el primer snapshot
	// está en cálculo una difusión concurrente no puede adelantársele
	if err := s.enviarSnapshot(ctx, MensajeInitialData); err != nil {
		log.Printf("❌ Cliente %s: snapshot inicial fallido: %v", s.cliente.ID, err)
		return
	}

	s.registro.Registrar(s.cliente)

	temporizador := time.NewTimer(s.idle)
	defer temporizador.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-errores:
			if err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️  Cliente %s: error de lectura: %v", s.cliente.ID, err)
			}
			return

		case datos, ok := <-entrantes:
			if !ok {
				return
			}
			s.procesar(ctx, datos)

			if !temporizador.Stop() {
				select {
				case <-temporizador.C:
				default:
				}
			}
			temporizador.Reset(s.idle)

		case <-temporizador.C:
			// keepalive: la falta de pong no cierra la conexión, solo un
			// fallo de transporte lo hace
			if err := s.registro.Enviar(s.cliente, WebSocketMessage{Type: MensajePing}); err != nil {
				return
			}
			temporizador.Reset(s.idle)
		}
	}
}

// procesar despacha un mensaje entrante. La entrada malformada se registra y
// se ignora: nunca cierra la conexión ni propaga un error al cliente.
func (s *Sesion) procesar(ctx context.Context, datos []byte) {
	texto := strings.TrimSpace(string(datos))

	switch {
	case texto == MensajePing:
		s.registro.Enviar(s.cliente, WebSocketMessage{Type: MensajePong})

	case texto == MensajePong:
		// keepalive del cliente, nada que hacer

	case strings.HasPrefix(texto, "{"):
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(datos, &msg); err != nil {
			log.Printf("⚠️  Cliente %s: JSON inválido: %s", s.cliente.ID, texto)
			return
		}
		s.procesarComando(ctx, msg.Type)

	default:
		log.Printf("⚠️  Cliente %s: formato de mensaje desconocido: %s", s.cliente.ID, texto)
	}
}

func (s *Sesion) procesarComando(ctx context.Context, tipo string) {
	switch tipo {
	case "refresh":
		// snapshot fresco solo para este cliente
		if err := s.enviarSnapshot(ctx, MensajeDashboardUpdate); err != nil {
			log.Printf("❌ Cliente %s: refresh fallido: %v", s.cliente.ID, err)
		}

	case "subscribe":
		// la difusión ya está activa para todo cliente registrado
		s.registro.Enviar(s.cliente, WebSocketMessage{Type: MensajeSubscribed, Status: "success"})

	default:
		log.Printf("⚠️  Cliente %s: tipo de mensaje desconocido: %s", s.cliente.ID, tipo)
	}
}

func (s *Sesion) enviarSnapshot(ctx context.Context, tipo string) error {
	snap, err := s.fuente.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("listeners: calculando snapshot: %w", err)
	}

	return s.registro.Enviar(s.cliente, WebSocketMessage{
		Type:      tipo,
		Data:      snap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Upgrader de HTTP a WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// En producción, verificar origen
		return true
	},
}

// conexionWS adapta *websocket.Conn a ConexionPush
type conexionWS struct {
	conn *websocket.Conn
}

func (w *conexionWS) EscribirJSON(v interface{}) error {
	w.conn.SetWriteDeadline(time.Now().Add(plazoEscritura))
	return w.conn.WriteJSON(v)
}

func (w *conexionWS) Cerrar() error {
	return w.conn.Close()
}

// ManejarConexionDashboard maneja una nueva conexión del canal push. El
// contexto es el de la aplicación, no el del request: tras el upgrade el
// request context deja de ser significativo.
func ManejarConexionDashboard(appCtx context.Context, registro *Registro, fuente FuenteSnapshot, idle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("❌ Error al hacer upgrade WebSocket: %v", err)
			return
		}

		clienteID := fmt.Sprintf("%s_%d", c.ClientIP(), time.Now().UnixNano())
		cliente := NuevoCliente(clienteID, &conexionWS{conn: conn})
		log.Printf("🔌 Cliente WebSocket conectado: %s", clienteID)

		entrantes := make(chan []byte)
		errores := make(chan error, 1)
		listo := make(chan struct{})
		defer close(listo)

		go func() {
			for {
				_, datos, err := conn.ReadMessage()
				if err != nil {
					errores <- err
					return
				}
				select {
				case entrantes <- datos:
				case <-listo:
					return
				}
			}
		}()

		sesion := NuevaSesion(cliente, registro, fuente, idle)
		sesion.Atender(appCtx, entrantes, errores)
	}
}
