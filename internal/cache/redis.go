// Package cache guarda en Redis el último snapshot difundido
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"API-ALMACEN/internal/models"
)

const (
	// ClaveUltimoSnapshot clave del último snapshot difundido
	ClaveUltimoSnapshot = "almacen:dashboard:ultimo"
	// TTLUltimoSnapshot tiempo de vida de la entrada
	TTLUltimoSnapshot = 5 * time.Minute
)

// ultimaDifusion es el envoltorio persistido: snapshot más el momento en que
// se difundió
type ultimaDifusion struct {
	Snapshot  *models.Snapshot `json:"snapshot"`
	Timestamp string           `json:"timestamp"`
}

// RedisCache implementa el cache del último snapshot en Redis
type RedisCache struct {
	client *redis.Client
}

// NuevoRedisCache crea una nueva conexión a Redis
func NuevoRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: no fue posible conectar a Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// GuardarUltimoSnapshot persiste el snapshot de un ciclo de difusión
func (r *RedisCache) GuardarUltimoSnapshot(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(ultimaDifusion{
		Snapshot:  snap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("cache: error serializando snapshot: %w", err)
	}

	if err := r.client.Set(ctx, ClaveUltimoSnapshot, data, TTLUltimoSnapshot).Err(); err != nil {
		return fmt.Errorf("cache: error guardando snapshot: %w", err)
	}

	return nil
}

// UltimoSnapshot retorna el último snapshot difundido y su timestamp;
// (nil, "", nil) si todavía no hay ninguno
func (r *RedisCache) UltimoSnapshot(ctx context.Context) (*models.Snapshot, string, error) {
	data, err := r.client.Get(ctx, ClaveUltimoSnapshot).Bytes()
	if err == redis.Nil {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("cache: error leyendo snapshot: %w", err)
	}

	var ultima ultimaDifusion
	if err := json.Unmarshal(data, &ultima); err != nil {
		return nil, "", fmt.Errorf("cache: error deserializando snapshot: %w", err)
	}

	return ultima.Snapshot, ultima.Timestamp, nil
}

// Cerrar cierra la conexión a Redis
func (r *RedisCache) Cerrar() error {
	return r.client.Close()
}
