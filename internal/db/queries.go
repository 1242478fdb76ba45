package db

const SELECT_CONTEO_ROBOTS = `
	SELECT COUNT(*),
	       COUNT(*) FILTER (WHERE status = 'active')
	FROM robots
`

const SELECT_PROMEDIO_BATERIA_ACTIVOS = `
	SELECT COALESCE(AVG(battery_level), 0)
	FROM robots
	WHERE status = 'active'
`

const SELECT_CONTEO_ESCANEOS_DESDE = `
	SELECT COUNT(*)
	FROM inventory_history
	WHERE scanned_at >= $1
`

const SELECT_CONTEO_CRITICOS_DESDE = `
	SELECT COUNT(*)
	FROM inventory_history
	WHERE status = 'CRITICAL'
	  AND scanned_at >= $1
`

const SELECT_ESCANEOS_RECIENTES = `
	SELECT h.id,
	       COALESCE(h.robot_id, ''),
	       COALESCE(h.product_id, ''),
	       COALESCE(p.name, ''),
	       h.quantity,
	       COALESCE(h.zone, ''),
	       COALESCE(h.row_number, 0),
	       COALESCE(h.shelf_number, 0),
	       COALESCE(h.status, ''),
	       h.scanned_at
	FROM inventory_history h
	JOIN products p ON h.product_id = p.id
	ORDER BY h.scanned_at DESC
	LIMIT $1
`

const SELECT_ESCANEOS_EN_RANGO = `
	SELECT h.id,
	       COALESCE(h.robot_id, ''),
	       COALESCE(h.product_id, ''),
	       h.quantity,
	       COALESCE(h.zone, ''),
	       COALESCE(h.row_number, 0),
	       COALESCE(h.shelf_number, 0),
	       COALESCE(h.status, ''),
	       h.scanned_at
	FROM inventory_history h
	WHERE h.scanned_at >= $1
	  AND h.scanned_at <= $2
`

const SELECT_ROBOTS = `
	SELECT id,
	       COALESCE(status, ''),
	       COALESCE(battery_level, 0),
	       last_update,
	       COALESCE(current_zone, ''),
	       COALESCE(current_row, 0),
	       COALESCE(current_shelf, 0)
	FROM robots
	ORDER BY id
`

const SELECT_PREDICCIONES_POR_PRODUCTOS = `
	SELECT id,
	       product_id,
	       prediction_date,
	       COALESCE(recommended_order, 0),
	       confidence_score
	FROM ai_predictions
	WHERE product_id = ANY($1)
`

const UPSERT_ROBOT = `
	INSERT INTO robots (id, status, battery_level, last_update, current_zone, current_row, current_shelf)
	VALUES ($1, $2, $3, NOW(), $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		status        = EXCLUDED.status,
		battery_level = EXCLUDED.battery_level,
		last_update   = NOW(),
		current_zone  = COALESCE(NULLIF(EXCLUDED.current_zone, ''), robots.current_zone),
		current_row   = COALESCE(NULLIF(EXCLUDED.current_row, 0), robots.current_row),
		current_shelf = COALESCE(NULLIF(EXCLUDED.current_shelf, 0), robots.current_shelf)
`

const UPSERT_PRODUCTO = `
	INSERT INTO products (id, name, min_stock, optimal_stock)
	VALUES ($1, $2, 10, 100)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
`

const INSERT_ESCANEO = `
	INSERT INTO inventory_history
		(robot_id, product_id, quantity, zone, row_number, shelf_number, status, scanned_at, created_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, NOW())
`

const UPDATE_ROBOTS_DESCONECTADOS = `
	UPDATE robots
	SET status = 'offline'
	WHERE last_update < $1
	  AND status <> 'offline'
`
