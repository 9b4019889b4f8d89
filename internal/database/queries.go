package database

// Table queries
const (
	UpsertTableSQL = `
		INSERT INTO cafe_tables (number, capacity, status, holds, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, NOW())
		ON CONFLICT (number) DO UPDATE SET
			capacity = EXCLUDED.capacity,
			status = EXCLUDED.status,
			holds = EXCLUDED.holds,
			updated_at = NOW()`

	DeleteRetiredTablesSQL = `
		DELETE FROM cafe_tables WHERE NOT (number = ANY($1))`

	GetAllTablesSQL = `
		SELECT number, capacity, status, holds
		FROM cafe_tables
		ORDER BY number ASC`
)

// Booking queries
const (
	UpsertBookingSQL = `
		INSERT INTO bookings (id, customer_id, start_time, duration_minutes, guests, status, table_numbers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			table_numbers = EXCLUDED.table_numbers`

	GetAllBookingsSQL = `
		SELECT id, customer_id, start_time, duration_minutes, guests, status, table_numbers, created_at
		FROM bookings
		ORDER BY id ASC`
)

// Order queries
const (
	UpsertOrderSQL = `
		INSERT INTO orders (id, customer_id, kind, status, items, details, total_price, ordered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			details = EXCLUDED.details,
			updated_at = EXCLUDED.updated_at`

	GetAllOrdersSQL = `
		SELECT id, customer_id, kind, status, items, details, total_price, ordered_at, updated_at
		FROM orders
		ORDER BY id ASC`
)
