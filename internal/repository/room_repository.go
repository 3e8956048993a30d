package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RoomRepository reads room records for scheduling.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, name, type, capacity, unavailable_slots, active, created_at, updated_at"

// ListActive returns all active rooms ordered by id.
func (r *RoomRepository) ListActive(ctx context.Context) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE active = TRUE ORDER BY id ASC", roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return rooms, nil
}
