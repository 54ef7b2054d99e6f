// internal/domain/audit/entity.go
package audit

import "time"

type Entry struct {
	ID        string    `json:"id" db:"id"`
	ActorID   int64     `json:"actor_id" db:"actor_id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	Entity    string    `json:"entity" db:"entity"`
	EntityID  int64     `json:"entity_id" db:"entity_id"`
	Detail    []byte    `json:"detail,omitempty" db:"detail"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
