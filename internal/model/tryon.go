package model

import "time"

const (
	TryOnStatusPending = "pending"
	TryOnStatusDone    = "done"
	TryOnStatusFailed  = "failed"
)

type TryOn struct {
	ID            int64     `db:"id"`
	PublicID      string    `db:"public_id"`
	Kind          string    `db:"kind"`
	Status        string    `db:"status"`
	Source        string    `db:"source"`
	UserImage     string    `db:"user_image"`
	ItemImages    string    `db:"item_images"`
	CombinedImage string    `db:"combined_image"`
	ResultImage   string    `db:"result_image"`
	Prompt        string    `db:"prompt"`
	Error         string    `db:"error"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
