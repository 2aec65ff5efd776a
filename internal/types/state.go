package types

import "time"

// RecentProject is a locally remembered project, used for quick reopening.
type RecentProject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LastOpened time.Time `json:"last_opened"`
}
