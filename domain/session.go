package domain

import "time"

// Session is the single in-memory login context. It is never persisted and
// dies on logout, inactivity timeout, or process restart.
type Session struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	LoginTime    time.Time `json:"login_time"`
	LastActivity time.Time `json:"last_activity"`
}
