package dto

import "time"

// DashboardResponse carries the counters shown on a user's landing page.
// Fields irrelevant to the user's role are left zero.
type DashboardResponse struct {
	Role                  string    `json:"role"`
	PendingAssignments    int64     `json:"pending_assignments"`
	UnreadReplies         int64     `json:"unread_replies"`
	UnreadPrivateMessages int64     `json:"unread_private_messages"`
	UnreadNotifications   int64     `json:"unread_notifications"`
	GeneratedAt           time.Time `json:"generated_at"`
	CacheHit              bool      `json:"cache_hit"`
}
