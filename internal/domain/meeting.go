// Package domain contains entity without logic, just meta-data
package domain

type (
	MeetingID  string
	AccessCode string
)

// Meeting identifies one session instance. Created by an external
// creation flow; read-only for the client.
type Meeting struct {
	ID         MeetingID  `json:"id"`
	AccessCode AccessCode `json:"access_code"`
	Title      string     `json:"title"`
	HostName   string     `json:"host_name"`
}
