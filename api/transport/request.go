package transport

// Auth requests.

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TTL      int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// User requests.

type UserUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type RoleChangeRequest struct {
	Role string `json:"role"`
}

type ActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// Ticket requests.

type MilestoneRequest struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

type TicketCreateRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Milestones  []MilestoneRequest `json:"milestones"`
}

type TicketUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type TicketTransitionRequest struct {
	Status string `json:"status"`
}

type TicketAssignRequest struct {
	AgentID int64 `json:"agent_id"`
}

type ReplyRequest struct {
	Body string `json:"body"`
}

// Dataset requests.

type DatasetRowRequest struct {
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Category  string `json:"category"`
	Semantics string `json:"semantics"`
}

type DatasetCreateRequest struct {
	Name        string              `json:"name"`
	TargetModel string              `json:"target_model"`
	Metadata    map[string]string   `json:"metadata"`
	Rows        []DatasetRowRequest `json:"rows"`
}

type DatasetUpdateRequest struct {
	Name        *string           `json:"name"`
	TargetModel *string           `json:"target_model"`
	Metadata    map[string]string `json:"metadata"`
}

type DatasetTransitionRequest struct {
	Status string `json:"status"`
}
