package domain

// ChatStats - сводка для панели поддержки
type ChatStats struct {
	Conversations       int64 `json:"conversations"`
	ActiveConversations int64 `json:"activeConversations"`
	Messages            int64 `json:"messages"`
	UnreadForSupport    int64 `json:"unreadForSupport"`
	SupportOnline       bool  `json:"supportOnline"`
	Connections         int   `json:"connections"`
}
