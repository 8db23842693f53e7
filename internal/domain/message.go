package domain

// Message es un mensaje de soporte con, a lo sumo, una respuesta del administrador.
type Message struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	Username    string  `json:"username"`
	UserMessage string  `json:"userMessage"`
	AdminReply  *string `json:"adminReply"`
}

func (m Message) Replied() bool {
	return m.AdminReply != nil
}
