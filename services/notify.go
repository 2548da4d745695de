package services

import "encoding/json"

// WsEvent is the envelope of every server-to-client socket frame.
type WsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendWsEvent - отправка события через WebSocket, возвращает число сокетов, принявших его.
func SendWsEvent(m *WSConnManager, userID int64, event string, data any) (int, error) {
	jsonData, err := json.Marshal(WsEvent{Event: event, Data: data})
	if err != nil {
		return 0, err
	}
	return m.Send(userID, jsonData), nil
}
