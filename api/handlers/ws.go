package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"petii/services"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FlexInt64 кастомный тип для int64, который может приходить как строка или число
type FlexInt64 int64

func (fi *FlexInt64) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err != nil {
		// Пробуем как строку, если не число
		var numStr string
		if err2 := json.Unmarshal(data, &numStr); err2 != nil {
			return err
		}
		var err3 error
		num, err3 = strconv.ParseInt(numStr, 10, 64)
		if err3 != nil {
			return err3
		}
	}
	*fi = FlexInt64(num)
	return nil
}

// wsFrame is a client-to-server socket frame.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type registerPayload struct {
	UserID FlexInt64 `json:"userId"`
}

type sendMessagePayload struct {
	To   FlexInt64 `json:"to"`
	From FlexInt64 `json:"from"`
	Text string    `json:"text"`
}

// parseRegister accepts either a bare id or {"userId": id}.
func parseRegister(data json.RawMessage) (int64, bool) {
	var id FlexInt64
	if err := json.Unmarshal(data, &id); err == nil && id > 0 {
		return int64(id), true
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err == nil && p.UserID > 0 {
		return int64(p.UserID), true
	}
	return 0, false
}

// ChatSocket - WebSocket чата. A client registers under its user id, then sends
// send-message frames; the recipient gets receive-message, failures come back as message-error.
// With a valid token the socket may only register as the token's user.
func ChatSocket(c *gin.Context) {
	tokenUserID, authenticated := optionalUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	// все записи в сокет идут через менеджер: у него мьютекс на соединение
	var registered int64
	sendSelf := func(event string, data any) {
		b, err := json.Marshal(services.WsEvent{Event: event, Data: data})
		if err != nil {
			return
		}
		_ = wsManager.SendConn(registered, conn, b)
	}
	defer func() {
		if registered > 0 {
			wsManager.Remove(registered, conn)
		}
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read error", "error", err)
			}
			return
		}

		switch frame.Event {
		case "register":
			userID, ok := parseRegister(frame.Data)
			if !ok || (authenticated && userID != tokenUserID) {
				sendSelf("message-error", gin.H{"error": "Invalid registration"})
				continue
			}
			if registered > 0 {
				wsManager.Move(registered, userID, conn)
			} else {
				wsManager.Add(userID, conn)
			}
			registered = userID
			sendSelf("registered", gin.H{"userId": registered})

		case "send-message":
			var p sendMessagePayload
			if err := json.Unmarshal(frame.Data, &p); err != nil {
				sendSelf("message-error", gin.H{"error": "Invalid message"})
				continue
			}
			if registered == 0 {
				sendSelf("message-error", gin.H{"error": "Register before sending messages"})
				continue
			}
			from := int64(p.From)
			if from == 0 {
				from = registered
			}
			if from != registered {
				sendSelf("message-error", gin.H{"error": "Sender does not match registered user"})
				continue
			}
			if _, err := chatService.Send(c.Request.Context(), from, int64(p.To), p.Text); err != nil {
				slog.Warn("failed to send chat message", "from", from, "to", int64(p.To), "error", err)
				sendSelf("message-error", gin.H{"error": "Failed to send message"})
			}

		default:
			sendSelf("message-error", gin.H{"error": "Unknown event"})
		}
	}
}
