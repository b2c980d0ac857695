package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

type uploadMsg struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Fallback bool   `json:"fallback"`
}

// WSHandler subscribes the connection to ?category= (admin_story, user_story,
// user_reel) or to every upload when the parameter is absent.
func WSHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("category")
		switch models.Category(roomID) {
		case models.AdminStory, models.UserStory, models.UserReel:
		case "":
			roomID = RoomAll
		default:
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}

		conn, err := hub.Upgrade(w, r)
		if err != nil {
			return
		}

		hub.Register(roomID, conn)
		defer hub.Unregister(roomID, conn)

		// the feed is one-way; reading only detects disconnects
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// Broadcast fans upload events out to their category room and RoomAll until
// events is closed or ctx ends.
func Broadcast(ctx context.Context, hub *Hub, events <-chan ports.UploadEvent, log *logger.ZapLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(uploadMsg{
				Category: string(ev.Category),
				Name:     ev.Name,
				URL:      ev.URL,
				Fallback: ev.Fallback,
			})
			if err != nil {
				log.Log(logger.LogEntry{Level: "error", Message: "ws marshal", Error: err})
				continue
			}
			hub.SendToRoom(string(ev.Category), payload)
			hub.SendToRoom(RoomAll, payload)
		}
	}
}
