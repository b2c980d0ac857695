package delivery

import (
	"net/http"

	"github.com/Vovarama1992/storyreels/internal/delivery/ws"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r chi.Router, hAuth *AuthHandler, hMedia *MediaHandler, hub *ws.Hub) {

	// password gate
	r.Post("/save_password", hAuth.SavePassword)

	// uploads
	r.Post("/upload_story_video", hMedia.UploadStory)
	r.Post("/userupload_reels", hMedia.UploadReel)

	// latest records
	r.Get("/last_admin_story", hMedia.LastAdminStory)
	r.Get("/last_user_story", hMedia.LastUserStory)
	r.Get("/last_user_reels", hMedia.LastUserReels)
	r.Get("/all_user_reels", hMedia.AllUserReels)

	// staged fallback files
	r.Get("/uploads/*", hMedia.ServeUpload)

	// live upload feed
	r.Get("/ws", ws.WSHandler(hub))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
}
