// Manual test backend for local bot runs. Accepts the bot's audio chunk and
// participant delta posts, logs what arrives, and answers 200.
//
// Usage:
//
//	go run test_backend_server.go
//	BACKEND_URL=http://localhost:8000 ./bot
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type participantDelta struct {
	UserID   uint32 `json:"user_id"`
	UserName string `json:"user_name"`
	Action   string `json:"action"`
}

func audioHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	userID := r.FormValue("user_id")
	userName := r.FormValue("user_name")
	requestID := r.FormValue("request_id")
	sampleRate := r.FormValue("sample_rate")
	channels := r.FormValue("channels")

	var audioSize int64
	file, header, err := r.FormFile("audio_data")
	if err == nil {
		audioSize, _ = io.Copy(io.Discard, file)
		file.Close()
		log.Printf("🎵 Audio chunk: user=%s (%s) size=%d bytes file=%s rate=%s ch=%s request=%s",
			userID, userName, audioSize, header.Filename, sampleRate, channels, requestID)
	} else {
		log.Printf("⚠️  Audio post without audio_data part: user=%s (%s)", userID, userName)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "received",
		"request_id":  requestID,
		"bytes":       audioSize,
		"received_at": time.Now().UTC(),
	})
}

func participantHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var delta participantDelta
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var icon string
	switch delta.Action {
	case "join":
		icon = "👋"
	case "leave":
		icon = "🚪"
	case "name_change":
		icon = "✏️"
	default:
		icon = "❓"
	}
	log.Printf("%s Participant %s: id=%d name=%q", icon, delta.Action, delta.UserID, delta.UserName)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "received"})
}

func main() {
	http.HandleFunc("/audio", audioHandler)
	http.HandleFunc("/participant", participantHandler)

	addr := ":8000"
	fmt.Printf("Test backend listening on %s\n", addr)
	fmt.Println("  POST /audio        (multipart: user_id, user_name, audio_data)")
	fmt.Println("  POST /participant  (json: user_id, user_name, action)")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
