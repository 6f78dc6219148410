package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// SetupSSEHeaders prepares the response for Server-Sent Events.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// SendSSEChunk writes one data-only SSE frame and flushes it.
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal sse payload: %v", err)
		return
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		log.Printf("failed to write sse payload: %v", err)
		return
	}
	flusher.Flush()
}

// SendSSEEvent writes one typed SSE frame and flushes it.
func SendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal sse event data: %v", err)
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	flusher.Flush()
}
