package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Handler turns watch-daemon events into dashboard broadcasts. It
// implements the daemon's Notifier interface.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates an event handler feeding a dashboard server.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// OnRecordUpserted broadcasts a record change and refreshed stats.
func (h *Handler) OnRecordUpserted(table, id string) {
	h.broadcastRecord(table, id, "upserted")
	h.broadcastStats()
}

// OnRecordDeleted broadcasts a record removal and refreshed stats.
func (h *Handler) OnRecordDeleted(table, id string) {
	h.broadcastRecord(table, id, "deleted")
	h.broadcastStats()
}

// OnSyncComplete broadcasts a full-sync summary and refreshed stats.
func (h *Handler) OnSyncComplete(records int, duration time.Duration) {
	h.logger.Printf("Sync complete: %d files in %v", records, duration)

	data, err := json.Marshal(SyncCompleteData{Records: records, Duration: duration})
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}
	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      data,
	})
	h.broadcastStats()
}

func (h *Handler) broadcastRecord(table, id, action string) {
	h.logger.Printf("Record %s: %s/%s", action, table, id)

	data, err := json.Marshal(RecordUpdateData{Table: table, ID: id, Action: action})
	if err != nil {
		h.logger.Printf("Failed to marshal record data: %v", err)
		return
	}
	h.server.Broadcast(Message{
		Type:      MessageTypeRecordUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// broadcastStats recomputes statistics through the server's StatsFunc and
// broadcasts them. Skipped when no StatsFunc is configured.
func (h *Handler) broadcastStats() {
	if h.server.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := h.server.stats(ctx)
	if err != nil {
		h.logger.Printf("Failed to compute stats: %v", err)
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}
	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      data,
	})
}
