package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prepsutra/dpp-backend/internal/clients/redis"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"github.com/prepsutra/dpp-backend/internal/realtime"
)

// Notifier dispatches user-facing DPP events. Every method is fire-and-forget:
// failures are logged and never surface into the caller's critical path.
type Notifier interface {
	DPPGenerated(userID uuid.UUID, set *types.DPPSet, questionCount int)
	DPPSetCompleted(userID uuid.UUID, set *types.DPPSet)
}

// =========================
// Redis bus notifier
// =========================

type busNotifier struct {
	bus redis.NotificationBus
	log *logger.Logger
}

func NewBusNotifier(bus redis.NotificationBus, log *logger.Logger) Notifier {
	return &busNotifier{bus: bus, log: log.With("service", "BusNotifier")}
}

func (n *busNotifier) publish(msg realtime.Message) {
	if n == nil || n.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, msg); err != nil {
		n.log.Warn("notification publish failed", "event", msg.Event, "error", err)
	}
}

func (n *busNotifier) DPPGenerated(userID uuid.UUID, set *types.DPPSet, questionCount int) {
	if n == nil || userID == uuid.Nil {
		return
	}
	n.publish(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventDPPGenerated,
		Data: map[string]any{
			"title":     "Your daily practice problems are ready",
			"message":   "Today's DPP has been generated. Jump in!",
			"dpp_id":    safeSetID(set),
			"questions": questionCount,
		},
	})
}

func (n *busNotifier) DPPSetCompleted(userID uuid.UUID, set *types.DPPSet) {
	if n == nil || userID == uuid.Nil {
		return
	}
	n.publish(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventDPPSetCompleted,
		Data: map[string]any{
			"title":   "Daily practice complete",
			"message": "You finished today's DPP. See your stats for the breakdown.",
			"dpp_id":  safeSetID(set),
		},
	})
}

// =========================
// In-process hub notifier (no Redis configured)
// =========================

type hubNotifier struct {
	hub *realtime.Hub
}

func NewHubNotifier(hub *realtime.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) DPPGenerated(userID uuid.UUID, set *types.DPPSet, questionCount int) {
	if n == nil || n.hub == nil || userID == uuid.Nil {
		return
	}
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventDPPGenerated,
		Data: map[string]any{
			"dpp_id":    safeSetID(set),
			"questions": questionCount,
		},
	})
}

func (n *hubNotifier) DPPSetCompleted(userID uuid.UUID, set *types.DPPSet) {
	if n == nil || n.hub == nil || userID == uuid.Nil {
		return
	}
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventDPPSetCompleted,
		Data:    map[string]any{"dpp_id": safeSetID(set)},
	})
}

// NopNotifier satisfies Notifier with no delivery at all. Used in tests.
type NopNotifier struct{}

func (NopNotifier) DPPGenerated(uuid.UUID, *types.DPPSet, int) {}
func (NopNotifier) DPPSetCompleted(uuid.UUID, *types.DPPSet)   {}

func safeSetID(set *types.DPPSet) string {
	if set == nil {
		return ""
	}
	return set.ID.String()
}
