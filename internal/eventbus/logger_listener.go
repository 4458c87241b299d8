package eventbus

import (
	"context"

	"github.com/annel0/voxel-world/internal/logging"
)

// StartLoggingListener подписывается на события и пишет их в лог уровня DEBUG.
// Функция неблокирующая; подписка живёт до отмены ctx или закрытия шины.
func StartLoggingListener(ctx context.Context, bus EventBus, f Filter) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, f, func(ctx context.Context, ev *Envelope) {
		logging.Debug("[EventBus] %s %s src=%s prio=%d %+v", ev.ID, ev.EventType, ev.Source, ev.Priority, ev.Payload)
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на события активирована")
	return sub, nil
}
