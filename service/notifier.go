package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"envelope/config"
	"envelope/logger"

	json "github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
)

// 事件类型
const (
	EventMessageCreated     = "message.created"
	EventMessageDeleted     = "message.deleted"
	EventInvitationSent     = "invitation.sent"
	EventInvitationAccepted = "invitation.accepted"
	EventTransactionPosted  = "transaction.posted"
	EventBudgetUpdated      = "budget.updated"
	EventMemberRemoved      = "member.removed"
)

// Event 推送给实时通道的通知
type Event struct {
	Type       string    `json:"type"`
	PlanID     uint      `json:"plan_id"`
	ActorID    uint      `json:"actor_id,omitempty"`
	ResourceID uint      `json:"resource_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 通知出口，失败不影响主流程
type Notifier interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopNotifier 未启用通知时使用
type NoopNotifier struct{}

func (NoopNotifier) Publish(context.Context, Event) error { return nil }
func (NoopNotifier) Close() error                         { return nil }

// AMQPNotifier 通过 RabbitMQ 发布事件，路由键为 plan.<id>
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewNotifier 根据配置创建通知出口，连接失败时降级为 NoopNotifier
func NewNotifier(cfg config.AMQPConfig) Notifier {
	if !cfg.Enabled {
		return NoopNotifier{}
	}
	n, err := NewAMQPNotifier(cfg.URL, cfg.Exchange, cfg.Queue)
	if err != nil {
		logger.L().InternalError("连接消息队列失败，事件通知已禁用", err)
		return NoopNotifier{}
	}
	return n
}

// NewAMQPNotifier 建立连接并声明交换机与队列
func NewAMQPNotifier(url, exchange, queue string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	n := &AMQPNotifier{conn: conn, channel: channel, exchange: exchange}
	if err := n.setup(queue); err != nil {
		n.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return n, nil
}

func (n *AMQPNotifier) setup(queue string) error {
	if err := n.channel.ExchangeDeclare(
		n.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if queue == "" {
		return nil
	}

	if _, err := n.channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := n.channel.QueueBind(queue, "plan.#", n.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish 发布事件
func (n *AMQPNotifier) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,
		RoutingKey(event),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close 关闭连接
func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// RoutingKey plan.<id>.<type>
func RoutingKey(event Event) string {
	return fmt.Sprintf("plan.%d.%s", event.PlanID, event.Type)
}

// publish 尽力发送，失败只记日志
func publish(ctx context.Context, n Notifier, event Event) {
	if n == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := n.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.L().InternalError("发布事件失败", err, "type", event.Type, "plan_id", event.PlanID)
	}
}
