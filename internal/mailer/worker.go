package mailer

import (
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// Sender 为 SMTP 发送端，*mail.Client 满足该接口
type Sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

// QueueDeclarer 为声明队列的通道，*amqp.Channel 满足该接口
type QueueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

func DeadLetterQueue(queue string) string {
	return queue + "_dead"
}

// DeclareQueues 声明邮件队列及其死信队列，api 和 mail worker 必须使用相同的参数声明
func DeclareQueues(ch QueueDeclarer, queue string) (amqp.Queue, error) {
	dead := DeadLetterQueue(queue)
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, err
	}

	return ch.QueueDeclare(
		queue, // 队列名称
		true,  // 是否持久化
		false, // 是否自动删除
		false, // 是否独占
		false, // 是否不等待
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dead,
		},
	)
}

type Worker struct {
	builder *Builder
	sender  Sender
}

func NewWorker(builder *Builder, sender Sender) *Worker {
	return &Worker{
		builder: builder,
		sender:  sender,
	}
}

// Handle 处理一条邮件消息
// 无法解析或构建的消息直接进入死信队列；发送失败时重新入队一次，再次失败则进入死信队列
func (w *Worker) Handle(msg amqp.Delivery) {
	slog.Info("收到消息", "size", len(msg.Body), "redelivered", msg.Redelivered)

	mailMessage := domain.MailMessage{}
	if err := json.Unmarshal(msg.Body, &mailMessage); err != nil {
		slog.Error("邮件信息反序列化失败", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	m, err := w.builder.Build(mailMessage)
	if err != nil {
		slog.Error("无法构建邮件", "type", mailMessage.Type, "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.sender.DialAndSend(m); err != nil {
		slog.Error("邮件发送失败", "to", mailMessage.To, "redelivered", msg.Redelivered, "error", err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	_ = msg.Ack(false)
}
