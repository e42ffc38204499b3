// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-video-caption/internal/core/cor"
)

// PublishParam is the context key a command fills with the []byte payload to
// publish on the listener's result topic.
const PublishParam = "__PUBLISH__"

// ErrRedeliver marks a command error for a message that was not processed
// and should be handed to another receiver.
var ErrRedeliver = errors.New("message left for redelivery")

// Redeliver reports whether the command left the message unprocessed.
func Redeliver(chainCtx cor.Context) bool {
	return errors.Is(chainCtx.Err(), ErrRedeliver)
}

// PubSubListener feeds every message of a subscription into a command. The
// message body is placed in cor.CtxIn as a string. When a result topic is
// configured, the payload left under PublishParam is published to it.
//
// Messages are acknowledged once the command returns, whether or not it
// recorded errors. A failed caption request is reported through the result
// topic and is never redelivered. The one exception is a command error
// wrapping ErrRedeliver: the message is nacked and nothing is published.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	resultTopic  *pubsub.Topic
	timeout      time.Duration
	command      cor.Command
}

func NewPubSubListener(
	pubsubClient *pubsub.Client,
	values TopicSubscription,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	if values.Name == "" {
		return nil, fmt.Errorf("subscription name is required")
	}
	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(values.Name),
		command:      command,
	}
	if values.ResultTopic != "" {
		cmd.resultTopic = pubsubClient.Topic(values.ResultTopic)
	}
	if values.TimeoutInSeconds > 0 {
		cmd.timeout = time.Duration(values.TimeoutInSeconds) * time.Second
	}
	return cmd, nil
}

// SetCommand assigns the command once; later calls are ignored.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving in a background goroutine until ctx is cancelled.
// The returned channel is closed when the receiver has stopped.
func (m *PubSubListener) Listen(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	slog.Info("listening", "subscription", m.subscription.String())

	go func() {
		defer close(done)
		defer func() {
			if m.resultTopic != nil {
				m.resultTopic.Stop()
			}
		}()
		tracer := otel.Tracer("caption-request-listener")

		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(attribute.String("message.id", msg.ID))

			if m.timeout > 0 {
				var cancel context.CancelFunc
				spanCtx, cancel = context.WithTimeout(spanCtx, m.timeout)
				defer cancel()
			}

			chainCtx := cor.NewBaseContext()
			defer chainCtx.Close()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if Redeliver(chainCtx) {
				span.SetStatus(codes.Error, "redeliver")
				slog.InfoContext(spanCtx, "returning caption request for redelivery", "message_id", msg.ID, "error", chainCtx.Err())
				msg.Nack()
				return
			}

			if out, ok := chainCtx.Get(PublishParam).([]byte); ok && m.resultTopic != nil {
				if err := m.publish(spanCtx, out, msg.ID); err != nil {
					slog.ErrorContext(spanCtx, "failed to publish caption result", "message_id", msg.ID, "error", err)
				}
			}

			if chainCtx.HasErrors() {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.WarnContext(spanCtx, "caption request failed", "message_id", msg.ID, "command", name, "error", e)
				}
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			msg.Ack()
		})

		if err != nil {
			slog.Error("error receiving data", "subscription", m.subscription.String(), "error", err)
		}
	}()
	return done
}

func (m *PubSubListener) publish(ctx context.Context, data []byte, requestID string) error {
	result := m.resultTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"request_message_id": requestID},
	})
	_, err := result.Get(ctx)
	return err
}
