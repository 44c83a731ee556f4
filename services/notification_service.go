package services

import (
	"context"
	"strconv"

	"firebase.google.com/go/messaging"
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/db"
	"github.com/techagentng/sakany/models"
)

const notificationPreviewLength = 100

// PushSender sends one FCM message. *messaging.Client satisfies it.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService pushes new-message alerts to users who are offline.
type NotificationService struct {
	client   PushSender
	authRepo db.AuthRepository
}

func NewNotificationService(client PushSender, authRepo db.AuthRepository) *NotificationService {
	return &NotificationService{client: client, authRepo: authRepo}
}

// NotifyOffline alerts the receiver of message. Users without a device token
// are skipped.
func (s *NotificationService) NotifyOffline(ctx context.Context, message *models.Message) error {
	receiver, err := s.authRepo.FindUserByID(message.ReceiverID)
	if err != nil {
		return err
	}
	if receiver.DeviceToken == "" {
		return nil
	}

	title := "New message"
	if sender, err := s.authRepo.FindUserByID(message.SenderID); err == nil && sender.Name != "" {
		title = "New message from " + sender.Name
	}

	_, err = s.client.Send(ctx, &messaging.Message{
		Token: receiver.DeviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  preview(message.Content),
		},
		Data: map[string]string{
			"type":      "message",
			"messageId": strconv.FormatUint(uint64(message.ID), 10),
			"senderId":  strconv.FormatUint(uint64(message.SenderID), 10),
		},
	})
	if err != nil {
		return errors.Wrap(err, "sending push notification")
	}
	return nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= notificationPreviewLength {
		return content
	}
	return string(runes[:notificationPreviewLength]) + "…"
}
