package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushService sends APNs notifications to group members when their group
// completes full attendance for the day. Delivery is best effort: a failed
// push never fails the check-in that triggered it.
type PushService struct {
	client *apns2.Client
	topic  string
}

// NewPushService creates an APNs client from a .p8 signing key.
func NewPushService(keyPath, keyID, teamID, topic string, production bool) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushService{client: client, topic: topic}, nil
}

// NotifyGroupStreak pushes a full-attendance notification to every device
// token of the group's members.
func (s *PushService) NotifyGroupStreak(deviceTokens []string, groupName string, groupStreak int) {
	body := fmt.Sprintf("Everyone in %s checked in today. %d day streak!", groupName, groupStreak)
	p := payload.NewPayload().
		AlertTitle(groupName).
		AlertBody(body).
		Sound("default")

	for _, deviceToken := range deviceTokens {
		notification := &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       s.topic,
			Payload:     p,
		}
		res, err := s.client.Push(notification)
		if err != nil {
			log.Error().Err(err).Msg("Failed to send push notification")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("Push notification rejected")
		}
	}
}
