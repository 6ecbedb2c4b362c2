package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"steward/models"
	"steward/store"
)

const cryptoAlertPath = "crypto_alerts.json"

// ErrNoSuchAlert means the alert id does not exist in the guild.
var ErrNoSuchAlert = errors.New("no such price alert")

// CryptoAlertService owns the durable one-shot price watches. Quote checks
// and announcements stay with the caller.
type CryptoAlertService interface {
	AddAlert(ctx context.Context, guildID string, a *models.CryptoAlert) (string, error)
	Alerts(ctx context.Context, guildID string) ([]*models.CryptoAlert, error)
	AllAlerts(ctx context.Context) (map[string][]*models.CryptoAlert, error)
	RemoveAlert(ctx context.Context, guildID, id string) error
}

type cryptoAlertService struct {
	store *store.Store
}

// NewCryptoAlertService creates a new crypto alert service
func NewCryptoAlertService(st *store.Store) CryptoAlertService {
	return &cryptoAlertService{store: st}
}

func (s *cryptoAlertService) AddAlert(ctx context.Context, guildID string, a *models.CryptoAlert) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()[:8]
	}
	doc := &models.CryptoAlertDoc{}
	err := s.store.Mutate(cryptoAlertPath, doc, func() error {
		if doc.Alerts == nil {
			doc.Alerts = make(map[string][]*models.CryptoAlert)
		}
		doc.Alerts[guildID] = append(doc.Alerts[guildID], a)
		return nil
	})
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (s *cryptoAlertService) Alerts(ctx context.Context, guildID string) ([]*models.CryptoAlert, error) {
	doc := &models.CryptoAlertDoc{}
	if err := s.store.Load(cryptoAlertPath, doc); err != nil {
		return nil, err
	}
	return doc.Alerts[guildID], nil
}

func (s *cryptoAlertService) AllAlerts(ctx context.Context) (map[string][]*models.CryptoAlert, error) {
	doc := &models.CryptoAlertDoc{}
	if err := s.store.Load(cryptoAlertPath, doc); err != nil {
		return nil, err
	}
	return doc.Alerts, nil
}

func (s *cryptoAlertService) RemoveAlert(ctx context.Context, guildID, id string) error {
	doc := &models.CryptoAlertDoc{}
	return s.store.Mutate(cryptoAlertPath, doc, func() error {
		list := doc.Alerts[guildID]
		for i, a := range list {
			if a.ID == id {
				doc.Alerts[guildID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
		return ErrNoSuchAlert
	})
}
