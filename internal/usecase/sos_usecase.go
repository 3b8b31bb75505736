package usecase

import (
	"context"
	"errors"

	"health-companion-api/config"
	"health-companion-api/internal/delivery/dto"
	"health-companion-api/internal/delivery/http/middleware"
	"health-companion-api/internal/domain/entity"
	"health-companion-api/internal/integrations/sms"
	"health-companion-api/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrSOSDispatchFailed = errors.New("failed to dispatch emergency message")

type SOSUsecase interface {
	Trigger(ctx context.Context) (*dto.SOSResponse, error)
}

type sosUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	smsClient    *sms.Client
	auditService service.AuditService
	cfg          config.SOSConfig
}

func NewSOSUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	smsClient *sms.Client,
	auditService service.AuditService,
	cfg config.SOSConfig,
) SOSUsecase {
	return &sosUsecase{
		db:           db,
		log:          log,
		smsClient:    smsClient,
		auditService: auditService,
		cfg:          cfg,
	}
}

// Trigger sends the fixed emergency SMS to the configured recipient.
// Dispatch is never retried here; the caller decides whether to try again.
func (u *sosUsecase) Trigger(ctx context.Context) (*dto.SOSResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	messageID, err := u.smsClient.SendMessage(ctx, u.cfg.RecipientNumber, u.cfg.MessageBody)
	if err != nil {
		u.log.Errorf("Failed to send SOS message for user %s: %+v", userID, err)
		return nil, ErrSOSDispatchFailed
	}

	u.auditService.LogAction(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionSOSTrigger, entity.JSON{
		"message_id": messageID,
	})

	u.log.Infof("SOS message sent: user=%s, message_id=%s", userID, messageID)
	return &dto.SOSResponse{
		Success:   true,
		MessageID: messageID,
	}, nil
}
