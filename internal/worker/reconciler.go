package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/pubsub"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/service"
)

// Reconciler 对账器
// worker 崩溃或消息丢失会留下永远停在 processing 的记录，
// 超过时限的一律按失败处理并退还额度
type Reconciler struct {
	imageRepo *repository.ImageRepository
	userRepo  *repository.UserRepository
	subSvc    *service.SubscriptionService
	publisher *pubsub.Publisher
	mailer    *email.Service
	timeout   time.Duration
}

func NewReconciler(
	imageRepo *repository.ImageRepository,
	userRepo *repository.UserRepository,
	subSvc *service.SubscriptionService,
	publisher *pubsub.Publisher,
	mailer *email.Service,
	timeout time.Duration,
) *Reconciler {
	return &Reconciler{
		imageRepo: imageRepo,
		userRepo:  userRepo,
		subSvc:    subSvc,
		publisher: publisher,
		mailer:    mailer,
		timeout:   timeout,
	}
}

// Run 扫描一轮超时任务，返回处理数量
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.timeout)
	stuck, err := r.imageRepo.ListStuckProcessing(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck images: %w", err)
	}

	reconciled := 0
	for _, image := range stuck {
		updated, err := r.imageRepo.MarkFailed(image.ID, "生成超时")
		if err != nil {
			log.Printf("Reconciler: failed to mark image %d failed: %v", image.ID, err)
			continue
		}
		if !updated {
			continue
		}

		if err := r.subSvc.Refund(image.UserID); err != nil {
			log.Printf("Reconciler: failed to refund quota for user %d: %v", image.UserID, err)
		}

		if err := r.publisher.PublishEvent(ctx, &pubsub.ImageEvent{
			UserID:  image.UserID,
			ImageID: image.ID,
			Name:    image.Name,
			Status:  pubsub.EventFailed,
			Error:   "生成超时",
		}); err != nil {
			log.Printf("Reconciler: failed to publish event for image %d: %v", image.ID, err)
		}

		if user, err := r.userRepo.GetByID(image.UserID); err == nil {
			if err := r.mailer.SendGenerationFailed(user.Email, user.Name, image.Name); err != nil {
				log.Printf("Reconciler: failed to send email for image %d: %v", image.ID, err)
			}
		}

		reconciled++
	}

	if reconciled > 0 {
		log.Printf("Reconciler: failed %d stuck images past %s", reconciled, r.timeout)
	}
	return reconciled, nil
}
