package repository

import (
	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ticket *model.SupportTicket) error {
	return r.db.Create(ticket).Error
}

func (r *TicketRepository) GetByID(id int64) (*model.SupportTicket, error) {
	var ticket model.SupportTicket
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) ListByUser(userID int64) ([]model.SupportTicket, error) {
	var tickets []model.SupportTicket
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListAll 管理员视图，可按状态过滤
func (r *TicketRepository) ListAll(status string) ([]model.SupportTicket, error) {
	var tickets []model.SupportTicket
	query := r.db.Preload("User").Order("updated_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// AppendMessage 追加消息并更新工单状态
func (r *TicketRepository) AppendMessage(ticketID int64, msg *model.TicketMessage, newStatus string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		msg.TicketID = ticketID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.SupportTicket{}).Where("id = ?", ticketID).
			Update("status", newStatus).Error
	})
}

func (r *TicketRepository) UpdateStatus(ticketID int64, status string) error {
	return r.db.Model(&model.SupportTicket{}).Where("id = ?", ticketID).
		Update("status", status).Error
}
