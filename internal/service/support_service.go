package service

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/repository"
)

var (
	ErrTicketNotFound   = errors.New("工单不存在")
	ErrTicketPermission = errors.New("无权访问此工单")
)

type SupportService struct {
	ticketRepo *repository.TicketRepository
	userRepo   *repository.UserRepository
	mailer     *email.Service
	cfg        *config.Config
}

func NewSupportService(
	ticketRepo *repository.TicketRepository,
	userRepo *repository.UserRepository,
	mailer *email.Service,
	cfg *config.Config,
) *SupportService {
	return &SupportService{
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		mailer:     mailer,
		cfg:        cfg,
	}
}

// CreateTicket 新建工单，首条消息一并写入
func (s *SupportService) CreateTicket(userID int64, req *dto.CreateTicketRequest) (*dto.TicketDetail, error) {
	ticket := &model.SupportTicket{
		UserID:  userID,
		Subject: req.Subject,
		Status:  model.TicketStatusOpen,
		Messages: []model.TicketMessage{
			{Sender: model.RoleUser, Body: req.Message},
		},
	}

	if err := s.ticketRepo.Create(ticket); err != nil {
		return nil, err
	}

	// 邮件通知管理员，失败只记日志
	if user, err := s.userRepo.GetByID(userID); err == nil {
		if err := s.mailer.SendNewTicketNotification(req.Subject, req.Message, user.Email, user.Name, ticket.ID); err != nil {
			log.Printf("Failed to notify admin of ticket %d: %v", ticket.ID, err)
		}
	}

	return buildTicketDetail(ticket), nil
}

// ListForUser 用户自己的工单
func (s *SupportService) ListForUser(userID int64) ([]dto.TicketListItem, error) {
	tickets, err := s.ticketRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return buildTicketList(tickets), nil
}

// ListAll 管理员视图
func (s *SupportService) ListAll(status string) ([]dto.TicketListItem, error) {
	tickets, err := s.ticketRepo.ListAll(status)
	if err != nil {
		return nil, err
	}
	return buildTicketList(tickets), nil
}

// Get 工单详情，仅限所有者或管理员
func (s *SupportService) Get(userID int64, role string, ticketID int64) (*dto.TicketDetail, error) {
	ticket, err := s.getOwned(userID, role, ticketID)
	if err != nil {
		return nil, err
	}
	return buildTicketDetail(ticket), nil
}

// AddMessage 追加消息并推进状态机
// 管理员回复 open 工单 → in-progress；closed 工单收到消息 → reopened
func (s *SupportService) AddMessage(userID int64, role string, ticketID int64, body string) (*dto.TicketDetail, error) {
	ticket, err := s.getOwned(userID, role, ticketID)
	if err != nil {
		return nil, err
	}

	sender := model.RoleUser
	if role == model.RoleAdmin {
		sender = model.RoleAdmin
	}

	newStatus := ticket.Status
	if role == model.RoleAdmin && ticket.Status == model.TicketStatusOpen {
		newStatus = model.TicketStatusInProgress
	}
	if ticket.Status == model.TicketStatusClosed {
		newStatus = model.TicketStatusReopened
	}

	msg := &model.TicketMessage{Sender: sender, Body: body}
	if err := s.ticketRepo.AppendMessage(ticket.ID, msg, newStatus); err != nil {
		return nil, err
	}

	// 通知对方
	if role == model.RoleAdmin {
		if user, err := s.userRepo.GetByID(ticket.UserID); err == nil {
			if err := s.mailer.SendTicketReplyNotification(user.Email, user.Name, ticket.Subject, body, ticket.ID); err != nil {
				log.Printf("Failed to notify user of ticket %d reply: %v", ticket.ID, err)
			}
		}
	} else {
		if user, err := s.userRepo.GetByID(userID); err == nil {
			if err := s.mailer.SendNewTicketNotification(ticket.Subject, body, user.Email, user.Name, ticket.ID); err != nil {
				log.Printf("Failed to notify admin of ticket %d update: %v", ticket.ID, err)
			}
		}
	}

	return s.Get(userID, role, ticketID)
}

// Close 关闭工单
func (s *SupportService) Close(userID int64, role string, ticketID int64) (*dto.TicketDetail, error) {
	ticket, err := s.getOwned(userID, role, ticketID)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.UpdateStatus(ticket.ID, model.TicketStatusClosed); err != nil {
		return nil, err
	}

	return s.Get(userID, role, ticketID)
}

func (s *SupportService) getOwned(userID int64, role string, ticketID int64) (*model.SupportTicket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if ticket.UserID != userID && role != model.RoleAdmin {
		return nil, ErrTicketPermission
	}

	return ticket, nil
}

func buildTicketDetail(ticket *model.SupportTicket) *dto.TicketDetail {
	detail := &dto.TicketDetail{
		ID:        ticket.ID,
		UserID:    ticket.UserID,
		Subject:   ticket.Subject,
		Status:    ticket.Status,
		CreatedAt: ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt: ticket.UpdatedAt.Format(time.RFC3339),
	}

	for _, m := range ticket.Messages {
		detail.Messages = append(detail.Messages, dto.TicketMessageInfo{
			Sender:    m.Sender,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	return detail
}

func buildTicketList(tickets []model.SupportTicket) []dto.TicketListItem {
	items := make([]dto.TicketListItem, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.TicketListItem{
			ID:        t.ID,
			UserID:    t.UserID,
			Subject:   t.Subject,
			Status:    t.Status,
			UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
		})
	}
	return items
}
