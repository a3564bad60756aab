package service

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"envelope/models"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"
)

// MaxMessageLength 单条消息的最大字符数
const MaxMessageLength = 2000

// 导出格式
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

// MessageService 计划内聊天
type MessageService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

// NewMessageService 创建消息服务
func NewMessageService(db *gorm.DB, notifier Notifier) *MessageService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &MessageService{
		db:       db,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ExportFile 导出结果
type ExportFile struct {
	Filename    string
	ContentType string
	Body        *bytes.Buffer
}

// List 按时间正序返回 beforeID 之前最近的 limit 条消息
func (s *MessageService) List(ctx context.Context, planID uint, limit int, beforeID uint) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Where("plan_id = ?", planID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var list []models.Message
	if err := query.Preload("User").Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// Create 发送消息，回复的消息必须属于同一计划
func (s *MessageService) Create(ctx context.Context, planID, userID uint, content string, replyToID *uint) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("消息内容不能为空")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, invalidInput("消息内容不能超过 %d 个字符", MaxMessageLength)
	}

	db := s.db.WithContext(ctx)
	if replyToID != nil {
		var count int64
		if err := db.Model(&models.Message{}).
			Where("id = ? AND plan_id = ?", *replyToID, planID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrMessageNotFound.WithDetails("回复的消息不存在")
		}
	}

	uid := userID
	message := &models.Message{
		PlanID:    planID,
		UserID:    &uid,
		Content:   content,
		ReplyToID: replyToID,
	}
	if err := db.Create(message).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(message, message.ID).Error; err != nil {
		return nil, err
	}

	publish(ctx, s.notifier, Event{
		Type:       EventMessageCreated,
		PlanID:     planID,
		ActorID:    userID,
		ResourceID: message.ID,
		Payload:    message,
	})
	return message, nil
}

// Delete 作者或所有者删除消息：立即匿名化，保留期满后由清理任务物理删除
func (s *MessageService) Delete(ctx context.Context, planID, userID uint, role string, messageID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.Message
		if err := tx.Where("id = ? AND plan_id = ?", messageID, planID).Take(&message).Error; err != nil {
			return notFoundAs(err, ErrMessageNotFound)
		}
		if message.IsAnonymized {
			return nil
		}
		isAuthor := message.UserID != nil && *message.UserID == userID
		if !isAuthor && role != models.RoleOwner {
			return ErrForbidden.WithRole(role).WithDetails("只能删除自己的消息")
		}

		var plan models.Plan
		if err := tx.Select("message_retention_days").Take(&plan, planID).Error; err != nil {
			return notFoundAs(err, ErrPlanNotFound)
		}

		message.Anonymize(s.now(), plan.MessageRetentionDays)
		return tx.Model(&models.Message{}).Where("id = ?", message.ID).Updates(map[string]interface{}{
			"user_id":          nil,
			"content":          message.Content,
			"is_anonymized":    true,
			"scheduled_delete": message.ScheduledDelete,
		}).Error
	})
	if err != nil {
		return err
	}

	publish(ctx, s.notifier, Event{
		Type:       EventMessageDeleted,
		PlanID:     planID,
		ActorID:    userID,
		ResourceID: messageID,
	})
	return nil
}

// Cleanup 物理删除已到期的匿名消息，返回删除条数
func (s *MessageService) Cleanup(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Message{}).
			Where("is_anonymized = ? AND scheduled_delete IS NOT NULL AND scheduled_delete <= ?", true, s.now()).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		// 先解除回复引用
		if err := tx.Model(&models.Message{}).
			Where("reply_to_id IN ?", ids).
			Update("reply_to_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// Export 导出计划内全部未删除的消息
func (s *MessageService) Export(ctx context.Context, planID uint, format string) (*ExportFile, error) {
	var list []models.Message
	if err := s.db.WithContext(ctx).
		Where("plan_id = ? AND is_anonymized = ?", planID, false).
		Preload("User").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}

	stamp := s.now().Format("20060102_150405")
	switch format {
	case "", ExportJSON:
		body, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    "messages_" + stamp + ".json",
			ContentType: "application/json",
			Body:        bytes.NewBuffer(body),
		}, nil
	case ExportCSV, ExportXLSX:
		table := messageTable(list)
		if format == ExportCSV {
			buf, err := BuildCSV(table)
			if err != nil {
				return nil, err
			}
			return &ExportFile{
				Filename:    "messages_" + stamp + ".csv",
				ContentType: "text/csv; charset=utf-8",
				Body:        buf,
			}, nil
		}
		buf, err := BuildWorkbook(table)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    "messages_" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        buf,
		}, nil
	}
	return nil, invalidInput("不支持的导出格式: %s", format)
}

func messageTable(list []models.Message) Table {
	rows := make([][]interface{}, 0, len(list))
	for _, m := range list {
		author := ""
		if m.User != nil {
			author = m.User.Name
			if author == "" {
				author = m.User.Email
			}
		}
		reply := ""
		if m.ReplyToID != nil {
			reply = strconv.FormatUint(uint64(*m.ReplyToID), 10)
		}
		rows = append(rows, []interface{}{
			m.ID,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			author,
			m.Content,
			reply,
		})
	}
	return Table{
		Sheet:   "消息记录",
		Headers: []string{"ID", "时间", "发送者", "内容", "回复"},
		Widths:  []float64{8, 20, 20, 60, 8},
		Rows:    rows,
	}
}
