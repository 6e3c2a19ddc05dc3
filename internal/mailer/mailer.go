package mailer

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/report"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrUnsupportedType = errors.New("不支持的邮件类型")

type Builder struct {
	from      string
	templates *template.Template
}

func NewBuilder(from string) (*Builder, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Builder{
		from:      from,
		templates: tmpl,
	}, nil
}

type groupSummary struct {
	ResourceGroupID string
	PlannedHours    float64
	ScheduledHours  float64
	PeakUtilization float64 // 百分比
}

type capacityReportView struct {
	RequestedBy  string
	StartDate    string
	Days         int
	SelectedJob  string
	UseScheduled bool
	Groups       []groupSummary
}

// Build 根据队列中的邮件信息构建邮件
func (b *Builder) Build(m domain.MailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(b.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	switch m.Type {
	case domain.MailTypeCapacityReport:
		if err := b.buildCapacityReport(msg, m.Data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, m.Type)
	}

	return msg, nil
}

func (b *Builder) buildCapacityReport(msg *mail.Msg, raw json.RawMessage) error {
	var data domain.CapacityReportMailData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	var rep domain.Report
	if err := json.Unmarshal(data.Report, &rep); err != nil {
		return fmt.Errorf("报表反序列化失败: %w", err)
	}

	view := capacityReportView{
		RequestedBy:  data.RequestedBy,
		StartDate:    data.StartDate,
		Days:         rep.Days,
		UseScheduled: data.UseScheduled,
		Groups:       summarizeGroups(&rep),
	}
	if data.SelectedJob != nil {
		view.SelectedJob = *data.SelectedJob
	}

	if err := msg.SetBodyHTMLTemplate(b.templates.Lookup("capacity_report_email.html"), view); err != nil {
		return fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(fmt.Sprintf("产能报表 - %s", data.StartDate))

	// 队列中的报表是压缩过的，附件恢复为缩进格式
	var attachment bytes.Buffer
	if err := json.Indent(&attachment, data.Report, "", "  "); err != nil {
		return fmt.Errorf("无法格式化报表: %w", err)
	}
	msg.AttachReadSeeker(report.ExportFileName, bytes.NewReader(attachment.Bytes()),
		mail.WithFileContentType(mail.ContentType("application/json")))

	return nil
}

func summarizeGroups(rep *domain.Report) []groupSummary {
	groups := make([]groupSummary, 0, len(rep.ResourceGroups))
	for _, g := range rep.ResourceGroups {
		s := groupSummary{ResourceGroupID: g.ResourceGroupID}
		for _, d := range g.DailyData {
			s.PlannedHours += d.PlannedCapacity
			s.ScheduledHours += d.ScheduledCapacity
			s.PeakUtilization = max(s.PeakUtilization, d.Utilization*100)
		}
		groups = append(groups, s)
	}
	return groups
}
