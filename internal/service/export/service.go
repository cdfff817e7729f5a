package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/notification"
)

const sheetName = "Notifications"

// Header is the first row of the export, one entry per column.
var Header = []string{
	"ID",
	"Title",
	"Location",
	"Occurrence Date",
	"Event Shift",
	"Reporting Department",
	"Notified Department",
	"Status",
	"NNC Class",
	"Damage Level",
	"Priority",
	"Deadline",
	"Deadline Status",
	"Executors",
	"Approver",
	"Created At",
}

var columnWidths = []float64{8, 40, 20, 16, 12, 24, 24, 28, 24, 14, 12, 14, 16, 36, 24, 20}

type Service interface {
	// Notifications renders every notification matching filter as an XLSX
	// workbook, ordered the same way the listing orders them.
	Notifications(ctx context.Context, actor string, filter domain.NotificationFilter) ([]byte, error)
	SetClock(now func() time.Time)
}

type service struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	log              *logger.Logger
	now              func() time.Time
}

func NewService(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository, log *logger.Logger) Service {
	return &service{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		log:              log,
		now:              time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) Notifications(ctx context.Context, actor string, filter domain.NotificationFilter) ([]byte, error) {
	if filter.SortBy == "" {
		filter.SortBy = domain.SortByID
	}
	if !filter.SortBy.IsValid() {
		return nil, domain.ValidationError("cannot sort by %q", filter.SortBy)
	}

	all, err := s.notificationRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = u.Username
		}
		names[u.ID] = name
	}

	selected := notification.Select(all, filter)
	today := domain.DateOf(s.now())
	rows := make([][]any, 0, len(selected))
	for i := range selected {
		rows = append(rows, row(&selected[i], names, today))
	}

	data, err := writeWorkbook(rows)
	if err != nil {
		return nil, domain.StorageError(err, "failed to build export workbook")
	}

	s.log.Audit(actor, "export_notifications", "notifications", true, map[string]interface{}{"rows": len(rows)})
	return data, nil
}

func row(n *domain.Notification, names map[uuid.UUID]string, today domain.Date) []any {
	r := []any{
		n.ID,
		n.Title,
		n.Location,
		n.OccurrenceDate.String(),
		string(n.EventShift),
		n.ReportingDepartment,
		n.NotifiedDepartment,
		string(n.Status),
		"", "", "", "", "",
		"",
		"",
		n.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}

	if c := n.Classification; c != nil {
		r[8] = string(c.NNCClass)
		if c.DamageLevel != nil {
			r[9] = string(*c.DamageLevel)
		}
		r[10] = string(c.Priority)
		if c.DeadlineDate != nil {
			r[11] = c.DeadlineDate.String()
		}
		r[12] = string(n.DeadlineStatus(today))
	}

	executors := make([]string, 0, len(n.Executors))
	for _, id := range n.Executors {
		executors = append(executors, lookup(names, id))
	}
	r[13] = strings.Join(executors, ", ")
	if n.Approver != nil {
		r[14] = lookup(names, *n.Approver)
	}
	return r
}

func lookup(names map[uuid.UUID]string, id uuid.UUID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id.String()
}

func writeWorkbook(rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
