package console

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/usecase/export"
)

const (
	maxSummaryLines = 12
	nameWidth       = 20
	emailWidth      = 26
	phoneWidth      = 16
	formWidth       = 20
)

// SubmissionSource is the admin read side the console browses.
type SubmissionSource interface {
	List(ctx context.Context, principal access.Principal, input export.ListInput) ([]export.ListItem, error)
	Get(ctx context.Context, principal access.Principal, id uint64) (export.Detail, error)
}

type Options struct {
	Principal       access.Principal
	FormTitle       string
	Limit           string
	RefreshInterval time.Duration
}

type submissionsModel struct {
	ctx             context.Context
	source          SubmissionSource
	principal       access.Principal
	formTitle       string
	limit           string
	refreshInterval time.Duration

	items         []export.ListItem
	selectedIndex int
	detail        export.Detail
	hasDetail     bool
	status        string
}

type listLoadedMsg struct {
	items []export.ListItem
	err   error
}

type detailLoadedMsg struct {
	id     uint64
	detail export.Detail
	err    error
}

type tickMsg struct{}

func NewSubmissionsModel(ctx context.Context, source SubmissionSource, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &submissionsModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "usecase.console")),
		source:          source,
		principal:       options.Principal,
		formTitle:       strings.TrimSpace(options.FormTitle),
		limit:           strings.TrimSpace(options.Limit),
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *submissionsModel) Init() tea.Cmd {
	return tea.Batch(m.loadListCmd(), m.tickCmd())
}

func (m *submissionsModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadListCmd(), m.tickCmd())
	case listLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + describeError(msg.err)
			return m, nil
		}
		m.items = msg.items
		if len(m.items) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "no submissions"
			return m, nil
		}
		m.selectedIndex = min(max(m.selectedIndex, 0), len(m.items)-1)
		m.status = fmt.Sprintf("refreshed, %d submissions", len(m.items))
		return m, m.loadDetailCmd()
	case detailLoadedMsg:
		selected, ok := m.selected()
		if !ok || selected.ID != msg.id {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + describeError(msg.err)
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g", "r":
			m.status = "refreshing"
			return m, m.loadListCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.hasDetail = false
				return m, m.loadDetailCmd()
			}
		case "down", "j":
			if m.selectedIndex < len(m.items)-1 {
				m.selectedIndex++
				m.hasDetail = false
				return m, m.loadDetailCmd()
			}
		}
	}
	return m, nil
}

func (m *submissionsModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Form Submissions"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"form=%s limit=%s refresh=%s",
		firstNonEmpty(m.formTitle, "all"),
		firstNonEmpty(m.limit, "default"),
		m.refreshInterval,
	)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Submissions"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + row("Name", "Email", "Phone", "Form", "Date")))
	b.WriteString("\n")
	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("- none"))
		b.WriteString("\n")
	}
	for index, item := range m.items {
		line := row(
			firstNonEmpty(item.Name, "-"),
			firstNonEmpty(item.Email, "-"),
			firstNonEmpty(item.Phone, "-"),
			item.Form,
			item.Date,
		)
		if index == m.selectedIndex {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Detail"))
	b.WriteString("\n")
	if !m.hasDetail {
		b.WriteString(dimStyle.Render("- no detail"))
		b.WriteString("\n")
	} else {
		b.WriteString(detailText(m.detail))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Status"))
	b.WriteString("\n")
	b.WriteString("- " + firstNonEmpty(m.status, "ready"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  q quit"))
	return b.String()
}

func (m *submissionsModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *submissionsModel) loadListCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.source.List(m.ctx, m.principal, export.ListInput{
			FormTitle: m.formTitle,
			Limit:     m.limit,
		})
		if err != nil {
			logging.Warn(m.ctx, "list submissions failed", slog.Any("err", errs.Loggable(err)))
		}
		return listLoadedMsg{items: items, err: err}
	}
}

func (m *submissionsModel) loadDetailCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		detail, err := m.source.Get(m.ctx, m.principal, selected.ID)
		return detailLoadedMsg{id: selected.ID, detail: detail, err: err}
	}
}

func (m *submissionsModel) selected() (export.ListItem, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return export.ListItem{}, false
	}
	return m.items[m.selectedIndex], true
}

func detailText(d export.Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %d\n", d.ID)
	fmt.Fprintf(&b, "Form: %s\n", d.Form)
	fmt.Fprintf(&b, "Date: %s\n", d.Date)
	if d.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", d.Title)
	}

	b.WriteString("\nSummary:\n")
	lines := submission.SummaryLines(d.Summary)
	if len(lines) == 0 {
		b.WriteString("- none\n")
	}
	for i, line := range lines {
		if i == maxSummaryLines {
			fmt.Fprintf(&b, "  … %d more\n", len(lines)-maxSummaryLines)
			break
		}
		b.WriteString("  " + line + "\n")
	}

	if len(d.Files) > 0 {
		b.WriteString("\nFiles:\n")
		keys := make([]string, 0, len(d.Files))
		for key := range d.Files {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", key, d.Files[key])
		}
	}
	return b.String()
}

func row(name, email, phone, form, date string) string {
	return strings.Join([]string{
		fit(name, nameWidth),
		fit(email, emailWidth),
		fit(phone, phoneWidth),
		fit(form, formWidth),
		date,
	}, " ")
}

// fit pads or truncates s to width runes.
func fit(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func describeError(err error) string {
	switch errs.CodeOf(err) {
	case errs.CodeUnauthenticated, errs.CodeForbidden:
		return "insufficient permissions"
	case errs.CodeNotFound:
		return "submission not found"
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
