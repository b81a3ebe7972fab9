package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"androidagent/models"
	"androidagent/service"
	"androidagent/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).PaddingRight(1)

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#43E6D6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5E5E"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32"))

	tableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	tableCell = lipgloss.NewStyle().Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored identity and recent command results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("results")

		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		registered, err := a.agent.Registered()
		if err != nil {
			return err
		}
		identity, err := a.agent.Identity()
		if err != nil && !errors.Is(err, service.ErrNotRegistered) {
			return err
		}

		fmt.Println(titleStyle.Render("Android agent"))
		fmt.Println(renderIdentity(identity, registered))

		if limit <= 0 {
			return nil
		}
		records, err := a.results.Recent(limit)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(renderResults(records))
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("results", 5, "Number of recent command results to show")
	rootCmd.AddCommand(statusCmd)
}

func renderField(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func renderIdentity(identity models.DeviceIdentity, registered bool) string {
	if identity.DeviceID == "" {
		return errorStyle.Render("Not registered")
	}
	rows := []string{
		renderField("Device ID", identity.DeviceID),
		renderField("Name", identity.DeviceName),
	}
	if identity.DeviceModel != "" {
		rows = append(rows, renderField("Model", identity.DeviceModel))
	}
	rows = append(rows, renderField("Registered", strconv.FormatBool(registered)))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderResults(records []storage.ResultRecord) string {
	if len(records) == 0 {
		return labelStyle.UnsetWidth().Render("No commands executed yet")
	}

	headers := []string{"Time", "Command", "Result", "Message"}
	data := make([][]string, len(records))
	for i, r := range records {
		outcome := successStyle.Render("ok")
		if !r.Success {
			outcome = errorStyle.Render("failed")
		}
		data[i] = []string{
			time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04:05"),
			r.CommandType,
			outcome,
			r.Message,
		}
	}
	return renderTable(headers, data)
}

func renderTable(headers []string, data [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range data {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = tableHeader.Width(widths[i] + 2).Render(h)
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Left, headerCells...)}
	for _, row := range data {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = tableCell.Width(widths[i] + 2).Render(cell)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left, cells...))
	}
	return tableStyle.Render(strings.Join(rows, "\n"))
}
