package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/officebot/loanarm/pkg/inventory"
	"github.com/officebot/loanarm/pkg/robot"
)

type StatusCommand struct {
	CommonFlags
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	availStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	loanedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Padding(0, 1)
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *StatusCommand) Execute(args []string) error {
	a, err := newApp(c.CommonFlags, false)
	if err != nil {
		return err
	}
	defer a.Close()

	joints, _ := a.store.Snapshot()
	statuses := a.ledger.All()

	var rows [][]string
	var loaned []bool
	for _, item := range robot.AllItems() {
		status := statuses[item]
		slot := item.StorageName()
		calibrated := "yes"
		if _, ok := joints[slot]; !ok {
			calibrated = "NO"
		}
		rows = append(rows, []string{string(item), string(status), slot, calibrated})
		loaned = append(loaned, status == inventory.LoanedOut)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Item", "Status", "Storage slot", "Calibrated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 && row >= 0 && row < len(loaned) {
				if loaned[row] {
					return loanedStyle
				}
				return availStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())

	counts := a.ledger.Counts()
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d in storage, %d on loan (availability is tracked per session)",
		counts[inventory.Available], counts[inventory.LoanedOut])))
	return nil
}
