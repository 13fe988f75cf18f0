package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/officebot/loanarm/pkg/robot"
	"github.com/officebot/loanarm/pkg/statusbus"
)

type BorrowCommand struct {
	CommonFlags
	Item string `long:"item" short:"i" required:"true" description:"catalog item name, e.g. 'Pen' or 'Computer Mouse'"`
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stepStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *BorrowCommand) Execute(args []string) error {
	if !robot.Known(c.Item) {
		return fmt.Errorf("unknown item %q, catalog: %s", c.Item, catalogNames())
	}
	item := robot.Item(c.Item)

	a, err := newApp(c.CommonFlags, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Availability is tracked per process; a fresh invocation starts
	// with everything loaned out, so only warn here.
	if !a.ledger.IsAvailable(item) {
		fmt.Println(stepStyle.Render(fmt.Sprintf("Note: %s is not marked available in this session, proceeding", item)))
	}

	events := make(chan statusbus.Event, 64)
	if err := a.bus.Subscribe("cli", events); err != nil {
		return err
	}
	go func() {
		for ev := range events {
			fmt.Println(stepStyle.Render(ev.String()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := a.orch.Borrow(ctx, item); err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("Borrow failed: %v", err)))
		return err
	}

	if err := a.ledger.MarkLoaned(item); err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("%s delivered to the drop zone", item)))
	return nil
}

func catalogNames() string {
	var names []string
	for _, it := range robot.AllItems() {
		names = append(names, string(it))
	}
	return strings.Join(names, ", ")
}
