// archive-browser is a terminal viewer for the PostgreSQL archive: the
// sightings and flight plans the bridge has recorded. It refreshes itself
// periodically, so it can watch a live session or browse a past one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/fsdbridge/internal/db"
	"github.com/unklstewy/fsdbridge/pkg/config"
)

const refreshInterval = 5 * time.Second

// Browser is the archive viewer application.
type Browser struct {
	archive *db.Archive

	app        *tview.Application
	sightings  *tview.Table
	plans      *tview.Table
	detail     *tview.TextView
	status     *tview.TextView
	rootLayout *tview.Flex

	rows     []db.Sighting
	planRows []db.StoredFlightPlan
	stopChan chan struct{}
}

// NewBrowser builds the UI over an open archive.
func NewBrowser(archive *db.Archive) *Browser {
	b := &Browser{
		archive:  archive,
		app:      tview.NewApplication(),
		stopChan: make(chan struct{}),
	}
	b.setupUI()
	return b
}

func (b *Browser) setupUI() {
	b.sightings = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	b.sightings.SetBorder(true).SetTitle(" Sightings ")
	b.sightings.SetSelectionChangedFunc(func(row, col int) {
		b.updateDetail(row - 1)
	})

	b.plans = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	b.plans.SetBorder(true).SetTitle(" Flight Plans ")

	b.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	b.detail.SetBorder(true).SetTitle(" Detail ")

	b.status = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.detail, 0, 1, false).
		AddItem(b.plans, 0, 2, false)

	tables := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(b.sightings, 0, 6, true).
		AddItem(sidebar, 0, 4, false)

	b.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tables, 0, 1, true).
		AddItem(b.status, 1, 0, false)

	b.app.SetRoot(b.rootLayout, true)
	b.app.SetInputCapture(b.handleKeyboard)
}

func (b *Browser) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q':
		b.app.Stop()
		return nil
	case 'r':
		go b.refresh()
		return nil
	}
	if event.Key() == tcell.KeyTab {
		if b.sightings.HasFocus() {
			b.app.SetFocus(b.plans)
		} else {
			b.app.SetFocus(b.sightings)
		}
		return nil
	}
	return event
}

// refresh reloads both tables from the database.
func (b *Browser) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := b.archive.RecentSightings(ctx, 200)
	if err != nil {
		b.app.QueueUpdateDraw(func() {
			b.status.SetText(fmt.Sprintf("[red]Query failed: %v[-]", err))
		})
		return
	}
	plans, err := b.archive.FlightPlans(ctx, 200)
	if err != nil {
		b.app.QueueUpdateDraw(func() {
			b.status.SetText(fmt.Sprintf("[red]Query failed: %v[-]", err))
		})
		return
	}

	b.app.QueueUpdateDraw(func() {
		b.rows = rows
		b.planRows = plans
		b.renderSightings()
		b.renderPlans()
		b.status.SetText(fmt.Sprintf(
			"[gray]%d sightings, %d flight plans  |  TAB: switch  r: refresh  q: quit  |  updated %s[-]",
			len(rows), len(plans), time.Now().Format("15:04:05")))
	})
}

func (b *Browser) renderSightings() {
	b.sightings.Clear()

	headers := []string{"CALLSIGN", "HEX", "ALT", "GS", "HDG", "SQUAWK", "MODEL", "PROVIDER", "LAST SEEN", "POS"}
	for c, h := range headers {
		b.sightings.SetCell(0, c, tview.NewTableCell("[yellow]"+h+"[-]").SetSelectable(false))
	}

	for r, s := range b.rows {
		cells := []string{
			s.Callsign,
			s.Hex,
			fmt.Sprintf("%d", s.Altitude),
			fmt.Sprintf("%d", s.GroundSpeed),
			fmt.Sprintf("%d", s.Heading),
			s.Squawk,
			s.Model,
			s.Provider,
			s.LastSeen.Local().Format("15:04:05"),
			fmt.Sprintf("%d", s.Positions),
		}
		for c, text := range cells {
			b.sightings.SetCell(r+1, c, tview.NewTableCell(text))
		}
	}

	if row, _ := b.sightings.GetSelection(); row < 1 && len(b.rows) > 0 {
		b.sightings.Select(1, 0)
	}
	row, _ := b.sightings.GetSelection()
	b.updateDetail(row - 1)
}

func (b *Browser) renderPlans() {
	b.plans.Clear()

	headers := []string{"CALLSIGN", "ORIG", "DEST", "TYPE", "ALT"}
	for c, h := range headers {
		b.plans.SetCell(0, c, tview.NewTableCell("[yellow]"+h+"[-]").SetSelectable(false))
	}

	for r, p := range b.planRows {
		cells := []string{
			p.Callsign,
			p.Origin,
			p.Destination,
			p.AircraftType,
			fmt.Sprintf("%d", p.Altitude),
		}
		for c, text := range cells {
			b.plans.SetCell(r+1, c, tview.NewTableCell(text))
		}
	}
}

// updateDetail shows the selected sighting, plus its archived flight plan
// when one exists.
func (b *Browser) updateDetail(idx int) {
	if idx < 0 || idx >= len(b.rows) {
		b.detail.SetText("[gray]No sighting selected[-]")
		return
	}
	s := b.rows[idx]

	text := fmt.Sprintf("[yellow]%s[-] [gray](%s)[-]\n", s.Callsign, s.Hex)
	text += fmt.Sprintf("[gray]Pos:[-]   [white]%.4f, %.4f[-]\n", s.Latitude, s.Longitude)
	text += fmt.Sprintf("[gray]Alt:[-]   [white]%d ft[-]  [gray]GS:[-] [white]%d kts[-]  [gray]Hdg:[-] [white]%d°[-]\n",
		s.Altitude, s.GroundSpeed, s.Heading)
	text += fmt.Sprintf("[gray]Route:[-] [white]%s → %s[-]\n", orDash(s.Origin), orDash(s.Destination))
	text += fmt.Sprintf("[gray]Seen:[-]  [white]%s → %s[-] [gray](%d fixes)[-]\n",
		s.FirstSeen.Local().Format("15:04:05"), s.LastSeen.Local().Format("15:04:05"), s.Positions)

	for _, p := range b.planRows {
		if p.Callsign != s.Callsign {
			continue
		}
		text += fmt.Sprintf("\n[yellow]FILED:[-] [white]%s → %s at %d ft[-]\n",
			p.Origin, p.Destination, p.Altitude)
		if p.Route != "" {
			text += fmt.Sprintf("[gray]Route:[-] [white]%s[-]\n", p.Route)
		}
		break
	}

	b.detail.SetText(text)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Run starts the refresh ticker and the UI event loop.
func (b *Browser) Run() error {
	go b.refresh()
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.refresh()
			case <-b.stopChan:
				return
			}
		}
	}()
	defer close(b.stopChan)

	return b.app.Run()
}

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Archive.Enabled {
		log.Fatal("Archive is disabled in the configuration; nothing to browse")
	}

	database, err := db.Connect(cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to connect to archive database: %v", err)
	}
	defer database.Close()

	archive := db.NewArchive(database)
	defer archive.Stop()

	browser := NewBrowser(archive)
	if err := browser.Run(); err != nil {
		log.Fatalf("Browser failed: %v", err)
	}
}
