// scope is a terminal radar client for the bridge: it connects to the FSD
// port like an ATC client would, registers as a controller, and renders
// the injected traffic as a plan view plus a flight-strip table. Useful
// for checking what the bridge is serving without starting a simulator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	scopeCallsign = "SCOPE_TWR"

	// Plan-view dimensions in cells.
	planWidth  = 70
	planHeight = 22
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	aircraftStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	metarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

// scopeAircraft is the scope's view of one injected pilot, assembled from
// position and flight-plan lines.
type scopeAircraft struct {
	callsign  string
	squawk    string
	lat, lon  float64
	altitude  int
	speed     int
	rules     string
	acType    string
	origin    string
	dest      string
	route     string
	lastSeen  time.Time
	hasRealFP bool
}

type model struct {
	conn     net.Conn
	aircraft map[string]*scopeAircraft
	order    []string
	selected int
	metars   []string
	err      error

	inputMode   bool
	inputBuffer string
}

type lineMsg string

type disconnectMsg struct{ err error }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.inputMode {
			switch msg.String() {
			case "enter":
				station := strings.ToUpper(strings.TrimSpace(m.inputBuffer))
				if station != "" {
					fmt.Fprintf(m.conn, "$AX%s:SERVER:METAR:%s\r\n", scopeCallsign, station)
				}
				m.inputMode = false
				m.inputBuffer = ""
			case "esc":
				m.inputMode = false
				m.inputBuffer = ""
			case "backspace":
				if len(m.inputBuffer) > 0 {
					m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
				}
			default:
				if len(msg.String()) == 1 {
					m.inputBuffer += msg.String()
				}
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.order)-1 {
				m.selected++
			}
		case "m":
			m.inputMode = true
			m.inputBuffer = ""
		case "f":
			// Ask the bridge for the selected aircraft's flight plan.
			if m.selected < len(m.order) {
				fmt.Fprintf(m.conn, "$CQ%s:SERVER:FP:%s\r\n", scopeCallsign, m.order[m.selected])
			}
		}

	case lineMsg:
		m.handleLine(string(msg))

	case disconnectMsg:
		m.err = msg.err
		return m, tea.Quit

	case tickMsg:
		m.expireStale()
		return m, tick()
	}

	return m, nil
}

// handleLine folds one server line into the scope state.
func (m *model) handleLine(line string) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(line, "@N:"):
		m.handlePosition(strings.Split(line[3:], ":"))
	case strings.HasPrefix(line, "$FP"):
		m.handleFlightPlan(strings.Split(line[3:], ":"))
	case strings.HasPrefix(line, "$ARSERVER:"):
		fields := strings.SplitN(line, ":", 4)
		if len(fields) == 4 {
			m.metars = append(m.metars, fields[3])
			if len(m.metars) > 3 {
				m.metars = m.metars[1:]
			}
		}
	}
}

// handlePosition parses callsign:squawk:1:lat:lon:alt:gs:pbh:0.
func (m *model) handlePosition(fields []string) {
	if len(fields) < 8 {
		return
	}

	lat, err1 := strconv.ParseFloat(fields[3], 64)
	lon, err2 := strconv.ParseFloat(fields[4], 64)
	alt, err3 := strconv.Atoi(fields[5])
	gs, err4 := strconv.Atoi(fields[6])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return
	}

	ac := m.aircraft[fields[0]]
	if ac == nil {
		ac = &scopeAircraft{callsign: fields[0]}
		m.aircraft[fields[0]] = ac
		m.order = append(m.order, fields[0])
		sort.Strings(m.order)
	}
	ac.squawk = fields[1]
	ac.lat, ac.lon = lat, lon
	ac.altitude, ac.speed = alt, gs
	ac.lastSeen = time.Now()
}

// handleFlightPlan parses callsign::rules:type:speed:origin:0:0:alt:dest:...:remarks:route.
func (m *model) handleFlightPlan(fields []string) {
	if len(fields) < 10 {
		return
	}

	ac := m.aircraft[fields[0]]
	if ac == nil {
		ac = &scopeAircraft{callsign: fields[0], lastSeen: time.Now()}
		m.aircraft[fields[0]] = ac
		m.order = append(m.order, fields[0])
		sort.Strings(m.order)
	}
	ac.rules = fields[2]
	ac.acType = fields[3]
	ac.origin = fields[5]
	ac.dest = fields[9]
	if route := fields[len(fields)-1]; route != "" {
		ac.route = route
		ac.hasRealFP = true
	}
}

// expireStale drops aircraft the bridge has stopped sending.
func (m *model) expireStale() {
	cutoff := time.Now().Add(-30 * time.Second)
	kept := m.order[:0]
	for _, cs := range m.order {
		if m.aircraft[cs].lastSeen.Before(cutoff) {
			delete(m.aircraft, cs)
			continue
		}
		kept = append(kept, cs)
	}
	m.order = kept
	if m.selected >= len(m.order) && m.selected > 0 {
		m.selected = len(m.order) - 1
	}
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("FSDBRIDGE SCOPE"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errStyle.Render(fmt.Sprintf("Disconnected: %v", m.err)))
		s.WriteString("\n")
		return s.String()
	}

	if m.inputMode {
		s.WriteString(promptStyle.Render("Enter METAR station (e.g., KJFK):"))
		s.WriteString("\n")
		s.WriteString(inputStyle.Render("> " + m.inputBuffer + "_"))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("ENTER: Request  ESC: Cancel"))
		return s.String()
	}

	s.WriteString(m.renderPlanView())
	s.WriteString("\n")
	s.WriteString(m.renderStrips())

	for _, metar := range m.metars {
		s.WriteString(metarStyle.Render("WX  " + metar))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: Select  f: Flight plan  m: METAR  q: Quit"))
	s.WriteString("\n")

	return s.String()
}

// renderPlanView draws the traffic on a grid scaled to its extents.
func (m model) renderPlanView() string {
	grid := make([][]rune, planHeight)
	for i := range grid {
		grid[i] = make([]rune, planWidth)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	minLat, maxLat := 90.0, -90.0
	minLon, maxLon := 180.0, -180.0
	for _, cs := range m.order {
		ac := m.aircraft[cs]
		if ac.lat < minLat {
			minLat = ac.lat
		}
		if ac.lat > maxLat {
			maxLat = ac.lat
		}
		if ac.lon < minLon {
			minLon = ac.lon
		}
		if ac.lon > maxLon {
			maxLon = ac.lon
		}
	}
	// Pad degenerate extents so a lone aircraft sits mid-screen.
	if maxLat-minLat < 0.1 {
		minLat -= 0.05
		maxLat += 0.05
	}
	if maxLon-minLon < 0.1 {
		minLon -= 0.05
		maxLon += 0.05
	}

	type mark struct {
		row, col int
		selected bool
	}
	var marks []mark
	for i, cs := range m.order {
		ac := m.aircraft[cs]
		col := int((ac.lon - minLon) / (maxLon - minLon) * float64(planWidth-1))
		row := int((maxLat - ac.lat) / (maxLat - minLat) * float64(planHeight-1))
		grid[row][col] = '^'
		marks = append(marks, mark{row: row, col: col, selected: i == m.selected})
	}

	var out strings.Builder
	out.WriteString(borderStyle.Render("+" + strings.Repeat("-", planWidth) + "+"))
	out.WriteString("\n")
	for r := 0; r < planHeight; r++ {
		out.WriteString(borderStyle.Render("|"))
		for c := 0; c < planWidth; c++ {
			ch := grid[r][c]
			if ch == ' ' {
				out.WriteRune(' ')
				continue
			}
			style := aircraftStyle
			for _, mk := range marks {
				if mk.row == r && mk.col == c && mk.selected {
					style = selectedStyle
				}
			}
			out.WriteString(style.Render(string(ch)))
		}
		out.WriteString(borderStyle.Render("|"))
		out.WriteString("\n")
	}
	out.WriteString(borderStyle.Render("+" + strings.Repeat("-", planWidth) + "+"))
	out.WriteString("\n")

	return out.String()
}

// renderStrips draws the flight-strip table.
func (m model) renderStrips() string {
	var out strings.Builder

	out.WriteString(fmt.Sprintf("%-10s %-6s %-6s %7s %5s %-5s %-5s %s\n",
		"CALLSIGN", "SQUAWK", "TYPE", "ALT", "GS", "ORIG", "DEST", "ROUTE"))

	for i, cs := range m.order {
		ac := m.aircraft[cs]
		route := ac.route
		if len(route) > 30 {
			route = route[:27] + "..."
		}
		line := fmt.Sprintf("%-10s %-6s %-6s %7d %5d %-5s %-5s %s",
			ac.callsign, ac.squawk, ac.acType, ac.altitude, ac.speed,
			ac.origin, ac.dest, route)

		if i == m.selected {
			out.WriteString(selectedStyle.Render("> " + line))
		} else {
			out.WriteString("  " + line)
		}
		out.WriteString("\n")
	}

	if len(m.order) == 0 {
		out.WriteString(helpStyle.Render("  (no traffic yet)"))
		out.WriteString("\n")
	}

	return out.String()
}

// readLines feeds server lines into the program until the socket closes.
func readLines(p *tea.Program, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		p.Send(lineMsg(scanner.Text()))
	}
	p.Send(disconnectMsg{err: scanner.Err()})
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6809", "Bridge FSD address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close()

	// Register as the session controller so beacon and METAR lines carry
	// our callsign.
	fmt.Fprintf(conn, "$CQ%s:SERVER:ATC:%s\r\n", scopeCallsign, scopeCallsign)

	m := model{
		conn:     conn,
		aircraft: make(map[string]*scopeAircraft),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	go readLines(p, conn)

	if _, err := p.Run(); err != nil {
		log.Fatalf("Scope failed: %v", err)
	}
	os.Exit(0)
}
