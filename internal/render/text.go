// Package render turns coordinator results into the plain-text replies shown to
// agents and terminals.
package render

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/models"
)

// Status renders a participant's view of the table.
func Status(v *coordinator.StatusView) string {
	var b strings.Builder
	headToHead := v.PlayerCount == 2

	b.WriteString("=== Your Hand ===\n")
	for i, c := range v.Hand {
		fmt.Fprintf(&b, " %d. %s\n", i+1, c)
	}

	b.WriteString("\n=== Table ===\n")
	fmt.Fprintf(&b, "Top card: %s\n", v.TopCard)
	fmt.Fprintf(&b, "Current color: %s\n", v.ActiveColor)
	fmt.Fprintf(&b, "Draw pile: %d cards\n", v.DrawCount)
	for _, seat := range v.Others {
		fmt.Fprintf(&b, "%s has: %d cards\n", seatLabel(seat.ID, headToHead), seat.CardCount)
	}
	if !headToHead {
		fmt.Fprintf(&b, "Direction: %s\n", v.Direction)
	}
	if v.LastAction != "" {
		fmt.Fprintf(&b, "Last action: %s\n", v.LastAction)
	}

	b.WriteString("\nStatus: ")
	b.WriteString(StatusLine(v))
	return b.String()
}

// StatusLine is the single-line summary of whose move it is or who won.
func StatusLine(v *coordinator.StatusView) string {
	headToHead := v.PlayerCount == 2
	switch {
	case v.Winner != nil && *v.Winner == v.Viewer:
		return "YOU WON!"
	case v.Winner != nil && headToHead:
		return "OPPONENT WON!"
	case v.Winner != nil:
		return fmt.Sprintf("Player %s WON!", *v.Winner)
	case v.CurrentTurn == v.Viewer:
		return "YOUR TURN"
	case headToHead:
		return "OPPONENT'S TURN"
	default:
		return fmt.Sprintf("Player %s's TURN", v.CurrentTurn)
	}
}

// Act renders the reply to a committed play or draw.
func Act(res *coordinator.ActResult) string {
	if res.Status == nil || res.Won {
		return res.Message
	}
	return res.Message + "\n\nStatus: " + StatusLine(res.Status)
}

// Wait renders why a wait returned.
func Wait(res *coordinator.WaitResult) string {
	if res.TimedOut {
		return "Timed out waiting for your turn. Call wait again.\nLast action: " + res.LastAction
	}
	return res.LastAction
}

func seatLabel(id models.ParticipantID, headToHead bool) string {
	if headToHead {
		return "Opponent"
	}
	return "Player " + string(id)
}
