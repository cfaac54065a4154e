package coordinator

import (
	"fmt"
	"strings"

	"github.com/susu3304/mockinterviewbot/internal/pairing"
)

// Reaction and decoration emojis. Join and Available are the only symbols
// users react with; the rest decorate bot messages.
const (
	SymbolJoin      = "\U0001F4BB" // 💻
	SymbolConfirmed = "\u2705"     // ✅
	SymbolDeclined  = "\u274C"     // ❌
	SymbolPaired    = "\U0001F91D" // 🤝
	SymbolAvailable = "\U0001F590" // 🖐
	SymbolSad       = "\U0001F622"
	SymbolNerd      = "\U0001F913"
	SymbolDate      = "\U0001F4C5"
)

const everyone = "@everyone"

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func invitationMessage() string {
	var b strings.Builder
	b.WriteString(everyone + "\nIt's mock interviews time!\n\n")
	fmt.Fprintf(&b, "React to this message with %s if you want to join the mock interviews of the week.\n\n", SymbolJoin)
	b.WriteString("**You have 24 hours to react to this message to be considered in the mock interview teams.**\n")
	return b.String()
}

func joinedMessage(userID string) string {
	return fmt.Sprintf("%s joined the mock interviews. %s", mention(userID), SymbolConfirmed)
}

func leftMessage(userID string) string {
	return fmt.Sprintf("%s left the mock interviews. %s", mention(userID), SymbolDeclined)
}

// teamsMessage renders the weekly teams. It only reads the assignment, so
// rendering the same assignment twice gives the same text.
func teamsMessage(a pairing.Assignment) string {
	if a.Insufficient() {
		return fmt.Sprintf("%s\nThere are not enough people to create mock interview teams! %s", everyone, SymbolSad)
	}

	var b strings.Builder
	b.WriteString(everyone + "\nThe mock interview teams have been created!\n")
	fmt.Fprintf(&b, "Please get in touch with your team to agree on a date and time for the interviews. %s\n\n", SymbolDate)
	fmt.Fprintf(&b, "Good luck! %s\n\n", SymbolNerd)
	b.WriteString("Mock interview teams:\n")
	for _, team := range a.Teams {
		fmt.Fprintf(&b, "%s — %s %s\n", mention(team.First), mention(team.Second), SymbolPaired)
	}
	return b.String()
}

func leftoverMessage(userID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has no team this week. %s\n\n", mention(userID), SymbolSad)
	fmt.Fprintf(&b, "%s\nReact to this message with %s if you want to team up with %s this week.", everyone, SymbolAvailable, mention(userID))
	return b.String()
}

func rematchMessage(partnerID, leftoverID string) string {
	return fmt.Sprintf("%s is the partner of %s this week. %s", mention(partnerID), mention(leftoverID), SymbolPaired)
}
