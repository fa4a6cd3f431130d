// Package status renders the process state into the Discord status message
// and derives the deployment-scoped control button identifiers.
package status

import (
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/seedingbot/internal/process"
)

// Embed colors.
const (
	ColorRunning = 0x00FF00
	ColorStopped = 0xFF0000
)

// Action names bound to the two control buttons.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// Text holds the static strings shown on the status message.
type Text struct {
	Title       string
	Description string
	FieldName   string
}

// DefaultText is used for any empty Text field.
var DefaultText = Text{
	Title:       "Basic Seeding",
	Description: "Midcap only",
	FieldName:   "Docker Status",
}

// Rendered is the display artifact for one status snapshot. It holds no
// timestamp so identical inputs compare equal.
type Rendered struct {
	Title       string
	Description string
	FieldName   string
	FieldValue  string
	Color       int
	Footer      string
}

// Render builds the display artifact for st at location.
func Render(st process.Status, location string, text Text) Rendered {
	text = text.withDefaults()

	r := Rendered{
		Title:       text.Title,
		Description: text.Description,
		FieldName:   text.FieldName,
		FieldValue:  "🔴 Stopped",
		Color:       ColorStopped,
		Footer:      "Server: " + location,
	}
	if st.Running {
		r.FieldValue = "🟢 Running"
		r.Color = ColorRunning
	}
	return r
}

func (t Text) withDefaults() Text {
	if t.Title == "" {
		t.Title = DefaultText.Title
	}
	if t.Description == "" {
		t.Description = DefaultText.Description
	}
	if t.FieldName == "" {
		t.FieldName = DefaultText.FieldName
	}
	return t
}

// Embed converts r into a Discord embed stamped with ts.
func Embed(r Rendered, ts time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       r.Title,
		Description: r.Description,
		Color:       r.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: r.FieldName, Value: r.FieldValue},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: r.Footer},
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
}

// ButtonIDs are the custom ids of the START and STOP buttons.
type ButtonIDs struct {
	Start string
	Stop  string
}

// NewButtonIDs derives the button ids for a location label, e.g.
// "US East 1" gives start-us-east-1 and stop-us-east-1.
func NewButtonIDs(location string) ButtonIDs {
	slug := Slug(location)
	return ButtonIDs{
		Start: ActionStart + "-" + slug,
		Stop:  ActionStop + "-" + slug,
	}
}

// Action returns the action bound to customID, or "" if it belongs to
// another deployment.
func (ids ButtonIDs) Action(customID string) string {
	switch customID {
	case ids.Start:
		return ActionStart
	case ids.Stop:
		return ActionStop
	default:
		return ""
	}
}

// Slug lowercases location and replaces each run of whitespace with "-".
func Slug(location string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(location) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Buttons returns the action row with the START and STOP buttons.
func Buttons(ids ButtonIDs) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "START",
					Style:    discordgo.SuccessButton,
					CustomID: ids.Start,
				},
				discordgo.Button{
					Label:    "STOP",
					Style:    discordgo.DangerButton,
					CustomID: ids.Stop,
				},
			},
		},
	}
}
