package logparse

import (
	"sort"
	"strings"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// channelByColor maps every known message color to its channel. Several
// historical color variants share a channel.
var channelByColor = map[string]model.Channel{
	"#c8ffc8": model.Public,
	"#ffffff": model.Public,
	"#64ff64": model.Private,
	"#f7b73c": model.Team,
	"#94ddfa": model.Club,
	"#ff64ff": model.System,
	"#ff6464": model.System,
	"#64ff80": model.System,
	"#c896c8": model.Server,
}

// Classify maps a color token to its channel. Unknown colors are a format
// error; there is no default channel.
func Classify(color string) (model.Channel, error) {
	ch, ok := channelByColor[strings.ToLower(strings.TrimSpace(color))]
	if !ok {
		return 0, &FormatError{Line: color, Reason: ErrUnknownColor}
	}
	return ch, nil
}

// KnownColors returns a copy of the color table.
func KnownColors() map[string]model.Channel {
	out := make(map[string]model.Channel, len(channelByColor))
	for k, v := range channelByColor {
		out[k] = v
	}
	return out
}

// SortedColors returns the known colors in lexical order.
func SortedColors() []string {
	colors := make([]string, 0, len(channelByColor))
	for c := range channelByColor {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	return colors
}
