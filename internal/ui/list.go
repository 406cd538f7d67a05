package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/acegen/internal/models"
)

var (
	_ list.Item = channelItem{}
)

// channelItem wraps [models.Channel] to implement [list.Item].
type channelItem struct {
	channel models.Channel
}

func (i channelItem) FilterValue() string { return i.channel.Name }
func (i channelItem) Title() string       { return i.channel.Name }
func (i channelItem) Description() string {
	desc := fmt.Sprintf("availability %.2f", i.channel.Availability)
	if i.channel.Category != "" {
		desc = fmt.Sprintf("%s • %s", i.channel.Category, desc)
	}
	return desc
}
