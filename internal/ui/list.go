package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

var _ list.Item = itemEntry{}

// itemEntry wraps [models.Item] to implement [list.Item].
type itemEntry struct {
	item  models.Item
	chunk int
}

func (i itemEntry) FilterValue() string { return i.item.Title + " " + i.item.Artist }
func (i itemEntry) Title() string       { return i.item.Title }
func (i itemEntry) Description() string {
	parts := []string{}
	if i.item.Artist != "" {
		parts = append(parts, i.item.Artist)
	}
	if i.item.DurationMS > 0 {
		parts = append(parts, shared.FormatDuration(i.item.DurationMS))
	}
	parts = append(parts, fmt.Sprintf("chunk %d", i.chunk))
	return strings.Join(parts, " • ")
}
