package engine

import (
	"context"

	"github.com/macropower/chipper/pkg/analytics"
)

// ActionKind is a kind of user action on the page.
type ActionKind string

const (
	// ActionSearch is a search submitted from the page.
	ActionSearch ActionKind = "search"
	// ActionClick is a click on one of the page's items.
	ActionClick ActionKind = "click"
)

// Action is something the user did on the page.
type Action struct {
	Kind      ActionKind
	Query     string
	ItemID    string
	ItemTitle string
}

// RecordAction records a user action, attributed to the chip selected in
// the open session.
func (c *Controller) RecordAction(ctx context.Context, a Action) {
	var text, source string

	cur, ok := c.sessions.Current()
	if ok {
		text = cur.SelectedText
		source = string(cur.Source)
	}

	attributed := func(p analytics.Payload) analytics.Payload {
		p[analytics.KeyChipSource] = source
		p[analytics.KeyChipText] = text

		return p
	}

	c.recorder.Record(ctx, analytics.KindMainPageAction, attributed(analytics.Payload{
		analytics.KeyAction: string(a.Kind),
	}))

	switch a.Kind {
	case ActionSearch:
		if a.Query != "" {
			c.recorder.Record(ctx, analytics.KindSearch, attributed(analytics.Payload{
				analytics.KeySearchQuery: a.Query,
			}))
		}

	case ActionClick:
		if a.ItemID != "" || a.ItemTitle != "" {
			c.recorder.Record(ctx, analytics.KindItemOpened, attributed(analytics.Payload{
				analytics.KeyItemID:    a.ItemID,
				analytics.KeyItemTitle: a.ItemTitle,
			}))
		}
	}
}
