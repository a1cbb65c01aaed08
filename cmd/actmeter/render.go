package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/c360/actmeter/combat"
	"github.com/c360/actmeter/config"
	"github.com/c360/actmeter/texttag"
)

// renderer prints the current event as text using the configured
// encounter and combatant templates.
type renderer struct {
	cfg  config.RenderConfig
	opts texttag.Options
}

func newRenderer(cfg config.RenderConfig) *renderer {
	return &renderer{
		cfg:  cfg,
		opts: texttag.Options{Grouping: cfg.Grouping, BlankIfZero: cfg.BlankIfZero},
	}
}

// Render formats ev: one encounter line, then one line per combatant in
// sort order, at most TopN of them. Incomplete events render as "".
func (r *renderer) Render(ev *combat.Event) string {
	if !ev.Complete() {
		return ""
	}

	var b strings.Builder
	b.WriteString(texttag.Format(r.cfg.EncounterFormat, ev.Encounter, r.opts))
	if !ev.IsActive() {
		b.WriteString(" (ended)")
	}

	ranked := ev.SortCombatants(r.cfg.SortBy)
	if r.cfg.TopN > 0 && len(ranked) > r.cfg.TopN {
		ranked = ranked[:r.cfg.TopN]
	}
	for _, c := range ranked {
		b.WriteByte('\n')
		b.WriteString(texttag.Format(r.cfg.CombatantFormat, c, r.opts))
	}
	return b.String()
}

// Run prints the event returned by current every interval until ctx ends.
// An event is printed once; ticks that see the same event print nothing.
func (r *renderer) Run(ctx context.Context, current func() *combat.Event, w io.Writer) error {
	interval := r.cfg.Interval.Std()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *combat.Event
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ev := current()
		if ev == nil || ev == last {
			continue
		}
		last = ev

		if out := r.Render(ev); out != "" {
			if _, err := fmt.Fprintf(w, "%s\n\n", out); err != nil {
				return err
			}
		}
	}
}
