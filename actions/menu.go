package actions

import (
	"context"
	"strings"
)

type menuEntry struct {
	key   string
	label string
	run   func(ctx context.Context) error
}

func (o *Orchestrator) menuEntries() []menuEntry {
	return []menuEntry{
		{"1", "Install", func(ctx context.Context) error { _, err := o.Install(ctx, false); return err }},
		{"2", "Update", func(ctx context.Context) error { _, err := o.Update(ctx); return err }},
		{"3", "Configure domain / HTTPS", func(ctx context.Context) error { _, err := o.ConfigureDomain(ctx); return err }},
		{"4", "Status", o.Status},
		{"5", "Restart", func(ctx context.Context) error { _, err := o.Restart(ctx); return err }},
		{"6", "Logs", func(ctx context.Context) error { return o.Logs(ctx, 50) }},
		{"7", "Uninstall", func(ctx context.Context) error { _, err := o.Uninstall(ctx); return err }},
	}
}

// Menu shows the numbered menu until the operator exits. Declined
// confirmations and input errors come back to the menu; any other error
// ends the loop and is returned.
func (o *Orchestrator) Menu(ctx context.Context) error {
	entries := o.menuEntries()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		o.Console.Println()
		o.Console.Println(titleStyle.Render("qBit Smart Web Manager") + "  " + mutedStyle.Render(o.State().String()))
		for _, e := range entries {
			o.Console.Printf("  %s) %s\n", e.key, e.label)
		}
		o.Console.Printf("  0) Exit\n")

		choice := strings.TrimSpace(o.Prompt.Prompt("Choose an option", "0"))
		if choice == "0" {
			return nil
		}

		var selected *menuEntry
		for i := range entries {
			if entries[i].key == choice {
				selected = &entries[i]
			}
		}
		if selected == nil {
			o.Console.Warn("Unknown option %q", choice)
			continue
		}

		err := selected.run(ctx)
		if err == nil {
			continue
		}
		if IsRecoverable(err) {
			o.Console.Warn("%v", err)
			continue
		}
		return err
	}
}
